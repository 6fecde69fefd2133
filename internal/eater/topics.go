// Package eater implements the worker-side message types of the food and
// weight tracker: the topic route table, the typed request payloads, and the
// handlers invoked by the dispatcher.
package eater

import "github.com/singularis/chater/internal/runtime"

// Logical request topics consumed by the worker.
const (
	TopicPhotoAnalysisResponse = "photo-analysis-response"
	TopicGetTodayData          = "get_today_data"
	TopicGetTodayDataCustom    = "get_today_data_custom"
	TopicDeleteFood            = "delete_food"
	TopicModifyFoodRecord      = "modify_food_record"
	TopicGetRecommendation     = "get_recommendation"
	TopicManualWeight          = "manual_weight"
	TopicGetAlcoholLatest      = "get_alcohol_latest"
	TopicGetAlcoholRange       = "get_alcohol_range"
	TopicGetFoodHealthLevel    = "get_food_health_level"
	TopicRecordChessGame       = "record_chess_game"
	TopicGetChessStats         = "get_chess_stats"
	TopicGetAllChessData       = "get_all_chess_data"
)

// Logical response topics. Request and reply streams never share a name.
const (
	TopicPhotoAnalysisCheck      = "photo-analysis-response-check"
	TopicSendTodayData           = "send_today_data"
	TopicSendTodayDataCustom     = "send_today_data_custom"
	TopicDeleteFoodResponse      = "delete_food_response"
	TopicModifyFoodResponse      = "modify_food_record_response"
	TopicSendRecommendation      = "send_recommendation"
	TopicSendAlcoholLatest       = "send_alcohol_latest"
	TopicSendAlcoholRange        = "send_alcohol_range"
	TopicSendFoodHealthLevel     = "send_food_health_level"
	TopicRecordChessGameResponse = "record_chess_game_response"
	TopicGetChessStatsResponse   = "get_chess_stats_response"
	TopicGetAllChessDataResponse = "get_all_chess_data_response"
)

// ResponseTopics lists every logical topic the client-side reply listener
// subscribes to, including the shared fault topic.
func ResponseTopics() []string {
	return []string{
		TopicPhotoAnalysisCheck,
		TopicSendTodayData,
		TopicSendTodayDataCustom,
		TopicDeleteFoodResponse,
		TopicModifyFoodResponse,
		TopicSendRecommendation,
		TopicSendAlcoholLatest,
		TopicSendAlcoholRange,
		TopicSendFoodHealthLevel,
		TopicRecordChessGameResponse,
		TopicGetChessStatsResponse,
		TopicGetAllChessDataResponse,
		runtime.DefaultErrorTopic,
	}
}
