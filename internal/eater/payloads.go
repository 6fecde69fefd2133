package eater

import (
	"strings"

	"github.com/singularis/chater/internal/runtime"
	errspkg "github.com/singularis/chater/internal/runtime/errors"
	jsoncodec "github.com/singularis/chater/internal/runtime/jsoncodec"
)

// The request payloads form a closed set of variants, one per logical topic.
// Each parse function validates its required fields and returns a business
// error for anything missing or out of range, so malformed input never
// propagates as silent zero values.

func decodeValue[T any](req runtime.Request) (T, error) {
	var out T
	data, err := jsoncodec.Marshal(req.Value)
	if err != nil {
		return out, err
	}
	if err := jsoncodec.Unmarshal(data, &out); err != nil {
		return out, errspkg.InvalidInput("malformed request payload")
	}
	return out, nil
}

// CustomDateRequest asks for the dishes of a specific day, dd-mm-yyyy.
type CustomDateRequest struct {
	Date string `json:"date"`
}

func parseCustomDate(req runtime.Request) (CustomDateRequest, error) {
	out, err := decodeValue[CustomDateRequest](req)
	if err != nil {
		return out, err
	}
	if out.Date == "" {
		return out, errspkg.InvalidInput("date is required")
	}
	return out, nil
}

// DeleteFoodRequest removes one dish entry identified by its record time.
type DeleteFoodRequest struct {
	Time int64 `json:"time"`
}

func parseDeleteFood(req runtime.Request) (DeleteFoodRequest, error) {
	out, err := decodeValue[DeleteFoodRequest](req)
	if err != nil {
		return out, err
	}
	if out.Time == 0 {
		return out, errspkg.InvalidInput("time is required")
	}
	return out, nil
}

// ModifyFoodRequest rescales one dish entry to a percentage of its recorded
// portion.
type ModifyFoodRequest struct {
	Time       int64 `json:"time"`
	Percentage int   `json:"percentage"`
}

func parseModifyFood(req runtime.Request) (ModifyFoodRequest, error) {
	out, err := decodeValue[ModifyFoodRequest](req)
	if err != nil {
		return out, err
	}
	if out.Time == 0 {
		return out, errspkg.InvalidInput("time is required")
	}
	if out.Percentage <= 0 || out.Percentage > 100 {
		return out, errspkg.InvalidInput("percentage must be between 1 and 100")
	}
	return out, nil
}

// AlcoholRangeRequest asks for alcohol events between two dates, dd-mm-yyyy.
type AlcoholRangeRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func parseAlcoholRange(req runtime.Request) (AlcoholRangeRequest, error) {
	out, err := decodeValue[AlcoholRangeRequest](req)
	if err != nil {
		return out, err
	}
	if out.StartDate == "" || out.EndDate == "" {
		return out, errspkg.InvalidInput("start_date and end_date are required")
	}
	return out, nil
}

// FoodHealthLevelRequest asks for the health rating recorded for one dish.
type FoodHealthLevelRequest struct {
	Time     int64  `json:"time"`
	FoodName string `json:"food_name"`
}

// ManualWeightRequest records a weight measurement entered by hand. The type
// discriminator mirrors the photo analysis pipeline shape.
type ManualWeightRequest struct {
	Type      string  `json:"type"`
	Weight    float64 `json:"weight"`
	Timestamp int64   `json:"timestamp"`
}

func parseManualWeight(req runtime.Request) (ManualWeightRequest, error) {
	out, err := decodeValue[ManualWeightRequest](req)
	if err != nil {
		return out, err
	}
	if out.Type != TypeWeightProcessing {
		return out, errspkg.InvalidInput("unknown message type: " + out.Type)
	}
	if out.Weight <= 0 {
		return out, errspkg.InvalidInput("weight must be positive")
	}
	return out, nil
}

// RecordChessGameRequest records one finished game for both players.
type RecordChessGameRequest struct {
	PlayerEmail   string `json:"player_email"`
	OpponentEmail string `json:"opponent_email"`
	Result        string `json:"result"`
	Timestamp     int64  `json:"timestamp"`
}

func parseRecordChessGame(req runtime.Request) (RecordChessGameRequest, error) {
	out, err := decodeValue[RecordChessGameRequest](req)
	if err != nil {
		return out, err
	}
	out.PlayerEmail = strings.TrimSpace(out.PlayerEmail)
	out.OpponentEmail = strings.TrimSpace(out.OpponentEmail)
	out.Result = strings.TrimSpace(out.Result)

	if out.PlayerEmail == "" || out.OpponentEmail == "" {
		return out, errspkg.InvalidInput("player_email and opponent_email required")
	}
	if out.PlayerEmail != req.UserEmail {
		return out, errspkg.Forbidden("Forbidden")
	}
	switch out.Result {
	case "win", "loss", "draw":
	default:
		return out, errspkg.InvalidInput("result must be win, loss, or draw")
	}
	return out, nil
}

// ChessStatsRequest asks for the score against one opponent; a missing
// opponent means "my last opponent".
type ChessStatsRequest struct {
	OpponentEmail string `json:"opponent_email"`
}

func parseChessStats(req runtime.Request) (ChessStatsRequest, error) {
	out, err := decodeValue[ChessStatsRequest](req)
	if err != nil {
		return out, err
	}
	out.OpponentEmail = strings.TrimSpace(out.OpponentEmail)
	return out, nil
}
