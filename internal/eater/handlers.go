package eater

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/singularis/chater/internal/eater/store"
	"github.com/singularis/chater/internal/runtime"
	errspkg "github.com/singularis/chater/internal/runtime/errors"
)

// Recommender produces a dietary recommendation for a user. It is an
// external collaborator (a model service behind its own topic pair); the
// worker only forwards to it.
type Recommender interface {
	Recommend(ctx context.Context, userEmail string, value map[string]any) (string, error)
}

// Handlers binds the domain operations to the dispatcher. One handler per
// message type; each performs its storage work and returns the response
// value, or a business error for well-formed but rejected requests.
type Handlers struct {
	store       store.Store
	recommender Recommender
}

// NewHandlers constructs the handler set. recommender may be nil, in which
// case the recommendation topic is not registered.
func NewHandlers(st store.Store, recommender Recommender) *Handlers {
	return &Handlers{store: st, recommender: recommender}
}

// RegisterAll wires every message type into the dispatcher's routing table.
func (h *Handlers) RegisterAll(d *runtime.Dispatcher) error {
	registrations := []runtime.HandlerRegistration{
		{Topic: TopicPhotoAnalysisResponse, ResponseTopic: TopicPhotoAnalysisCheck, Handler: h.PhotoAnalysis},
		{Topic: TopicGetTodayData, ResponseTopic: TopicSendTodayData, Handler: h.TodayData},
		{Topic: TopicGetTodayDataCustom, ResponseTopic: TopicSendTodayDataCustom, Handler: h.CustomDateData},
		{Topic: TopicDeleteFood, ResponseTopic: TopicDeleteFoodResponse, Handler: h.DeleteFood},
		{Topic: TopicModifyFoodRecord, ResponseTopic: TopicModifyFoodResponse, Handler: h.ModifyFood},
		{Topic: TopicManualWeight, Handler: h.ManualWeight},
		{Topic: TopicGetAlcoholLatest, ResponseTopic: TopicSendAlcoholLatest, Handler: h.AlcoholLatest},
		{Topic: TopicGetAlcoholRange, ResponseTopic: TopicSendAlcoholRange, Handler: h.AlcoholRange},
		{Topic: TopicGetFoodHealthLevel, ResponseTopic: TopicSendFoodHealthLevel, Handler: h.FoodHealthLevel},
		{Topic: TopicRecordChessGame, ResponseTopic: TopicRecordChessGameResponse, Handler: h.RecordChessGame, SuccessFlag: true},
		{Topic: TopicGetChessStats, ResponseTopic: TopicGetChessStatsResponse, Handler: h.ChessStats},
		{Topic: TopicGetAllChessData, ResponseTopic: TopicGetAllChessDataResponse, Handler: h.AllChessData},
	}
	if h.recommender != nil {
		registrations = append(registrations, runtime.HandlerRegistration{
			Topic:         TopicGetRecommendation,
			ResponseTopic: TopicSendRecommendation,
			Handler:       h.Recommendation,
		})
	}

	for _, reg := range registrations {
		if err := d.Register(reg); err != nil {
			return err
		}
	}
	return nil
}

// TodayData returns the current day's dishes, totals, alcohol summary, and
// latest weight.
func (h *Handlers) TodayData(ctx context.Context, req runtime.Request) (map[string]any, error) {
	summary, err := h.store.TodayDishes(ctx, req.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("get today dishes: %w", err)
	}
	return map[string]any{"dishes": summary}, nil
}

// CustomDateData returns the dishes for a caller-supplied date (dd-mm-yyyy).
func (h *Handlers) CustomDateData(ctx context.Context, req runtime.Request) (map[string]any, error) {
	payload, err := parseCustomDate(req)
	if err != nil {
		return nil, err
	}
	isoDate, err := dayMonthYearToISO(payload.Date)
	if err != nil {
		return nil, errspkg.InvalidInput("date must be dd-mm-yyyy")
	}
	summary, err := h.store.DishesForDate(ctx, req.UserEmail, isoDate)
	if err != nil {
		return nil, fmt.Errorf("get dishes for %s: %w", isoDate, err)
	}
	return map[string]any{"dishes": summary}, nil
}

// DeleteFood removes one dish entry; the confirmation envelope carries only
// the success status.
func (h *Handlers) DeleteFood(ctx context.Context, req runtime.Request) (map[string]any, error) {
	payload, err := parseDeleteFood(req)
	if err != nil {
		return nil, err
	}
	if err := h.store.DeleteFood(ctx, req.UserEmail, payload.Time); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errspkg.NotFound("food record not found")
		}
		return nil, fmt.Errorf("delete food: %w", err)
	}
	return nil, nil
}

// ModifyFood rescales one dish entry to a percentage of its portion.
func (h *Handlers) ModifyFood(ctx context.Context, req runtime.Request) (map[string]any, error) {
	payload, err := parseModifyFood(req)
	if err != nil {
		return nil, err
	}
	if err := h.store.ModifyFood(ctx, req.UserEmail, payload.Time, payload.Percentage); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errspkg.NotFound("food record not found")
		}
		return nil, fmt.Errorf("modify food: %w", err)
	}
	return nil, nil
}

// ManualWeight records a hand-entered weight measurement. Fire-and-forget:
// the UI does not wait on a reply.
func (h *Handlers) ManualWeight(ctx context.Context, req runtime.Request) (map[string]any, error) {
	payload, err := parseManualWeight(req)
	if err != nil {
		return nil, err
	}
	if err := h.store.RecordWeight(ctx, req.UserEmail, payload.Weight, payload.Timestamp); err != nil {
		return nil, fmt.Errorf("record weight: %w", err)
	}
	return nil, nil
}

// AlcoholLatest returns today's alcohol summary, empty when none exists.
func (h *Handlers) AlcoholLatest(ctx context.Context, req runtime.Request) (map[string]any, error) {
	summary, err := h.store.TodayDishes(ctx, req.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("get today dishes: %w", err)
	}
	var alcohol any = map[string]any{}
	if summary.AlcoholOfDay != nil {
		alcohol = summary.AlcoholOfDay
	}
	return map[string]any{"alcohol": alcohol}, nil
}

// AlcoholRange returns the alcohol events between two dates (dd-mm-yyyy).
func (h *Handlers) AlcoholRange(ctx context.Context, req runtime.Request) (map[string]any, error) {
	payload, err := parseAlcoholRange(req)
	if err != nil {
		return nil, err
	}
	start, err := dayMonthYearToISO(payload.StartDate)
	if err != nil {
		return nil, errspkg.InvalidInput("start_date must be dd-mm-yyyy")
	}
	end, err := dayMonthYearToISO(payload.EndDate)
	if err != nil {
		return nil, errspkg.InvalidInput("end_date must be dd-mm-yyyy")
	}
	events, err := h.store.AlcoholEventsInRange(ctx, req.UserEmail, start, end)
	if err != nil {
		return nil, fmt.Errorf("get alcohol range: %w", err)
	}
	return map[string]any{"events": events}, nil
}

// FoodHealthLevel returns the health rating recorded for one dish; an
// unknown record yields an empty object rather than an error.
func (h *Handlers) FoodHealthLevel(ctx context.Context, req runtime.Request) (map[string]any, error) {
	payload, err := decodeValue[FoodHealthLevelRequest](req)
	if err != nil {
		return nil, err
	}
	dish, err := h.store.FoodHealthLevel(ctx, req.UserEmail, payload.Time)
	if errors.Is(err, store.ErrNotFound) {
		return map[string]any{"food_health_level": map[string]any{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get food health level: %w", err)
	}
	return map[string]any{"food_health_level": map[string]any{
		"dish_name":     dish.DishName,
		"health_rating": dish.HealthRating,
	}}, nil
}

// Recommendation forwards the request to the model collaborator.
func (h *Handlers) Recommendation(ctx context.Context, req runtime.Request) (map[string]any, error) {
	text, err := h.recommender.Recommend(ctx, req.UserEmail, req.Value)
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}
	return map[string]any{"recommendation": text}, nil
}

// RecordChessGame stores one finished game for both players and responds
// with the updated head-to-head tallies.
func (h *Handlers) RecordChessGame(ctx context.Context, req runtime.Request) (map[string]any, error) {
	payload, err := parseRecordChessGame(req)
	if err != nil {
		return nil, err
	}

	if err := h.store.RecordChessGame(ctx, payload.PlayerEmail, payload.OpponentEmail, payload.Result, payload.Timestamp); err != nil {
		return nil, fmt.Errorf("record chess game: %w", err)
	}

	playerStats, err := h.store.ChessStats(ctx, payload.PlayerEmail, payload.OpponentEmail)
	if err != nil {
		return nil, fmt.Errorf("get player stats: %w", err)
	}
	opponentStats, err := h.store.ChessStats(ctx, payload.OpponentEmail, payload.PlayerEmail)
	if err != nil {
		return nil, fmt.Errorf("get opponent stats: %w", err)
	}

	return map[string]any{
		"player_wins":     playerStats.Wins,
		"player_losses":   playerStats.Losses,
		"opponent_wins":   opponentStats.Wins,
		"opponent_losses": opponentStats.Losses,
	}, nil
}

// ChessStats returns the score against one opponent, defaulting to the last
// opponent played. A player with no history gets the zeroed default.
func (h *Handlers) ChessStats(ctx context.Context, req runtime.Request) (map[string]any, error) {
	payload, err := parseChessStats(req)
	if err != nil {
		return nil, err
	}
	stats, err := h.store.ChessStats(ctx, req.UserEmail, payload.OpponentEmail)
	if err != nil {
		return nil, fmt.Errorf("get chess stats: %w", err)
	}
	return map[string]any{
		"score":          stats.Score,
		"opponent_name":  stats.OpponentName,
		"last_game_date": stats.LastGameDate,
	}, nil
}

// AllChessData returns the total wins and per-opponent score map.
func (h *Handlers) AllChessData(ctx context.Context, req runtime.Request) (map[string]any, error) {
	summary, err := h.store.AllChessData(ctx, req.UserEmail)
	if err != nil {
		return nil, fmt.Errorf("get all chess data: %w", err)
	}
	return map[string]any{
		"total_wins": summary.TotalWins,
		"opponents":  summary.Opponents,
	}, nil
}

// dayMonthYearToISO converts dd-mm-yyyy to yyyy-mm-dd.
func dayMonthYearToISO(date string) (string, error) {
	parts := strings.Split(date, "-")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return "", fmt.Errorf("invalid date %q", date)
	}
	day, month, year := parts[0], parts[1], parts[2]
	if len(day) == 1 {
		day = "0" + day
	}
	if len(month) == 1 {
		month = "0" + month
	}
	if len(day) != 2 || len(month) != 2 {
		return "", fmt.Errorf("invalid date %q", date)
	}
	return year + "-" + month + "-" + day, nil
}
