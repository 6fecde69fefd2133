package eater

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/singularis/chater/internal/eater/store"
	"github.com/singularis/chater/internal/runtime"
	configpkg "github.com/singularis/chater/internal/runtime/config"
	errspkg "github.com/singularis/chater/internal/runtime/errors"
	loggingpkg "github.com/singularis/chater/internal/runtime/logging"
)

// fakeStore is the in-memory stand-in for the Postgres store. Errors and
// return values are injected per call site; every mutating call is recorded.
type fakeStore struct {
	summary       store.DaySummary
	summaryErr    error
	alcoholEvents []store.AlcoholForDay
	healthDish    store.DishDay
	healthErr     error
	chessStats    map[string]store.ChessStats
	chessSummary  store.ChessSummary

	deleteErr error
	modifyErr error

	addedDishes   []store.DishDay
	weights       []float64
	deletedTimes  []int64
	modifiedTimes []int64
	percentages   []int
	games         []recordedGame
}

type recordedGame struct {
	player, opponent, result string
	timestamp                int64
}

func (f *fakeStore) TodayDishes(_ context.Context, _ string) (store.DaySummary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeStore) DishesForDate(_ context.Context, _, _ string) (store.DaySummary, error) {
	return f.summary, f.summaryErr
}

func (f *fakeStore) AddDish(_ context.Context, _ string, dish store.DishDay) error {
	f.addedDishes = append(f.addedDishes, dish)
	return nil
}

func (f *fakeStore) DeleteFood(_ context.Context, _ string, recordTime int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedTimes = append(f.deletedTimes, recordTime)
	return nil
}

func (f *fakeStore) ModifyFood(_ context.Context, _ string, recordTime int64, percentage int) error {
	if f.modifyErr != nil {
		return f.modifyErr
	}
	f.modifiedTimes = append(f.modifiedTimes, recordTime)
	f.percentages = append(f.percentages, percentage)
	return nil
}

func (f *fakeStore) RecordWeight(_ context.Context, _ string, weight float64, _ int64) error {
	f.weights = append(f.weights, weight)
	return nil
}

func (f *fakeStore) AlcoholEventsInRange(_ context.Context, _, _, _ string) ([]store.AlcoholForDay, error) {
	return f.alcoholEvents, nil
}

func (f *fakeStore) FoodHealthLevel(_ context.Context, _ string, _ int64) (store.DishDay, error) {
	return f.healthDish, f.healthErr
}

func (f *fakeStore) RecordChessGame(_ context.Context, player, opponent, result string, timestamp int64) error {
	f.games = append(f.games, recordedGame{player: player, opponent: opponent, result: result, timestamp: timestamp})
	return nil
}

func (f *fakeStore) ChessStats(_ context.Context, userEmail, _ string) (store.ChessStats, error) {
	if stats, ok := f.chessStats[userEmail]; ok {
		return stats, nil
	}
	return store.ChessStats{Score: "0:0"}, nil
}

func (f *fakeStore) AllChessData(_ context.Context, _ string) (store.ChessSummary, error) {
	return f.chessSummary, nil
}

func testRequest(value map[string]any) runtime.Request {
	return runtime.Request{
		CorrelationID: "corr-1",
		UserEmail:     "a@x.com",
		Value:         value,
	}
}

func TestRegisterAllWiresEveryTopic(t *testing.T) {
	svc, err := runtime.TryNewService(&configpkg.Config{PubSubSystem: "channel"}, noopLogger(), runtime.ServiceDependencies{})
	if err != nil {
		t.Fatalf("service init: %v", err)
	}
	defer svc.Close()
	d := svc.NewDispatcher()

	h := NewHandlers(&fakeStore{}, nil)
	if err := h.RegisterAll(d); err != nil {
		t.Fatalf("register all: %v", err)
	}

	topics := make(map[string]bool)
	for _, topic := range d.Topics() {
		topics[topic] = true
	}
	for _, topic := range []string{
		TopicPhotoAnalysisResponse, TopicGetTodayData, TopicGetTodayDataCustom,
		TopicDeleteFood, TopicModifyFoodRecord, TopicManualWeight,
		TopicGetAlcoholLatest, TopicGetAlcoholRange, TopicGetFoodHealthLevel,
		TopicRecordChessGame, TopicGetChessStats, TopicGetAllChessData,
	} {
		if !topics[topic] {
			t.Fatalf("topic %q not registered", topic)
		}
	}
	if topics[TopicGetRecommendation] {
		t.Fatal("recommendation topic must not register without a recommender")
	}

	d2 := svc.NewDispatcher()
	h2 := NewHandlers(&fakeStore{}, recommenderFunc(func(context.Context, string, map[string]any) (string, error) {
		return "eat more vegetables", nil
	}))
	if err := h2.RegisterAll(d2); err != nil {
		t.Fatalf("register all with recommender: %v", err)
	}
	found := false
	for _, topic := range d2.Topics() {
		if topic == TopicGetRecommendation {
			found = true
		}
	}
	if !found {
		t.Fatal("expected recommendation topic with a recommender")
	}
}

type recommenderFunc func(ctx context.Context, userEmail string, value map[string]any) (string, error)

func (f recommenderFunc) Recommend(ctx context.Context, userEmail string, value map[string]any) (string, error) {
	return f(ctx, userEmail, value)
}

func noopLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewWatermillServiceLogger(watermill.NopLogger{})
}

func TestTodayData(t *testing.T) {
	st := &fakeStore{summary: store.DaySummary{
		TotalForDay: store.TotalSummary{TotalCalories: 1200, Contains: []string{"sugar"}},
	}}
	h := NewHandlers(st, nil)

	result, err := h.TodayData(context.Background(), testRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	summary, ok := result["dishes"].(store.DaySummary)
	if !ok {
		t.Fatalf("expected day summary, got %#v", result)
	}
	if summary.TotalForDay.TotalCalories != 1200 {
		t.Fatalf("unexpected totals: %+v", summary.TotalForDay)
	}
}

func TestCustomDateData(t *testing.T) {
	h := NewHandlers(&fakeStore{}, nil)

	if _, err := h.CustomDateData(context.Background(), testRequest(map[string]any{"date": "2-3-2026"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := h.CustomDateData(context.Background(), testRequest(map[string]any{"date": "2026/03/02"}))
	be, ok := errspkg.AsBusiness(err)
	if !ok || be.Code != 400 {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	_, err = h.CustomDateData(context.Background(), testRequest(map[string]any{}))
	if _, ok := errspkg.AsBusiness(err); !ok {
		t.Fatalf("expected business error for missing date, got %v", err)
	}
}

func TestDeleteFood(t *testing.T) {
	st := &fakeStore{}
	h := NewHandlers(st, nil)

	result, err := h.DeleteFood(context.Background(), testRequest(map[string]any{"time": 1700000000}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result for plain confirmation, got %#v", result)
	}
	if len(st.deletedTimes) != 1 || st.deletedTimes[0] != 1700000000 {
		t.Fatalf("unexpected delete calls: %v", st.deletedTimes)
	}

	st.deleteErr = store.ErrNotFound
	_, err = h.DeleteFood(context.Background(), testRequest(map[string]any{"time": 1700000000}))
	be, ok := errspkg.AsBusiness(err)
	if !ok || be.Code != 404 {
		t.Fatalf("expected not found business error, got %v", err)
	}

	st.deleteErr = errors.New("db down")
	_, err = h.DeleteFood(context.Background(), testRequest(map[string]any{"time": 1700000000}))
	if _, ok := errspkg.AsBusiness(err); ok {
		t.Fatal("infrastructure failure must not be a business error")
	}
}

func TestModifyFood(t *testing.T) {
	st := &fakeStore{}
	h := NewHandlers(st, nil)

	if _, err := h.ModifyFood(context.Background(), testRequest(map[string]any{"time": 42, "percentage": 50})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.percentages) != 1 || st.percentages[0] != 50 {
		t.Fatalf("unexpected modify calls: %v", st.percentages)
	}

	for _, percentage := range []int{0, -1, 101} {
		_, err := h.ModifyFood(context.Background(), testRequest(map[string]any{"time": 42, "percentage": percentage}))
		if _, ok := errspkg.AsBusiness(err); !ok {
			t.Fatalf("percentage %d: expected business error, got %v", percentage, err)
		}
	}

	st.modifyErr = store.ErrNotFound
	_, err := h.ModifyFood(context.Background(), testRequest(map[string]any{"time": 42, "percentage": 50}))
	be, ok := errspkg.AsBusiness(err)
	if !ok || be.Code != 404 {
		t.Fatalf("expected not found business error, got %v", err)
	}
}

func TestManualWeight(t *testing.T) {
	st := &fakeStore{}
	h := NewHandlers(st, nil)

	_, err := h.ManualWeight(context.Background(), testRequest(map[string]any{
		"type": TypeWeightProcessing, "weight": 82.5, "timestamp": 1700000000,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.weights) != 1 || st.weights[0] != 82.5 {
		t.Fatalf("unexpected weights: %v", st.weights)
	}

	_, err = h.ManualWeight(context.Background(), testRequest(map[string]any{"type": "food_processing", "weight": 82.5}))
	if _, ok := errspkg.AsBusiness(err); !ok {
		t.Fatalf("expected business error for wrong type, got %v", err)
	}

	_, err = h.ManualWeight(context.Background(), testRequest(map[string]any{"type": TypeWeightProcessing, "weight": 0}))
	if _, ok := errspkg.AsBusiness(err); !ok {
		t.Fatalf("expected business error for non-positive weight, got %v", err)
	}
}

func TestAlcoholLatest(t *testing.T) {
	st := &fakeStore{}
	h := NewHandlers(st, nil)

	result, err := h.AlcoholLatest(context.Background(), testRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alcohol, ok := result["alcohol"].(map[string]any); !ok || len(alcohol) != 0 {
		t.Fatalf("expected empty object without alcohol data, got %#v", result["alcohol"])
	}

	st.summary.AlcoholOfDay = &store.AlcoholForDay{TotalDrinks: 2}
	result, err = h.AlcoholLatest(context.Background(), testRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if alcohol, ok := result["alcohol"].(*store.AlcoholForDay); !ok || alcohol.TotalDrinks != 2 {
		t.Fatalf("unexpected alcohol summary: %#v", result["alcohol"])
	}
}

func TestAlcoholRange(t *testing.T) {
	st := &fakeStore{alcoholEvents: []store.AlcoholForDay{{Date: "2026-03-02"}}}
	h := NewHandlers(st, nil)

	result, err := h.AlcoholRange(context.Background(), testRequest(map[string]any{
		"start_date": "01-03-2026", "end_date": "05-03-2026",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events, ok := result["events"].([]store.AlcoholForDay)
	if !ok || len(events) != 1 {
		t.Fatalf("unexpected events: %#v", result["events"])
	}

	_, err = h.AlcoholRange(context.Background(), testRequest(map[string]any{"start_date": "01-03-2026"}))
	if _, ok := errspkg.AsBusiness(err); !ok {
		t.Fatalf("expected business error for missing end_date, got %v", err)
	}
}

func TestFoodHealthLevel(t *testing.T) {
	st := &fakeStore{healthDish: store.DishDay{DishName: "salad", HealthRating: 9}}
	h := NewHandlers(st, nil)

	result, err := h.FoodHealthLevel(context.Background(), testRequest(map[string]any{"time": 42}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	level, ok := result["food_health_level"].(map[string]any)
	if !ok || level["dish_name"] != "salad" || level["health_rating"] != 9 {
		t.Fatalf("unexpected health level: %#v", result)
	}

	st.healthErr = store.ErrNotFound
	result, err = h.FoodHealthLevel(context.Background(), testRequest(map[string]any{"time": 42}))
	if err != nil {
		t.Fatalf("missing record must not be an error, got %v", err)
	}
	if level, ok := result["food_health_level"].(map[string]any); !ok || len(level) != 0 {
		t.Fatalf("expected empty object for unknown record, got %#v", result)
	}
}

func TestRecommendation(t *testing.T) {
	h := NewHandlers(&fakeStore{}, recommenderFunc(func(_ context.Context, userEmail string, _ map[string]any) (string, error) {
		if userEmail != "a@x.com" {
			return "", errors.New("wrong user")
		}
		return "eat more vegetables", nil
	}))

	result, err := h.Recommendation(context.Background(), testRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["recommendation"] != "eat more vegetables" {
		t.Fatalf("unexpected recommendation: %#v", result)
	}
}

func TestRecordChessGame(t *testing.T) {
	st := &fakeStore{chessStats: map[string]store.ChessStats{
		"a@x.com": {Score: "3:1", Wins: 3, Losses: 1},
		"b@x.com": {Score: "1:3", Wins: 1, Losses: 3},
	}}
	h := NewHandlers(st, nil)

	result, err := h.RecordChessGame(context.Background(), testRequest(map[string]any{
		"player_email": "a@x.com", "opponent_email": "b@x.com", "result": "win", "timestamp": 1700000000000,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.games) != 1 || st.games[0].result != "win" {
		t.Fatalf("unexpected recorded games: %#v", st.games)
	}
	if result["player_wins"] != 3 || result["opponent_losses"] != 3 {
		t.Fatalf("unexpected tallies: %#v", result)
	}
}

func TestRecordChessGameForbidsImpersonation(t *testing.T) {
	h := NewHandlers(&fakeStore{}, nil)

	_, err := h.RecordChessGame(context.Background(), testRequest(map[string]any{
		"player_email": "someoneelse@x.com", "opponent_email": "b@x.com", "result": "win",
	}))
	be, ok := errspkg.AsBusiness(err)
	if !ok || be.Code != 403 {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestRecordChessGameValidatesResult(t *testing.T) {
	h := NewHandlers(&fakeStore{}, nil)

	_, err := h.RecordChessGame(context.Background(), testRequest(map[string]any{
		"player_email": "a@x.com", "opponent_email": "b@x.com", "result": "stalemate",
	}))
	be, ok := errspkg.AsBusiness(err)
	if !ok || be.Code != 400 {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestChessStatsNoHistory(t *testing.T) {
	h := NewHandlers(&fakeStore{}, nil)

	result, err := h.ChessStats(context.Background(), testRequest(map[string]any{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["score"] != "0:0" {
		t.Fatalf("expected zeroed default score, got %#v", result)
	}
	if result["opponent_name"] != "" || result["last_game_date"] != "" {
		t.Fatalf("expected empty opponent fields, got %#v", result)
	}
}

func TestChessStatsWithOpponent(t *testing.T) {
	st := &fakeStore{chessStats: map[string]store.ChessStats{
		"a@x.com": {Score: "2:1", OpponentName: "b@x.com", LastGameDate: "2026-03-02"},
	}}
	h := NewHandlers(st, nil)

	result, err := h.ChessStats(context.Background(), testRequest(map[string]any{"opponent_email": " b@x.com "}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["score"] != "2:1" || result["opponent_name"] != "b@x.com" {
		t.Fatalf("unexpected stats: %#v", result)
	}
}

func TestAllChessData(t *testing.T) {
	st := &fakeStore{chessSummary: store.ChessSummary{
		TotalWins: 5,
		Opponents: map[string]string{"b@x.com": "3:1", "c@x.com": "2:0"},
	}}
	h := NewHandlers(st, nil)

	result, err := h.AllChessData(context.Background(), testRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result["total_wins"] != 5 {
		t.Fatalf("unexpected total wins: %#v", result)
	}
	opponents, ok := result["opponents"].(map[string]string)
	if !ok || opponents["b@x.com"] != "3:1" {
		t.Fatalf("unexpected opponents: %#v", result["opponents"])
	}
}

func TestDayMonthYearToISO(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "02-03-2026", want: "2026-03-02"},
		{in: "2-3-2026", want: "2026-03-02"},
		{in: "31-12-2025", want: "2025-12-31"},
		{in: "2026-03-02", wantErr: true},
		{in: "02/03/2026", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := dayMonthYearToISO(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %q, want %q", tc.in, got, tc.want)
		}
	}
}
