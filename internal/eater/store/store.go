// Package store persists the tracker's domain records. Handlers depend on
// the narrow Store interface; the GORM/Postgres implementation lives behind
// it so tests can substitute an in-memory fake.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNotFound reports a missing record.
var ErrNotFound = errors.New("store: record not found")

// Store is the storage collaborator of the worker handlers.
type Store interface {
	TodayDishes(ctx context.Context, userEmail string) (DaySummary, error)
	DishesForDate(ctx context.Context, userEmail, date string) (DaySummary, error)
	AddDish(ctx context.Context, userEmail string, dish DishDay) error
	DeleteFood(ctx context.Context, userEmail string, recordTime int64) error
	ModifyFood(ctx context.Context, userEmail string, recordTime int64, percentage int) error
	RecordWeight(ctx context.Context, userEmail string, weight float64, timestamp int64) error
	AlcoholEventsInRange(ctx context.Context, userEmail, startDate, endDate string) ([]AlcoholForDay, error)
	FoodHealthLevel(ctx context.Context, userEmail string, recordTime int64) (DishDay, error)
	RecordChessGame(ctx context.Context, playerEmail, opponentEmail, result string, timestamp int64) error
	ChessStats(ctx context.Context, userEmail, opponentEmail string) (ChessStats, error)
	AllChessData(ctx context.Context, userEmail string) (ChessSummary, error)
}

// DB implements Store on a GORM connection.
type DB struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.AutoMigrate(&DishDay{}, &TotalForDay{}, &WeightEntry{}, &AlcoholForDay{}, &ChessGame{}); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &DB{db: db}, nil
}

// NewWithGorm wraps an existing GORM connection, mainly for tests.
func NewWithGorm(db *gorm.DB) *DB { return &DB{db: db} }

func today() string { return time.Now().Format("2006-01-02") }

func (s *DB) TodayDishes(ctx context.Context, userEmail string) (DaySummary, error) {
	return s.DishesForDate(ctx, userEmail, today())
}

func (s *DB) DishesForDate(ctx context.Context, userEmail, date string) (DaySummary, error) {
	tx := s.db.WithContext(ctx)
	summary := DaySummary{DishesToday: []DishDay{}}

	var latest WeightEntry
	if err := tx.Where("user_email = ?", userEmail).Order("time DESC").First(&latest).Error; err == nil {
		summary.LatestWeight = &latest
		summary.TotalForDay.TotalAvgWeight = latest.Weight
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return DaySummary{}, err
	}

	var total TotalForDay
	err := tx.Where("user_email = ? AND date = ?", userEmail, date).First(&total).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		// Empty day: zeroed totals, latest weight carried over.
		summary.TotalForDay.Contains = []string{}
		return summary, nil
	case err != nil:
		return DaySummary{}, err
	}

	summary.TotalForDay = TotalSummary{
		TotalCalories:  total.TotalCalories,
		TotalAvgWeight: total.TotalAvgWeight,
		Contains:       total.Contains,
	}

	var dishes []DishDay
	if err := tx.Where("user_email = ? AND date = ?", userEmail, date).Find(&dishes).Error; err != nil {
		return DaySummary{}, err
	}
	summary.DishesToday = dishes

	var alcohol AlcoholForDay
	if err := tx.Where("user_email = ? AND date = ?", userEmail, date).First(&alcohol).Error; err == nil {
		summary.AlcoholOfDay = &alcohol
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return DaySummary{}, err
	}

	return summary, nil
}

func (s *DB) AddDish(ctx context.Context, userEmail string, dish DishDay) error {
	dish.UserEmail = userEmail
	if dish.Date == "" {
		dish.Date = today()
	}
	if dish.Time == 0 {
		dish.Time = time.Now().Unix()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&dish).Error; err != nil {
			return err
		}
		return recomputeTotals(tx, userEmail, dish.Date)
	})
}

func (s *DB) DeleteFood(ctx context.Context, userEmail string, recordTime int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dish DishDay
		err := tx.Where("user_email = ? AND time = ?", userEmail, recordTime).First(&dish).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := tx.Delete(&dish).Error; err != nil {
			return err
		}
		return recomputeTotals(tx, userEmail, dish.Date)
	})
}

func (s *DB) ModifyFood(ctx context.Context, userEmail string, recordTime int64, percentage int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dish DishDay
		err := tx.Where("user_email = ? AND time = ?", userEmail, recordTime).First(&dish).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		dish.EstimatedAvgCalories = dish.EstimatedAvgCalories * percentage / 100
		dish.TotalAvgWeight = dish.TotalAvgWeight * percentage / 100
		dish.AddedSugarTsp = dish.AddedSugarTsp * float64(percentage) / 100
		if err := tx.Save(&dish).Error; err != nil {
			return err
		}
		return recomputeTotals(tx, userEmail, dish.Date)
	})
}

// recomputeTotals rebuilds the day's totals row from the remaining dishes.
func recomputeTotals(tx *gorm.DB, userEmail, date string) error {
	var dishes []DishDay
	if err := tx.Where("user_email = ? AND date = ?", userEmail, date).Find(&dishes).Error; err != nil {
		return err
	}

	if len(dishes) == 0 {
		return tx.Where("user_email = ? AND date = ?", userEmail, date).Delete(&TotalForDay{}).Error
	}

	total := TotalForDay{UserEmail: userEmail, Date: date, Contains: []string{}}
	for _, d := range dishes {
		total.TotalCalories += d.EstimatedAvgCalories
		total.TotalAvgWeight += float64(d.TotalAvgWeight)
		total.Contains = append(total.Contains, d.DishName)
	}

	var existing TotalForDay
	err := tx.Where("user_email = ? AND date = ?", userEmail, date).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.Create(&total).Error
	}
	if err != nil {
		return err
	}
	total.ID = existing.ID
	return tx.Save(&total).Error
}

func (s *DB) RecordWeight(ctx context.Context, userEmail string, weight float64, timestamp int64) error {
	if timestamp == 0 {
		timestamp = time.Now().Unix()
	}
	entry := WeightEntry{UserEmail: userEmail, Weight: weight, Time: timestamp}
	return s.db.WithContext(ctx).Create(&entry).Error
}

func (s *DB) AlcoholEventsInRange(ctx context.Context, userEmail, startDate, endDate string) ([]AlcoholForDay, error) {
	var events []AlcoholForDay
	err := s.db.WithContext(ctx).
		Where("user_email = ? AND date >= ? AND date <= ?", userEmail, startDate, endDate).
		Order("date").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *DB) FoodHealthLevel(ctx context.Context, userEmail string, recordTime int64) (DishDay, error) {
	var dish DishDay
	err := s.db.WithContext(ctx).
		Where("user_email = ? AND time = ?", userEmail, recordTime).
		First(&dish).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DishDay{}, ErrNotFound
	}
	return dish, err
}

func (s *DB) RecordChessGame(ctx context.Context, playerEmail, opponentEmail, result string, timestamp int64) error {
	mirrored := result
	switch result {
	case "win":
		mirrored = "loss"
	case "loss":
		mirrored = "win"
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		game := ChessGame{PlayerEmail: playerEmail, OpponentEmail: opponentEmail, Result: result, Timestamp: timestamp}
		if err := tx.Create(&game).Error; err != nil {
			return err
		}
		mirror := ChessGame{PlayerEmail: opponentEmail, OpponentEmail: playerEmail, Result: mirrored, Timestamp: timestamp}
		return tx.Create(&mirror).Error
	})
}

func (s *DB) ChessStats(ctx context.Context, userEmail, opponentEmail string) (ChessStats, error) {
	tx := s.db.WithContext(ctx)

	var lastTimestamp int64
	if opponentEmail == "" {
		var last ChessGame
		err := tx.Where("player_email = ?", userEmail).Order("timestamp DESC").First(&last).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ChessStats{Score: "0:0"}, nil
		}
		if err != nil {
			return ChessStats{}, err
		}
		opponentEmail = last.OpponentEmail
		lastTimestamp = last.Timestamp
	}

	var wins, losses int64
	if err := tx.Model(&ChessGame{}).
		Where("player_email = ? AND opponent_email = ? AND result = ?", userEmail, opponentEmail, "win").
		Count(&wins).Error; err != nil {
		return ChessStats{}, err
	}
	if err := tx.Model(&ChessGame{}).
		Where("player_email = ? AND opponent_email = ? AND result = ?", userEmail, opponentEmail, "loss").
		Count(&losses).Error; err != nil {
		return ChessStats{}, err
	}

	if lastTimestamp == 0 {
		var last ChessGame
		err := tx.Where("player_email = ? AND opponent_email = ?", userEmail, opponentEmail).
			Order("timestamp DESC").First(&last).Error
		if err == nil {
			lastTimestamp = last.Timestamp
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return ChessStats{}, err
		}
	}

	stats := ChessStats{
		Score:        fmt.Sprintf("%d:%d", wins, losses),
		OpponentName: opponentEmail,
		Wins:         int(wins),
		Losses:       int(losses),
	}
	if lastTimestamp > 0 {
		stats.LastGameDate = time.UnixMilli(lastTimestamp).UTC().Format("2006-01-02")
	}
	return stats, nil
}

func (s *DB) AllChessData(ctx context.Context, userEmail string) (ChessSummary, error) {
	tx := s.db.WithContext(ctx)

	var games []ChessGame
	if err := tx.Where("player_email = ?", userEmail).Find(&games).Error; err != nil {
		return ChessSummary{}, err
	}

	summary := ChessSummary{Opponents: map[string]string{}}
	type tally struct{ wins, losses int }
	tallies := map[string]*tally{}
	for _, g := range games {
		t, ok := tallies[g.OpponentEmail]
		if !ok {
			t = &tally{}
			tallies[g.OpponentEmail] = t
		}
		switch g.Result {
		case "win":
			t.wins++
			summary.TotalWins++
		case "loss":
			t.losses++
		}
	}
	for opponent, t := range tallies {
		summary.Opponents[opponent] = fmt.Sprintf("%d:%d", t.wins, t.losses)
	}
	return summary, nil
}
