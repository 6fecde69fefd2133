package store

// DishDay is one recorded dish on a given day.
type DishDay struct {
	ID                   uint     `gorm:"primaryKey" json:"-"`
	UserEmail            string   `gorm:"index:idx_dishes_user_date" json:"-"`
	Date                 string   `gorm:"index:idx_dishes_user_date" json:"-"` // yyyy-mm-dd
	Time                 int64    `gorm:"index" json:"time"`
	DishName             string   `json:"dish_name"`
	EstimatedAvgCalories int      `json:"estimated_avg_calories"`
	TotalAvgWeight       int      `json:"total_avg_weight"`
	HealthRating         int      `json:"health_rating"`
	Ingredients          []string `gorm:"serializer:json" json:"ingredients"`
	ImageID              string   `json:"image_id"`
	AddedSugarTsp        float64  `json:"added_sugar_tsp"`
}

func (DishDay) TableName() string { return "dishes_day" }

// TotalForDay accumulates the day's calories and weight.
type TotalForDay struct {
	ID             uint     `gorm:"primaryKey" json:"-"`
	UserEmail      string   `gorm:"index:idx_totals_user_date" json:"-"`
	Date           string   `gorm:"index:idx_totals_user_date" json:"-"`
	TotalCalories  int      `json:"total_calories"`
	TotalAvgWeight float64  `json:"total_avg_weight"`
	Contains       []string `gorm:"serializer:json" json:"contains"`
}

func (TotalForDay) TableName() string { return "total_for_day" }

// WeightEntry is one weight measurement.
type WeightEntry struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	UserEmail string  `gorm:"index" json:"-"`
	Time      int64   `json:"time"`
	Weight    float64 `json:"weight"`
}

func (WeightEntry) TableName() string { return "weight" }

// AlcoholForDay accumulates the day's drinks.
type AlcoholForDay struct {
	ID            uint     `gorm:"primaryKey" json:"-"`
	UserEmail     string   `gorm:"index:idx_alcohol_user_date" json:"-"`
	Date          string   `gorm:"index:idx_alcohol_user_date" json:"date"`
	TotalDrinks   int      `json:"total_drinks"`
	TotalCalories int      `json:"total_calories"`
	DrinksOfDay   []string `gorm:"serializer:json" json:"drinks_of_day"`
}

func (AlcoholForDay) TableName() string { return "alcohol_for_day" }

// ChessGame is one recorded game from one player's perspective. Every game
// stores a mirrored row for the opponent with the inverted result.
type ChessGame struct {
	ID            uint   `gorm:"primaryKey"`
	PlayerEmail   string `gorm:"index:idx_chess_player_opponent"`
	OpponentEmail string `gorm:"index:idx_chess_player_opponent"`
	Result        string
	Timestamp     int64 // unix milliseconds
}

func (ChessGame) TableName() string { return "chess_games" }

// DaySummary is the response shape for a day's food data.
type DaySummary struct {
	TotalForDay  TotalSummary   `json:"total_for_day"`
	DishesToday  []DishDay      `json:"dishes_today"`
	AlcoholOfDay *AlcoholForDay `json:"alcohol_for_day,omitempty"`
	LatestWeight *WeightEntry   `json:"latest_weight,omitempty"`
}

// TotalSummary is the totals block of a DaySummary.
type TotalSummary struct {
	TotalCalories  int      `json:"total_calories"`
	TotalAvgWeight float64  `json:"total_avg_weight"`
	Contains       []string `json:"contains"`
}

// ChessStats is the score of one player against one opponent. An empty
// OpponentName with a "0:0" score means no game was ever recorded.
type ChessStats struct {
	Score        string `json:"score"`
	OpponentName string `json:"opponent_name"`
	LastGameDate string `json:"last_game_date"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}

// ChessSummary aggregates all of a player's games.
type ChessSummary struct {
	TotalWins int               `json:"total_wins"`
	Opponents map[string]string `json:"opponents"` // email -> "wins:losses"
}
