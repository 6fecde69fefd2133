package eater

import (
	"context"
	"fmt"

	"github.com/singularis/chater/internal/eater/store"
	"github.com/singularis/chater/internal/runtime"
	"github.com/singularis/chater/internal/runtime/envelope"
	errspkg "github.com/singularis/chater/internal/runtime/errors"
	jsoncodec "github.com/singularis/chater/internal/runtime/jsoncodec"
)

// Type discriminators emitted by the photo analysis model.
const (
	TypeFoodProcessing   = "food_processing"
	TypeWeightProcessing = "weight_processing"
)

// analysisResult is the decoded analysis document after unwrapping.
type analysisResult struct {
	Type     string `json:"type"`
	Error    string `json:"error"`
	Analysis string `json:"analysis"`

	DishName             string   `json:"dish_name"`
	EstimatedAvgCalories int      `json:"estimated_avg_calories"`
	TotalAvgWeight       int      `json:"total_avg_weight"`
	Ingredients          []string `json:"ingredients"`
	HealthRating         int      `json:"health_rating"`
	AddedSugarTsp        float64  `json:"added_sugar_tsp"`
	ImageID              string   `json:"image_id"`
	Timestamp            int64    `json:"timestamp"`
	Date                 string   `json:"date"`

	Weight float64 `json:"weight"`
}

// PhotoAnalysis consumes the model's analysis reply. The payload needs a
// two-stage unwrap: the outer value is either an object or a fenced-JSON
// string, and the nested "analysis" field may itself be a JSON string. A
// decode failure or an embedded error field short-circuits to an error
// response without touching storage.
func (h *Handlers) PhotoAnalysis(ctx context.Context, req runtime.Request) (map[string]any, error) {
	result, err := unwrapAnalysis(req)
	if err != nil {
		return nil, err
	}

	outerImageID := result.ImageID

	if result.Analysis != "" {
		var nested analysisResult
		if err := jsoncodec.Unmarshal([]byte(result.Analysis), &nested); err != nil {
			return nil, errspkg.InvalidInput("malformed nested analysis")
		}
		nested.Analysis = ""
		result = nested
	}

	if result.Error != "" {
		return nil, errspkg.InvalidInput(result.Error)
	}

	switch result.Type {
	case TypeFoodProcessing:
		dish := store.DishDay{
			DishName:             result.DishName,
			EstimatedAvgCalories: result.EstimatedAvgCalories,
			TotalAvgWeight:       result.TotalAvgWeight,
			Ingredients:          result.Ingredients,
			HealthRating:         result.HealthRating,
			AddedSugarTsp:        result.AddedSugarTsp,
			ImageID:              result.ImageID,
			Time:                 result.Timestamp,
			Date:                 result.Date,
		}
		applyOuterFields(&dish, req, outerImageID)
		if err := h.store.AddDish(ctx, req.UserEmail, dish); err != nil {
			return nil, fmt.Errorf("store analyzed dish: %w", err)
		}
		return nil, nil

	case TypeWeightProcessing:
		if result.Weight <= 0 {
			return nil, errspkg.InvalidInput("weight must be positive")
		}
		if err := h.store.RecordWeight(ctx, req.UserEmail, result.Weight, result.Timestamp); err != nil {
			return nil, fmt.Errorf("store analyzed weight: %w", err)
		}
		return nil, nil

	default:
		return nil, errspkg.InvalidInput("unknown request")
	}
}

// unwrapAnalysis resolves the outer value: object payloads pass through,
// string payloads are stripped of their markdown fence and decoded.
func unwrapAnalysis(req runtime.Request) (analysisResult, error) {
	var result analysisResult

	if req.Value != nil {
		data, err := jsoncodec.Marshal(req.Value)
		if err != nil {
			return result, err
		}
		if err := jsoncodec.Unmarshal(data, &result); err != nil {
			return result, errspkg.InvalidInput("malformed analysis payload")
		}
		return result, nil
	}

	var text string
	if err := jsoncodec.Unmarshal(req.Raw, &text); err != nil {
		return result, errspkg.InvalidInput("malformed analysis payload")
	}
	if err := jsoncodec.Unmarshal([]byte(envelope.StripMarkdownFence(text)), &result); err != nil {
		return result, errspkg.InvalidInput("malformed analysis payload")
	}
	return result, nil
}

// applyOuterFields resolves the image id, timestamp, and date precedence:
// fields stamped on the message value win over the analysis document, the
// pre-unwrap image id comes next, and the correlation id is the last-resort
// image reference.
func applyOuterFields(dish *store.DishDay, req runtime.Request, outerImageID string) {
	if req.Value != nil {
		if ts, ok := req.Value["timestamp"].(float64); ok && ts != 0 {
			dish.Time = int64(ts)
		}
		if date, ok := req.Value["date"].(string); ok && date != "" {
			dish.Date = date
		}
		if imageID, ok := req.Value["image_id"].(string); ok && imageID != "" {
			dish.ImageID = imageID
		}
	}
	if dish.ImageID == "" {
		dish.ImageID = outerImageID
	}
	if dish.ImageID == "" {
		dish.ImageID = req.CorrelationID
	}
}
