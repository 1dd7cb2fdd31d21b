package models

import (
	"strings"
	"time"

	"github.com/brekfst/mcdirectory/pkg"
)

// PredictionType enumerates the forecast kinds the generator may post.
type PredictionType string

const (
	PredictionPlayerCount PredictionType = "player_count"
	PredictionDowntime    PredictionType = "downtime"
	PredictionLatency     PredictionType = "latency"
	PredictionGrowth      PredictionType = "growth"
)

// PredictionTypes lists every accepted type.
var PredictionTypes = []PredictionType{
	PredictionPlayerCount, PredictionDowntime, PredictionLatency, PredictionGrowth,
}

// ParsePredictionType rejects anything outside PredictionTypes.
func ParsePredictionType(s string) (PredictionType, bool) {
	for _, t := range PredictionTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

func predictionTypeList() string {
	names := make([]string, len(PredictionTypes))
	for i, t := range PredictionTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Prediction is one forecast row. Rows are never updated.
type Prediction struct {
	ID                  int64          `json:"id"`
	ServerID            int64          `json:"server_id"`
	PredictionType      PredictionType `json:"prediction_type"`
	PredictionTimestamp time.Time      `json:"prediction_timestamp"`
	PredictionValue     float64        `json:"prediction_value"`
	Insight             string         `json:"insight"`
	CreatedAt           time.Time      `json:"created_at"`
}

// CreatePredictionRequest is the body of POST /predictions.
type CreatePredictionRequest struct {
	ServerID            int64      `json:"server_id"`
	PredictionType      string     `json:"prediction_type"`
	PredictionTimestamp *time.Time `json:"prediction_timestamp"`
	PredictionValue     *float64   `json:"prediction_value"`
	Insight             string     `json:"insight"`
}

// Validate requires every field and a timestamp after now.
func (r *CreatePredictionRequest) Validate(now time.Time) error {
	var v pkg.ValidationError

	r.Insight = strings.TrimSpace(r.Insight)

	if r.ServerID <= 0 {
		v.Add("server_id", "Server ID must be a positive number")
	}
	if r.PredictionType == "" {
		v.Add("prediction_type", "Prediction type is required")
	} else if _, ok := ParsePredictionType(r.PredictionType); !ok {
		v.Add("prediction_type", "Prediction type must be one of: "+predictionTypeList())
	}
	if r.PredictionTimestamp == nil {
		v.Add("prediction_timestamp", "Prediction timestamp is required")
	} else if !r.PredictionTimestamp.After(now) {
		v.Add("prediction_timestamp", "Prediction timestamp must be in the future")
	}
	if r.PredictionValue == nil {
		v.Add("prediction_value", "Prediction value is required")
	}
	if r.Insight == "" {
		v.Add("insight", "Insight is required")
	}

	return v.Err()
}

// ToPrediction builds the row to insert. Validate must have passed.
func (r *CreatePredictionRequest) ToPrediction() *Prediction {
	return &Prediction{
		ServerID:            r.ServerID,
		PredictionType:      PredictionType(r.PredictionType),
		PredictionTimestamp: *r.PredictionTimestamp,
		PredictionValue:     *r.PredictionValue,
		Insight:             r.Insight,
	}
}

// PredictedPoint is one point of the next-24h player chart.
type PredictedPoint struct {
	Time        time.Time `json:"time"`
	PlayerCount float64   `json:"player_count"`
}

// PredictedPeak is the highest predicted player count in the next 24 hours.
type PredictedPeak struct {
	PeakPlayers float64   `json:"peak_players"`
	Time        time.Time `json:"time"`
}
