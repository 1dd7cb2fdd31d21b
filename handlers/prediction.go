package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/services"
)

type PredictionHandler struct {
	predictionService services.PredictionService
	now               func() time.Time
}

func NewPredictionHandler(predictionService services.PredictionService) *PredictionHandler {
	return &PredictionHandler{predictionService: predictionService, now: time.Now}
}

// pathType reads {serverId} and {type} together.
func pathType(r *http.Request) (int64, models.PredictionType, error) {
	id, err := PathID(r, "serverId")
	if err != nil {
		return 0, "", err
	}
	t, ok := models.ParsePredictionType(r.PathValue("type"))
	if !ok {
		return 0, "", fmt.Errorf("%w: Invalid prediction type", pkg.ErrBadRequest)
	}
	return id, t, nil
}

// Create godoc
// POST /api/predictions (API key)
func (h *PredictionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePredictionRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	p, err := h.predictionService.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, p)
}

// Latest godoc
// GET /api/predictions/{serverId}/latest/{type}?limit=
func (h *PredictionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	id, t, err := pathType(r)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	preds, err := h.predictionService.GetLatest(r.Context(), id, t, limit)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, preds)
}

// Range godoc
// GET /api/predictions/{serverId}/range/{type}?start=&end=
//
// Defaults to the next 24 hours.
func (h *PredictionHandler) Range(w http.ResponseWriter, r *http.Request) {
	id, t, err := pathType(r)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}
	start, end, err := timeRange(r, h.now(), 0, 24*time.Hour)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	preds, err := h.predictionService.GetRange(r.Context(), id, t, start, end)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, preds)
}

// Next24 godoc
// GET /api/predictions/{serverId}/next24hours
func (h *PredictionHandler) Next24(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "serverId")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	points, err := h.predictionService.GetNext24Hours(r.Context(), id)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, points)
}

// Peak godoc
// GET /api/predictions/{serverId}/peak
//
// data is null when nothing is forecast.
func (h *PredictionHandler) Peak(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "serverId")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	peak, err := h.predictionService.GetPeak(r.Context(), id)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, peak)
}

// Downtime godoc
// GET /api/predictions/{serverId}/downtime
func (h *PredictionHandler) Downtime(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "serverId")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	preds, err := h.predictionService.GetDowntime(r.Context(), id)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, preds)
}

// Insights godoc
// GET /api/predictions/{serverId}/insights?limit=
func (h *PredictionHandler) Insights(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "serverId")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	preds, err := h.predictionService.GetInsights(r.Context(), id, limit)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, preds)
}
