package handlers

import (
	"net/http"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/services"
)

type MeasurementHandler struct {
	measurementService services.MeasurementService
	now                func() time.Time
}

func NewMeasurementHandler(measurementService services.MeasurementService) *MeasurementHandler {
	return &MeasurementHandler{measurementService: measurementService, now: time.Now}
}

// Create godoc
// POST /api/measurements (API key)
func (h *MeasurementHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMeasurementRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	m, err := h.measurementService.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, m)
}

// Latest godoc
// GET /api/measurements/{serverId}/latest
//
// 404 when the server has never been probed.
func (h *MeasurementHandler) Latest(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "serverId")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	m, err := h.measurementService.GetLatest(r.Context(), id)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, m)
}

// History godoc
// GET /api/measurements/{serverId}/history?start=&end=&interval=
//
// Without interval the raw rows are returned; with one, aggregated buckets.
func (h *MeasurementHandler) History(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "serverId")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	start, end, err := timeRange(r, h.now(), -24*time.Hour, 0)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	q := &models.RangeQuery{Start: start, End: end, Interval: r.URL.Query().Get("interval")}
	meta := &models.HistoryMeta{ServerID: id, StartTime: start, EndTime: end}

	var data any
	if q.Interval == "" {
		rows, err := h.measurementService.GetRange(r.Context(), id, q)
		if err != nil {
			pkg.Error(w, r, err)
			return
		}
		data, meta.Count = rows, len(rows)
	} else {
		buckets, err := h.measurementService.GetBuckets(r.Context(), id, q)
		if err != nil {
			pkg.Error(w, r, err)
			return
		}
		data, meta.Count = buckets, len(buckets)
		meta.Interval = &q.Interval
	}

	pkg.Write(w, http.StatusOK, &pkg.APIResponse{Success: true, Data: data, Meta: meta})
}

// PlayerHistory godoc
// GET /api/measurements/{serverId}/player-history
//
// Hourly player counts over the last 24 hours.
func (h *MeasurementHandler) PlayerHistory(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "serverId")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	hourly, err := h.measurementService.GetLast24HoursPlayerCounts(r.Context(), id)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, hourly)
}

// Uptime godoc
// GET /api/measurements/{serverId}/uptime?days=
func (h *MeasurementHandler) Uptime(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "serverId")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}
	days, err := queryInt(r, "days", 1)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	uptime, err := h.measurementService.GetUptimePercentage(r.Context(), id, days)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{
		"server_id":         id,
		"days":              days,
		"uptime_percentage": uptime,
	})
}

// PeakHour godoc
// GET /api/measurements/{serverId}/peak-hour
func (h *MeasurementHandler) PeakHour(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "serverId")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	peak, err := h.measurementService.GetPeakHour(r.Context(), id)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, peak)
}

// TotalPlayers godoc
// GET /api/measurements/global/player-count
func (h *MeasurementHandler) TotalPlayers(w http.ResponseWriter, r *http.Request) {
	total, err := h.measurementService.GetTotalOnlinePlayers(r.Context())
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]int{"total_players": total})
}
