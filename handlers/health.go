package handlers

import (
	"net/http"

	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/pkg/cache"
)

type HealthHandler struct {
	cache *cache.Cache
}

func NewHealthHandler(c *cache.Cache) *HealthHandler {
	return &HealthHandler{cache: c}
}

// Health godoc
// GET /api/health
//
// Reports which cache backend is serving reads.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"cache":  h.cache.Kind(),
	})
}
