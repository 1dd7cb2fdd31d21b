package handlers

import (
	"net/http"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/services"
)

// ServerHandler serves the public directory and owner edits.
type ServerHandler struct {
	serverService services.ServerService
	claimService  services.ClaimService
}

func NewServerHandler(serverService services.ServerService, claimService services.ClaimService) *ServerHandler {
	return &ServerHandler{serverService: serverService, claimService: claimService}
}

// List godoc
// GET /api/servers?search=&gamemode=&country=&sort=&order=&page=&limit=
func (h *ServerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	q := r.URL.Query()
	query := &models.ServerListQuery{
		Search:     q.Get("search"),
		Gamemodes:  queryList(r, "gamemode"),
		Country:    q.Get("country"),
		Sort:       q.Get("sort"),
		Order:      q.Get("order"),
		Page:       page,
		Limit:      limit,
		ActiveOnly: true,
	}

	servers, pagination, err := h.serverService.List(r.Context(), query)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.Write(w, http.StatusOK, &pkg.APIResponse{
		Success:    true,
		Data:       servers,
		Pagination: pagination,
	})
}

// Get godoc
// GET /api/servers/{id}
//
// Returns the composite details view.
func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	details, err := h.serverService.GetDetails(r.Context(), id)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, details)
}

// Lookup godoc
// GET /api/servers/lookup?identifier=
//
// Resolves an ip or hostname to a server, for clients that want to check
// before submitting.
func (h *ServerHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	server, err := h.serverService.GetByIdentifier(r.Context(), r.URL.Query().Get("identifier"))
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, server)
}

// Create godoc
// POST /api/servers
//
// Submissions start inactive until an admin approves them. A duplicate ip or
// hostname answers 409 with the existing server id in data.
func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateServerRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	server, err := h.serverService.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.Write(w, http.StatusCreated, &pkg.APIResponse{
		Success: true,
		Message: "Server submitted for approval",
		Data:    server,
	})
}

// Update godoc
// PUT /api/servers/{id}
//
// Owner or admin only; enforced by the ownership middleware.
func (h *ServerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	var req models.UpdateServerRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	server, err := h.serverService.Update(r.Context(), id, &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, server)
}

// Delete godoc
// DELETE /api/servers/{id}
func (h *ServerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	if err := h.serverService.Delete(r.Context(), id); err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.Message(w, http.StatusOK, "Server deleted")
}

// Featured godoc
// GET /api/servers/featured?limit=
func (h *ServerHandler) Featured(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	servers, err := h.serverService.ListFeatured(r.Context(), limit)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, servers)
}

// Top godoc
// GET /api/servers/top?limit=
func (h *ServerHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	servers, err := h.serverService.ListTop(r.Context(), limit)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, servers)
}

// Rising godoc
// GET /api/servers/rising?limit=
func (h *ServerHandler) Rising(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	servers, err := h.serverService.ListRising(r.Context(), limit)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, servers)
}

// Stats godoc
// GET /api/servers/stats
func (h *ServerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.serverService.GlobalStats(r.Context())
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, stats)
}

// Claim godoc
// POST /api/servers/{id}/claim
// Body: { "username": "...", "email": "..." }
func (h *ServerHandler) Claim(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	var req models.CreateClaimRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	claim, err := h.claimService.Submit(r.Context(), id, &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.Write(w, http.StatusCreated, &pkg.APIResponse{
		Success: true,
		Message: "Claim submitted for review",
		Data:    claim,
	})
}
