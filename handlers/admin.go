package handlers

import (
	"net/http"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/brekfst/mcdirectory/services"
)

// AdminHandler serves /api/admin. Every route sits behind the admin
// middleware.
type AdminHandler struct {
	adminService    services.AdminService
	claimService    services.ClaimService
	featuredService services.FeaturedService
	retention       services.RetentionWorker
}

func NewAdminHandler(
	adminService services.AdminService,
	claimService services.ClaimService,
	featuredService services.FeaturedService,
	retention services.RetentionWorker,
) *AdminHandler {
	return &AdminHandler{
		adminService:    adminService,
		claimService:    claimService,
		featuredService: featuredService,
		retention:       retention,
	}
}

// PendingServers godoc
// GET /api/admin/servers/pending
func (h *AdminHandler) PendingServers(w http.ResponseWriter, r *http.Request) {
	servers, err := h.adminService.ListPendingServers(r.Context())
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, servers)
}

// ApproveServer godoc
// POST /api/admin/servers/{id}/approve
func (h *AdminHandler) ApproveServer(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	server, err := h.adminService.ApproveServer(r.Context(), id)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.Write(w, http.StatusOK, &pkg.APIResponse{
		Success: true,
		Message: "Server approved",
		Data:    server,
	})
}

// RejectServer godoc
// POST /api/admin/servers/{id}/reject
//
// Rejection deletes the pending submission.
func (h *AdminHandler) RejectServer(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	if err := h.adminService.RejectServer(r.Context(), id); err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.Message(w, http.StatusOK, "Server rejected")
}

// ServerClaims godoc
// GET /api/admin/servers/{id}/claims
func (h *AdminHandler) ServerClaims(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	claims, err := h.claimService.History(r.Context(), id)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, claims)
}

// PendingClaims godoc
// GET /api/admin/claims/pending
func (h *AdminHandler) PendingClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := h.claimService.ListPending(r.Context())
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, claims)
}

// ApproveClaim godoc
// POST /api/admin/claims/{id}/approve
//
// Creates the owner account when the email is unknown and mails an
// invitation to set a password.
func (h *AdminHandler) ApproveClaim(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	approval, err := h.claimService.Approve(r.Context(), id)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.Write(w, http.StatusOK, &pkg.APIResponse{
		Success: true,
		Message: "Claim approved",
		Data:    approval,
	})
}

// RejectClaim godoc
// POST /api/admin/claims/{id}/reject
// Body (optional): { "reason": "..." }
func (h *AdminHandler) RejectClaim(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	var req models.RejectClaimRequest
	if r.ContentLength != 0 {
		if err := pkg.DecodeJSON(r, &req); err != nil {
			pkg.Error(w, r, err)
			return
		}
	}

	claim, err := h.claimService.Reject(r.Context(), id, &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.Write(w, http.StatusOK, &pkg.APIResponse{
		Success: true,
		Message: "Claim rejected",
		Data:    claim,
	})
}

// ListFeatured godoc
// GET /api/admin/featured
//
// Includes inactive and expired slots, unlike the public list.
func (h *AdminHandler) ListFeatured(w http.ResponseWriter, r *http.Request) {
	featured, err := h.featuredService.List(r.Context())
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, featured)
}

// AddFeatured godoc
// POST /api/admin/featured
func (h *AdminHandler) AddFeatured(w http.ResponseWriter, r *http.Request) {
	var req models.AddFeaturedRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	featured, err := h.featuredService.Add(r.Context(), &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, featured)
}

// UpdateFeatured godoc
// PUT /api/admin/featured/{id}
func (h *AdminHandler) UpdateFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	var req models.UpdateFeaturedRequest
	if err := pkg.DecodeJSON(r, &req); err != nil {
		pkg.Error(w, r, err)
		return
	}

	featured, err := h.featuredService.Update(r.Context(), id, &req)
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, featured)
}

// RemoveFeatured godoc
// DELETE /api/admin/featured/{id}
func (h *AdminHandler) RemoveFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := PathID(r, "id")
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	if err := h.featuredService.Remove(r.Context(), id); err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.Message(w, http.StatusOK, "Featured server removed")
}

// Stats godoc
// GET /api/admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.adminService.Stats(r.Context())
	if err != nil {
		pkg.Error(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, stats)
}

// Purge godoc
// POST /api/admin/purge
//
// Runs one retention pass now instead of waiting for the next tick.
func (h *AdminHandler) Purge(w http.ResponseWriter, r *http.Request) {
	res := h.retention.RunOnce(r.Context())
	pkg.Write(w, http.StatusOK, &pkg.APIResponse{
		Success: true,
		Message: "Retention pass complete",
		Data:    res,
	})
}
