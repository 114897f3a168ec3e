package transport

import (
	"errors"
	"net/http"
	"time"

	"pharmaseek/internal/domain"
	"pharmaseek/internal/middleware"
	"pharmaseek/internal/repository"
	"pharmaseek/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BranchRequest represents a branch create/update payload
type BranchRequest struct {
	Name         string  `json:"name" validate:"required"`
	Latitude     float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Street       string  `json:"street"`
	Borough      string  `json:"borough"`
	City         string  `json:"city"`
	Rating       float64 `json:"rating" validate:"gte=0,lte=5"`
	WorkingHours string  `json:"workingHours"`
	About        string  `json:"about"`
	SiteURL      string  `json:"siteUrl" validate:"omitempty,url"`
	LocationURL  string  `json:"locationUrl" validate:"omitempty,url"`
}

// DeleteBranchesRequest represents a batch delete payload
type DeleteBranchesRequest struct {
	IDs []string `json:"ids" validate:"required,min=1"`
}

// BranchResponse represents branch data returned to clients
type BranchResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Street       string    `json:"street"`
	Borough      string    `json:"borough"`
	City         string    `json:"city"`
	Rating       float64   `json:"rating"`
	WorkingHours string    `json:"workingHours"`
	About        string    `json:"about"`
	SiteURL      string    `json:"siteUrl"`
	LocationURL  string    `json:"locationUrl"`
	PharmacyID   string    `json:"pharmacyId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BranchHandler handles HTTP requests for branch operations
type BranchHandler struct {
	branchService service.BranchService
	logger        *zap.Logger
}

// NewBranchHandler creates a new BranchHandler
func NewBranchHandler(branchService service.BranchService, logger *zap.Logger) *BranchHandler {
	return &BranchHandler{
		branchService: branchService,
		logger:        logger,
	}
}

// RegisterRoutes registers all branch routes
func (h *BranchHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/branches", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Delete("/", h.Delete)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
	})
}

// Create handles branch creation
func (h *BranchHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBranchRequest(w, r)
	if !ok {
		return
	}

	pharmacyID, ok := middleware.GetPharmacyID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing pharmacy scope")
		return
	}

	branch, err := h.branchService.AddBranch(r.Context(), branchInput(req, pharmacyID))
	if err != nil {
		h.logger.Error("Branch creation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create branch")
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, branchResponse(branch))
}

// Update handles branch modification
func (h *BranchHandler) Update(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "id")

	req, ok := h.decodeBranchRequest(w, r)
	if !ok {
		return
	}

	pharmacyID, ok := middleware.GetPharmacyID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing pharmacy scope")
		return
	}

	branch, err := h.branchService.ModifyBranch(r.Context(), branchInput(req, pharmacyID), branchID)
	if err != nil {
		if errors.Is(err, repository.ErrBranchNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "branch not found")
			return
		}
		h.logger.Error("Branch update failed", zap.Error(err), zap.String("branch_id", branchID))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update branch")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, branchResponse(branch))
}

// Delete handles batch branch deletion with cascading link removal
func (h *BranchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteBranchesRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Delete validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.branchService.DeleteBranches(r.Context(), req.IDs); err != nil {
		h.logger.Error("Branch deletion failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get handles single branch retrieval
func (h *BranchHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "id")

	branch, err := h.branchService.GetBranch(r.Context(), branchID)
	if err != nil {
		if errors.Is(err, repository.ErrBranchNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "branch not found")
			return
		}
		h.logger.Error("Branch lookup failed", zap.Error(err), zap.String("branch_id", branchID))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get branch")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, branchResponse(branch))
}

// List handles branch listing scoped to the request's pharmacy
func (h *BranchHandler) List(w http.ResponseWriter, r *http.Request) {
	pharmacyID, ok := middleware.GetPharmacyID(r.Context())
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing pharmacy scope")
		return
	}

	branches, err := h.branchService.ListBranches(r.Context(), pharmacyID)
	if err != nil {
		h.logger.Error("Branch listing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list branches")
		return
	}

	responses := make([]BranchResponse, 0, len(branches))
	for _, branch := range branches {
		responses = append(responses, branchResponse(branch))
	}
	middleware.RespondWithJSON(w, http.StatusOK, responses)
}

func (h *BranchHandler) decodeBranchRequest(w http.ResponseWriter, r *http.Request) (BranchRequest, bool) {
	var req BranchRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Branch validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return req, false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func branchInput(req BranchRequest, pharmacyID string) service.BranchInput {
	return service.BranchInput{
		Name:         req.Name,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Street:       req.Street,
		Borough:      req.Borough,
		City:         req.City,
		Rating:       req.Rating,
		WorkingHours: req.WorkingHours,
		About:        req.About,
		SiteURL:      req.SiteURL,
		LocationURL:  req.LocationURL,
		PharmacyID:   pharmacyID,
	}
}

func branchResponse(b *domain.Branch) BranchResponse {
	return BranchResponse{
		ID:           b.ID,
		Name:         b.Name,
		Latitude:     b.Latitude,
		Longitude:    b.Longitude,
		Street:       b.Street,
		Borough:      b.Borough,
		City:         b.City,
		Rating:       b.Rating,
		WorkingHours: b.WorkingHours,
		About:        b.About,
		SiteURL:      b.SiteURL,
		LocationURL:  b.LocationURL,
		PharmacyID:   b.PharmacyID,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.UpdatedAt,
	}
}
