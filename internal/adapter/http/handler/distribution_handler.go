package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/usecase"
)

// DistributionHandler handles distribution HTTP requests.
type DistributionHandler struct {
	distUC *usecase.DistributionUseCase
}

// NewDistributionHandler creates a new DistributionHandler.
func NewDistributionHandler(distUC *usecase.DistributionUseCase) *DistributionHandler {
	return &DistributionHandler{distUC: distUC}
}

// Create creates a draft distribution.
func (h *DistributionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	dist, err := h.distUC.CreateDistribution(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to create distribution", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.DistributionFromDomain(dist))
}

// Get retrieves a distribution by ID.
func (h *DistributionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing distribution ID", "")
		return
	}

	dist, err := h.distUC.GetDistribution(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get distribution", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.DistributionFromDomain(dist))
}

// List lists a fund's distributions, newest first.
func (h *DistributionHandler) List(w http.ResponseWriter, r *http.Request) {
	fundID := r.URL.Query().Get("fund_id")
	if fundID == "" {
		writeError(w, http.StatusBadRequest, "missing fund_id parameter", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	dists, err := h.distUC.ListDistributions(r.Context(), fundID, limit, offset)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list distributions", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.DistributionsFromDomain(dists))
}

// ListAllocations lists the per-investor shares of a distribution.
func (h *DistributionHandler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing distribution ID", "")
		return
	}

	allocations, err := h.distUC.ListAllocations(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list allocations", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.AllocationsFromDomain(allocations))
}

// ApplyWaterfall runs the distribution waterfall and persists tier
// amounts and per-investor shares. Legal exactly once per approved
// distribution.
func (h *DistributionHandler) ApplyWaterfall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing distribution ID", "")
		return
	}

	dist, result, err := h.distUC.ApplyWaterfall(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to apply waterfall", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"distribution": dto.DistributionFromDomain(dist),
		"waterfall":    result,
	})
}

// PreviewWaterfall computes the waterfall outcome without persisting it.
func (h *DistributionHandler) PreviewWaterfall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing distribution ID", "")
		return
	}

	result, err := h.distUC.PreviewWaterfall(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to preview waterfall", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, result)
}
