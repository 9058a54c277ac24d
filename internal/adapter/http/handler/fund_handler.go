package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/usecase"
)

// FundHandler handles fund-level HTTP requests.
type FundHandler struct {
	fundUC *usecase.FundUseCase
	perfUC *usecase.PerformanceUseCase
}

// NewFundHandler creates a new FundHandler.
func NewFundHandler(fundUC *usecase.FundUseCase, perfUC *usecase.PerformanceUseCase) *FundHandler {
	return &FundHandler{fundUC: fundUC, perfUC: perfUC}
}

// Get retrieves fund-level terms.
func (h *FundHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing fund ID", "")
		return
	}

	fund, err := h.fundUC.GetFund(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get fund", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.FundFromDomain(fund))
}

// ListOwnership lists the fund's investors with commitments and
// ownership percentages.
func (h *FundHandler) ListOwnership(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing fund ID", "")
		return
	}

	investors, err := h.fundUC.ListOwnership(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list ownership", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.OwnershipsFromDomain(investors))
}

// UpdateCommitment changes one investor's commitment and recomputes
// every ownership percentage. Cached performance for the fund is
// invalidated afterwards.
func (h *FundHandler) UpdateCommitment(w http.ResponseWriter, r *http.Request) {
	fundID := chi.URLParam(r, "id")
	investorID := chi.URLParam(r, "investorID")
	if fundID == "" || investorID == "" {
		writeError(w, http.StatusBadRequest, "missing fund or investor ID", "")
		return
	}

	var req dto.UpdateCommitmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	investors, err := h.fundUC.UpdateInvestorCommitment(r.Context(), fundID, investorID, req.Commitment)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to update commitment", err.Error())

		return
	}

	h.perfUC.InvalidatePerformance(r.Context(), fundID)

	writeJSON(w, http.StatusOK, dto.OwnershipsFromDomain(investors))
}

// Performance computes IRR and multiples for a fund. The nav query
// parameter supplies the terminal value; as_of defaults to now.
func (h *FundHandler) Performance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing fund ID", "")
		return
	}

	navParam := r.URL.Query().Get("nav")
	if navParam == "" {
		writeError(w, http.StatusBadRequest, "missing nav parameter", "")
		return
	}

	nav, err := decimal.NewFromString(navParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid nav parameter", err.Error())
		return
	}

	asOf := time.Now().UTC()
	if v := r.URL.Query().Get("as_of"); v != "" {
		asOf, err = time.Parse("2006-01-02", v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid as_of parameter", err.Error())
			return
		}
	}

	perf, err := h.perfUC.ComputeFundPerformance(r.Context(), id, nav, asOf)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to compute performance", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, perf)
}
