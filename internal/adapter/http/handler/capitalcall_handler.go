package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/usecase"
)

// CapitalCallHandler handles capital call HTTP requests.
type CapitalCallHandler struct {
	callUC *usecase.CapitalCallUseCase
}

// NewCapitalCallHandler creates a new CapitalCallHandler.
func NewCapitalCallHandler(callUC *usecase.CapitalCallUseCase) *CapitalCallHandler {
	return &CapitalCallHandler{callUC: callUC}
}

// Create creates a draft capital call with its per-investor allocations.
func (h *CapitalCallHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCapitalCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	call, allocations, err := h.callUC.CreateCapitalCall(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to create capital call", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"capital_call": dto.CapitalCallFromDomain(call),
		"allocations":  dto.AllocationsFromDomain(allocations),
	})
}

// Get retrieves a capital call by ID.
func (h *CapitalCallHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing capital call ID", "")
		return
	}

	call, err := h.callUC.GetCapitalCall(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get capital call", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.CapitalCallFromDomain(call))
}

// List lists a fund's capital calls, newest first.
func (h *CapitalCallHandler) List(w http.ResponseWriter, r *http.Request) {
	fundID := r.URL.Query().Get("fund_id")
	if fundID == "" {
		writeError(w, http.StatusBadRequest, "missing fund_id parameter", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	calls, err := h.callUC.ListCapitalCalls(r.Context(), fundID, limit, offset)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list capital calls", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.CapitalCallsFromDomain(calls))
}

// ListAllocations lists the per-investor allocations of a capital call.
func (h *CapitalCallHandler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing capital call ID", "")
		return
	}

	allocations, err := h.callUC.ListAllocations(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list allocations", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.AllocationsFromDomain(allocations))
}

// PreviewFees computes per-investor fees for a prospective capital call
// without persisting anything.
func (h *CapitalCallHandler) PreviewFees(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateCapitalCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	previews, err := h.callUC.ComputeFees(r.Context(), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to compute fees", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, previews)
}

// RecordPayment records a payment against one allocation of an
// approved capital call.
func (h *CapitalCallHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "id")
	allocationID := chi.URLParam(r, "allocationID")
	if callID == "" || allocationID == "" {
		writeError(w, http.StatusBadRequest, "missing capital call or allocation ID", "")
		return
	}

	var req dto.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	allocation, err := h.callUC.RecordAllocationPayment(r.Context(), callID, allocationID, req.Amount)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to record payment", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.AllocationFromDomain(allocation))
}
