package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/domain"
	"github.com/iho/fundledger/internal/usecase"
)

// ApprovalHandler handles approval workflow HTTP requests for both
// capital calls and distributions. Each route binds the entity type so
// the same handler methods serve both transaction kinds.
type ApprovalHandler struct {
	approvalUC   *usecase.ApprovalUseCase
	callUC       *usecase.CapitalCallUseCase
	distUC       *usecase.DistributionUseCase
	cfoThreshold decimal.Decimal
}

// NewApprovalHandler creates a new ApprovalHandler. Transactions at or
// above cfoThreshold escalate to the CFO stage on approval.
func NewApprovalHandler(
	approvalUC *usecase.ApprovalUseCase,
	callUC *usecase.CapitalCallUseCase,
	distUC *usecase.DistributionUseCase,
	cfoThreshold decimal.Decimal,
) *ApprovalHandler {
	return &ApprovalHandler{
		approvalUC:   approvalUC,
		callUC:       callUC,
		distUC:       distUC,
		cfoThreshold: cfoThreshold,
	}
}

// Submit moves a draft transaction into review.
func (h *ApprovalHandler) Submit(entityType domain.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		res, err := h.approvalUC.SubmitForReview(r.Context(), entityType, id)
		if err != nil {
			status := mapDomainError(err)
			writeError(w, status, "failed to submit for review", err.Error())

			return
		}

		writeJSON(w, http.StatusOK, dto.TransitionFromUseCase(res))
	}
}

// Approve approves a transaction under review. Amounts at or above the
// CFO threshold advance to the CFO stage instead of final approval.
func (h *ApprovalHandler) Approve(entityType domain.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		amount, err := h.totalAmount(r, entityType, id)
		if err != nil {
			status := mapDomainError(err)
			writeError(w, status, "failed to approve", err.Error())

			return
		}

		requireCFO := amount.GreaterThanOrEqual(h.cfoThreshold)

		res, err := h.approvalUC.Approve(r.Context(), entityType, id, requireCFO)
		if err != nil {
			status := mapDomainError(err)
			writeError(w, status, "failed to approve", err.Error())

			return
		}

		writeJSON(w, http.StatusOK, dto.TransitionFromUseCase(res))
	}
}

// CFOApprove finalizes a transaction at the CFO stage.
func (h *ApprovalHandler) CFOApprove(entityType domain.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		res, err := h.approvalUC.CFOApprove(r.Context(), entityType, id)
		if err != nil {
			status := mapDomainError(err)
			writeError(w, status, "failed to approve", err.Error())

			return
		}

		writeJSON(w, http.StatusOK, dto.TransitionFromUseCase(res))
	}
}

// Reject rejects a transaction with a mandatory reason.
func (h *ApprovalHandler) Reject(entityType domain.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req dto.RejectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}

		res, err := h.approvalUC.Reject(r.Context(), entityType, id, req.Reason)
		if err != nil {
			status := mapDomainError(err)
			writeError(w, status, "failed to reject", err.Error())

			return
		}

		writeJSON(w, http.StatusOK, dto.TransitionFromUseCase(res))
	}
}

// RequestChanges returns a transaction to draft with mandatory notes.
func (h *ApprovalHandler) RequestChanges(entityType domain.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req dto.RequestChangesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}

		res, err := h.approvalUC.RequestChanges(r.Context(), entityType, id, req.Notes)
		if err != nil {
			status := mapDomainError(err)
			writeError(w, status, "failed to request changes", err.Error())

			return
		}

		writeJSON(w, http.StatusOK, dto.TransitionFromUseCase(res))
	}
}

// History returns one transaction's transition history in
// chronological order.
func (h *ApprovalHandler) History(entityType domain.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		entries, err := h.approvalUC.GetHistory(r.Context(), entityType, id)
		if err != nil {
			status := mapDomainError(err)
			writeError(w, status, "failed to get history", err.Error())

			return
		}

		writeJSON(w, http.StatusOK, dto.HistoryEntriesFromDomain(entries))
	}
}

// ListHistory returns history entries across entities matching the
// query filters, newest first.
func (h *ApprovalHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.HistoryFilter{
		EntityType: domain.EntityType(q.Get("entity_type")),
		EntityID:   q.Get("entity_id"),
		ActorID:    q.Get("actor_id"),
		Action:     domain.ApprovalAction(q.Get("action")),
		Limit:      parseIntQuery(r, "limit", 0),
		Offset:     parseIntQuery(r, "offset", 0),
	}

	if v := q.Get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date", err.Error())
			return
		}
		filter.StartDate = &t
	}
	if v := q.Get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date", err.Error())
			return
		}
		filter.EndDate = &t
	}

	entries, err := h.approvalUC.ListHistory(r.Context(), filter)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to list history", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.HistoryEntriesFromDomain(entries))
}

// Verify replays the recorded history and checks that it reproduces the
// transaction's persisted status.
func (h *ApprovalHandler) Verify(entityType domain.EntityType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		current, err := h.currentStatus(r, entityType, id)
		if err != nil {
			status := mapDomainError(err)
			writeError(w, status, "failed to verify history", err.Error())

			return
		}

		entries, err := h.approvalUC.GetHistory(r.Context(), entityType, id)
		if err != nil {
			status := mapDomainError(err)
			writeError(w, status, "failed to verify history", err.Error())

			return
		}

		resp := dto.HistoryVerificationResponse{
			EntityType:    string(entityType),
			EntityID:      id,
			CurrentStatus: string(current),
		}

		replayed, err := domain.ReplayHistory(entries)
		if err != nil {
			resp.Error = err.Error()
			writeJSON(w, http.StatusOK, resp)

			return
		}

		resp.ReplayedStatus = string(replayed)
		resp.Consistent = replayed == current

		writeJSON(w, http.StatusOK, resp)
	}
}

func (h *ApprovalHandler) currentStatus(r *http.Request, entityType domain.EntityType, id string) (domain.ApprovalStatus, error) {
	switch entityType {
	case domain.EntityCapitalCall:
		call, err := h.callUC.GetCapitalCall(r.Context(), id)
		if err != nil {
			return "", err
		}
		return call.Status, nil
	case domain.EntityDistribution:
		dist, err := h.distUC.GetDistribution(r.Context(), id)
		if err != nil {
			return "", err
		}
		return dist.Status, nil
	default:
		return "", domain.ErrUnknownEntityType
	}
}

func (h *ApprovalHandler) totalAmount(r *http.Request, entityType domain.EntityType, id string) (decimal.Decimal, error) {
	switch entityType {
	case domain.EntityCapitalCall:
		call, err := h.callUC.GetCapitalCall(r.Context(), id)
		if err != nil {
			return decimal.Zero, err
		}
		return call.TotalAmount, nil
	case domain.EntityDistribution:
		dist, err := h.distUC.GetDistribution(r.Context(), id)
		if err != nil {
			return decimal.Zero, err
		}
		return dist.TotalAmount, nil
	default:
		return decimal.Zero, domain.ErrUnknownEntityType
	}
}
