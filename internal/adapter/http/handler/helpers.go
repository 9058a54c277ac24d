package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/fundledger/internal/adapter/http/dto"
	"github.com/iho/fundledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes. Validation
// failures are 400, missing or bad credentials 401, authorization
// failures 403, unknown entities 404 and state conflicts 409.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrEmptyReason),
		errors.Is(err, domain.ErrEmptyNotes),
		errors.Is(err, domain.ErrInvalidFeeRate),
		errors.Is(err, domain.ErrInvalidFeeBase),
		errors.Is(err, domain.ErrInvalidOwnership),
		errors.Is(err, domain.ErrInvalidCommitment),
		errors.Is(err, domain.ErrUnknownEntityType):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidToken),
		errors.Is(err, domain.ErrExpiredToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInsufficientRole),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrCFORequired):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrCapitalCallNotFound),
		errors.Is(err, domain.ErrDistributionNotFound),
		errors.Is(err, domain.ErrFundNotFound),
		errors.Is(err, domain.ErrInvestorNotFound),
		errors.Is(err, domain.ErrAllocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrStatusConflict),
		errors.Is(err, domain.ErrIllegalTransition),
		errors.Is(err, domain.ErrWaterfallApplied),
		errors.Is(err, domain.ErrNotApproved):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
