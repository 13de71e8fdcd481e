// Package handlers exposes the ContractPro services as a JSON API. Handlers
// decode, call one service method and encode; rules live in the services.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	jujuerrors "github.com/juju/errors"
	"github.com/rs/zerolog"

	"github.com/contractpro/contractpro/httpx"
	"github.com/contractpro/contractpro/internal/models"
	"github.com/contractpro/contractpro/internal/services"
	"github.com/contractpro/contractpro/validation"
)

const (
	msgValidationFailed = "Validation failed"
	msgInvalidID        = "Invalid ID format"
	msgInvalidBody      = "Invalid JSON body"
	msgInternal         = "Internal server error"
)

var unauthorizedErrs = []error{
	services.ErrAuthRequired,
	services.ErrInvalidCredentials,
	services.ErrDeactivated,
	services.ErrUserGone,
}

// writeError maps a service error to its status code and envelope. Unknown
// errors are logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var (
		violations validation.Violations
		transition *models.TransitionError
	)
	switch {
	case errors.As(err, &violations):
		httpx.JSONError(w, http.StatusBadRequest, msgValidationFailed, violations)
	case errors.As(err, &transition):
		httpx.JSONError(w, http.StatusBadRequest, transition.Reason, nil)
	case errors.Is(err, services.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, err.Error(), nil)
	case jujuerrors.Is(err, jujuerrors.NotFound):
		httpx.JSONError(w, http.StatusNotFound, err.Error(), nil)
	case jujuerrors.Is(err, jujuerrors.AlreadyExists):
		httpx.JSONError(w, http.StatusConflict, err.Error(), nil)
	case isAny(err, unauthorizedErrs):
		httpx.JSONError(w, http.StatusUnauthorized, err.Error(), nil)
	case errors.Is(err, services.ErrAccessDenied):
		httpx.JSONError(w, http.StatusForbidden, err.Error(), nil)
	default:
		log.Error().Err(err).Msg("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, msgInternal, nil)
	}
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// pathID reads the {id} wildcard and answers 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgInvalidID, nil)
		return "", false
	}
	return id, true
}

// decode reads the JSON body into dst and answers 400 when it cannot.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.Decode(r, dst); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, msgInvalidBody, err.Error())
		return false
	}
	return true
}

// listParams reads page, limit, search and status. statuses, when given,
// closes the set of accepted status filters.
func listParams(w http.ResponseWriter, r *http.Request, statuses []string) (services.ListParams, bool) {
	v := make(validation.Violations)
	page, ok := httpx.QueryInt(r, "page", 1)
	if !ok || page < 1 {
		v["page"] = "must_be_positive_integer"
	}
	limit, ok := httpx.QueryInt(r, "limit", services.DefaultPageLimit)
	if !ok || limit < 1 || limit > services.MaxPageLimit {
		v["limit"] = "out_of_range"
	}
	q := r.URL.Query()
	p := services.ListParams{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(q.Get("search")),
		Status: strings.TrimSpace(q.Get("status")),
	}
	if statuses != nil {
		validation.OneOf("status", p.Status, statuses, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, msgValidationFailed, v)
		return p, false
	}
	return p, true
}

// page writes one page of a listed collection.
func page[T any](w http.ResponseWriter, items []T, p services.ListParams, total int64) {
	httpx.Page(w, items, httpx.NewPagination(p.Page, p.Limit, total))
}
