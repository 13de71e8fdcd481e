package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	jujuerrors "github.com/juju/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractpro/contractpro/internal/models"
	"github.com/contractpro/contractpro/internal/services"
	"github.com/contractpro/contractpro/validation"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"violations", validation.Violations{"email": "invalid_email"}, http.StatusBadRequest, msgValidationFailed},
		{"transition", fmt.Errorf("sign: %w", models.ErrMustBeSentFirst), http.StatusBadRequest, "Contract must be sent before it can be signed"},
		{"conflict", services.ErrConflict, http.StatusConflict, services.ErrConflict.Error()},
		{"not found", jujuerrors.NotFoundf("Contract"), http.StatusNotFound, "Contract not found"},
		{"duplicate", jujuerrors.AlreadyExistsf("Client with this email"), http.StatusConflict, "Client with this email already exists"},
		{"no token", services.ErrAuthRequired, http.StatusUnauthorized, "Access token is required"},
		{"deactivated", services.ErrDeactivated, http.StatusUnauthorized, "Account is deactivated"},
		{"denied", services.ErrAccessDenied, http.StatusForbidden, "Access denied - insufficient permissions"},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError, msgInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, zerolog.Nop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestPathID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/clients/x", nil)
	r.SetPathValue("id", "x")
	w := httptest.NewRecorder()
	_, ok := pathID(w, r)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r.SetPathValue("id", "0b6e4f39-8a65-4f7e-9a51-3c1f2d1d7a10")
	w = httptest.NewRecorder()
	id, ok := pathID(w, r)
	assert.True(t, ok)
	assert.Equal(t, "0b6e4f39-8a65-4f7e-9a51-3c1f2d1d7a10", id)
}

func TestListParams(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/invoices?search=%20acme%20&status=overdue", nil)
	p, ok := listParams(w, r, models.InvoiceStatuses)
	require.True(t, ok)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, services.DefaultPageLimit, p.Limit)
	assert.Equal(t, "acme", p.Search)
	assert.Equal(t, "overdue", p.Status)

	w = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodGet, "/api/invoices?page=abc&limit=0&status=lost", nil)
	_, ok = listParams(w, r, models.InvoiceStatuses)
	require.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "must_be_positive_integer", body.Details["page"])
	assert.Equal(t, "out_of_range", body.Details["limit"])
	assert.Contains(t, body.Details, "status")
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/clients", strings.NewReader(`{"name":"a"} {"name":"b"}`))
	var in services.ClientInput
	assert.False(t, decode(w, r, &in))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	NotFound(w, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Route /api/unknown not found"}`, w.Body.String())
}
