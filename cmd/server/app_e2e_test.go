package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/contractpro/contractpro/auth"
	"github.com/contractpro/contractpro/internal/config"
	"github.com/contractpro/contractpro/internal/db"
	"github.com/contractpro/contractpro/internal/models"
)

var start = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

type e2e struct {
	t   *testing.T
	db  *gorm.DB
	clk *testclock.Clock
	app *App
}

func setupE2E(t *testing.T) *e2e {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:e2e_"+t.Name()+"?mode=memory&cache=shared"), db.GormConfig(false))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(conn))
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{
		Server: config.ServerConfig{
			RateLimit:   1000,
			RateWindow:  15 * time.Minute,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Auth: config.AuthConfig{JWTSecret: "e2e-secret", TokenTTL: time.Hour, RoleCache: time.Minute},
		App:  config.AppConfig{Dev: true},
	}
	clk := testclock.NewClock(start)
	return &e2e{t: t, db: conn, clk: clk, app: NewApp(cfg, conn, clk, zerolog.Nop())}
}

type response struct {
	Code       int
	Success    bool                       `json:"success"`
	Data       json.RawMessage            `json:"data"`
	Message    string                     `json:"message"`
	Error      string                     `json:"error"`
	Details    map[string]any             `json:"details"`
	Pagination map[string]json.RawMessage `json:"pagination"`
}

func (e *e2e) do(method, path, token string, body any) response {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.app.ServeHTTP(rr, req)

	res := response{Code: rr.Code}
	require.NoError(e.t, json.Unmarshal(rr.Body.Bytes(), &res), "body=%s", rr.Body.String())
	return res
}

func (e *e2e) data(res response, dst any) {
	e.t.Helper()
	require.NoError(e.t, json.Unmarshal(res.Data, dst))
}

func (e *e2e) register(name, email, role string) string {
	e.t.Helper()
	res := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(e.t, http.StatusCreated, res.Code, res.Error)
	var sess struct {
		Token string `json:"token"`
	}
	e.data(res, &sess)
	require.NotEmpty(e.t, sess.Token)
	return sess.Token
}

func (e *e2e) admin() string {
	e.t.Helper()
	hash, err := auth.HashPassword("secret123")
	require.NoError(e.t, err)
	u := &models.User{Name: "Site Admin", Email: "admin@example.com", Password: hash, Role: models.RoleAdmin, IsActive: true}
	require.NoError(e.t, e.db.Create(u).Error)
	res := e.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": u.Email, "password": "secret123"})
	require.Equal(e.t, http.StatusOK, res.Code, res.Error)
	var sess struct {
		Token string `json:"token"`
	}
	e.data(res, &sess)
	return sess.Token
}

func (e *e2e) createClient(token, email string) string {
	e.t.Helper()
	res := e.do(http.MethodPost, "/api/clients", token, map[string]string{
		"name": "Jane Buyer", "email": email, "company": "Buyer Co",
	})
	require.Equal(e.t, http.StatusCreated, res.Code, res.Error)
	var c struct {
		ID string `json:"id"`
	}
	e.data(res, &c)
	return c.ID
}

func TestHealthAndNotFound(t *testing.T) {
	e := setupE2E(t)

	res := e.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "ContractPro API is running", res.Message)

	res = e.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = e.do(http.MethodGet, "/api/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Route /api/nowhere not found", res.Error)
}

func TestAuthFlowE2E(t *testing.T) {
	e := setupE2E(t)
	token := e.register("Fran Lancer", "fran@example.com", "")

	res := e.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	e.data(res, &me)
	assert.Equal(t, "fran@example.com", me.Email)
	assert.Equal(t, "freelancer", me.Role)

	res = e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Again", "email": "FRAN@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = e.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "fran@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = e.do(http.MethodPost, "/api/auth/register", "", map[string]string{"name": "X", "email": "bad", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Validation failed", res.Error)
	assert.Contains(t, res.Details, "email")
	assert.Contains(t, res.Details, "password")

	res = e.do(http.MethodPut, "/api/auth/profile", token, map[string]string{"name": "Frances Lancer"})
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "Profile updated successfully", res.Message)

	res = e.do(http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	e.clk.Advance(2 * time.Hour)
	res = e.do(http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code, "token outlived its ttl")
}

func TestContractAndInvoiceLifecycleE2E(t *testing.T) {
	e := setupE2E(t)
	token := e.register("Fran Lancer", "fran@example.com", "freelancer")
	clientID := e.createClient(token, "jane@buyer.example")

	res := e.do(http.MethodPost, "/api/contracts", token, map[string]any{
		"clientId":  clientID,
		"title":     "Mobile app",
		"content":   "Build the app.",
		"amount":    "2500",
		"expiresAt": start.Add(30 * 24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Error)
	var contract struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	e.data(res, &contract)
	assert.Equal(t, "draft", contract.Status)

	res = e.do(http.MethodPost, "/api/contracts/"+contract.ID+"/sign", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code, "draft contracts cannot be signed")

	res = e.do(http.MethodPost, "/api/contracts/"+contract.ID+"/send-signature", token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Error)
	assert.Equal(t, "Contract sent for signature successfully", res.Message)

	res = e.do(http.MethodPost, "/api/contracts/"+contract.ID+"/sign", token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Error)
	e.data(res, &contract)
	assert.Equal(t, "signed", contract.Status)

	res = e.do(http.MethodPost, "/api/invoices", token, map[string]any{
		"clientId": clientID,
		"items":    []map[string]any{{"description": "Design", "quantity": 10, "rate": 100}},
		"taxRate":  10,
		"dueDate":  start.Add(14 * 24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Error)
	var invoice struct {
		ID            string `json:"id"`
		InvoiceNumber string `json:"invoiceNumber"`
		Total         json.Number `json:"total"`
		Status        string `json:"status"`
	}
	e.data(res, &invoice)
	assert.Equal(t, "INV-0001", invoice.InvoiceNumber)
	assert.Equal(t, "1100", invoice.Total.String())

	res = e.do(http.MethodPost, "/api/invoices/"+invoice.ID+"/send", token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Error)

	res = e.do(http.MethodPost, "/api/invoices/"+invoice.ID+"/remind", token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Error)
	assert.Equal(t, "first reminder sent successfully", res.Message)

	res = e.do(http.MethodPost, "/api/invoices/"+invoice.ID+"/mark-paid", token, nil)
	require.Equal(t, http.StatusOK, res.Code, res.Error)
	e.data(res, &invoice)
	assert.Equal(t, "paid", invoice.Status)

	res = e.do(http.MethodGet, "/api/invoices/"+invoice.ID+"/export-pdf", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var export struct {
		DownloadURL string `json:"downloadUrl"`
	}
	e.data(res, &export)
	assert.Contains(t, export.DownloadURL, invoice.ID)

	res = e.do(http.MethodGet, "/api/dashboard/stats", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var stats struct {
		TotalClients int    `json:"totalClients"`
		TotalRevenue json.Number `json:"totalRevenue"`
	}
	e.data(res, &stats)
	assert.Equal(t, 1, stats.TotalClients)
	assert.Equal(t, "1100", stats.TotalRevenue.String())
}

func TestListValidationE2E(t *testing.T) {
	e := setupE2E(t)
	token := e.register("Fran Lancer", "fran@example.com", "freelancer")
	e.createClient(token, "a@buyer.example")
	e.createClient(token, "b@buyer.example")

	res := e.do(http.MethodGet, "/api/clients?page=1&limit=1", token, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, "2", string(res.Pagination["total"]))
	assert.JSONEq(t, "2", string(res.Pagination["pages"]))

	res = e.do(http.MethodGet, "/api/clients?page=0&limit=500", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "must_be_positive_integer", res.Details["page"])
	assert.Equal(t, "out_of_range", res.Details["limit"])

	res = e.do(http.MethodGet, "/api/contracts?status=archived", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Details, "status")

	res = e.do(http.MethodGet, "/api/dashboard/revenue?period=forever", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = e.do(http.MethodGet, "/api/clients/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "Invalid ID format", res.Error)

	res = e.do(http.MethodGet, "/api/clients/00000000-0000-0000-0000-000000000000", token, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "Client not found", res.Error)
}

func TestAccessControlE2E(t *testing.T) {
	e := setupE2E(t)
	fran := e.register("Fran Lancer", "fran@example.com", "freelancer")
	other := e.register("Otto Lancer", "otto@example.com", "freelancer")
	buyer := e.register("Jane Buyer", "jane@buyer.example", "client")
	clientID := e.createClient(fran, "jane@buyer.example")

	res := e.do(http.MethodGet, "/api/clients", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	res = e.do(http.MethodGet, "/api/contracts", buyer, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = e.do(http.MethodGet, "/api/dashboard/client-stats", buyer, nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = e.do(http.MethodGet, "/api/clients/"+clientID, other, nil)
	assert.Equal(t, http.StatusNotFound, res.Code, "foreign records look missing")

	res = e.do(http.MethodGet, "/api/dashboard/admin-stats", fran, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	admin := e.admin()
	res = e.do(http.MethodGet, "/api/dashboard/admin-stats", admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var st struct {
		TotalUsers int64 `json:"totalUsers"`
	}
	e.data(res, &st)
	assert.Equal(t, int64(4), st.TotalUsers)

	res = e.do(http.MethodGet, "/api/clients/"+clientID, admin, nil)
	assert.Equal(t, http.StatusOK, res.Code)
}
