package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/contractpro/contractpro/httpx"
	"github.com/contractpro/contractpro/internal/services"
	"github.com/contractpro/contractpro/validation"
)

var revenuePeriods = []string{"6months", "1year"}

type DashboardHandler struct {
	dashboard *services.DashboardService
	log       zerolog.Logger
}

func NewDashboardHandler(dashboard *services.DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, log: log}
}

// respond writes data or maps err.
func (h *DashboardHandler) respond(w http.ResponseWriter, data any, err error) {
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, data, "")
}

// limit reads the optional limit query parameter, 1 to 100.
func (h *DashboardHandler) limit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	n, ok := httpx.QueryInt(r, "limit", def)
	if !ok || n < 1 || n > services.MaxPageLimit {
		httpx.JSONError(w, http.StatusBadRequest, msgValidationFailed, validation.Violations{"limit": "out_of_range"})
		return 0, false
	}
	return n, true
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.dashboard.Stats(r.Context())
	h.respond(w, st, err)
}

// Revenue accepts period=6months (default) or 1year.
func (h *DashboardHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	v := make(validation.Violations)
	validation.OneOf("period", period, revenuePeriods, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, msgValidationFailed, v)
		return
	}
	points, err := h.dashboard.Revenue(r.Context(), period)
	h.respond(w, points, err)
}

func (h *DashboardHandler) Activity(w http.ResponseWriter, r *http.Request) {
	n, ok := h.limit(w, r, services.DefaultActivityLimit)
	if !ok {
		return
	}
	feed, err := h.dashboard.Activity(r.Context(), n)
	h.respond(w, feed, err)
}

func (h *DashboardHandler) UpcomingDeadlines(w http.ResponseWriter, r *http.Request) {
	deadlines, err := h.dashboard.UpcomingDeadlines(r.Context())
	h.respond(w, deadlines, err)
}

func (h *DashboardHandler) ClientStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.dashboard.ClientStats(r.Context())
	h.respond(w, st, err)
}

func (h *DashboardHandler) ClientProjects(w http.ResponseWriter, r *http.Request) {
	n, ok := h.limit(w, r, services.DefaultProjectLimit)
	if !ok {
		return
	}
	projects, err := h.dashboard.ClientProjects(r.Context(), n)
	h.respond(w, projects, err)
}

func (h *DashboardHandler) ClientFreelancers(w http.ResponseWriter, r *http.Request) {
	n, ok := h.limit(w, r, services.DefaultProjectLimit)
	if !ok {
		return
	}
	freelancers, err := h.dashboard.ClientFreelancers(r.Context(), n)
	h.respond(w, freelancers, err)
}

func (h *DashboardHandler) AdminStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.dashboard.AdminStats(r.Context())
	h.respond(w, st, err)
}
