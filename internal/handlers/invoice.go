package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/contractpro/contractpro/httpx"
	"github.com/contractpro/contractpro/internal/models"
	"github.com/contractpro/contractpro/internal/services"
)

type InvoiceHandler struct {
	invoices *services.InvoiceService
	log      zerolog.Logger
}

func NewInvoiceHandler(invoices *services.InvoiceService, log zerolog.Logger) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, log: log}
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := listParams(w, r, models.InvoiceStatuses)
	if !ok {
		return
	}
	invoices, total, err := h.invoices.List(r.Context(), p)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	page(w, invoices, p, total)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := h.invoices.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv, "")
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.InvoiceInput
	if !decode(w, r, &in) {
		return
	}
	inv, err := h.invoices.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusCreated, inv, "Invoice created successfully")
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.InvoiceInput
	if !decode(w, r, &in) {
		return
	}
	inv, err := h.invoices.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv, "Invoice updated successfully")
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.invoices.Delete(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Invoice deleted successfully")
}

func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.invoices.Send, "Invoice sent successfully")
}

func (h *InvoiceHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.invoices.MarkPaid, "Invoice marked as paid successfully")
}

func (h *InvoiceHandler) step(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*models.Invoice, error), message string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, err := op(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv, message)
}

// Remind records the next reminder; the message names its escalation step.
func (h *InvoiceHandler) Remind(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, reminder, err := h.invoices.Remind(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, inv, string(reminder.Type)+" reminder sent successfully")
}

func (h *InvoiceHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	inv, url, err := h.invoices.ExportPDF(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"downloadUrl": url, "invoice": inv}, "PDF export ready")
}
