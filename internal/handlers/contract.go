package handlers

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/contractpro/contractpro/httpx"
	"github.com/contractpro/contractpro/internal/models"
	"github.com/contractpro/contractpro/internal/services"
)

type ContractHandler struct {
	contracts *services.ContractService
	log       zerolog.Logger
}

func NewContractHandler(contracts *services.ContractService, log zerolog.Logger) *ContractHandler {
	return &ContractHandler{contracts: contracts, log: log}
}

func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := listParams(w, r, models.ContractStatuses)
	if !ok {
		return
	}
	contracts, total, err := h.contracts.List(r.Context(), p)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	page(w, contracts, p, total)
}

func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.contracts.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, c, "")
}

func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ContractInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.contracts.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusCreated, c, "Contract created successfully")
}

func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.ContractInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.contracts.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, c, "Contract updated successfully")
}

func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.contracts.Delete(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Contract deleted successfully")
}

func (h *ContractHandler) SendForSignature(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.contracts.SendForSignature, "Contract sent for signature successfully")
}

func (h *ContractHandler) Sign(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.contracts.Sign, "Contract signed successfully")
}

func (h *ContractHandler) step(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (*models.Contract, error), message string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := op(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, c, message)
}

func (h *ContractHandler) ExportPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, url, err := h.contracts.ExportPDF(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, map[string]any{"downloadUrl": url, "contract": c}, "PDF export ready")
}
