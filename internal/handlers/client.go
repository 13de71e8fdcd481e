package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/contractpro/contractpro/httpx"
	"github.com/contractpro/contractpro/internal/services"
)

type ClientHandler struct {
	clients *services.ClientService
	log     zerolog.Logger
}

func NewClientHandler(clients *services.ClientService, log zerolog.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, log: log}
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := listParams(w, r, nil)
	if !ok {
		return
	}
	clients, total, err := h.clients.List(r.Context(), p)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	page(w, clients, p, total)
}

func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.clients.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, c, "")
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ClientInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.clients.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusCreated, c, "Client created successfully")
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.ClientInput
	if !decode(w, r, &in) {
		return
	}
	c, err := h.clients.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, c, "Client updated successfully")
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.clients.Delete(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, nil, "Client deleted successfully")
}

// Contracts lists every active contract of the client.
func (h *ClientHandler) Contracts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	contracts, err := h.clients.Contracts(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, contracts, "")
}

// Invoices lists every active invoice of the client.
func (h *ClientHandler) Invoices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	invoices, err := h.clients.Invoices(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, invoices, "")
}
