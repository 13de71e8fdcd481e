package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/contractpro/contractpro/httpx"
	"github.com/contractpro/contractpro/internal/services"
)

type AuthHandler struct {
	users *services.UserService
	log   zerolog.Logger
}

func NewAuthHandler(users *services.UserService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, log: log}
}

// Register creates an account and returns it with a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, "User registered successfully")
}

// Signup is Register under the name the web app uses.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, "Account created successfully")
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, message string) {
	var in services.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	session, err := h.users.Register(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusCreated, session, message)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if !decode(w, r, &in) {
		return
	}
	session, err := h.users.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, session, "Login successful")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Me(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, u, "")
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in services.ProfileInput
	if !decode(w, r, &in) {
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.OK(w, http.StatusOK, u, "Profile updated successfully")
}

// Logout is a no-op server side; clients drop their token.
func (h *AuthHandler) Logout(w http.ResponseWriter, _ *http.Request) {
	httpx.OK(w, http.StatusOK, nil, "Logged out successfully")
}
