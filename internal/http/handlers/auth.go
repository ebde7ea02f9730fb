package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/hongminglow/farmconnect/internal/http/respond"
	"github.com/hongminglow/farmconnect/internal/middleware"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/models/dto"
	"github.com/hongminglow/farmconnect/internal/session"
)

// AuthHandler owns the login, register and session endpoints.
type AuthHandler struct {
	sessions *session.Service
	gate     *middleware.Gate
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(sessions *session.Service, gate *middleware.Gate) *AuthHandler {
	return &AuthHandler{sessions: sessions, gate: gate}
}

// Register attaches auth routes to the router.
func (h *AuthHandler) Register(r *mux.Router) {
	r.HandleFunc("/", h.gate.Root).Methods(http.MethodGet)
	r.HandleFunc(middleware.LoginPath, h.gate.GuestOnly(h.loginView)).Methods(http.MethodGet)
	r.HandleFunc(middleware.LoginPath, h.gate.GuestOnly(h.handleLogin)).Methods(http.MethodPost)
	r.HandleFunc("/register", h.gate.GuestOnly(h.registerView)).Methods(http.MethodGet)
	r.HandleFunc("/register", h.gate.GuestOnly(h.handleRegister)).Methods(http.MethodPost)
	r.HandleFunc("/register/resume", h.handleResume).Methods(http.MethodPost)
	r.HandleFunc("/logout", h.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/session", h.handleSession).Methods(http.MethodGet)
}

func (h *AuthHandler) loginView(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, "login", map[string][]string{"fields": {"email", "password"}})
}

func (h *AuthHandler) registerView(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, "register", map[string]any{
		"fields":     []string{"email", "password", "full_name", "user_type", "location", "phone"},
		"user_types": []models.UserType{models.Farmer, models.Buyer},
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	user, err := h.sessions.SignIn(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Signed in successfully!", dto.LoginResponse{User: user})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, "email and password are required")
		return
	}
	user, err := h.sessions.SignUp(r.Context(), strings.TrimSpace(req.Email), req.Password, req.Fields())
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Account created successfully!", dto.LoginResponse{User: user})
}

func (h *AuthHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	var fields models.ProfileFields
	if !decodeJSON(w, r, &fields) {
		return
	}
	user, err := h.sessions.ResumeSignUp(r.Context(), fields)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, "Account created successfully!", dto.LoginResponse{User: user})
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.SignOut(r.Context())
	http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
}

func (h *AuthHandler) handleSession(w http.ResponseWriter, r *http.Request) {
	snap := h.sessions.Snapshot()
	respond.JSON(w, http.StatusOK, "session", dto.SessionResponse{
		State:   snap.State.String(),
		Loading: snap.Loading,
		User:    snap.User,
	})
}
