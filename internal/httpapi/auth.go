package httpapi

import (
	"net/http"
	"strings"

	"agrisense-backend/internal/apperr"
	"agrisense-backend/internal/auth"
	"agrisense-backend/internal/roles"
	"agrisense-backend/internal/store"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeFailure(w, apperr.New(apperr.Validation, "name, email and password are required"))
		return
	}

	// Admin accounts are provisioned, never self-registered.
	role := roles.Farmer
	if req.Role != "" && roles.IsValidRole(req.Role) && req.Role != roles.Admin {
		role = req.Role
	}

	if _, err := s.repo.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeFailure(w, apperr.New(apperr.Validation, "email already registered"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not create user", err))
		return
	}

	user := &store.User{Name: req.Name, Email: req.Email, PasswordHash: hash, Role: role, Active: true}
	if err := s.repo.CreateUser(r.Context(), user); err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not create user", err))
		return
	}

	token, err := auth.IssueToken(s.jwtSecret, user, s.tokenTTL)
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not issue token", err))
		return
	}
	writeSuccess(w, http.StatusCreated, map[string]any{"user": user, "token": token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeFailure(w, apperr.New(apperr.Validation, "email and password are required"))
		return
	}

	user, err := s.repo.GetUserByEmail(r.Context(), req.Email)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if !user.Active {
		writeError(w, http.StatusUnauthorized, "account is deactivated")
		return
	}

	token, err := auth.IssueToken(s.jwtSecret, user, s.tokenTTL)
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not issue token", err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user": user, "token": token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	user, err := s.repo.GetUser(r.Context(), caller.ID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user": user})
}
