package httpapi

import (
	"net/http"
	"strings"

	"agrisense-backend/internal/apperr"
	"agrisense-backend/internal/auth"
	"agrisense-backend/internal/roles"
)

type userPatch struct {
	Name   *string `json:"name,omitempty"`
	Role   *string `json:"role,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

func (s *Server) handleUsersList(w http.ResponseWriter, r *http.Request) {
	users, err := s.repo.ListUsers(r.Context())
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not query users", err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"users": users})
}

func (s *Server) handleUsersGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "user_id")
	if err != nil {
		writeFailure(w, err)
		return
	}
	user, err := s.repo.GetUser(r.Context(), id)
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.NotFound, "User not found", err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleUsersPatch(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	id, err := parseUUIDParam(r, "user_id")
	if err != nil {
		writeFailure(w, err)
		return
	}

	var req userPatch
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, apperr.New(apperr.Validation, "invalid request body"))
		return
	}

	patch := map[string]any{}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeFailure(w, apperr.New(apperr.Validation, "name cannot be empty"))
			return
		}
		patch["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		if !roles.IsValidRole(*req.Role) {
			writeFailure(w, apperr.New(apperr.Validation, "invalid role"))
			return
		}
		if !roles.CanAssignRole(caller.Role, *req.Role) {
			writeFailure(w, apperr.New(apperr.Forbidden, "cannot assign a role above your own"))
			return
		}
		patch["role"] = *req.Role
	}
	if req.Active != nil {
		patch["active"] = *req.Active
	}

	user, err := s.repo.UpdateUser(r.Context(), id, patch)
	if err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not update user", err))
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"user": user})
}

func (s *Server) handleUsersDelete(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	id, err := parseUUIDParam(r, "user_id")
	if err != nil {
		writeFailure(w, err)
		return
	}
	if id == caller.ID {
		writeFailure(w, apperr.New(apperr.Validation, "cannot delete your own account"))
		return
	}
	if _, err := s.repo.GetUser(r.Context(), id); err != nil {
		writeFailure(w, apperr.Wrap(apperr.NotFound, "User not found", err))
		return
	}
	if err := s.repo.DeleteUser(r.Context(), id); err != nil {
		writeFailure(w, apperr.Wrap(apperr.Storage, "could not delete user", err))
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully", nil)
}
