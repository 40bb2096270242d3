package httpapi

import (
	"net/http"
	"strings"

	"pqrs.org/internal/audit"
	"pqrs.org/internal/auth"
)

// PermManageUsers guards the user administration endpoints.
const PermManageUsers = "gestionar_usuarios"

type updateUserRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	DocumentType   string `json:"document_type,omitempty"`
	DocumentNumber string `json:"document_number,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	RoleID         string `json:"role_id"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.ensure(w, r, auth.RequirePermissions(PermManageUsers)); !ok {
		return
	}
	limit, offset, err := a.pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	users, total, err := a.deps.Users.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "user listing failed")
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: users, Total: total, Skip: offset, Limit: limit})
}

func (a *API) handleUserScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	userID := parts[0]
	switch {
	case len(parts) == 1:
		a.handleUserByID(w, r, userID)
	case len(parts) == 2 && parts[1] == "activate":
		a.handleUserSetActive(w, r, userID, true)
	case len(parts) == 2 && parts[1] == "deactivate":
		a.handleUserSetActive(w, r, userID, false)
	case len(parts) == 2 && parts[1] == "reset-password":
		a.handleUserResetPassword(w, r, userID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := a.ensure(w, r, auth.RequirePermissions(PermManageUsers)); !ok {
			return
		}
		user, err := a.deps.Users.GetByID(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)

	case http.MethodPut:
		if _, ok := a.ensure(w, r, auth.RequirePermissions(PermManageUsers)); !ok {
			return
		}
		var req updateUserRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		user, err := a.deps.Users.GetByID(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		if req.RoleID != "" && req.RoleID != user.Role.ID {
			role, err := a.deps.Roles.GetRole(r.Context(), req.RoleID)
			if err != nil {
				handleAuthError(w, r, err)
				return
			}
			user.Role = *role
		}
		user.Username = strings.TrimSpace(req.Username)
		user.Email = strings.TrimSpace(strings.ToLower(req.Email))
		user.FullName = strings.TrimSpace(req.FullName)
		user.DocumentType = strings.TrimSpace(req.DocumentType)
		user.DocumentNumber = strings.TrimSpace(req.DocumentNumber)
		user.Phone = strings.TrimSpace(req.Phone)
		user.Address = strings.TrimSpace(req.Address)
		if user.Username == "" || user.Email == "" {
			writeError(w, r, http.StatusBadRequest, "username and email are required")
			return
		}
		if err := a.deps.Users.Update(r.Context(), user); err != nil {
			handleAuthError(w, r, err)
			return
		}
		updated, err := a.deps.Users.GetByID(r.Context(), userID)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "users.update", map[string]any{"target_id": userID})
		writeJSON(w, http.StatusOK, updated)

	case http.MethodDelete:
		actor, ok := a.ensure(w, r, auth.RequirePermissions(PermManageUsers))
		if !ok {
			return
		}
		if actor.ID == userID {
			writeError(w, r, http.StatusConflict, "cannot delete your own account")
			return
		}
		if err := a.deps.Users.Delete(r.Context(), userID); err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "users.delete", map[string]any{"target_id": userID})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleUserSetActive(w http.ResponseWriter, r *http.Request, userID string, active bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := a.ensure(w, r, auth.RequirePermissions(PermManageUsers))
	if !ok {
		return
	}
	if !active && actor.ID == userID {
		writeError(w, r, http.StatusConflict, "cannot deactivate your own account")
		return
	}
	if err := a.deps.Users.SetActive(r.Context(), userID, active); err != nil {
		handleAuthError(w, r, err)
		return
	}
	event := "users.deactivate"
	if active {
		event = "users.activate"
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{"target_id": userID})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleUserResetPassword(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, ok := a.ensure(w, r, auth.RequirePermissions(PermManageUsers)); !ok {
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.deps.Auth.ResetPassword(r.Context(), userID, req.NewPassword); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "users.reset_password", map[string]any{"target_id": userID})
	w.WriteHeader(http.StatusNoContent)
}
