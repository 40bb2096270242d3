package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"pqrs.org/internal/audit"
	"pqrs.org/internal/auth"
	"pqrs.org/internal/pqrs"
)

// Ticket permissions. Roles carry these through the seeded catalog.
const (
	PermCreateTickets = "crear_pqrs"
	PermViewTickets   = "ver_pqrs"
	PermManageTickets = "gestionar_pqrs"
	PermDeleteTickets = "eliminar_pqrs"
)

type createTicketRequest struct {
	Type              string `json:"type"`
	Subject           string `json:"subject"`
	Description       string `json:"description"`
	Priority          string `json:"priority,omitempty"`
	RequesterName     string `json:"requester_name"`
	RequesterEmail    string `json:"requester_email"`
	RequesterPhone    string `json:"requester_phone,omitempty"`
	RequesterDocument string `json:"requester_document,omitempty"`
	DeadlineDays      int    `json:"deadline_days,omitempty"`
}

type updateTicketRequest struct {
	Type              string `json:"type"`
	Subject           string `json:"subject"`
	Description       string `json:"description"`
	Priority          string `json:"priority"`
	RequesterName     string `json:"requester_name"`
	RequesterEmail    string `json:"requester_email"`
	RequesterPhone    string `json:"requester_phone,omitempty"`
	RequesterDocument string `json:"requester_document,omitempty"`
}

type assignTicketRequest struct {
	AssigneeID string `json:"assignee_id"`
}

type changeStatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

func (a *API) handleTickets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.handleTicketCreate(w, r)
	case http.MethodGet:
		a.handleTicketList(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost, http.MethodGet)
	}
}

func (a *API) handleTicketCreate(w http.ResponseWriter, r *http.Request) {
	user, ok := a.ensure(w, r, auth.RequirePermissions(PermCreateTickets))
	if !ok {
		return
	}
	var req createTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ticket, err := a.deps.Tickets.Create(r.Context(), user.ID, pqrs.CreateInput{
		Type:              pqrs.Type(req.Type),
		Subject:           req.Subject,
		Description:       req.Description,
		Priority:          pqrs.Priority(req.Priority),
		RequesterName:     req.RequesterName,
		RequesterEmail:    req.RequesterEmail,
		RequesterPhone:    req.RequesterPhone,
		RequesterDocument: req.RequesterDocument,
		DeadlineDays:      req.DeadlineDays,
	})
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "pqrs.create", map[string]any{
		"ticket_id": ticket.ID,
		"type":      string(ticket.Type),
	})
	w.Header().Set("Location", "/v1/pqrs/"+ticket.ID)
	writeJSON(w, http.StatusCreated, ticket)
}

func (a *API) handleTicketList(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.ensure(w, r, auth.RequirePermissions(PermManageTickets)); !ok {
		return
	}
	limit, offset, err := a.pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	q := r.URL.Query()
	tickets, total, err := a.deps.Tickets.List(r.Context(), pqrs.Filter{
		Type:     pqrs.Type(q.Get("type")),
		Status:   pqrs.Status(q.Get("status")),
		Priority: pqrs.Priority(q.Get("priority")),
		Search:   strings.TrimSpace(q.Get("search")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: tickets, Total: total, Skip: offset, Limit: limit})
}

func (a *API) handleTicketScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/pqrs/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	switch {
	case len(parts) == 1 && parts[0] == "my":
		a.handleTicketsByCreator(w, r)
	case len(parts) == 1 && parts[0] == "assigned":
		a.handleTicketsByAssignee(w, r)
	case len(parts) == 1 && parts[0] == "overdue":
		a.handleTicketsOverdue(w, r)
	case len(parts) == 1:
		a.handleTicketByID(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "assign":
		a.handleTicketAssign(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "change-status":
		a.handleTicketChangeStatus(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "history":
		a.handleTicketHistory(w, r, parts[0])
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleTicketsByCreator(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := a.ensure(w, r)
	if !ok {
		return
	}
	limit, offset, err := a.pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tickets, total, err := a.deps.Tickets.ListByCreator(r.Context(), user.ID, limit, offset)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: tickets, Total: total, Skip: offset, Limit: limit})
}

func (a *API) handleTicketsByAssignee(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := a.ensure(w, r)
	if !ok {
		return
	}
	limit, offset, err := a.pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tickets, total, err := a.deps.Tickets.ListByAssignee(r.Context(), user.ID, limit, offset)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: tickets, Total: total, Skip: offset, Limit: limit})
}

func (a *API) handleTicketsOverdue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.ensure(w, r, auth.RequirePermissions(PermManageTickets)); !ok {
		return
	}
	limit, offset, err := a.pagination(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tickets, total, err := a.deps.Tickets.ListOverdue(r.Context(), limit, offset)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: tickets, Total: total, Skip: offset, Limit: limit})
}

// canReadTicket: creators and assignees see their own tickets; everyone else
// needs a viewing or managing permission.
func canReadTicket(user *auth.User, t *pqrs.Ticket) bool {
	if t.CreatedBy == user.ID || (t.AssignedTo != "" && t.AssignedTo == user.ID) {
		return true
	}
	return user.Role.HasPermission(PermViewTickets) || user.Role.HasPermission(PermManageTickets)
}

func (a *API) handleTicketByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		user, ok := a.ensure(w, r)
		if !ok {
			return
		}
		ticket, err := a.deps.Tickets.Get(r.Context(), id)
		if err != nil {
			handleTicketError(w, r, err)
			return
		}
		if !canReadTicket(user, ticket) {
			writeError(w, r, http.StatusForbidden, "not allowed to view this ticket")
			return
		}
		writeJSON(w, http.StatusOK, ticket)

	case http.MethodPut:
		if _, ok := a.ensure(w, r, auth.RequirePermissions(PermManageTickets)); !ok {
			return
		}
		var req updateTicketRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		ticket, err := a.deps.Tickets.Update(r.Context(), id, pqrs.UpdateInput{
			Type:              pqrs.Type(req.Type),
			Subject:           req.Subject,
			Description:       req.Description,
			Priority:          pqrs.Priority(req.Priority),
			RequesterName:     req.RequesterName,
			RequesterEmail:    req.RequesterEmail,
			RequesterPhone:    req.RequesterPhone,
			RequesterDocument: req.RequesterDocument,
		})
		if err != nil {
			handleTicketError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "pqrs.update", map[string]any{"ticket_id": id})
		writeJSON(w, http.StatusOK, ticket)

	case http.MethodDelete:
		if _, ok := a.ensure(w, r, auth.RequirePermissions(PermDeleteTickets)); !ok {
			return
		}
		if err := a.deps.Tickets.Delete(r.Context(), id); err != nil {
			handleTicketError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "pqrs.delete", map[string]any{"ticket_id": id})
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) handleTicketAssign(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, ok := a.ensure(w, r, auth.RequirePermissions(PermManageTickets)); !ok {
		return
	}
	var req assignTicketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	assignee := strings.TrimSpace(req.AssigneeID)
	if assignee != "" {
		if _, err := a.deps.Users.GetByID(r.Context(), assignee); err != nil {
			if errors.Is(err, auth.ErrNotFound) {
				writeError(w, r, http.StatusBadRequest, "assignee does not exist")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "assignee lookup failed")
			return
		}
	}
	ticket, err := a.deps.Tickets.Assign(r.Context(), id, assignee)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "pqrs.assign", map[string]any{
		"ticket_id":   id,
		"assignee_id": assignee,
	})
	writeJSON(w, http.StatusOK, ticket)
}

func (a *API) handleTicketChangeStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	user, ok := a.ensure(w, r, auth.RequirePermissions(PermManageTickets))
	if !ok {
		return
	}
	var req changeStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ticket, err := a.deps.Tickets.ChangeStatus(r.Context(), id, pqrs.Status(req.Status), req.Comment, user.ID)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "pqrs.change_status", map[string]any{
		"ticket_id": id,
		"status":    req.Status,
	})
	writeJSON(w, http.StatusOK, ticket)
}

func (a *API) handleTicketHistory(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	user, ok := a.ensure(w, r)
	if !ok {
		return
	}
	ticket, err := a.deps.Tickets.Get(r.Context(), id)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	if !canReadTicket(user, ticket) {
		writeError(w, r, http.StatusForbidden, "not allowed to view this ticket")
		return
	}
	history, err := a.deps.Tickets.History(r.Context(), id)
	if err != nil {
		handleTicketError(w, r, err)
		return
	}
	if history == nil {
		history = []pqrs.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, history)
}

func handleTicketError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, pqrs.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, pqrs.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "ticket operation failed")
	}
}
