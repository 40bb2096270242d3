package pqrs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, now *time.Time) *Service {
	t.Helper()
	store := NewMemoryStore(WithMemoryClock(func() time.Time { return *now }))
	return NewService(store, WithServiceClock(func() time.Time { return *now }))
}

func validTicket() CreateInput {
	return CreateInput{
		Type:           TypeQueja,
		Subject:        "Demora en respuesta",
		Description:    "La solicitud radicada hace un mes sigue sin respuesta.",
		Priority:       PriorityAlta,
		RequesterName:  "Maria Lopez",
		RequesterEmail: "maria@example.com",
		RequesterPhone: "3001234567",
	}
}

func TestCreateTicket(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)

	ticket, err := svc.Create(context.Background(), "user-1", validTicket())
	require.NoError(t, err)
	require.NotEmpty(t, ticket.ID)
	require.Equal(t, StatusRecibida, ticket.Status)
	require.Equal(t, "user-1", ticket.CreatedBy)
	require.Empty(t, ticket.AssignedTo)
	require.Equal(t, now.AddDate(0, 0, 15), ticket.Deadline)
}

func TestCreateTicketCustomDeadline(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)

	in := validTicket()
	in.DeadlineDays = 30
	ticket, err := svc.Create(context.Background(), "user-1", in)
	require.NoError(t, err)
	require.Equal(t, now.AddDate(0, 0, 30), ticket.Deadline)

	in.DeadlineDays = 91
	_, err = svc.Create(context.Background(), "user-1", in)
	require.ErrorIs(t, err, ErrInvalidInput)

	in.DeadlineDays = -1
	_, err = svc.Create(context.Background(), "user-1", in)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateTicketDefaultPriority(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)

	in := validTicket()
	in.Priority = ""
	ticket, err := svc.Create(context.Background(), "user-1", in)
	require.NoError(t, err)
	require.Equal(t, PriorityMedia, ticket.Priority)
}

func TestCreateTicketCriticalPriority(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)

	in := validTicket()
	in.Priority = PriorityCritica
	ticket, err := svc.Create(context.Background(), "user-1", in)
	require.NoError(t, err)
	require.Equal(t, PriorityCritica, ticket.Priority)
}

func TestCreateTicketRejectsInvalidInput(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)

	cases := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"unknown type", func(in *CreateInput) { in.Type = "denuncia" }},
		{"unknown priority", func(in *CreateInput) { in.Priority = "urgente" }},
		{"blank subject", func(in *CreateInput) { in.Subject = "   " }},
		{"blank description", func(in *CreateInput) { in.Description = "" }},
		{"missing requester name", func(in *CreateInput) { in.RequesterName = "" }},
		{"bad requester email", func(in *CreateInput) { in.RequesterEmail = "not-an-email" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validTicket()
			tc.mutate(&in)
			_, err := svc.Create(context.Background(), "user-1", in)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestListFilters(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)
	ctx := context.Background()

	queja := validTicket()
	_, err := svc.Create(ctx, "user-1", queja)
	require.NoError(t, err)

	peticion := validTicket()
	peticion.Type = TypePeticion
	peticion.Priority = PriorityBaja
	_, err = svc.Create(ctx, "user-2", peticion)
	require.NoError(t, err)

	tickets, total, err := svc.List(ctx, Filter{Type: TypeQueja})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, TypeQueja, tickets[0].Type)

	tickets, total, err = svc.List(ctx, Filter{Priority: PriorityBaja})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, TypePeticion, tickets[0].Type)

	_, _, err = svc.List(ctx, Filter{Status: "archivada"})
	require.ErrorIs(t, err, ErrInvalidInput)

	mine, total, err := svc.ListByCreator(ctx, "user-2", 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "user-2", mine[0].CreatedBy)
}

func TestListSearch(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", validTicket())
	require.NoError(t, err)

	other := validTicket()
	other.Subject = "Factura duplicada"
	other.Description = "El cobro de marzo aparece dos veces."
	_, err = svc.Create(ctx, "user-2", other)
	require.NoError(t, err)

	// Case-insensitive, matches subject or description.
	tickets, total, err := svc.List(ctx, Filter{Search: "FACTURA"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Factura duplicada", tickets[0].Subject)

	tickets, total, err = svc.List(ctx, Filter{Search: "cobro de marzo"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "user-2", tickets[0].CreatedBy)

	_, total, err = svc.List(ctx, Filter{Search: "inexistente"})
	require.NoError(t, err)
	require.Zero(t, total)
}

func TestListOverdue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)
	ctx := context.Background()

	in := validTicket()
	in.DeadlineDays = 1
	late, err := svc.Create(ctx, "user-1", in)
	require.NoError(t, err)

	in = validTicket()
	in.DeadlineDays = 1
	resolved, err := svc.Create(ctx, "user-1", in)
	require.NoError(t, err)

	onTime, err := svc.Create(ctx, "user-2", validTicket())
	require.NoError(t, err)

	_, total, err := svc.ListOverdue(ctx, 10, 0)
	require.NoError(t, err)
	require.Zero(t, total)

	_, err = svc.ChangeStatus(ctx, resolved.ID, StatusResuelta, "done", "agent-7")
	require.NoError(t, err)

	// Two days later the one-day tickets are past deadline, but only the
	// unresolved one counts.
	now = now.AddDate(0, 0, 2)
	overdue, total, err := svc.ListOverdue(ctx, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, late.ID, overdue[0].ID)

	for _, tkt := range overdue {
		require.NotEqual(t, onTime.ID, tkt.ID)
	}
}

func TestListPagination(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, "user-1", validTicket())
		require.NoError(t, err)
	}

	page, total, err := svc.List(ctx, Filter{Limit: 2, Offset: 0})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page, 2)

	page, total, err = svc.List(ctx, Filter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page, 1)

	page, total, err = svc.List(ctx, Filter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Empty(t, page)
}

func TestUpdateTicket(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, "user-1", validTicket())
	require.NoError(t, err)

	updated, err := svc.Update(ctx, ticket.ID, UpdateInput{
		Type:           TypeReclamo,
		Subject:        "Reclamo por doble cobro",
		Description:    "Se facturo dos veces el mismo periodo.",
		Priority:       PriorityMedia,
		RequesterName:  "Maria Lopez",
		RequesterEmail: "maria@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, TypeReclamo, updated.Type)
	require.Equal(t, "Reclamo por doble cobro", updated.Subject)
	// Status and creator survive a field update.
	require.Equal(t, StatusRecibida, updated.Status)
	require.Equal(t, "user-1", updated.CreatedBy)

	_, err = svc.Update(ctx, "missing", UpdateInput{Type: TypeQueja, Priority: PriorityBaja, Subject: "x", Description: "y"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAssign(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, "user-1", validTicket())
	require.NoError(t, err)

	assigned, err := svc.Assign(ctx, ticket.ID, "agent-7")
	require.NoError(t, err)
	require.Equal(t, "agent-7", assigned.AssignedTo)

	byAssignee, total, err := svc.ListByAssignee(ctx, "agent-7", 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, ticket.ID, byAssignee[0].ID)

	cleared, err := svc.Assign(ctx, ticket.ID, "")
	require.NoError(t, err)
	require.Empty(t, cleared.AssignedTo)
}

func TestChangeStatusRecordsHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, "user-1", validTicket())
	require.NoError(t, err)

	history, err := svc.History(ctx, ticket.ID)
	require.NoError(t, err)
	require.Empty(t, history)

	inProcess, err := svc.ChangeStatus(ctx, ticket.ID, StatusEnProceso, "assigned to agent", "admin-1")
	require.NoError(t, err)
	require.Equal(t, StatusEnProceso, inProcess.Status)

	_, err = svc.ChangeStatus(ctx, ticket.ID, StatusResuelta, "fixed billing", "agent-7")
	require.NoError(t, err)

	_, err = svc.ChangeStatus(ctx, ticket.ID, "archivada", "", "admin-1")
	require.ErrorIs(t, err, ErrInvalidInput)

	history, err = svc.History(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, StatusRecibida, history[0].OldStatus)
	require.Equal(t, StatusEnProceso, history[0].NewStatus)
	require.Equal(t, "admin-1", history[0].ChangedBy)
	require.Equal(t, StatusEnProceso, history[1].OldStatus)
	require.Equal(t, StatusResuelta, history[1].NewStatus)
	require.Equal(t, "fixed billing", history[1].Comment)
}

func TestDelete(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, &now)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, "user-1", validTicket())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, ticket.ID))

	_, err = svc.Get(ctx, ticket.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, ticket.ID), ErrNotFound)
}
