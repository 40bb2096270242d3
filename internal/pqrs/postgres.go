package pqrs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"pqrs.org/internal/ids"
)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

var _ Store = (*PGStore)(nil)

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const ticketColumns = `id, type, subject, description, priority, status,
	requester_name, requester_email, requester_phone, requester_document,
	created_by, assigned_to, deadline, created_at, updated_at`

func (s *PGStore) Create(ctx context.Context, t *Ticket) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into pqrs(id, type, subject, description, priority, status,
			requester_name, requester_email, requester_phone, requester_document,
			created_by, assigned_to, deadline)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,nullif($12,''),$13)`,
		t.ID, t.Type, t.Subject, t.Description, t.Priority, t.Status,
		t.RequesterName, t.RequesterEmail, t.RequesterPhone, t.RequesterDocument,
		t.CreatedBy, t.AssignedTo, t.Deadline,
	)
	return err
}

func (s *PGStore) GetByID(ctx context.Context, id string) (*Ticket, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+ticketColumns+` from pqrs where id=$1`, id)
	return scanTicket(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*Ticket, error) {
	var (
		t        Ticket
		assigned sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.Type, &t.Subject, &t.Description, &t.Priority, &t.Status,
		&t.RequesterName, &t.RequesterEmail, &t.RequesterPhone, &t.RequesterDocument,
		&t.CreatedBy, &assigned, &t.Deadline, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.AssignedTo = assigned.String
	return &t, nil
}

func (s *PGStore) List(ctx context.Context, f Filter) ([]*Ticket, int, error) {
	where, args := buildFilter(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from pqrs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// nullif makes a zero limit mean "no limit", matching the memory store.
	args = append(args, f.Limit, f.Offset)
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`select %s from pqrs%s order by created_at desc limit nullif($%d, 0) offset $%d`,
			ticketColumns, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tickets []*Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		tickets = append(tickets, t)
	}
	return tickets, total, rows.Err()
}

func buildFilter(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s=$%d", col, len(args)))
	}
	if f.Type != "" {
		add("type", f.Type)
	}
	if f.Status != "" {
		add("status", f.Status)
	}
	if f.Priority != "" {
		add("priority", f.Priority)
	}
	if f.CreatedBy != "" {
		add("created_by", f.CreatedBy)
	}
	if f.AssignedTo != "" {
		add("assigned_to", f.AssignedTo)
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		conds = append(conds, fmt.Sprintf("(subject ilike $%d or description ilike $%d)", len(args), len(args)))
	}
	if !f.OverdueAsOf.IsZero() {
		args = append(args, f.OverdueAsOf)
		conds = append(conds, fmt.Sprintf("deadline < $%d and status not in ('resuelta', 'cerrada')", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " where " + strings.Join(conds, " and "), args
}

func (s *PGStore) Update(ctx context.Context, t *Ticket) error {
	res, err := s.db.ExecContext(ctx,
		`update pqrs set type=$2, subject=$3, description=$4, priority=$5,
			requester_name=$6, requester_email=$7, requester_phone=$8,
			requester_document=$9, deadline=$10, updated_at=now()
		 where id=$1`,
		t.ID, t.Type, t.Subject, t.Description, t.Priority,
		t.RequesterName, t.RequesterEmail, t.RequesterPhone,
		t.RequesterDocument, t.Deadline,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from pqrs where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) SetAssignee(ctx context.Context, id, assignee string) error {
	res, err := s.db.ExecContext(ctx,
		`update pqrs set assigned_to=nullif($2,''), updated_at=now() where id=$1`,
		id, assignee)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ChangeStatus updates the ticket row and appends the history entry in a
// single transaction.
func (s *PGStore) ChangeStatus(ctx context.Context, id string, entry HistoryEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`update pqrs set status=$2, updated_at=now() where id=$1`,
		id, entry.NewStatus)
	if err != nil {
		return err
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = ids.New()
	}
	_, err = tx.ExecContext(ctx,
		`insert into pqrs_history(id, pqrs_id, old_status, new_status, comment, changed_by)
		 values($1,$2,$3,$4,$5,$6)`,
		entry.ID, id, entry.OldStatus, entry.NewStatus, entry.Comment, entry.ChangedBy)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) History(ctx context.Context, ticketID string) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, pqrs_id, old_status, new_status, comment, changed_by, created_at
		 from pqrs_history where pqrs_id=$1 order by created_at`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.TicketID, &e.OldStatus, &e.NewStatus,
			&e.Comment, &e.ChangedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
