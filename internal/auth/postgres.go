package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"pqrs.org/internal/ids"
)

var (
	_ UserStore = (*PGStore)(nil)
	_ RoleStore = (*PGStore)(nil)
)

// PGStore implements UserStore and RoleStore using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `u.id, u.username, u.email, u.full_name, u.password_hash,
	u.document_type, u.document_number, u.phone, u.address, u.is_active,
	u.last_login_at, u.created_at, u.updated_at,
	r.id, r.name, r.description, r.created_at, r.updated_at`

const userJoin = `from users u join roles r on r.id = u.role_id`

func (s *PGStore) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, username, email, full_name, password_hash,
			document_type, document_number, phone, address, is_active, role_id)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash,
		u.DocumentType, u.DocumentNumber, u.Phone, u.Address, u.IsActive, u.Role.ID,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateIdentity
	}
	return err
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505). Username and email collisions race past the
// availability checks, so the insert itself is the last arbiter.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PGStore) GetByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, `where u.id=$1`, id)
}

func (s *PGStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	return s.getUser(ctx, `where u.username=$1`, username)
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, `where u.email=$1`, email)
}

func (s *PGStore) getUser(ctx context.Context, where string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` `+userJoin+` `+where, arg)
	user, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	perms, err := s.rolePermissions(ctx, user.Role.ID)
	if err != nil {
		return nil, err
	}
	user.Role.Permissions = perms
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		lastLogin sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FullName, &u.PasswordHash,
		&u.DocumentType, &u.DocumentNumber, &u.Phone, &u.Address, &u.IsActive,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt,
		&u.Role.ID, &u.Role.Name, &u.Role.Description, &u.Role.CreatedAt, &u.Role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		ts := lastLogin.Time
		u.LastLoginAt = &ts
	}
	return &u, nil
}

func (s *PGStore) rolePermissions(ctx context.Context, roleID string) ([]Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		`select p.id, p.name, p.description, p.created_at
		 from permissions p
		 join role_permissions rp on rp.permission_id = p.id
		 where rp.role_id=$1 order by p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (s *PGStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return s.exists(ctx, `select exists(select 1 from users where username=$1)`, username)
}

func (s *PGStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, `select exists(select 1 from users where email=$1)`, email)
}

func (s *PGStore) exists(ctx context.Context, query, arg string) (bool, error) {
	var found bool
	if err := s.db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}

func (s *PGStore) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `select count(*) from users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` `+userJoin+` order by u.created_at limit $1 offset $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for _, u := range users {
		perms, err := s.rolePermissions(ctx, u.Role.ID)
		if err != nil {
			return nil, 0, err
		}
		u.Role.Permissions = perms
	}
	return users, total, nil
}

func (s *PGStore) Update(ctx context.Context, u *User) error {
	res, err := s.db.ExecContext(ctx,
		`update users set username=$2, email=$3, full_name=$4, document_type=$5,
			document_number=$6, phone=$7, address=$8, role_id=$9, updated_at=now()
		 where id=$1`,
		u.ID, u.Username, u.Email, u.FullName, u.DocumentType,
		u.DocumentNumber, u.Phone, u.Address, u.Role.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return err
	}
	return requireRow(res)
}

func (s *PGStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from users where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) SetActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`update users set is_active=$2, updated_at=now() where id=$1`, id, active)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, updated_at=now() where id=$1`, id, hash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) UpdateLastLogin(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login_at=now() where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *PGStore) GetRole(ctx context.Context, id string) (*Role, error) {
	return s.getRole(ctx, `where id=$1`, id)
}

func (s *PGStore) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return s.getRole(ctx, `where name=$1`, name)
}

func (s *PGStore) getRole(ctx context.Context, where string, arg string) (*Role, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, description, created_at, updated_at from roles `+where, arg)
	var role Role
	if err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	perms, err := s.rolePermissions(ctx, role.ID)
	if err != nil {
		return nil, err
	}
	role.Permissions = perms
	return &role, nil
}

func (s *PGStore) ListRoles(ctx context.Context) ([]*Role, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, description, created_at, updated_at from roles order by name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, &role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, role := range roles {
		perms, err := s.rolePermissions(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		role.Permissions = perms
	}
	return roles, nil
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
