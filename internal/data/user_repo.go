// Package data provides persistence repositories for the quiz-api identity system.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/quizdeck/quiz-api/internal/data/pgxutil"
	domainauth "github.com/quizdeck/quiz-api/internal/domain/auth"
	"github.com/quizdeck/quiz-api/internal/domain/model"
	apperrors "github.com/quizdeck/quiz-api/internal/errors"
)

const userColumns = `id, name, email, password, role, email_verified, image,
	banned, ban_reason, ban_expires, created_at, updated_at`

// UserRepo provides database operations for user accounts. It is the concrete
// principal source behind ports.UserRepository.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

// Create inserts a new unverified account with the USER role.
func (r *UserRepo) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if req == nil {
		return nil, apperrors.Validation("create user request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, fmt.Sprintf(`
			INSERT INTO users (name, email, password)
			VALUES ($1, $2, $3)
			RETURNING %s`, userColumns),
			strings.TrimSpace(req.Name),
			normalizeEmail(req.Email),
			req.Password,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[model.User])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// FindByEmail retrieves a user by email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns),
		normalizeEmail(email))
}

// FindByID retrieves a user by id.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx,
		fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns), id)
}

// MarkEmailVerified flags the account's email as verified.
func (r *UserRepo) MarkEmailVerified(ctx context.Context, id string) error {
	return r.exec(ctx,
		`UPDATE users SET email_verified = TRUE, updated_at = now() WHERE id = $1`, id)
}

// UpdatePassword replaces the stored password digest.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, digest string) error {
	return r.exec(ctx,
		`UPDATE users SET password = $2, updated_at = now() WHERE id = $1`, id, digest)
}

// UpdateRole sets the account's role. Live session snapshots are not touched.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role domainauth.Role) error {
	if !role.Valid() {
		return apperrors.ValidationField("role", "role must be USER or ADMIN")
	}
	return r.exec(ctx,
		`UPDATE users SET role = $2, updated_at = now() WHERE id = $1`, id, string(role))
}

// UpdateProfile applies the non-nil profile fields and returns the fresh record.
func (r *UserRepo) UpdateProfile(
	ctx context.Context,
	id string,
	req *model.UpdateProfileRequest,
) (*model.User, error) {
	if req == nil || (req.Name == nil && req.Image == nil) {
		return r.FindByID(ctx, id)
	}

	var out model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, fmt.Sprintf(`
			UPDATE users SET
				name = COALESCE($2, name),
				image = COALESCE($3, image),
				updated_at = now()
			WHERE id = $1
			RETURNING %s`, userColumns),
			id, req.Name, req.Image,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[model.User])
		return err
	})
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// List retrieves users matching the query plus the unpaginated total.
func (r *UserRepo) List(ctx context.Context, q *model.ListUsersQuery) ([]*model.User, int, error) {
	if q == nil {
		q = &model.ListUsersQuery{}
	}
	if err := q.Normalize(); err != nil {
		return nil, 0, err
	}

	where := ""
	args := []any{}
	if q.SearchValue != "" {
		// SearchField and SearchOperator are allowlisted by Normalize, so the
		// column name is safe to interpolate; the value stays a bind parameter.
		where = fmt.Sprintf("WHERE %s ILIKE $1", q.SearchField)
		args = append(args, searchPattern(q.SearchOperator, q.SearchValue))
	}

	listSQL := fmt.Sprintf(`SELECT %s FROM users %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		userColumns, where, q.SortBy, sortKeyword(q.SortDirection), q.Limit, q.Offset)
	countSQL := fmt.Sprintf(`SELECT count(*) FROM users %s`, where)

	var users []model.User
	var total int
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, listSQL, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		users, err = pgx.CollectRows(rows, pgx.RowToStructByNameLax[model.User])
		if err != nil {
			return err
		}
		return conn.QueryRow(ctx, countSQL, args...).Scan(&total)
	})
	if err != nil {
		return nil, 0, apperrors.MapDBError(err)
	}

	out := make([]*model.User, len(users))
	for i := range users {
		out[i] = &users[i]
	}
	return out, total, nil
}

func (r *UserRepo) findOne(ctx context.Context, query string, arg any) (*model.User, error) {
	var out model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, arg)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByNameLax[model.User])
		return err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, apperrors.MapDBError(err)
	}
	return &out, nil
}

// exec runs a single-row update and maps a zero row count to NotFound.
func (r *UserRepo) exec(ctx context.Context, query string, args ...any) error {
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		tag, err := conn.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("user not found")
		}
		return apperrors.MapDBError(err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func searchPattern(op, value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(value)
	switch op {
	case model.SearchOpStartsWith:
		return escaped + "%"
	case model.SearchOpEndsWith:
		return "%" + escaped
	default:
		return "%" + escaped + "%"
	}
}

func sortKeyword(direction string) string {
	if direction == model.SortDesc {
		return "DESC"
	}
	return "ASC"
}
