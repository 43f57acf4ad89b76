package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/lib/pq"

	"eventboard/internal/domain"
)

// uniqueViolation is the Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type userRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{
		DB: db,
	}
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (email, name, is_admin, password_hash, salt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := q(ctx, r.DB).QueryRowContext(ctx, query,
		u.Email, u.Name, u.Admin, u.PasswordHash, u.Salt, u.CreatedAt,
	).Scan(&u.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, email, name, is_admin, password_hash, salt, created_at
		FROM users
		WHERE id = $1
	`
	u := &domain.User{}
	err := q(ctx, r.DB).QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Email, &u.Name, &u.Admin, &u.PasswordHash, &u.Salt, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, email, name, is_admin, password_hash, salt, created_at
		FROM users
		WHERE email = $1
	`
	u := &domain.User{}
	err := q(ctx, r.DB).QueryRowContext(ctx, query, email).Scan(
		&u.ID, &u.Email, &u.Name, &u.Admin, &u.PasswordHash, &u.Salt, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context, ids []int64, params domain.PaginationParams) ([]*domain.User, int, error) {
	var (
		total      int
		countQuery = `SELECT COUNT(*) FROM users`
		listQuery  = `SELECT id, email, name, is_admin, password_hash, salt, created_at FROM users`
		countArgs  []any
		listArgs   []any
	)
	if len(ids) > 0 {
		countQuery += ` WHERE id = ANY($1)`
		listQuery += ` WHERE id = ANY($1)`
		countArgs = append(countArgs, pq.Array(ids))
		listArgs = append(listArgs, pq.Array(ids))
	}
	if err := q(ctx, r.DB).QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery += ` ORDER BY id LIMIT $` + strconv.Itoa(len(listArgs)+1) + ` OFFSET $` + strconv.Itoa(len(listArgs)+2)
	listArgs = append(listArgs, params.PageSize, params.Offset())

	rows, err := q(ctx, r.DB).QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u := &domain.User{}
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.Admin, &u.PasswordHash, &u.Salt, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	res, err := q(ctx, r.DB).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
