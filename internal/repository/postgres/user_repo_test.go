package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"eventboard/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "name", "is_admin", "password_hash", "salt", "created_at"}

func TestUserRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		user    *domain.User
		mock    func(mock sqlmock.Sqlmock)
		wantID  int64
		wantErr bool
		errIs   error
	}{
		{
			name: "success",
			user: &domain.User{
				Email:        "alice@example.com",
				Name:         "Alice",
				PasswordHash: "hash",
				Salt:         "salt",
				CreatedAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("alice@example.com", "Alice", false, "hash", "salt", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
			},
			wantID:  1,
			wantErr: false,
		},
		{
			name: "unique violation returns ErrDuplicateEmail",
			user: &domain.User{
				Email:     "taken@example.com",
				Name:      "Bob",
				CreatedAt: time.Now(),
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO users`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: true,
			errIs:   domain.ErrDuplicateEmail,
		},
		{
			name: "db error",
			user: &domain.User{
				Email:     "a@b.com",
				Name:      "A",
				CreatedAt: time.Now(),
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO users`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewUserRepository(db)
			err = repo.Create(ctx, tt.user)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, tt.user.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_GetByEmail(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		email   string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
	}{
		{
			name:  "success",
			email: "alice@example.com",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM users\s+WHERE email = \$1`).
					WithArgs("alice@example.com").
					WillReturnRows(sqlmock.NewRows(userCols).
						AddRow(int64(1), "alice@example.com", "Alice", true, "hash", "salt", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
			},
			wantErr: false,
		},
		{
			name:  "not found",
			email: "missing@example.com",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM users\s+WHERE email = \$1`).
					WithArgs("missing@example.com").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewUserRepository(db)
			got, err := repo.GetByEmail(ctx, tt.email)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrUserNotFound)
				require.Nil(t, got)
				require.NoError(t, mock.ExpectationsWereMet())
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.email, got.Email)
			require.True(t, got.Admin)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_List(t *testing.T) {
	ctx := context.Background()

	t.Run("all users", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectQuery(`FROM users ORDER BY id LIMIT \$1 OFFSET \$2`).
			WithArgs(20, 0).
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(int64(1), "a@example.com", "A", false, "h", "s", time.Now()).
				AddRow(int64(2), "b@example.com", "B", false, "h", "s", time.Now()))

		repo := NewUserRepository(db)
		users, total, err := repo.List(ctx, nil, domain.PaginationParams{Page: 1, PageSize: 20})
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Len(t, users, 2)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filtered by ids", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users WHERE id = ANY\(\$1\)`).
			WithArgs(sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`FROM users WHERE id = ANY\(\$1\) ORDER BY id LIMIT \$2 OFFSET \$3`).
			WithArgs(sqlmock.AnyArg(), 20, 0).
			WillReturnRows(sqlmock.NewRows(userCols).
				AddRow(int64(2), "b@example.com", "B", false, "h", "s", time.Now()))

		repo := NewUserRepository(db)
		users, total, err := repo.List(ctx, []int64{2}, domain.PaginationParams{Page: 1, PageSize: 20})
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Len(t, users, 1)
		require.Equal(t, int64(2), users[0].ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_Delete(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantErr: false,
		},
		{
			name: "not found zero rows affected",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM users WHERE id = \$1`).
					WithArgs(int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: true,
			errIs:   domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewUserRepository(db)
			err = repo.Delete(ctx, 1)
			if tt.wantErr {
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
