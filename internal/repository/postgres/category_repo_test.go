package postgres

import (
	"context"
	"database/sql"
	"testing"

	"eventboard/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepository_Create(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		category *domain.Category
		mock     func(mock sqlmock.Sqlmock)
		wantID   int64
		wantErr  bool
		errIs    error
	}{
		{
			name:     "success",
			category: &domain.Category{Name: "music"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO categories \(name\) VALUES \(\$1\) RETURNING id`).
					WithArgs("music").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
			},
			wantID:  1,
			wantErr: false,
		},
		{
			name:     "unique violation returns ErrConflict",
			category: &domain.Category{Name: "music"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO categories`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: true,
			errIs:   domain.ErrConflict,
		},
		{
			name:     "db error",
			category: &domain.Category{Name: "music"},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO categories`).
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
			repo := NewCategoryRepository(db)
			err = repo.Create(ctx, tt.category)
			if tt.wantErr {
				require.Error(t, err)
				if tt.errIs != nil {
					require.ErrorIs(t, err, tt.errIs)
				}
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantID, tt.category.ID)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCategoryRepository_Update(t *testing.T) {
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
				mock.ExpectExec(`UPDATE categories SET name = \$1 WHERE id = \$2`).
					WithArgs("live music", int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantErr: false,
		},
		{
			name: "not found zero rows affected",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE categories SET name = \$1 WHERE id = \$2`).
					WithArgs("live music", int64(1)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: true,
			errIs:   domain.ErrNotFound,
		},
		{
			name: "unique violation returns ErrConflict",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE categories`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: true,
			errIs:   domain.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewCategoryRepository(db)
			err = repo.Update(ctx, &domain.Category{ID: 1, Name: "live music"})
			if tt.wantErr {
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCategoryRepository_Delete(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
		WithArgs(int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCategoryRepository(db)
	require.ErrorIs(t, repo.Delete(ctx, 99), domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_List(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM categories`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(`SELECT id, name FROM categories ORDER BY id LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "music").
			AddRow(int64(2), "sports"))

	repo := NewCategoryRepository(db)
	categories, total, err := repo.List(ctx, domain.PaginationParams{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, categories, 2)
	require.Equal(t, "music", categories[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}
