package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "email", "password_hash", "salt", "created_at"}

func TestPgUserRepository_FindByEmail(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      *User
		wantErr   error
		errMsg    string
	}{
		{
			name: "found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE email`).
					WithArgs("a@example.com").
					WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(3), "a@example.com", "HASH", "SALT", created))
			},
			want: &User{ID: 3, Email: "a@example.com", PasswordHash: "HASH", Salt: "SALT", CreatedAt: created},
		},
		{
			name: "not found",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE email`).
					WithArgs("a@example.com").
					WillReturnError(pgx.ErrNoRows)
			},
			wantErr: ErrUserNotFound,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`FROM users WHERE email`).
					WithArgs("a@example.com").
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			got, err := NewPgUserRepository(mock).FindByEmail(context.Background(), "a@example.com")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, ErrUserNotFound)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		})
	}
}

func TestPgUserRepository_FindByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Now().UTC()
	mock.ExpectQuery(`FROM users WHERE id`).
		WithArgs(int64(8)).
		WillReturnRows(pgxmock.NewRows(userColumns).AddRow(int64(8), "b@example.com", "H", "S", created))
	mock.ExpectQuery(`FROM users WHERE id`).
		WithArgs(int64(9)).
		WillReturnError(pgx.ErrNoRows)

	repo := NewPgUserRepository(mock)
	u, err := repo.FindByID(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", u.Email)

	_, err = repo.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, ErrUserNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgUserRepository_Insert(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name: "created",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("c@example.com", "HASH", "SALT").
					WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), time.Now()))
			},
		},
		{
			name: "unique violation",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("c@example.com", "HASH", "SALT").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
			},
			wantErr: ErrDuplicateEmail,
		},
		{
			name: "other constraint",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs("c@example.com", "HASH", "SALT").
					WillReturnError(&pgconn.PgError{Code: pgerrcode.NotNullViolation, Message: "null value"})
			},
			errMsg: "null value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			tt.setupMock(mock)

			u, err := NewPgUserRepository(mock).Insert(context.Background(), NewUser{
				Email:      "c@example.com",
				Credential: Credential{Hash: "HASH", Salt: "SALT"},
			})
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, ErrDuplicateEmail)
			default:
				require.NoError(t, err)
				assert.Equal(t, int64(11), u.ID)
				assert.Equal(t, "HASH", u.PasswordHash)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
