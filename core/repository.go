package core

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"
)

var (
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by Insert when the email is already taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// DBTX is the query surface shared by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// User is a registered account as stored.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Salt         string
	CreatedAt    time.Time
}

// Credential returns the stored password credential.
func (u *User) Credential() Credential {
	return Credential{Hash: u.PasswordHash, Salt: u.Salt}
}

// NewUser carries the fields needed to create a user. The credential must
// come from CredentialHasher.
type NewUser struct {
	Email      string
	Credential Credential
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Insert(ctx context.Context, nu NewUser) (*User, error)
}

// PgUserRepository implements UserRepository on PostgreSQL.
type PgUserRepository struct {
	db DBTX
}

func NewPgUserRepository(db DBTX) *PgUserRepository {
	return &PgUserRepository{db: db}
}

const (
	findUserByEmailSQL = `SELECT id, email, password_hash, salt, created_at FROM users WHERE email=$1`
	findUserByIDSQL    = `SELECT id, email, password_hash, salt, created_at FROM users WHERE id=$1`
	insertUserSQL      = `INSERT INTO users (email, password_hash, salt) VALUES ($1,$2,$3) RETURNING id, created_at`
)

func (r *PgUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, findUserByEmailSQL, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}
	return u, nil
}

func (r *PgUserRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, findUserByIDSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user by id").
			With("user_id", id).
			Wrap(err)
	}
	return u, nil
}

// Insert creates the user. Uniqueness of email is enforced by the users_email_key
// constraint, so of two concurrent inserts exactly one gets ErrDuplicateEmail.
func (r *PgUserRepository) Insert(ctx context.Context, nu NewUser) (*User, error) {
	u := User{Email: nu.Email, PasswordHash: nu.Credential.Hash, Salt: nu.Credential.Salt}
	err := r.db.QueryRow(ctx, insertUserSQL, u.Email, u.PasswordHash, u.Salt).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, oops.Code("USER_INSERT_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
	return &u, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Salt, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
