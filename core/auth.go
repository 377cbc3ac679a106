package core

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Session is what a successful signup or login hands to the transport layer.
type Session struct {
	UserID    int64
	Token     string
	ExpiresAt time.Time
}

// AuthService runs signup, login, logout and request identity resolution.
type AuthService struct {
	users   UserRepository
	hasher  Hasher
	codec   *SessionCodec
	metrics *AuthMetrics
}

// NewAuthService wires the flow. metrics may be nil.
func NewAuthService(users UserRepository, hasher Hasher, codec *SessionCodec, metrics *AuthMetrics) *AuthService {
	return &AuthService{users: users, hasher: hasher, codec: codec, metrics: metrics}
}

// Signup validates the form, stores a new user and opens a session for it.
// User-correctable problems come back as *ValidationError.
func (s *AuthService) Signup(ctx context.Context, form SignupForm) (Session, error) {
	input, verr := ValidateSignup(form)

	// Checked even when the password is bad so every problem is reported at once.
	if email := strings.TrimSpace(form.Email); email != "" {
		_, err := s.users.FindByEmail(ctx, email)
		switch {
		case err == nil:
			verr = verr.With(FieldEmail, MsgEmailTaken)
		case errors.Is(err, ErrUserNotFound):
		default:
			return Session{}, s.fail("signup", oops.Code("AUTH_SIGNUP_FAILED").
				With("operation", "check email").
				Wrap(err))
		}
	}
	if verr != nil {
		s.metrics.record("signup", "invalid")
		return Session{}, verr
	}

	cred, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return Session{}, s.fail("signup", oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err))
	}

	user, err := s.users.Insert(ctx, NewUser{Email: input.Email, Credential: cred})
	if errors.Is(err, ErrDuplicateEmail) {
		// Lost the race against a concurrent signup for the same address.
		s.metrics.record("signup", "invalid")
		return Session{}, (*ValidationError)(nil).With(FieldEmail, MsgEmailTaken)
	}
	if err != nil {
		return Session{}, s.fail("signup", oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "insert user").
			Wrap(err))
	}

	sess, err := s.issue(user)
	if err != nil {
		return Session{}, s.fail("signup", err)
	}
	s.metrics.record("signup", "ok")
	log.Printf("[auth] signup user_id=%d request_id=%s", user.ID, RequestIDFromContext(ctx))
	return sess, nil
}

// Login checks the credentials and opens a session. Unknown email and wrong
// password produce the same *ValidationError.
func (s *AuthService) Login(ctx context.Context, form LoginForm) (Session, error) {
	email := strings.TrimSpace(form.Email)

	cred := s.hasher.DummyCredential()
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		cred = user.Credential()
	case errors.Is(err, ErrUserNotFound):
		user = nil
	default:
		return Session{}, s.fail("login", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find user by email").
			Wrap(err))
	}

	// Always run the KDF so response time does not reveal whether the email exists.
	ok, err := s.hasher.Verify(ctx, form.Password, cred)
	if err != nil {
		return Session{}, s.fail("login", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(err))
	}
	if user == nil || !ok {
		s.metrics.record("login", "invalid")
		return Session{}, (*ValidationError)(nil).With(FieldEmail, MsgInvalidLogin)
	}

	sess, err := s.issue(user)
	if err != nil {
		return Session{}, s.fail("login", err)
	}
	s.metrics.record("login", "ok")
	log.Printf("[auth] login user_id=%d request_id=%s", user.ID, RequestIDFromContext(ctx))
	return sess, nil
}

// Logout has no server-side state to drop; the caller clears the cookie.
func (s *AuthService) Logout(ctx context.Context, userID int64) {
	s.metrics.record("logout", "ok")
	log.Printf("[auth] logout user_id=%d request_id=%s", userID, RequestIDFromContext(ctx))
}

// Resolve maps a session token to the current user. Any token problem, a
// deleted user or a changed password yields (nil, nil): the caller is anonymous.
// Only storage failures are returned as errors.
func (s *AuthService) Resolve(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.codec.Decode(token)
	if err != nil {
		s.metrics.record("resolve", "invalid_token")
		return nil, nil
	}
	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		s.metrics.record("resolve", "unknown_user")
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("AUTH_RESOLVE_FAILED").
			With("operation", "find user by id").
			With("user_id", claims.UserID).
			Wrap(err)
	}
	if !s.codec.MatchesFingerprint(claims, user.PasswordHash) {
		s.metrics.record("resolve", "stale_credential")
		return nil, nil
	}
	return user, nil
}

func (s *AuthService) issue(user *User) (Session, error) {
	if user.ID <= 0 {
		return Session{}, oops.Code("AUTH_SESSION_FAILED").Errorf("user has no id")
	}
	issuedAt := time.Unix(s.codec.now().Unix(), 0)
	token, err := s.codec.Encode(SessionClaims{
		UserID:      user.ID,
		Fingerprint: s.codec.Fingerprint(user.PasswordHash),
		IssuedAt:    issuedAt,
	})
	if err != nil {
		return Session{}, oops.Code("AUTH_SESSION_FAILED").
			With("operation", "encode session").
			With("user_id", user.ID).
			Wrap(err)
	}
	return Session{UserID: user.ID, Token: token, ExpiresAt: issuedAt.Add(SessionLifetime)}, nil
}

func (s *AuthService) fail(op string, err error) error {
	s.metrics.record(op, "error")
	return err
}
