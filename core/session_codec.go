package core

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	// SessionCookieName is the single cookie carrying the session token.
	SessionCookieName = "SESSION"
	// SessionLifetime bounds every token and cookie.
	SessionLifetime = 90 * 24 * time.Hour

	sessionKeyLen     = 64
	fingerprintLen    = 16
	fingerprintDomain = "credential-fingerprint:"
)

var (
	// ErrInvalidSession is the parent of every decode failure. Callers treat
	// all of them as "anonymous".
	ErrInvalidSession = errors.New("invalid session token")
	ErrTokenTampered  = fmt.Errorf("%w: authentication failed", ErrInvalidSession)
	ErrTokenExpired   = fmt.Errorf("%w: expired", ErrInvalidSession)
	ErrTokenMalformed = fmt.Errorf("%w: malformed", ErrInvalidSession)

	ErrSessionKeyMissing = errors.New("session key is not configured")
	ErrSessionKeyInvalid = errors.New("session key must be 64 hex-encoded bytes")
)

// SessionKey is the process-wide secret behind SessionCodec. The first half
// authenticates tokens, the second half encrypts them.
type SessionKey struct {
	hashKey  []byte
	blockKey []byte
}

// ParseSessionKey decodes a hex key of exactly 64 bytes (either case).
func ParseSessionKey(hexKey string) (SessionKey, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return SessionKey{}, ErrSessionKeyMissing
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != sessionKeyLen {
		return SessionKey{}, ErrSessionKeyInvalid
	}
	return SessionKey{
		hashKey:  raw[:sessionKeyLen/2],
		blockKey: raw[sessionKeyLen/2:],
	}, nil
}

// String never reveals key material.
func (k SessionKey) String() string { return "SessionKey(redacted)" }

// GenerateSessionKey returns a new random key in the format ParseSessionKey accepts.
func GenerateSessionKey() (string, error) {
	raw := make([]byte, sessionKeyLen)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(raw)), nil
}

// SessionClaims is the logical content of a session token.
type SessionClaims struct {
	UserID      int64
	Fingerprint string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// sessionPayload is the serialized shape inside the encrypted cookie value.
type sessionPayload struct {
	UserID      int64  `json:"uid"`
	Fingerprint string `json:"fp"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
}

// SessionCodec turns claims into opaque authenticated tokens and back.
// It is safe for concurrent use and never consults storage.
type SessionCodec struct {
	sc      *securecookie.SecureCookie
	hashKey []byte
	now     func() time.Time
}

// NewSessionCodec builds a codec bound to key.
func NewSessionCodec(key SessionKey) *SessionCodec {
	sc := securecookie.New(key.hashKey, key.blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	// Expiry is enforced from the claims, not from securecookie's timestamp.
	sc.MaxAge(0)
	return &SessionCodec{sc: sc, hashKey: key.hashKey, now: time.Now}
}

// Encode seals claims. IssuedAt defaults to now; ExpiresAt is always
// IssuedAt + SessionLifetime. Times are stored at second precision, so
// Decode returns IssuedAt truncated to the second, in UTC.
func (c *SessionCodec) Encode(claims SessionClaims) (string, error) {
	if claims.IssuedAt.IsZero() {
		claims.IssuedAt = c.now()
	}
	issued := claims.IssuedAt.Unix()
	payload := sessionPayload{
		UserID:      claims.UserID,
		Fingerprint: claims.Fingerprint,
		IssuedAt:    issued,
		ExpiresAt:   issued + int64(SessionLifetime/time.Second),
	}
	return c.sc.Encode(SessionCookieName, payload)
}

// Decode authenticates and opens a token. Failures are ErrTokenTampered,
// ErrTokenExpired or ErrTokenMalformed.
func (c *SessionCodec) Decode(token string) (SessionClaims, error) {
	// Reject non-canonical base64 so no two spellings open to the same token.
	if token == "" || strings.ContainsAny(token, "\r\n") {
		return SessionClaims{}, ErrTokenMalformed
	}
	if _, err := base64.URLEncoding.Strict().DecodeString(token); err != nil {
		return SessionClaims{}, ErrTokenMalformed
	}
	var payload sessionPayload
	if err := c.sc.Decode(SessionCookieName, token, &payload); err != nil {
		if errors.Is(err, securecookie.ErrMacInvalid) {
			return SessionClaims{}, ErrTokenTampered
		}
		return SessionClaims{}, ErrTokenMalformed
	}
	if payload.UserID <= 0 || payload.Fingerprint == "" || payload.ExpiresAt <= payload.IssuedAt {
		return SessionClaims{}, ErrTokenMalformed
	}
	claims := SessionClaims{
		UserID:      payload.UserID,
		Fingerprint: payload.Fingerprint,
		IssuedAt:    time.Unix(payload.IssuedAt, 0).UTC(),
		ExpiresAt:   time.Unix(payload.ExpiresAt, 0).UTC(),
	}
	if c.now().After(claims.ExpiresAt) {
		return SessionClaims{}, ErrTokenExpired
	}
	return claims, nil
}

// Fingerprint derives the correlation tag binding a token to one password
// version. It reveals nothing about the hash it was computed from.
func (c *SessionCodec) Fingerprint(passwordHash string) string {
	m := hmac.New(sha256.New, c.hashKey)
	_, _ = m.Write([]byte(fingerprintDomain))
	_, _ = m.Write([]byte(passwordHash))
	return hex.EncodeToString(m.Sum(nil)[:fingerprintLen])
}

// MatchesFingerprint reports whether claims were issued for passwordHash.
func (c *SessionCodec) MatchesFingerprint(claims SessionClaims, passwordHash string) bool {
	want := c.Fingerprint(passwordHash)
	return subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(want)) == 1
}
