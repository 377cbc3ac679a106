package core

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinPBKDF2Iterations is the lowest iteration count the hasher accepts.
	MinPBKDF2Iterations = 100_000
	credentialLen       = sha512.Size // 64 bytes for both salt and digest
)

// ErrEmptyPassword is returned when hashing an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// Credential is the stored form of a password: PBKDF2 digest and its salt,
// both upper-case hex.
type Credential struct {
	Hash string
	Salt string
}

// CredentialHasher derives and verifies PBKDF2-HMAC-SHA512 credentials.
// It holds no mutable state and is safe for concurrent use.
type CredentialHasher struct {
	iterations int
}

// NewCredentialHasher returns a hasher running the given number of rounds.
// Values below MinPBKDF2Iterations are raised to it.
func NewCredentialHasher(iterations int) *CredentialHasher {
	if iterations < MinPBKDF2Iterations {
		iterations = MinPBKDF2Iterations
	}
	return &CredentialHasher{iterations: iterations}
}

// Hash derives a credential using a fresh random salt.
func (h *CredentialHasher) Hash(password string) (Credential, error) {
	if password == "" {
		return Credential{}, ErrEmptyPassword
	}
	salt := make([]byte, credentialLen)
	if _, err := rand.Read(salt); err != nil {
		return Credential{}, err
	}
	digest := h.derive(password, salt)
	return Credential{
		Hash: strings.ToUpper(hex.EncodeToString(digest)),
		Salt: strings.ToUpper(hex.EncodeToString(salt)),
	}, nil
}

// Verify reports whether password produces cred. A malformed credential is
// reported exactly like a wrong password.
func (h *CredentialHasher) Verify(password string, cred Credential) bool {
	salt, saltErr := hex.DecodeString(cred.Salt)
	expected, hashErr := hex.DecodeString(cred.Hash)
	if saltErr != nil || hashErr != nil || len(salt) == 0 || len(expected) != credentialLen {
		// Still spend one derivation so a broken row costs the same as a real one.
		h.derive(password, dummySalt)
		return false
	}
	return subtle.ConstantTimeCompare(h.derive(password, salt), expected) == 1
}

// DummyCredential is a well-formed credential that matches no password in
// practice. Login verifies against it when the email is unknown.
func (h *CredentialHasher) DummyCredential() Credential {
	return dummyCredential
}

func (h *CredentialHasher) derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, h.iterations, credentialLen, sha512.New)
}

var (
	dummySalt       = make([]byte, credentialLen)
	dummyCredential = Credential{
		Hash: strings.Repeat("00", credentialLen),
		Salt: strings.Repeat("00", credentialLen),
	}
)
