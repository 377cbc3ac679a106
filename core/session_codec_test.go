package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionKeyHex = "000102030405060708090A0B0C0D0E0F101112131415161718191A1B1C1D1E1F" +
	"202122232425262728292A2B2C2D2E2F303132333435363738393A3B3C3D3E3F"

func testCodec(t *testing.T) *SessionCodec {
	t.Helper()
	key, err := ParseSessionKey(testSessionKeyHex)
	require.NoError(t, err)
	return NewSessionCodec(key)
}

func TestParseSessionKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"upper case", testSessionKeyHex, nil},
		{"lower case", strings.ToLower(testSessionKeyHex), nil},
		{"surrounding space", "  " + testSessionKeyHex + "\n", nil},
		{"empty", "", ErrSessionKeyMissing},
		{"too short", testSessionKeyHex[:126], ErrSessionKeyInvalid},
		{"too long", testSessionKeyHex + "00", ErrSessionKeyInvalid},
		{"not hex", strings.Repeat("zz", 64), ErrSessionKeyInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := ParseSessionKey(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, key.hashKey, 32)
			assert.Len(t, key.blockKey, 32)
		})
	}
}

func TestSessionKey_StringIsRedacted(t *testing.T) {
	key, err := ParseSessionKey(testSessionKeyHex)
	require.NoError(t, err)
	assert.NotContains(t, key.String(), "0001")
}

func TestGenerateSessionKey_Parses(t *testing.T) {
	raw, err := GenerateSessionKey()
	require.NoError(t, err)
	assert.Len(t, raw, 128)
	_, err = ParseSessionKey(raw)
	assert.NoError(t, err)
}

func TestSessionCodec_RoundTrip(t *testing.T) {
	codec := testCodec(t)
	issued := time.Now().Truncate(time.Second)

	token, err := codec.Encode(SessionClaims{UserID: 42, Fingerprint: "abc123", IssuedAt: issued})
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "abc123", claims.Fingerprint)
	assert.True(t, claims.IssuedAt.Equal(issued))
	assert.True(t, claims.ExpiresAt.Equal(issued.Add(SessionLifetime)))
}

func TestSessionCodec_StoresSecondPrecision(t *testing.T) {
	codec := testCodec(t)
	issued := time.Date(2025, 6, 1, 8, 30, 14, 118181251, time.FixedZone("CEST", 2*60*60))

	token, err := codec.Encode(SessionClaims{UserID: 3, Fingerprint: "fp", IssuedAt: issued})
	require.NoError(t, err)

	codec.now = func() time.Time { return issued }
	claims, err := codec.Decode(token)
	require.NoError(t, err)

	want := issued.Truncate(time.Second).UTC()
	assert.Equal(t, SessionClaims{
		UserID:      3,
		Fingerprint: "fp",
		IssuedAt:    want,
		ExpiresAt:   want.Add(SessionLifetime),
	}, claims)
}

func TestSessionCodec_TokensAreOpaque(t *testing.T) {
	codec := testCodec(t)
	token, err := codec.Encode(SessionClaims{UserID: 7, Fingerprint: "visible-fingerprint"})
	require.NoError(t, err)

	assert.NotContains(t, token, "visible-fingerprint")
}

func TestSessionCodec_AnyCharacterChangeIsRejected(t *testing.T) {
	codec := testCodec(t)
	token, err := codec.Encode(SessionClaims{UserID: 9, Fingerprint: "fp"})
	require.NoError(t, err)

	for i := 0; i < len(token); i++ {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		mutated := token[:i] + string(replacement) + token[i+1:]

		_, err := codec.Decode(mutated)
		require.Errorf(t, err, "mutation at %d accepted", i)
		assert.ErrorIs(t, err, ErrInvalidSession)
	}
}

func TestSessionCodec_TruncatedAndExtended(t *testing.T) {
	codec := testCodec(t)
	token, err := codec.Encode(SessionClaims{UserID: 9, Fingerprint: "fp"})
	require.NoError(t, err)

	for _, bad := range []string{"", token[:len(token)-4], token + "AAAA", token + "\n", "!!!!", "not a token"} {
		_, err := codec.Decode(bad)
		assert.ErrorIs(t, err, ErrInvalidSession, "token %q", bad)
	}
}

func TestSessionCodec_OtherKeyIsTampered(t *testing.T) {
	codec := testCodec(t)
	token, err := codec.Encode(SessionClaims{UserID: 9, Fingerprint: "fp"})
	require.NoError(t, err)

	raw, err := GenerateSessionKey()
	require.NoError(t, err)
	otherKey, err := ParseSessionKey(raw)
	require.NoError(t, err)

	_, err = NewSessionCodec(otherKey).Decode(token)
	assert.ErrorIs(t, err, ErrTokenTampered)
}

func TestSessionCodec_Expired(t *testing.T) {
	codec := testCodec(t)
	issued := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	token, err := codec.Encode(SessionClaims{UserID: 1, Fingerprint: "fp", IssuedAt: issued})
	require.NoError(t, err)

	codec.now = func() time.Time { return issued.Add(SessionLifetime - time.Second) }
	_, err = codec.Decode(token)
	assert.NoError(t, err)

	codec.now = func() time.Time { return issued.Add(SessionLifetime + time.Second) }
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionCodec_RejectsIncompleteClaims(t *testing.T) {
	codec := testCodec(t)

	for _, claims := range []SessionClaims{
		{UserID: 0, Fingerprint: "fp"},
		{UserID: -3, Fingerprint: "fp"},
		{UserID: 5, Fingerprint: ""},
	} {
		token, err := codec.Encode(claims)
		require.NoError(t, err)
		_, err = codec.Decode(token)
		assert.ErrorIs(t, err, ErrTokenMalformed)
	}
}

func TestSessionCodec_Fingerprint(t *testing.T) {
	codec := testCodec(t)
	hash := strings.Repeat("AB", 64)

	fp := codec.Fingerprint(hash)
	assert.Len(t, fp, 32)
	assert.Equal(t, fp, codec.Fingerprint(hash))
	assert.NotEqual(t, fp, codec.Fingerprint(strings.Repeat("CD", 64)))
	assert.NotContains(t, hash, fp)

	claims := SessionClaims{UserID: 1, Fingerprint: fp}
	assert.True(t, codec.MatchesFingerprint(claims, hash))
	assert.False(t, codec.MatchesFingerprint(claims, strings.Repeat("CD", 64)))
}
