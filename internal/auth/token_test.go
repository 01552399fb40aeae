package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyStaffRoundTrip(t *testing.T) {
	iss := NewIssuer("top-secret", "examgate", time.Minute)

	token, expiresAt, err := iss.Issue(Staff("dilnoza", RoleTeacher))
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	p, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, KindStaff, p.Kind)
	assert.Equal(t, "dilnoza", p.Username)
	assert.Equal(t, RoleTeacher, p.Role)
	assert.Empty(t, p.StudentID)
}

func TestIssueVerifyStudentRoundTrip(t *testing.T) {
	iss := NewIssuer("top-secret", "examgate", time.Minute)

	token, _, err := iss.Issue(Student("ST-2024-001"))
	require.NoError(t, err)

	p, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, KindStudent, p.Kind)
	assert.Equal(t, "ST-2024-001", p.StudentID)
	assert.Equal(t, RoleStudent, p.Role)
	assert.Empty(t, p.Username)
}

func TestSubjectNamespacing(t *testing.T) {
	assert.Equal(t, "student:ST-1", Student("ST-1").Subject())
	assert.Equal(t, "akmal", Staff("akmal", RoleAdmin).Subject())
}

// A staff username that happens to start with "student:" can never exist:
// the prefix always reconstructs a student principal.
func TestVerifyPrefixAlwaysWinsOverRole(t *testing.T) {
	iss := NewIssuer("top-secret", "examgate", time.Minute)

	token, _, err := iss.Issue(Principal{Kind: KindStudent, StudentID: "77", Role: RoleStudent})
	require.NoError(t, err)

	p, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, KindStudent, p.Kind)
	assert.Equal(t, "77", p.StudentID)
}

func TestVerifyExpired(t *testing.T) {
	iss := NewIssuer("top-secret", "examgate", -time.Minute)

	token, _, err := iss.Issue(Staff("akmal", RoleAdmin))
	require.NoError(t, err)

	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifyWrongKey(t *testing.T) {
	token, _, err := NewIssuer("key-one", "examgate", time.Minute).Issue(Staff("akmal", RoleAdmin))
	require.NoError(t, err)

	_, err = NewIssuer("key-two", "examgate", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyGarbage(t *testing.T) {
	iss := NewIssuer("top-secret", "examgate", time.Minute)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		_, err := iss.Verify(tok)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", tok)
	}
}

func TestVerifyUnknownStaffRole(t *testing.T) {
	iss := NewIssuer("top-secret", "examgate", time.Minute)

	token, _, err := iss.Issue(Staff("akmal", "superuser"))
	require.NoError(t, err)

	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrMalformed)
}

// A correctly signed token with no expiry must not become a forever
// credential.
func TestVerifyMissingExpiry(t *testing.T) {
	iss := NewIssuer("top-secret", "examgate", time.Minute)

	claims := Claims{
		Subject: "akmal",
		Role:    RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   "examgate",
			Subject:  "akmal",
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(iss.key)
	require.NoError(t, err)

	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyStudentSubjectWrongRole(t *testing.T) {
	iss := NewIssuer("top-secret", "examgate", time.Minute)

	claims := Claims{
		Subject: "student:ST-1",
		Role:    RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "examgate",
			Subject:   "student:ST-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(iss.key)
	require.NoError(t, err)

	_, err = iss.Verify(token)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerifyWrongIssuer(t *testing.T) {
	token, _, err := NewIssuer("top-secret", "other-service", time.Minute).Issue(Staff("akmal", RoleAdmin))
	require.NoError(t, err)

	_, err = NewIssuer("top-secret", "examgate", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrMalformed)
}
