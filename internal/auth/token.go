package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried inside tokens.
const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// studentPrefix namespaces student subjects so they can never collide with a
// staff username. Existing tokens depend on this exact string.
const studentPrefix = "student:"

var (
	// ErrUnauthorized covers a missing or unusable credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrExpired means the token's expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalidSignature means the signature check failed.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrMalformed means required claims are absent or unreadable.
	ErrMalformed = errors.New("malformed token")
	// ErrPrincipalNotFound means the token verified but its subject no
	// longer exists in the store.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrForbidden means the credential is valid but the role is insufficient.
	ErrForbidden = errors.New("forbidden")
)

// Kind tags the two classes of principal.
type Kind int

const (
	// KindStaff is an admin or teacher authenticated by password.
	KindStaff Kind = iota
	// KindStudent is a student authenticated by face.
	KindStudent
)

// Principal is an authenticated actor reconstructed from a verified token.
type Principal struct {
	Kind      Kind
	Username  string // staff only
	Role      string // admin, teacher or student
	StudentID string // student only
}

// Staff builds a staff principal.
func Staff(username, role string) Principal {
	return Principal{Kind: KindStaff, Username: username, Role: role}
}

// Student builds a student principal.
func Student(studentID string) Principal {
	return Principal{Kind: KindStudent, StudentID: studentID, Role: RoleStudent}
}

// Subject returns the token subject for the principal: the bare username for
// staff, the prefixed student id for students.
func (p Principal) Subject() string {
	if p.Kind == KindStudent {
		return studentPrefix + p.StudentID
	}
	return p.Username
}

// Claims represents the JWT payload.
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies time-limited credentials with a process-wide
// secret loaded once at startup.
type Issuer struct {
	key    []byte
	issuer string
	ttl    time.Duration
}

// NewIssuer creates an issuer from startup configuration.
func NewIssuer(signingKey, issuer string, ttl time.Duration) *Issuer {
	return &Issuer{key: []byte(signingKey), issuer: issuer, ttl: ttl}
}

// Issue mints a signed HS256 token for the principal.
func (i *Issuer) Issue(p Principal) (token string, expiresAt time.Time, err error) {
	now := time.Now()
	expiresAt = now.Add(i.ttl)
	claims := Claims{
		Subject: p.Subject(),
		Role:    p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   p.Subject(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Verify validates signature and expiry and reconstructs the typed principal
// from the subject namespace. It never touches the store; callers re-resolve
// the subject afterwards so tokens for deleted accounts are rejected.
func (i *Issuer) Verify(tokenStr string) (Principal, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidSignature
		}
		return i.key, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Principal{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Principal{}, ErrInvalidSignature
		default:
			return Principal{}, ErrMalformed
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, ErrMalformed
	}
	if claims.Subject == "" {
		return Principal{}, ErrMalformed
	}
	if i.issuer != "" && claims.Issuer != "" && claims.Issuer != i.issuer {
		return Principal{}, ErrMalformed
	}

	if rest, found := strings.CutPrefix(claims.Subject, studentPrefix); found {
		if rest == "" || claims.Role != RoleStudent {
			return Principal{}, ErrMalformed
		}
		return Student(rest), nil
	}
	if claims.Role != RoleAdmin && claims.Role != RoleTeacher {
		return Principal{}, ErrMalformed
	}
	return Staff(claims.Subject, claims.Role), nil
}
