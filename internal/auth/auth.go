// Package auth implements Sonar's User & Auth service: scrypt password
// hashing, JWT-encoded session tokens backed by a revocable sessions
// table, and admin-scope enforcement — adapted from this codebase's
// existing JWT claims/token pattern, with bcrypt swapped for the scrypt
// KDF the authentication design calls for.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/scrypt"

	"sonar/internal/catalog"
	"sonar/internal/sonarerr"
)

const (
	scryptN      = 1 << 15 // 32768
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
	saltLen      = 16

	sessionTTL = 24 * time.Hour
)

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

// Service issues and validates sessions against the catalog's users and
// sessions tables.
type Service struct {
	db        *sql.DB
	cat       *catalog.Catalog
	jwtSecret []byte
}

func New(db *sql.DB, cat *catalog.Catalog, jwtSecret string) *Service {
	return &Service{db: db, cat: cat, jwtSecret: []byte(jwtSecret)}
}

// normalizeUsername lower-cases every rune, so usernames that differ only
// in letter case compare equal. No Unicode NFC normalization is applied.
func normalizeUsername(username string) string {
	var b strings.Builder
	for _, r := range username {
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// HashPassword derives a scrypt key under a fresh random salt and encodes
// both into a single stored string: "$scrypt$N$r$p$salt_hex$hash_hex".
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", sonarerr.Internal(err)
	}
	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", sonarerr.Internal(err)
	}
	return fmt.Sprintf("$scrypt$%d$%d$%d$%s$%s",
		scryptN, scryptR, scryptP, hex.EncodeToString(salt), hex.EncodeToString(key)), nil
}

// VerifyPassword re-derives the key from password under the stored salt
// and params and compares in constant time.
func VerifyPassword(stored, password string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 7 || parts[1] != "scrypt" {
		return false
	}
	var n, r, p int
	if _, err := fmt.Sscanf(parts[2], "%d", &n); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(parts[3], "%d", &r); err != nil {
		return false
	}
	if _, err := fmt.Sscanf(parts[4], "%d", &p); err != nil {
		return false
	}
	salt, err := hex.DecodeString(parts[5])
	if err != nil {
		return false
	}
	want, err := hex.DecodeString(parts[6])
	if err != nil {
		return false
	}
	got, err := scrypt.Key([]byte(password), salt, n, r, p, len(want))
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, want) == 1
}

// Register creates a new user account with a scrypt-hashed password.
func (s *Service) Register(username, password string, isAdmin bool) (*catalog.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.cat.CreateUser(normalizeUsername(username), hash, isAdmin)
}

// Login validates credentials and issues a session token, persisting it
// to the sessions table so Logout can revoke it before its JWT expiry.
func (s *Service) Login(username, password string) (string, *catalog.User, error) {
	user, err := s.cat.GetUserByUsername(normalizeUsername(username))
	if err != nil {
		return "", nil, sonarerr.Unauthenticated()
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return "", nil, sonarerr.Unauthenticated()
	}

	now := time.Now()
	expiresAt := now.Add(sessionTTL)
	claims := Claims{
		UserID: user.ID, Username: user.Username, IsAdmin: user.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, sonarerr.Internal(err)
	}

	if _, err := s.db.Exec(
		`INSERT INTO sessions (token, user_id, expires_at) VALUES ($1, $2, $3)`,
		token, user.ID, expiresAt); err != nil {
		return "", nil, sonarerr.Internal(err)
	}
	return token, user, nil
}

// Authorize validates a session token's JWT signature/expiry and confirms
// it hasn't been revoked by Logout, per spec §8's "valid until logout or
// expiry" invariant.
func (s *Service) Authorize(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, sonarerr.Unauthenticated()
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, sonarerr.Unauthenticated()
	}

	var exists bool
	err = s.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM sessions WHERE token = $1 AND expires_at > NOW())`, token).Scan(&exists)
	if err != nil {
		return nil, sonarerr.Internal(err)
	}
	if !exists {
		return nil, sonarerr.Unauthenticated()
	}
	return claims, nil
}

// Logout revokes token immediately, independent of its JWT expiry.
func (s *Service) Logout(token string) error {
	if _, err := s.db.Exec(`DELETE FROM sessions WHERE token = $1`, token); err != nil {
		return sonarerr.Internal(err)
	}
	return nil
}

// RequireAdmin returns sonarerr.PermissionDenied unless claims belong to
// an admin user, for admin-scoped operations.
func RequireAdmin(claims *Claims) error {
	if !claims.IsAdmin {
		return sonarerr.PermissionDenied()
	}
	return nil
}
