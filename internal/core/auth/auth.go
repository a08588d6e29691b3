// Package auth handles accounts, session tokens and secrets at rest.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agenthands/leadblitz/internal/core/model"
	"github.com/agenthands/leadblitz/internal/store"
)

// CookieName carries the session token in browser requests.
const CookieName = "session_token"

const (
	DefaultTokenTTL   = 30 * 24 * time.Hour
	ResetTokenTTL     = time.Hour
	MinPasswordLength = 6
)

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrEmailTaken         = errors.New("Email already registered")
	ErrUnauthenticated    = errors.New("Not authenticated")
	ErrInvalidSession     = errors.New("Invalid or expired session")
	ErrInvalidEmail       = errors.New("Invalid email address")
	ErrWeakPassword       = fmt.Errorf("Password must be at least %d characters", MinPasswordLength)
	ErrInvalidResetToken  = errors.New("Invalid or expired reset token. Please request a new one.")
)

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Claims are the session token payload.
type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
}

func NewTokens(secret string, ttl time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secret: []byte(secret), ttl: ttl}, nil
}

func (t *Tokens) TTL() time.Duration {
	return t.ttl
}

// Issue returns a signed token for userID and its expiry.
func (t *Tokens) Issue(userID string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(t.ttl)
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies token and returns the user id it was issued for.
func (t *Tokens) Parse(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", ErrInvalidSession
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return "", ErrInvalidSession
	}
	return claims.UserID, nil
}

// TokenFromRequest reads the session cookie, falling back to an
// "Authorization: Bearer" header.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// Users is the account storage. *store.Store implements it.
type Users interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	SaveResetToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	ResetTokenUser(ctx context.Context, tokenHash string, now time.Time) (string, error)
	SetPassword(ctx context.Context, userID, passwordHash string) error
}

// AccountOpener sets up the credit account of a new user.
type AccountOpener interface {
	Open(ctx context.Context, userID string) error
}

type Service struct {
	users  Users
	tokens *Tokens
	opener AccountOpener
	admins map[string]bool
}

func NewService(users Users, tokens *Tokens, opener AccountOpener, adminEmails []string) *Service {
	admins := map[string]bool{}
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			admins[e] = true
		}
	}
	return &Service{users: users, tokens: tokens, opener: opener, admins: admins}
}

func (s *Service) Tokens() *Tokens {
	return s.tokens
}

// Session is a signed-in user and their token.
type Session struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		IsAdmin:      s.admins[email],
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	if s.opener != nil {
		if err := s.opener.Open(ctx, u.ID); err != nil {
			return nil, fmt.Errorf("failed to open credit account: %w", err)
		}
	}
	return s.session(u)
}

// Login checks credentials. Unknown emails and wrong passwords both return
// ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !CheckPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.session(u)
}

// Authenticate resolves a session token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetUser(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	return u, nil
}

func (s *Service) session(u *model.User) (*Session, error) {
	tok, exp, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Token: tok, ExpiresAt: exp}, nil
}

// ResetToken is an issued password reset. Only the hash of Token is stored.
type ResetToken struct {
	User      *model.User
	Token     string
	ExpiresAt time.Time
}

// RequestReset issues a reset token for email. Unknown emails return a nil
// token and no error.
func (s *Service) RequestReset(ctx context.Context, email string) (*ResetToken, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	exp := time.Now().Add(ResetTokenTTL)
	if err := s.users.SaveResetToken(ctx, u.ID, hashResetToken(token), exp); err != nil {
		return nil, err
	}
	return &ResetToken{User: u, Token: token, ExpiresAt: exp}, nil
}

// ResetPassword sets a new password for the owner of token. The token is
// spent on success.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return ErrInvalidResetToken
	}
	userID, err := s.users.ResetTokenUser(ctx, hashResetToken(token), time.Now())
	if err != nil {
		if store.IsNotFound(err) {
			return ErrInvalidResetToken
		}
		return err
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.SetPassword(ctx, userID, hash); err != nil {
		if store.IsNotFound(err) {
			return ErrInvalidResetToken
		}
		return err
	}
	return nil
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
