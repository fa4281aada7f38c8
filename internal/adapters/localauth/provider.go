// Package localauth is a self-hosted stand-in for the backend auth service:
// one admin account from configuration, HS256 access tokens and an in-memory
// session table.
package localauth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"certportal/internal/domain"
	"certportal/internal/ports"
)

const issuer = "certportal"

type Claims struct {
	SessionID string `json:"sid"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

type Config struct {
	AdminEmail        string
	AdminPasswordHash string
	Secret            string
	SessionTTL        time.Duration
}

type Provider struct {
	email        string
	passwordHash []byte
	secret       []byte
	ttl          time.Duration
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]domain.Session
	refresh  map[string]string // refresh token -> session id
}

func New(cfg Config) (*Provider, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("localauth: secret is required")
	}
	if cfg.AdminEmail == "" || cfg.AdminPasswordHash == "" {
		return nil, fmt.Errorf("localauth: admin email and password hash are required")
	}
	if _, err := bcrypt.Cost([]byte(cfg.AdminPasswordHash)); err != nil {
		return nil, fmt.Errorf("localauth: admin password hash: %w", err)
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Provider{
		email:        strings.ToLower(strings.TrimSpace(cfg.AdminEmail)),
		passwordHash: []byte(cfg.AdminPasswordHash),
		secret:       []byte(cfg.Secret),
		ttl:          ttl,
		now:          time.Now,
		sessions:     make(map[string]domain.Session),
		refresh:      make(map[string]string),
	}, nil
}

// HashPassword hashes a plain text password for ADMIN_PASSWORD_HASH.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (p *Provider) SignIn(_ context.Context, email, password string) (*domain.Session, error) {
	if strings.ToLower(strings.TrimSpace(email)) != p.email {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(p.passwordHash, []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	s := domain.Session{
		ID:     uuid.NewString(),
		UserID: p.email,
		Email:  p.email,
	}
	if err := p.issue(&s); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.sessions[s.ID] = s
	p.refresh[s.RefreshToken] = s.ID
	p.mu.Unlock()
	return &s, nil
}

// issue sets fresh access and refresh tokens and a new expiry on s.
func (p *Provider) issue(s *domain.Session) error {
	now := p.now()
	s.ExpiresAt = now.Add(p.ttl)
	claims := Claims{
		SessionID: s.ID,
		Email:     s.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return fmt.Errorf("localauth: sign token: %w", err)
	}
	s.AccessToken = token
	s.RefreshToken = uuid.NewString()
	return nil
}

// GetSession returns the live session behind accessToken. Invalid, expired
// and signed-out tokens all mean no session.
func (p *Provider) GetSession(_ context.Context, accessToken string) (*domain.Session, error) {
	if accessToken == "" {
		return nil, nil
	}
	claims, err := p.parse(accessToken)
	if err != nil {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[claims.SessionID]
	if !ok || s.Expired(p.now()) || s.AccessToken != accessToken {
		return nil, nil
	}
	return &s, nil
}

func (p *Provider) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(p.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (p *Provider) SignOut(_ context.Context, s *domain.Session) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	stored, ok := p.sessions[s.ID]
	if !ok {
		return nil
	}
	delete(p.refresh, stored.RefreshToken)
	delete(p.sessions, s.ID)
	return nil
}

// Refresh rotates both tokens of the session that owns refreshToken.
func (p *Provider) Refresh(_ context.Context, refreshToken string) (*domain.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.refresh[refreshToken]
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	s, ok := p.sessions[id]
	if !ok || s.Expired(p.now()) {
		delete(p.refresh, refreshToken)
		return nil, domain.ErrSessionNotFound
	}
	delete(p.refresh, refreshToken)
	if err := p.issue(&s); err != nil {
		return nil, err
	}
	p.sessions[s.ID] = s
	p.refresh[s.RefreshToken] = s.ID
	return &s, nil
}

// SweepExpired drops sessions whose expiry has passed and reports them as
// expired events.
func (p *Provider) SweepExpired(_ context.Context, now time.Time) ([]domain.SessionEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var events []domain.SessionEvent
	for id, s := range p.sessions {
		if !s.Expired(now) {
			continue
		}
		delete(p.refresh, s.RefreshToken)
		delete(p.sessions, id)
		events = append(events, domain.SessionEvent{Kind: domain.SessionExpired, SessionID: id})
	}
	return events, nil
}

// ActiveSessions reports the number of stored sessions.
func (p *Provider) ActiveSessions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}

var (
	_ ports.Authenticator  = (*Provider)(nil)
	_ ports.SessionSweeper = (*Provider)(nil)
)
