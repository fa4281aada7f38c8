package supabase

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/supabase-community/gotrue-go/types"
	"go.uber.org/zap"

	"certportal/internal/domain"
	"certportal/internal/ports"
)

// accessClaims are the GoTrue claims the portal reads. Signatures are
// verified by GoTrue itself on /user.
type accessClaims struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Client) SignIn(ctx context.Context, email, password string) (_ *domain.Session, err error) {
	ctx, span := c.startSpan(ctx, "sign_in")
	defer func() { endSpan(span, err) }()

	gc, rt := c.auth(ctx, "")
	resp, err := gc.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, tokenError(rt.status, "password", err)
	}
	return sessionFromResponse(resp)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (_ *domain.Session, err error) {
	ctx, span := c.startSpan(ctx, "refresh")
	defer func() { endSpan(span, err) }()

	gc, rt := c.auth(ctx, "")
	resp, err := gc.RefreshToken(refreshToken)
	if err != nil {
		return nil, tokenError(rt.status, "refresh_token", err)
	}
	return sessionFromResponse(resp)
}

// tokenError maps a rejected grant onto ErrInvalidCredentials. Anything else,
// transport failures included, stays a plain error.
func tokenError(status int, grant string, err error) error {
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s grant rejected", domain.ErrInvalidCredentials, grant)
	}
	return fmt.Errorf("supabase: %s grant: %w", grant, err)
}

func sessionFromResponse(resp *types.TokenResponse) (*domain.Session, error) {
	s, err := sessionFromToken(resp.AccessToken)
	if err != nil {
		return nil, err
	}
	s.RefreshToken = resp.RefreshToken
	s.UserID = resp.User.ID.String()
	if resp.User.Email != "" {
		s.Email = resp.User.Email
	}
	if resp.ExpiresAt > 0 {
		s.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	} else if s.ExpiresAt.IsZero() && resp.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return s, nil
}

// GetSession asks GoTrue whether accessToken still belongs to a live user
// session. Rejected tokens mean no session; other failures are errors.
func (c *Client) GetSession(ctx context.Context, accessToken string) (_ *domain.Session, err error) {
	if accessToken == "" {
		return nil, nil
	}
	ctx, span := c.startSpan(ctx, "get_user")
	defer func() { endSpan(span, err) }()

	gc, rt := c.auth(ctx, accessToken)
	user, err := gc.GetUser()
	if err != nil {
		if rt.status == http.StatusUnauthorized || rt.status == http.StatusForbidden {
			return nil, nil
		}
		return nil, fmt.Errorf("supabase: get user: %w", err)
	}
	s, err := sessionFromToken(accessToken)
	if err != nil {
		c.log.Debug("unparseable access token accepted by auth server", zap.Error(err))
		return nil, nil
	}
	s.UserID = user.ID.String()
	if user.Email != "" {
		s.Email = user.Email
	}
	return s, nil
}

func (c *Client) SignOut(ctx context.Context, s *domain.Session) (err error) {
	ctx, span := c.startSpan(ctx, "logout")
	defer func() { endSpan(span, err) }()

	gc, rt := c.auth(ctx, s.AccessToken)
	if err := gc.Logout(); err != nil {
		if rt.status == http.StatusUnauthorized || rt.status == http.StatusNotFound {
			// already gone
			return nil
		}
		return fmt.Errorf("supabase: logout: %w", err)
	}
	return nil
}

// sessionFromToken reads the session id and expiry out of a GoTrue access
// token without verifying it.
func sessionFromToken(accessToken string) (*domain.Session, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("supabase: parse access token: %w", err)
	}
	s := &domain.Session{
		ID:          claims.SessionID,
		UserID:      claims.Subject,
		Email:       claims.Email,
		AccessToken: accessToken,
	}
	if s.ID == "" {
		// older GoTrue versions omit session_id
		s.ID = claims.ID
	}
	if s.ID == "" {
		s.ID = claims.Subject
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

var _ ports.Authenticator = (*Client)(nil)
