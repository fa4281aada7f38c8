package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"certportal/internal/domain"
)

const (
	anonKey = "anon-key"
	userID  = "8a2f5c1e-4b7d-4e0a-9c3b-2d6f1e8a7b90"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", anonKey, zap.NewNop(), WithHTTPClient(srv.Client()))
}

func signedToken(t *testing.T, sessionID string, exp time.Time) string {
	t.Helper()
	claims := accessClaims{
		SessionID: sessionID,
		Email:     "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("gotrue-secret"))
	require.NoError(t, err)
	return tok
}

func TestFindBySerialQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/certificates", r.URL.Path)
		assert.Equal(t, "eq.AP 001", r.URL.Query().Get("serial_number"))
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		assert.Equal(t, anonKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+anonKey, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[{"id":"c1","serial_number":"AP 001","student_name":"Ada","course_name":"Go","course_duration":null,"badge_url":"https://example.com/b.png","created_at":"2024-05-01T10:00:00Z"}]`)
	})

	cert, err := c.FindBySerial(context.Background(), "AP 001")
	require.NoError(t, err)
	assert.Equal(t, "Ada", cert.StudentName)
	assert.Nil(t, cert.CourseDuration)
	require.NotNil(t, cert.BadgeURL)
	assert.Equal(t, "https://example.com/b.png", *cert.BadgeURL)
	assert.Equal(t, 2024, cert.CreatedAt.Year())
}

func TestFindBySerialRowCounts(t *testing.T) {
	row := `{"id":"%s","serial_number":"X","student_name":"A","course_name":"C"}`
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "zero rows", body: `[]`, want: domain.ErrCertificateNotFound},
		{name: "several rows", body: "[" + fmt.Sprintf(row, "a") + "," + fmt.Sprintf(row, "b") + "]", want: domain.ErrAmbiguousSerial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.FindBySerial(context.Background(), "X")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFindBySerialBackendError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"code":"PGRST000","message":"database unavailable"}`)
	})
	_, err := c.FindBySerial(context.Background(), "X")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrCertificateNotFound)
	assert.NotErrorIs(t, err, domain.ErrAmbiguousSerial)
}

func TestWritesUseSessionToken(t *testing.T) {
	var gotAuth, gotPrefer string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		gotPrefer = r.Header.Get("Prefer")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `[{"id":"id-1","serial_number":"S","student_name":"A","course_name":"C"}]`)
	})

	ctx := domain.ContextWithSession(context.Background(), &domain.Session{AccessToken: "user-token"})
	cert, err := c.Create(ctx, "id-1", domain.CertificateInput{SerialNumber: "S", StudentName: "A", CourseName: "C"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", cert.ID)
	assert.Equal(t, "Bearer user-token", gotAuth)
	assert.Contains(t, gotPrefer, "return=representation")
	assert.Equal(t, "id-1", gotBody["id"])
	assert.Nil(t, gotBody["badge_url"])
}

func TestUpdateMissingRow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.missing", r.URL.Query().Get("id"))
		_, _ = io.WriteString(w, `[]`)
	})
	_, err := c.Update(context.Background(), "missing", domain.CertificateInput{SerialNumber: "S", StudentName: "A", CourseName: "C"})
	assert.ErrorIs(t, err, domain.ErrCertificateNotFound)
}

func TestDeleteReportsMissingRow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "eq.missing", r.URL.Query().Get("id"))
		_, _ = io.WriteString(w, `[]`)
	})
	assert.ErrorIs(t, c.Delete(context.Background(), "missing"), domain.ErrCertificateNotFound)
}

func tokenBody(access string, exp time.Time) string {
	return fmt.Sprintf(`{"access_token":%q,"token_type":"bearer","expires_in":3600,"expires_at":%d,"refresh_token":"refresh-1","user":{"id":%q,"email":"admin@example.com"}}`,
		access, exp.Unix(), userID)
}

func TestSignInParsesSession(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signedToken(t, "sess-42", exp)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, anonKey, r.Header.Get("apikey"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "right" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		_, _ = io.WriteString(w, tokenBody(access, exp))
	})

	s, err := c.SignIn(context.Background(), "admin@example.com", "right")
	require.NoError(t, err)
	assert.Equal(t, "sess-42", s.ID)
	assert.Equal(t, userID, s.UserID)
	assert.Equal(t, "refresh-1", s.RefreshToken)
	assert.True(t, exp.Equal(s.ExpiresAt))

	_, err = c.SignIn(context.Background(), "admin@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRefreshDistinguishesRejectionFromOutage(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access := signedToken(t, "sess-7", exp)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch body["refresh_token"] {
		case "live":
			_, _ = io.WriteString(w, tokenBody(access, exp))
		case "revoked":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"invalid_grant"}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	})

	s, err := c.Refresh(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, "sess-7", s.ID)

	_, err = c.Refresh(context.Background(), "revoked")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = c.Refresh(context.Background(), "flaky")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestGetSession(t *testing.T) {
	live := signedToken(t, "sess-1", time.Now().Add(time.Hour))
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer " + live:
			_, _ = fmt.Fprintf(w, `{"id":%q,"email":"admin@example.com"}`, userID)
		case "Bearer broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})

	s, err := c.GetSession(context.Background(), live)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "sess-1", s.ID)
	assert.Equal(t, userID, s.UserID)

	s, err = c.GetSession(context.Background(), "revoked")
	require.NoError(t, err)
	assert.Nil(t, s)

	_, err = c.GetSession(context.Background(), "broken")
	assert.Error(t, err)

	s, err = c.GetSession(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestSignOut(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer live":
			w.WriteHeader(http.StatusNoContent)
		case "Bearer broken":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	})
	assert.NoError(t, c.SignOut(context.Background(), &domain.Session{AccessToken: "live"}))
	assert.NoError(t, c.SignOut(context.Background(), &domain.Session{AccessToken: "gone"}))
	assert.Error(t, c.SignOut(context.Background(), &domain.Session{AccessToken: "broken"}))
}
