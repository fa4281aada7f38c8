package domain

import "time"

// Core domain models. The certificates table and the session are both owned by
// the backend; these types only mirror what the portal reads.

type Certificate struct {
	ID                string
	SerialNumber      string
	StudentName       string
	CourseName        string
	CourseDuration    *string
	CompletionStatus  *string
	CourseDescription *string
	SkillsGained      *string
	BadgeURL          *string
	CreatedAt         time.Time
}

// Session is the portal's view of an authenticated backend session.
type Session struct {
	ID           string
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type SessionEventKind string

const (
	SessionSignedIn       SessionEventKind = "signed_in"
	SessionSignedOut      SessionEventKind = "signed_out"
	SessionTokenRefreshed SessionEventKind = "token_refreshed"
	SessionExpired        SessionEventKind = "expired"
)

// SessionEvent is a session-change notification. Session is nil when the
// session ended.
type SessionEvent struct {
	Kind      SessionEventKind
	SessionID string
	Session   *Session
}

// CertificateInput carries the admin-editable fields of a certificate.
type CertificateInput struct {
	SerialNumber      string
	StudentName       string
	CourseName        string
	CourseDuration    *string
	CompletionStatus  *string
	CourseDescription *string
	SkillsGained      *string
	BadgeURL          *string
}
