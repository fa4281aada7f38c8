package verify

import (
	"context"
	"errors"
	"strings"

	"certportal/internal/domain"
	"certportal/internal/ports"
)

const (
	MsgEmptySerial = "Please enter a serial number."
	MsgNotFound    = "No certificate found for this serial number."
)

var (
	ErrEmptySerial = errors.New("empty serial number")
	ErrNotFound    = errors.New("certificate not found")
	// ErrAmbiguous means the backend holds several rows for the serial number.
	ErrAmbiguous = errors.New("serial number is ambiguous")
	// ErrUnavailable means the lookup itself failed.
	ErrUnavailable = errors.New("certificate lookup unavailable")
)

// Phase is the render state of a form.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseError
	PhaseResult
)

func (p Phase) String() string {
	switch p {
	case PhaseError:
		return "error"
	case PhaseResult:
		return "result"
	default:
		return "empty"
	}
}

// Form holds the state of one verification form: at most one certificate or
// one error, never both.
type Form struct {
	serial string
	result *domain.Certificate
	err    error
}

// Serial returns the trimmed serial number of the last submission.
func (f *Form) Serial() string { return f.serial }

func (f *Form) Result() *domain.Certificate { return f.result }

// Err returns the error kind of the last submission, nil unless Phase is PhaseError.
func (f *Form) Err() error { return f.err }

func (f *Form) Phase() Phase {
	switch {
	case f.err != nil:
		return PhaseError
	case f.result != nil:
		return PhaseResult
	default:
		return PhaseEmpty
	}
}

// Message is the user-facing error text. Every lookup failure shares one message.
func (f *Form) Message() string {
	switch {
	case f.err == nil:
		return ""
	case errors.Is(f.err, ErrEmptySerial):
		return MsgEmptySerial
	default:
		return MsgNotFound
	}
}

// Submit runs one verification attempt. Prior result and error are cleared
// before the input is evaluated.
func (f *Form) Submit(ctx context.Context, lookup ports.CertificateLookup, input string) {
	f.result = nil
	f.err = nil

	f.serial = strings.TrimSpace(input)
	if f.serial == "" {
		f.err = ErrEmptySerial
		return
	}

	cert, err := lookup.FindBySerial(ctx, f.serial)
	switch {
	case err == nil && cert != nil:
		f.result = cert
	case err == nil, errors.Is(err, domain.ErrCertificateNotFound):
		f.err = ErrNotFound
	case errors.Is(err, domain.ErrAmbiguousSerial):
		f.err = ErrAmbiguous
	default:
		f.err = errors.Join(ErrUnavailable, err)
	}
}
