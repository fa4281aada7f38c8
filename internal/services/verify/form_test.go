package verify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"certportal/internal/domain"
	"certportal/internal/platform/metrics"
)

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) FindBySerial(ctx context.Context, serial string) (*domain.Certificate, error) {
	args := m.Called(ctx, serial)
	if c := args.Get(0); c != nil {
		return c.(*domain.Certificate), args.Error(1)
	}
	return nil, args.Error(1)
}

type FormSuite struct {
	suite.Suite
	lookup *mockLookup
	ctx    context.Context
}

func (s *FormSuite) SetupTest() {
	s.lookup = new(mockLookup)
	s.ctx = context.Background()
}

func (s *FormSuite) TearDownTest() {
	s.lookup.AssertExpectations(s.T())
}

func TestFormSuite(t *testing.T) {
	suite.Run(t, new(FormSuite))
}

func (s *FormSuite) TestWhitespaceInputIssuesNoLookup() {
	for _, input := range []string{"", " ", "\t", "\n  \r\n", "   \t  "} {
		f := &Form{}
		f.Submit(s.ctx, s.lookup, input)

		s.Equal(PhaseError, f.Phase(), "input %q", input)
		s.ErrorIs(f.Err(), ErrEmptySerial)
		s.Equal(MsgEmptySerial, f.Message())
		s.Nil(f.Result())
	}
	s.lookup.AssertNotCalled(s.T(), "FindBySerial", mock.Anything, mock.Anything)
}

func (s *FormSuite) TestLookupKeyedOnTrimmedSerial() {
	cert := &domain.Certificate{SerialNumber: "AP-001", StudentName: "Ada", CourseName: "Go"}
	s.lookup.On("FindBySerial", mock.Anything, "AP-001").Return(cert, nil).Once()

	f := &Form{}
	f.Submit(s.ctx, s.lookup, "  AP-001 \t")

	s.Equal(PhaseResult, f.Phase())
	s.Same(cert, f.Result())
	s.NoError(f.Err())
	s.Empty(f.Message())
	s.Equal("AP-001", f.Serial())
}

func (s *FormSuite) TestNotFoundAndTransportErrorShareMessage() {
	tests := []struct {
		name    string
		err     error
		cert    *domain.Certificate
		wantErr error
	}{
		{name: "zero rows", err: domain.ErrCertificateNotFound, wantErr: ErrNotFound},
		{name: "wrapped zero rows", err: fmt.Errorf("supabase: %w", domain.ErrCertificateNotFound), wantErr: ErrNotFound},
		{name: "nil row without error", wantErr: ErrNotFound},
		{name: "several rows", err: domain.ErrAmbiguousSerial, wantErr: ErrAmbiguous},
		{name: "transport error", err: errors.New("connection refused"), wantErr: ErrUnavailable},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			lookup := new(mockLookup)
			lookup.On("FindBySerial", mock.Anything, "SN-1").Return(tt.cert, tt.err).Once()

			f := &Form{}
			f.Submit(s.ctx, lookup, "SN-1")

			s.Equal(PhaseError, f.Phase())
			s.ErrorIs(f.Err(), tt.wantErr)
			s.Equal(MsgNotFound, f.Message())
			s.Nil(f.Result())
			lookup.AssertExpectations(s.T())
		})
	}
}

func (s *FormSuite) TestResubmissionClearsPriorResult() {
	first := &domain.Certificate{SerialNumber: "A", StudentName: "Ada", CourseName: "Go"}
	second := &domain.Certificate{SerialNumber: "B", StudentName: "Bob", CourseName: "Rust"}

	var seenDuringLookup []Phase
	f := &Form{}
	s.lookup.On("FindBySerial", mock.Anything, "A").Return(first, nil).Once()
	s.lookup.On("FindBySerial", mock.Anything, "B").
		Run(func(mock.Arguments) { seenDuringLookup = append(seenDuringLookup, f.Phase()) }).
		Return(second, nil).Once()
	s.lookup.On("FindBySerial", mock.Anything, "C").
		Run(func(mock.Arguments) { seenDuringLookup = append(seenDuringLookup, f.Phase()) }).
		Return(nil, domain.ErrCertificateNotFound).Once()

	f.Submit(s.ctx, s.lookup, "A")
	s.Require().Same(first, f.Result())

	f.Submit(s.ctx, s.lookup, "B")
	s.Same(second, f.Result())

	f.Submit(s.ctx, s.lookup, "C")
	s.Nil(f.Result(), "stale certificate must not survive a failed lookup")
	s.Equal(PhaseError, f.Phase())

	s.Equal([]Phase{PhaseEmpty, PhaseEmpty}, seenDuringLookup, "state is reset before the query resolves")
}

func (s *FormSuite) TestErrorClearedBySuccessfulSubmission() {
	cert := &domain.Certificate{SerialNumber: "OK"}
	s.lookup.On("FindBySerial", mock.Anything, "OK").Return(cert, nil).Once()

	f := &Form{}
	f.Submit(s.ctx, s.lookup, "   ")
	s.Require().Equal(PhaseError, f.Phase())

	f.Submit(s.ctx, s.lookup, "OK")
	s.Equal(PhaseResult, f.Phase())
	s.Empty(f.Message())
}

func TestZeroFormIsEmpty(t *testing.T) {
	var f Form
	assert.Equal(t, PhaseEmpty, f.Phase())
	assert.Equal(t, "empty", f.Phase().String())
	assert.Empty(t, f.Message())
}

func TestServiceVerifyCountsOutcomes(t *testing.T) {
	lookup := new(mockLookup)
	lookup.On("FindBySerial", mock.Anything, "GOOD").Return(&domain.Certificate{SerialNumber: "GOOD"}, nil)
	lookup.On("FindBySerial", mock.Anything, "DOWN").Return(nil, errors.New("timeout"))

	m := metrics.NewNop()
	svc := New(lookup, m, zap.NewNop())

	f := svc.Verify(context.Background(), " GOOD ")
	require.Equal(t, PhaseResult, f.Phase())

	f = svc.Verify(context.Background(), "DOWN")
	require.ErrorIs(t, f.Err(), ErrUnavailable)

	f = svc.Verify(context.Background(), "")
	require.ErrorIs(t, f.Err(), ErrEmptySerial)

	assert.Equal(t, "found", outcomeLabel(svc.Verify(context.Background(), "GOOD")))
	assert.Equal(t, "unavailable", outcomeLabel(svc.Verify(context.Background(), "DOWN")))
	lookup.AssertNumberOfCalls(t, "FindBySerial", 4)
}
