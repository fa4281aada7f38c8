package ports

import (
	"context"

	"certportal/internal/domain"
)

// CertificateRepository is the single-table data surface of the backend.
type CertificateRepository interface {
	// FindBySerial expects exactly one row: zero rows yield
	// domain.ErrCertificateNotFound, several yield domain.ErrAmbiguousSerial.
	FindBySerial(ctx context.Context, serial string) (*domain.Certificate, error)
	List(ctx context.Context) ([]domain.Certificate, error)
	Create(ctx context.Context, id string, in domain.CertificateInput) (*domain.Certificate, error)
	Update(ctx context.Context, id string, in domain.CertificateInput) (*domain.Certificate, error)
	Delete(ctx context.Context, id string) error
}
