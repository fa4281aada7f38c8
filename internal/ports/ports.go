package ports

import (
	"context"

	"certportal/internal/domain"
)

// CertificateLookup issues the single point lookup behind the verification form.
type CertificateLookup interface {
	FindBySerial(ctx context.Context, serial string) (*domain.Certificate, error)
}

// Certificates manages certificates from the admin dashboard.
type Certificates interface {
	List(ctx context.Context) ([]domain.Certificate, error)
	Create(ctx context.Context, in domain.CertificateInput) (*domain.Certificate, error)
	Update(ctx context.Context, id string, in domain.CertificateInput) (*domain.Certificate, error)
	Delete(ctx context.Context, id string) error
}
