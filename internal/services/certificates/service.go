package certificates

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"certportal/internal/domain"
	"certportal/internal/ports"
)

// Service backs the admin dashboard.
type Service struct {
	repo ports.CertificateRepository
}

func New(repo ports.CertificateRepository) *Service { return &Service{repo: repo} }

func (s *Service) List(ctx context.Context) ([]domain.Certificate, error) {
	return s.repo.List(ctx)
}

func (s *Service) Create(ctx context.Context, in domain.CertificateInput) (*domain.Certificate, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, uuid.NewString(), in)
}

func (s *Service) Update(ctx context.Context, id string, in domain.CertificateInput) (*domain.Certificate, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: certificate id %q", domain.ErrInvalidInput, id)
	}
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, in)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: certificate id %q", domain.ErrInvalidInput, id)
	}
	return s.repo.Delete(ctx, id)
}

// normalize trims every field, drops empty optionals and checks the
// required fields are present. Nothing else is validated.
func normalize(in domain.CertificateInput) (domain.CertificateInput, error) {
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	in.StudentName = strings.TrimSpace(in.StudentName)
	in.CourseName = strings.TrimSpace(in.CourseName)
	in.CourseDuration = optional(in.CourseDuration)
	in.CompletionStatus = optional(in.CompletionStatus)
	in.CourseDescription = optional(in.CourseDescription)
	in.SkillsGained = optional(in.SkillsGained)
	in.BadgeURL = optional(in.BadgeURL)

	var missing []string
	if in.SerialNumber == "" {
		missing = append(missing, "serial_number")
	}
	if in.StudentName == "" {
		missing = append(missing, "student_name")
	}
	if in.CourseName == "" {
		missing = append(missing, "course_name")
	}
	if len(missing) > 0 {
		return in, fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return in, nil
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

var _ ports.Certificates = (*Service)(nil)
