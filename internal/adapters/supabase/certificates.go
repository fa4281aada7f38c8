package supabase

import (
	"context"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"

	"certportal/internal/domain"
	"certportal/internal/ports"
)

type certificateJSON struct {
	ID                string     `json:"id,omitempty"`
	SerialNumber      string     `json:"serial_number"`
	StudentName       string     `json:"student_name"`
	CourseName        string     `json:"course_name"`
	CourseDuration    *string    `json:"course_duration"`
	CompletionStatus  *string    `json:"completion_status"`
	CourseDescription *string    `json:"course_description"`
	SkillsGained      *string    `json:"skills_gained"`
	BadgeURL          *string    `json:"badge_url"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
}

func (j certificateJSON) toDomain() domain.Certificate {
	c := domain.Certificate{
		ID:                j.ID,
		SerialNumber:      j.SerialNumber,
		StudentName:       j.StudentName,
		CourseName:        j.CourseName,
		CourseDuration:    j.CourseDuration,
		CompletionStatus:  j.CompletionStatus,
		CourseDescription: j.CourseDescription,
		SkillsGained:      j.SkillsGained,
		BadgeURL:          j.BadgeURL,
	}
	if j.CreatedAt != nil {
		c.CreatedAt = *j.CreatedAt
	}
	return c
}

func fromInput(id string, in domain.CertificateInput) certificateJSON {
	return certificateJSON{
		ID:                id,
		SerialNumber:      in.SerialNumber,
		StudentName:       in.StudentName,
		CourseName:        in.CourseName,
		CourseDuration:    in.CourseDuration,
		CompletionStatus:  in.CompletionStatus,
		CourseDescription: in.CourseDescription,
		SkillsGained:      in.SkillsGained,
		BadgeURL:          in.BadgeURL,
	}
}

// FindBySerial fetches at most two rows so zero and several matches can be
// told apart; PostgREST's single-object mode reports both as one error code.
func (c *Client) FindBySerial(ctx context.Context, serial string) (_ *domain.Certificate, err error) {
	ctx, span := c.startSpan(ctx, "find_by_serial")
	defer func() { endSpan(span, err) }()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rc, err := c.rest(ctx)
	if err != nil {
		return nil, err
	}
	var rows []certificateJSON
	_, err = rc.From(c.table).
		Select("*", "", false).
		Eq("serial_number", serial).
		Limit(2, "").
		ExecuteToWithContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("supabase: find certificate: %w", err)
	}
	switch len(rows) {
	case 0:
		return nil, domain.ErrCertificateNotFound
	case 1:
		cert := rows[0].toDomain()
		return &cert, nil
	default:
		return nil, domain.ErrAmbiguousSerial
	}
}

func (c *Client) List(ctx context.Context) (_ []domain.Certificate, err error) {
	ctx, span := c.startSpan(ctx, "list")
	defer func() { endSpan(span, err) }()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rc, err := c.rest(ctx)
	if err != nil {
		return nil, err
	}
	var rows []certificateJSON
	_, err = rc.From(c.table).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Order("serial_number", &postgrest.OrderOpts{Ascending: true}).
		ExecuteToWithContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("supabase: list certificates: %w", err)
	}
	out := make([]domain.Certificate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, id string, in domain.CertificateInput) (_ *domain.Certificate, err error) {
	ctx, span := c.startSpan(ctx, "create")
	defer func() { endSpan(span, err) }()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rc, err := c.rest(ctx)
	if err != nil {
		return nil, err
	}
	var rows []certificateJSON
	_, err = rc.From(c.table).
		Insert(fromInput(id, in), false, "", "representation", "").
		ExecuteToWithContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("supabase: create certificate: %w", err)
	}
	if len(rows) != 1 {
		return nil, fmt.Errorf("supabase: create certificate: got %d rows back", len(rows))
	}
	cert := rows[0].toDomain()
	return &cert, nil
}

func (c *Client) Update(ctx context.Context, id string, in domain.CertificateInput) (_ *domain.Certificate, err error) {
	ctx, span := c.startSpan(ctx, "update")
	defer func() { endSpan(span, err) }()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rc, err := c.rest(ctx)
	if err != nil {
		return nil, err
	}
	var rows []certificateJSON
	_, err = rc.From(c.table).
		Update(fromInput("", in), "representation", "").
		Eq("id", id).
		ExecuteToWithContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("supabase: update certificate: %w", err)
	}
	switch len(rows) {
	case 0:
		return nil, domain.ErrCertificateNotFound
	case 1:
		cert := rows[0].toDomain()
		return &cert, nil
	default:
		return nil, fmt.Errorf("supabase: update matched %d rows for id %s", len(rows), id)
	}
}

func (c *Client) Delete(ctx context.Context, id string) (err error) {
	ctx, span := c.startSpan(ctx, "delete")
	defer func() { endSpan(span, err) }()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rc, err := c.rest(ctx)
	if err != nil {
		return err
	}
	var rows []certificateJSON
	_, err = rc.From(c.table).
		Delete("representation", "").
		Eq("id", id).
		ExecuteToWithContext(ctx, &rows)
	if err != nil {
		return fmt.Errorf("supabase: delete certificate: %w", err)
	}
	if len(rows) == 0 {
		return domain.ErrCertificateNotFound
	}
	return nil
}

var _ ports.CertificateRepository = (*Client)(nil)
