package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"certportal/internal/domain"
	"certportal/internal/ports"
)

const certColumns = `id::text, serial_number, student_name, course_name, course_duration,
	completion_status, course_description, skills_gained, badge_url, created_at`

type certRow struct {
	ID                string    `db:"id"`
	SerialNumber      string    `db:"serial_number"`
	StudentName       string    `db:"student_name"`
	CourseName        string    `db:"course_name"`
	CourseDuration    *string   `db:"course_duration"`
	CompletionStatus  *string   `db:"completion_status"`
	CourseDescription *string   `db:"course_description"`
	SkillsGained      *string   `db:"skills_gained"`
	BadgeURL          *string   `db:"badge_url"`
	CreatedAt         time.Time `db:"created_at"`
}

func (r certRow) toDomain() domain.Certificate {
	return domain.Certificate{
		ID:                r.ID,
		SerialNumber:      r.SerialNumber,
		StudentName:       r.StudentName,
		CourseName:        r.CourseName,
		CourseDuration:    r.CourseDuration,
		CompletionStatus:  r.CompletionStatus,
		CourseDescription: r.CourseDescription,
		SkillsGained:      r.SkillsGained,
		BadgeURL:          r.BadgeURL,
		CreatedAt:         r.CreatedAt,
	}
}

// FindBySerial fetches at most two rows so that a duplicated serial number
// is reported instead of silently picking one.
func (db *DB) FindBySerial(ctx context.Context, serial string) (*domain.Certificate, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+certColumns+` FROM certificates WHERE serial_number = $1 LIMIT 2`, serial)
	if err != nil {
		return nil, fmt.Errorf("query certificate: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[certRow])
	if err != nil {
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, domain.ErrCertificateNotFound
	case 1:
		c := found[0].toDomain()
		return &c, nil
	default:
		return nil, domain.ErrAmbiguousSerial
	}
}

func (db *DB) List(ctx context.Context) ([]domain.Certificate, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+certColumns+` FROM certificates ORDER BY created_at DESC, serial_number`)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	found, err := pgx.CollectRows(rows, pgx.RowToStructByName[certRow])
	if err != nil {
		return nil, fmt.Errorf("scan certificates: %w", err)
	}
	out := make([]domain.Certificate, 0, len(found))
	for _, r := range found {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (db *DB) Create(ctx context.Context, id string, in domain.CertificateInput) (*domain.Certificate, error) {
	rows, err := db.Pool.Query(ctx, `
		INSERT INTO certificates (id, serial_number, student_name, course_name, course_duration,
			completion_status, course_description, skills_gained, badge_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+certColumns,
		id, in.SerialNumber, in.StudentName, in.CourseName, in.CourseDuration,
		in.CompletionStatus, in.CourseDescription, in.SkillsGained, in.BadgeURL)
	if err != nil {
		return nil, fmt.Errorf("insert certificate: %w", err)
	}
	return collectOne(rows)
}

func (db *DB) Update(ctx context.Context, id string, in domain.CertificateInput) (*domain.Certificate, error) {
	rows, err := db.Pool.Query(ctx, `
		UPDATE certificates SET serial_number = $2, student_name = $3, course_name = $4,
			course_duration = $5, completion_status = $6, course_description = $7,
			skills_gained = $8, badge_url = $9
		WHERE id = $1
		RETURNING `+certColumns,
		id, in.SerialNumber, in.StudentName, in.CourseName, in.CourseDuration,
		in.CompletionStatus, in.CourseDescription, in.SkillsGained, in.BadgeURL)
	if err != nil {
		return nil, fmt.Errorf("update certificate: %w", err)
	}
	return collectOne(rows)
}

func (db *DB) Delete(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCertificateNotFound
	}
	return nil
}

func collectOne(rows pgx.Rows) (*domain.Certificate, error) {
	r, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[certRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCertificateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan certificate: %w", err)
	}
	c := r.toDomain()
	return &c, nil
}

var _ ports.CertificateRepository = (*DB)(nil)
