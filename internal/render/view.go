package render

import "certportal/internal/domain"

// Placeholder is shown for optional fields the certificate does not carry.
const Placeholder = "N/A"

// CertificateView is the read-only presentation of a verified certificate.
type CertificateView struct {
	SerialNumber      string `json:"serial_number"`
	StudentName       string `json:"student_name"`
	CourseName        string `json:"course_name"`
	CourseDuration    string `json:"course_duration"`
	CompletionStatus  string `json:"completion_status"`
	CourseDescription string `json:"course_description"`
	SkillsGained      string `json:"skills_gained"`
	Badge             *Link  `json:"badge,omitempty"`
}

func NewCertificateView(c *domain.Certificate, rules []Rule) CertificateView {
	v := CertificateView{
		SerialNumber:      c.SerialNumber,
		StudentName:       c.StudentName,
		CourseName:        c.CourseName,
		CourseDuration:    orPlaceholder(c.CourseDuration),
		CompletionStatus:  orPlaceholder(c.CompletionStatus),
		CourseDescription: orPlaceholder(c.CourseDescription),
		SkillsGained:      orPlaceholder(c.SkillsGained),
	}
	if c.BadgeURL != nil && *c.BadgeURL != "" {
		link := ResolveLink(*c.BadgeURL, rules)
		v.Badge = &link
	}
	return v
}

func orPlaceholder(s *string) string {
	if s == nil || *s == "" {
		return Placeholder
	}
	return *s
}
