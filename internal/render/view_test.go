package render

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"certportal/internal/domain"
)

func strp(s string) *string { return &s }

func TestNewCertificateView(t *testing.T) {
	cert := &domain.Certificate{
		SerialNumber:     "AP-2024-001",
		StudentName:      "Ada Lovelace",
		CourseName:       "Analytical Engines",
		CourseDuration:   strp("6 weeks"),
		CompletionStatus: strp(""),
		BadgeURL:         strp("https://drive.google.com/file/d/ABCDEFGHIJKLMNOPQRSTUVWXY1234/view"),
	}

	got := NewCertificateView(cert, DefaultRules())
	want := CertificateView{
		SerialNumber:      "AP-2024-001",
		StudentName:       "Ada Lovelace",
		CourseName:        "Analytical Engines",
		CourseDuration:    "6 weeks",
		CompletionStatus:  Placeholder,
		CourseDescription: Placeholder,
		SkillsGained:      Placeholder,
		Badge: &Link{
			URL:      "https://drive.google.com/uc?export=download&id=ABCDEFGHIJKLMNOPQRSTUVWXY1234",
			Provider: "google-drive",
			Host:     "google.com",
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
}

func TestNewCertificateViewWithoutBadge(t *testing.T) {
	got := NewCertificateView(&domain.Certificate{SerialNumber: "X", StudentName: "S", CourseName: "C"}, nil)
	if got.Badge != nil {
		t.Fatalf("expected no badge link, got %+v", got.Badge)
	}
	if got.CourseDuration != Placeholder {
		t.Fatalf("expected placeholder duration, got %q", got.CourseDuration)
	}
}
