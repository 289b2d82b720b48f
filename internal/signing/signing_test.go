package signing

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSigner(t *testing.T) {
	s := NewSigner([]byte("topsecret"))
	sig := s.Sign("admin", 1700000000)
	if len(sig) == 0 {
		t.Fatalf("expected signature")
	}
	if !s.Validate("admin", "1700000000", sig) {
		t.Fatalf("expected signature to validate")
	}
	if s.Validate("someone", "1700000000", sig) {
		t.Fatalf("expected validation to fail for wrong subject")
	}
	if s.Validate("admin", "42", sig) {
		t.Fatalf("expected validation to fail for wrong expiry")
	}
	if s.Validate("admin", "soon", sig) {
		t.Fatalf("expected validation to fail for non-numeric expiry")
	}
}

func TestIssueAndParse(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	s := NewSigner([]byte("topsecret"))
	s.now = func() time.Time { return now }

	token, expires := s.Issue("admin", time.Hour)
	if !expires.Equal(now.Add(time.Hour)) {
		t.Errorf("expires = %v", expires)
	}
	subject, err := s.Parse(token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if subject != "admin" {
		t.Errorf("subject = %q", subject)
	}

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	if _, err := s.Parse(token); !errors.Is(err, ErrExpired) {
		t.Errorf("Parse(expired) error = %v, want ErrExpired", err)
	}
}

func TestParseRejectsTampering(t *testing.T) {
	s := NewSigner([]byte("topsecret"))
	token, _ := s.Issue("admin", time.Hour)
	parts := strings.Split(token, ".")

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"empty", "", ErrMalformed},
		{"two parts", parts[0] + "." + parts[1], ErrMalformed},
		{"bad base64", "!!!." + parts[1] + "." + parts[2], ErrMalformed},
		{"bad expiry", parts[0] + ".x." + parts[2], ErrMalformed},
		{"extended expiry", parts[0] + ".9999999999." + parts[2], ErrSignature},
		{"other secret", func() string { tok, _ := NewSigner([]byte("other")).Issue("admin", time.Hour); return tok }(), ErrSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Parse(tt.token); !errors.Is(err, tt.want) {
				t.Errorf("Parse() error = %v, want %v", err, tt.want)
			}
		})
	}
}
