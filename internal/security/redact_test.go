package security

import (
	"strings"
	"testing"
)

func TestMaskCredential(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"abcd", "****"},
		{"abcdef", "ab****"},
		{"tok_1234567890abcdef", "tok_************cdef"},
	}
	for _, tt := range tests {
		if got := MaskCredential(tt.in); got != tt.want {
			t.Errorf("MaskCredential(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRedactBearerHeader(t *testing.T) {
	in := `401 response: {"error": "invalid header Bearer sk_live_abcdef123456"}`
	out := Redact(in)
	if strings.Contains(out, "sk_live_abcdef123456") {
		t.Errorf("token survived redaction: %s", out)
	}
	if !strings.Contains(out, "Bearer ") {
		t.Errorf("redaction mangled surrounding text: %s", out)
	}
}

func TestRedactKeyValueForms(t *testing.T) {
	for _, in := range []string{
		`token=tok_1234567890abcdef`,
		`"api_key": "tok_1234567890abcdef"`,
		`password: 'tok_1234567890abcdef'`,
	} {
		out := Redact(in)
		if strings.Contains(out, "tok_1234567890abcdef") {
			t.Errorf("Redact(%q) = %q, secret survived", in, out)
		}
	}
}

func TestRedactLeavesPlainTextAlone(t *testing.T) {
	in := "trend verdict PROCEED for EURUSD at 1.0850"
	if got := Redact(in); got != in {
		t.Errorf("Redact changed benign text: %q", got)
	}
}
