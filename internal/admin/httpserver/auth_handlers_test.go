package httpserver

import "testing"

func TestSanitizeNextTarget(t *testing.T) {
	cases := []struct {
		base string
		raw  string
		want string
	}{
		{"/admin", "/admin/todos?page=2", "/admin/todos?page=2"},
		{"/admin", "/admin", "/admin"},
		{"/admin", "/other", ""},
		{"/admin", "/admin/../secret", ""},
		{"/admin", "https://evil.example.com/admin", ""},
		{"/admin", "//evil.example.com/admin", ""},
		{"/admin", `/admin\..\x`, ""},
		{"/", "/todos", "/todos"},
		{"/", "", ""},
	}
	for _, tc := range cases {
		if got := sanitizeNextTarget(tc.base, tc.raw); got != tc.want {
			t.Fatalf("sanitizeNextTarget(%q, %q) = %q, want %q", tc.base, tc.raw, got, tc.want)
		}
	}
}

func TestValidateSignup(t *testing.T) {
	if errs := validateSignup("山田", "yamada@example.com", "password1", "password1"); len(errs) != 0 {
		t.Fatalf("expected valid input, got %v", errs)
	}

	errs := validateSignup("山", "Yamada <yamada@example.com>", "pass", "pass")
	for _, field := range []string{"name", "email", "password"} {
		if errs[field] == "" {
			t.Fatalf("expected %s error, got %v", field, errs)
		}
	}
	if _, ok := errs["password_confirmation"]; ok {
		t.Fatalf("matching confirmation should pass: %v", errs)
	}

	errs = validateSignup("山田", "yamada@example.com", "password1", "password2")
	if len(errs) != 1 || errs["password_confirmation"] == "" {
		t.Fatalf("expected confirmation error only, got %v", errs)
	}
}

func TestParseCheckbox(t *testing.T) {
	for _, v := range []string{"true", "on", "1", " YES "} {
		if !parseCheckbox(v) {
			t.Fatalf("expected %q to be checked", v)
		}
	}
	for _, v := range []string{"", "false", "off"} {
		if parseCheckbox(v) {
			t.Fatalf("expected %q to be unchecked", v)
		}
	}
}
