package driver

import "testing"

func TestRoster_CanonicalRecruiter(t *testing.T) {
	t.Parallel()

	r := DefaultRoster()
	tests := []struct{ raw, want string }{
		{"Zoe", "Zoe"},
		{"  emily ", "Emily"},
		{"VICTORIA", "Victoria"},
		{"ＺＯＥ", "Zoe"},
		{"ｍｅｌｉｓｓａ", "Melissa"},
	}
	for _, tt := range tests {
		got, ok := r.CanonicalRecruiter(tt.raw)
		if !ok || got != tt.want {
			t.Errorf("CanonicalRecruiter(%q) = %q, %v; want %q", tt.raw, got, ok, tt.want)
		}
	}

	if _, ok := r.CanonicalRecruiter("Unknown"); ok {
		t.Error("expected unknown recruiter to be rejected")
	}
	if _, ok := r.CanonicalSource(" "); ok {
		t.Error("expected blank source to be rejected")
	}
	if got, ok := r.CanonicalSource("ｒｅｆｅｒｒａｌ"); !ok || got != "Referral" {
		t.Errorf("unexpected source match: %q, %v", got, ok)
	}
}
