package utils

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Sup3r$ecret")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "Sup3r$ecret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestGenerateSlug(t *testing.T) {
	cases := map[string]string{
		"Introduction to Go":       "introduction-to-go",
		"Álgebra Linéaire 101":     "algebra-lineaire-101",
		"  C++ / Systems!  ":       "c-systems",
		"already-a-slug":           "already-a-slug",
		"Machine Learning: Basics": "machine-learning-basics",
	}
	for in, want := range cases {
		if got := GenerateSlug(in); got != want {
			t.Fatalf("GenerateSlug(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 7); got != 7 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("12", 7); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	if got := ParseIntDefault("nope", 7); got != 7 {
		t.Fatalf("expected default on garbage, got %d", got)
	}
}
