package asset

import (
	"strings"
	"testing"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"photo.png", "photo.png"},
		{"my photo.png", "my_20photo.png"},
		{"a@b*c_d+e-f.png", "a@b*c_d+e-f.png"},
		{"100%.jpg", "100_25.jpg"},
		{"é.png", "_E9.png"},
		{"截图.png", "_u622A_u56FE.png"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := CanonicalName(tt.in); got != tt.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalName_Bound(t *testing.T) {
	name := CanonicalName(strings.Repeat("x", 80) + ".png")
	if len(name) > MaxNameLen {
		t.Fatalf("len = %d", len(name))
	}
	if name != strings.Repeat("x", 31)+".png" {
		t.Errorf("name = %q", name)
	}

	// Exactly at the bound is left alone.
	exact := strings.Repeat("y", 46) + ".png"
	if got := CanonicalName(exact); got != exact {
		t.Errorf("got %q", got)
	}
}

func TestStampedName(t *testing.T) {
	if got := StampedName("photo.png", 1700000000000); got != "photo1700000000000.png" {
		t.Errorf("got %q", got)
	}
	long := StampedName(strings.Repeat("z", 45)+".png", 1700000000000)
	if len(long) > MaxNameLen || !strings.HasSuffix(long, "1700000000000.png") {
		t.Errorf("got %q (%d)", long, len(long))
	}
}
