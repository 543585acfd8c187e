package checksum

import "testing"

func TestSum(t *testing.T) {
	// SHA-256 of the empty input.
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
	if String("abc") != Sum([]byte("abc")) {
		t.Error("String and Sum disagree")
	}
}

func TestETagRoundTrip(t *testing.T) {
	sum := String("body")
	tests := []struct {
		in   string
		want string
	}{
		{ETag(sum), sum},
		{sum, sum},
		{"W/" + ETag(sum), sum},
		{" " + ETag(sum) + " ", sum},
		{"*", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FromETag(tt.in); got != tt.want {
			t.Errorf("FromETag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
