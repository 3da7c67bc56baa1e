package ui

import (
	"testing"
	"time"
)

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		name string
		in   int64 // seconds
		want string
	}{
		{"negative", -5, "now"},
		{"subsecond", 0, "now"},
		{"seconds", 12, "12s"},
		{"minutes", 61, "1m"},
		{"hours_only", 2*60*60 + 10, "2h"},
		{"hours_minutes", 2*60*60 + 3*60, "2h 3m"},
		{"days", 24 * 60 * 60, "1d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := humanizeDuration(time.Duration(tc.in) * time.Second)
			if got != tc.want {
				t.Fatalf("humanizeDuration(%d) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  ", 10); got != "" {
		t.Fatalf("truncate blank = %q, want empty", got)
	}
	if got := truncate("abcd", 2); got != "ab" {
		t.Fatalf("truncate limit<=3 = %q, want ab", got)
	}
	if got := truncate("Sparkle Wash", 9); got != "Sparkl..." {
		t.Fatalf("truncate = %q, want Sparkl...", got)
	}
	if got := truncate("Rửa xe Sài Gòn", 8); len([]rune(got)) != 8 {
		t.Fatalf("truncate counted bytes: %q", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Fatalf("truncate zero limit = %q, want empty", got)
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 4); got != "ab  " {
		t.Fatalf("padRight = %q, want %q", got, "ab  ")
	}
	if got := padRight("abcdef", 4); got != "abcdef" {
		t.Fatalf("padRight longer = %q", got)
	}
}

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		price    float64
		currency string
		want     string
	}{
		{120000, "VND", "120,000 VND"},
		{999, "VND", "999 VND"},
		{1234567, "", "1,234,567"},
		{-4500, "VND", "-4,500 VND"},
		{0, "VND", "0 VND"},
	}
	for _, tc := range cases {
		if got := formatPrice(tc.price, tc.currency); got != tc.want {
			t.Fatalf("formatPrice(%v, %q) = %q, want %q", tc.price, tc.currency, got, tc.want)
		}
	}
}

func TestFormatRating(t *testing.T) {
	if got := formatRating(0, 0); got != "no reviews" {
		t.Fatalf("formatRating no reviews = %q", got)
	}
	if got := formatRating(4.2, 18); got != "★★★★☆ 4.2 (18)" {
		t.Fatalf("formatRating = %q", got)
	}
	if got := formatRating(4.6, 3); got != "★★★★★ 4.6 (3)" {
		t.Fatalf("formatRating rounds = %q", got)
	}
}

func TestFormatDistance(t *testing.T) {
	if got := formatDistance(0.35); got != "350 m" {
		t.Fatalf("formatDistance metres = %q", got)
	}
	if got := formatDistance(12.34); got != "12.3 km" {
		t.Fatalf("formatDistance km = %q", got)
	}
}

func TestWrap(t *testing.T) {
	if got := wrap("   ", 20); got != nil {
		t.Fatalf("wrap blank = %#v, want nil", got)
	}
	got := wrap("quick rinse and full interior vacuum", 16)
	want := []string{"quick rinse and", "full interior", "vacuum"}
	if len(got) != len(want) {
		t.Fatalf("wrap = %#v, want %#v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("wrap[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
