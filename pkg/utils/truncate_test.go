package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Fatalf("short string changed: %q", got)
	}
	if got := Truncate("hello", 3); got != "hel" {
		t.Fatalf("ascii = %q", got)
	}
	// "é" is two bytes; cutting at 2 would split it.
	if got := Truncate("aé", 2); got != "a" {
		t.Fatalf("split rune = %q", got)
	}
	yen := strings.Repeat("円", 100)
	for n := 0; n < 30; n++ {
		got := Truncate(yen, n)
		if !utf8.ValidString(got) || len(got) > n {
			t.Fatalf("Truncate(_, %d) = %q", n, got)
		}
	}
	if got := Truncate("abc", 0); got != "" {
		t.Fatalf("zero limit = %q", got)
	}
}
