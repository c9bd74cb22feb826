package main

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncate_keepsRunesIntact(t *testing.T) {
	// Polish diacritics are multi-byte; cutting on bytes would emit mojibake.
	long := strings.Repeat("ą", 80)
	out := truncate(long, 60)

	if !utf8.ValidString(out) {
		t.Fatalf("truncate produced invalid UTF-8: %q", out)
	}
	if want := strings.Repeat("ą", 57) + "..."; out != want {
		t.Errorf("got %q, want %q", out, want)
	}

	if short := truncate("krótki", 60); short != "krótki" {
		t.Errorf("short string altered: %q", short)
	}
}
