package simplify_test

import (
	"strings"
	"testing"

	"github.com/lexledger/lexledger/internal/simplify"
)

func TestSimplify_replacesLegalJargon(t *testing.T) {
	s := simplify.NewRuleBased()

	out := s.Simplify("Artykuł 1: Niniejszym ustawą osoby powinni mieć prawo.")
	if !strings.Contains(out, "muszą") && !strings.Contains(out, "musi") {
		t.Errorf("modal verb not simplified: %q", out)
	}

	out = s.Simplify("Każda osoba prawna odpowiada zgodnie z przepisami.")
	if !strings.Contains(out, "organizacja") {
		t.Errorf("'osoba prawna' not simplified: %q", out)
	}
	if !strings.Contains(out, "według") {
		t.Errorf("'zgodnie z' not simplified: %q", out)
	}
}

func TestSimplify_capitalizedVariants(t *testing.T) {
	s := simplify.NewRuleBased()

	out := s.Simplify("Powinien zapłacić grzywna.")
	if !strings.Contains(out, "Musi") {
		t.Errorf("capitalized term not simplified: %q", out)
	}
}

func TestSimplify_englishFallback(t *testing.T) {
	s := simplify.NewRuleBased()

	out := s.Simplify("The operator shall notify the registry, notwithstanding prior notice.")
	if !strings.Contains(out, "musi") || !strings.Contains(out, "mimo że") {
		t.Errorf("english fallback terms not applied: %q", out)
	}
}

func TestSimplify_truncatesOnWordBoundary(t *testing.T) {
	s := simplify.NewRuleBased()

	out := s.Simplify(strings.Repeat("słowo ", 100))
	if len([]rune(out)) > 204 { // 200 + ellipsis
		t.Errorf("summary too long: %d runes", len([]rune(out)))
	}
	if !strings.HasSuffix(out, "...") {
		t.Errorf("truncated summary missing ellipsis: %q", out)
	}
	if strings.HasSuffix(strings.TrimSuffix(out, "..."), " ") {
		t.Errorf("truncation left a dangling space: %q", out)
	}
}

func TestSimplify_emptyInput(t *testing.T) {
	s := simplify.NewRuleBased()
	if got := s.Simplify("   "); got != "No content" {
		t.Errorf("blank input: got %q", got)
	}
}

func TestSimplify_deterministic(t *testing.T) {
	s := simplify.NewRuleBased()
	in := "Zgodnie z artykułem 5 osoba fizyczna powinna zapłacić podatek."
	if s.Simplify(in) != s.Simplify(in) {
		t.Error("simplification must be deterministic")
	}
}
