// Package simplify rewrites legal text into plain language so amendment
// summaries are readable by non-lawyers.
package simplify

import "strings"

// Summarizer produces a plain-language summary of legal text. RuleBased is
// the built-in implementation; an external model-backed rewriter can be
// plugged in behind the same interface.
type Summarizer interface {
	Simplify(text string) string
}

// maxSummaryLen caps summaries at a skimmable length; truncation happens on
// a word boundary.
const maxSummaryLen = 200

// replacement maps a legal term to its plain-language equivalent. The table
// is ordered — multi-word phrases come before their single-word prefixes so
// the longer match wins.
type replacement struct {
	legal, plain string
}

// Polish legal jargon dictionary, with a handful of English fallbacks for
// mixed-language documents.
var replacements = []replacement{
	{"niniejszym ustawą", "tą ustawą"},
	{"niezależnie od postanowień", "mimo przepisów"},
	{"niezależnie od", "mimo że"},
	{"zgodnie z artykułem", "według artykułu"},
	{"zgodnie z", "według"},
	{"w zakresie", "w granicach"},
	{"przed wejściem w życie", "zanim zacznie obowiązywać"},
	{"wchodzi w życie", "zaczyna obowiązywać"},
	{"powinien", "musi"},
	{"powinna", "musi"},
	{"powinno", "musi"},
	{"powinni", "muszą"},
	{"obowiązany", "zobowiązany"},
	{"obowiązana", "zobowiązana"},
	{"uprawniony", "ma prawo"},
	{"uprawniona", "ma prawo"},
	{"wspomniany wyżej", "wymieniony wyżej"},
	{"w którym", "gdzie"},
	{"w której", "gdzie"},
	{"następnie", "potem"},
	{"wówczas", "wtedy"},
	{"artykułu", "Art."},
	{"artykuł", "Art."},
	{"przepisy", "reguły"},
	{"przepis", "reguła"},
	{"ustawy", "praw"},
	{"ustawa", "prawo"},
	{"prawo do udziału", "może uczestniczyć"},
	{"prawo do", "może"},
	{"obowiązek", "musi"},
	{"odpowiedzialność", "odpowiada za"},
	{"grzywna", "kara pieniężna"},
	{"sankcja", "kara"},
	{"podatek", "opłata rządowa"},
	{"z wyjątkiem", "oprócz"},
	{"pod warunkiem", "jeśli"},
	{"osoba prawna", "organizacja"},
	{"osoba fizyczna", "osoba prywatna"},
	{"przysługuje prawo", "ma prawo"},
	{"przysługuje", "ma prawo"},
	{"upoważnia", "daje prawo"},
	{"zabrania się", "nie wolno"},
	{"zabrania", "nie pozwala"},
	{"zakazuje", "nie pozwala"},
	{"dopuszcza się", "można"},
	{"dopuszcza", "pozwala"},
	// English fallback
	{"notwithstanding", "mimo że"},
	{"pursuant to", "według"},
	{"aforementioned", "wymieniony wyżej"},
	{"hereby", "tą ustawą"},
	{"shall", "musi"},
	{"wherein", "gdzie"},
	{"thereof", "tego"},
}

// RuleBased is a dictionary-driven Summarizer. It needs no external service
// and is fully deterministic, which keeps ingestion reproducible.
type RuleBased struct{}

// NewRuleBased creates the dictionary-backed summarizer.
func NewRuleBased() *RuleBased {
	return &RuleBased{}
}

// Simplify implements Summarizer.
func (r *RuleBased) Simplify(text string) string {
	if strings.TrimSpace(text) == "" {
		return "No content"
	}

	simple := text
	for _, rep := range replacements {
		simple = strings.ReplaceAll(simple, rep.legal, rep.plain)
		if c := capitalize(rep.legal); c != rep.legal {
			simple = strings.ReplaceAll(simple, c, capitalize(rep.plain))
		}
	}

	// Normalize shouting headers.
	simple = strings.ReplaceAll(simple, "ARTYKUŁ", "Artykuł")
	simple = strings.ReplaceAll(simple, "USTAWA", "Ustawa")
	simple = strings.ReplaceAll(simple, "ARTICLE", "Artykuł")
	simple = strings.ReplaceAll(simple, "SECTION", "Część")

	return truncate(simple, maxSummaryLen)
}

func capitalize(s string) string {
	runes := []rune(s)
	if len(runes) == 0 {
		return s
	}
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}

// truncate cuts s at the last word boundary within max runes and appends an
// ellipsis.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	cut := string(runes[:max])
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
