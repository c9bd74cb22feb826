package model_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/lexledger/lexledger/internal/tracker/model"
)

func validAmendment() model.Amendment {
	return model.Amendment{
		ActID:      "ACT-001",
		ActTitle:   "Kodeks cywilny",
		Content:    "Artykuł 1: Osoby fizyczne mają prawo do ochrony danych osobowych.",
		ChangeType: model.ChangeSubstantive,
		Author:     "Legislator A",
		Summary:    "Osoby prywatne mają prawo do ochrony danych.",
	}
}

func TestValidate(t *testing.T) {
	a := validAmendment()
	if err := a.Validate(); err != nil {
		t.Fatalf("valid amendment rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*model.Amendment)
		want   error
	}{
		{"empty content", func(a *model.Amendment) { a.Content = "  " }, model.ErrContentRequired},
		{"empty author", func(a *model.Amendment) { a.Author = "" }, model.ErrAuthorRequired},
		{"empty act id", func(a *model.Amendment) { a.ActID = "" }, model.ErrActIDRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := validAmendment()
			tc.mutate(&a)
			if err := a.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}

	a = validAmendment()
	a.ChangeType = "cosmetic"
	if err := a.Validate(); err == nil {
		t.Error("unknown change type accepted")
	}
}

func TestEncodePayload_deterministicRoundTrip(t *testing.T) {
	a := validAmendment()

	p1, err := a.EncodePayload()
	if err != nil {
		t.Fatal(err)
	}
	p2, err := a.EncodePayload()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(p1, p2) {
		t.Error("payload encoding is not deterministic")
	}

	decoded, err := model.DecodePayload(p1)
	if err != nil {
		t.Fatal(err)
	}
	if *decoded != a {
		t.Errorf("round trip mismatch: got %+v, want %+v", *decoded, a)
	}
}
