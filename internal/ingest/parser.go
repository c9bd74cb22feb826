// Package ingest turns raw legal-document XML into candidate amendments and
// feeds them to the ledger.
package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/lexledger/lexledger/internal/tracker/model"
)

// Entry is one parsed amendment plus its document-supplied timestamp. A zero
// Timestamp means the document carried no (parseable) date.
type Entry struct {
	Amendment model.Amendment
	Timestamp time.Time
}

// Document is a parsed legal act change document.
type Document struct {
	ActID      string
	Title      string
	Amendments []Entry
}

// xmlDocument mirrors the ISAP-style export format:
//
//	<LegalAct>
//	  <ActID>...</ActID>
//	  <Title>...</Title>
//	  <Amendments>
//	    <Amendment>
//	      <Version/><Content/><Author/><Date/><Type/><Summary/>
//	    </Amendment>
//	  </Amendments>
//	</LegalAct>
type xmlDocument struct {
	XMLName    xml.Name       `xml:"LegalAct"`
	ActID      string         `xml:"ActID"`
	Title      string         `xml:"Title"`
	Amendments []xmlAmendment `xml:"Amendments>Amendment"`
}

type xmlAmendment struct {
	Version string `xml:"Version"`
	Content string `xml:"Content"`
	Author  string `xml:"Author"`
	Date    string `xml:"Date"`
	Type    string `xml:"Type"`
	Summary string `xml:"Summary"`
}

// dateLayouts are tried in order when parsing <Date>.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Parse decodes one legal act document. Missing optional fields get the
// exporter's conventional defaults: type "substantive", author "Unknown".
func Parse(r io.Reader) (*Document, error) {
	var raw xmlDocument
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse legal act XML: %w", err)
	}

	doc := &Document{
		ActID: strings.TrimSpace(raw.ActID),
		Title: strings.TrimSpace(raw.Title),
	}
	if doc.ActID == "" {
		doc.ActID = "ACT-UNKNOWN"
	}
	if doc.Title == "" {
		doc.Title = "Unknown Legal Act"
	}

	for i, a := range raw.Amendments {
		changeType := model.ChangeType(strings.TrimSpace(a.Type))
		if changeType == "" {
			changeType = model.ChangeSubstantive
		}
		author := strings.TrimSpace(a.Author)
		if author == "" {
			author = "Unknown"
		}

		ts, err := parseDate(a.Date)
		if err != nil {
			return nil, fmt.Errorf("amendment %d: %w", i, err)
		}

		doc.Amendments = append(doc.Amendments, Entry{
			Amendment: model.Amendment{
				ActID:      doc.ActID,
				ActTitle:   doc.Title,
				Content:    strings.TrimSpace(a.Content),
				ChangeType: changeType,
				Author:     author,
				Summary:    strings.TrimSpace(a.Summary),
			},
			Timestamp: ts,
		})
	}
	return doc, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
