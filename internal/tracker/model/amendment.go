// Package model holds the amendment domain types shared by the service,
// ingestion, and HTTP layers.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ChangeType distinguishes amendments that alter the substance of an act
// from purely editorial corrections.
type ChangeType string

const (
	ChangeSubstantive ChangeType = "substantive"
	ChangeEditorial   ChangeType = "editorial"
)

// Valid reports whether the change type is one of the known values.
func (c ChangeType) Valid() bool {
	return c == ChangeSubstantive || c == ChangeEditorial
}

var (
	ErrContentRequired = errors.New("amendment content is required")
	ErrAuthorRequired  = errors.New("amendment author is required")
	ErrActIDRequired   = errors.New("act identifier is required")
)

// Amendment describes one change to a legal act. The ledger treats its
// encoded form as opaque bytes; this structure is the ingestion/API layer's
// concern, not the engine's.
type Amendment struct {
	ActID      string     `json:"act_id"`
	ActTitle   string     `json:"act_title,omitempty"`
	Content    string     `json:"content"`
	ChangeType ChangeType `json:"change_type"`
	Author     string     `json:"author"`
	Summary    string     `json:"summary,omitempty"`
}

// Validate checks the fields a record must carry before it can be appended.
func (a *Amendment) Validate() error {
	if strings.TrimSpace(a.ActID) == "" {
		return ErrActIDRequired
	}
	if strings.TrimSpace(a.Content) == "" {
		return ErrContentRequired
	}
	if strings.TrimSpace(a.Author) == "" {
		return ErrAuthorRequired
	}
	if !a.ChangeType.Valid() {
		return fmt.Errorf("change type must be %q or %q, got %q",
			ChangeSubstantive, ChangeEditorial, a.ChangeType)
	}
	return nil
}

// EncodePayload produces the canonical byte encoding fed to the ledger's
// hash computation. Struct marshalling emits fields in declaration order,
// so the encoding is deterministic: two equal amendments always produce
// byte-identical payloads.
func (a *Amendment) EncodePayload() ([]byte, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode amendment payload: %w", err)
	}
	return b, nil
}

// DecodePayload parses a payload previously produced by EncodePayload.
func DecodePayload(b []byte) (*Amendment, error) {
	var a Amendment
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode amendment payload: %w", err)
	}
	return &a, nil
}
