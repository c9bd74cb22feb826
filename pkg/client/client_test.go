package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lexledger/lexledger/pkg/client"
)

// fakeServer implements just enough of the HTTP API for SDK tests.
func fakeServer(t *testing.T) (*httptest.Server, *int) {
	t.Helper()
	tokenFetches := 0

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Secret string `json:"secret"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Secret != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid secret"}) //nolint:errcheck
			return
		}
		tokenFetches++
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"token":      "tok-123",
			"expires_at": time.Now().Add(time.Hour),
		})
	})
	mux.HandleFunc("/api/v1/amendments", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if r.Header.Get("Authorization") != "Bearer tok-123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"seq": 0, "hash": strings.Repeat("ab", 32), "prev_hash": strings.Repeat("0", 64),
				"timestamp": time.Now().UTC(),
			})
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
				"amendments": []map[string]any{{
					"seq": 0, "hash": "h", "prev_hash": "p",
					"timestamp": time.Now().UTC(),
					"amendment": map[string]string{"act_id": "ACT-1", "content": "x", "change_type": "substantive", "author": "a"},
				}},
				"total": 1,
			})
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/amendments/99", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "amendment not found"}) //nolint:errcheck
	})
	mux.HandleFunc("/api/v1/ledger/verify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"valid": true, "checked": 1}) //nolint:errcheck
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &tokenFetches
}

func TestSubmit_fetchesTokenOnce(t *testing.T) {
	srv, fetches := fakeServer(t)
	c, err := client.New(srv.URL, client.WithAdminSecret("s3cret"))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	a := client.Amendment{ActID: "ACT-1", Content: "x", ChangeType: "substantive", Author: "a"}
	for i := 0; i < 3; i++ {
		result, err := c.Submit(ctx, a, nil)
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if result.Hash == "" {
			t.Error("empty hash in submit result")
		}
	}
	if *fetches != 1 {
		t.Errorf("token fetches: got %d, want 1 (cached until expiry)", *fetches)
	}
}

func TestSubmit_wrongSecret(t *testing.T) {
	srv, _ := fakeServer(t)
	c, _ := client.New(srv.URL, client.WithAdminSecret("wrong"))

	_, err := c.Submit(context.Background(), client.Amendment{ActID: "A"}, nil)
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected token error, got %v", err)
	}
}

func TestList_decodesEntries(t *testing.T) {
	srv, _ := fakeServer(t)
	c, _ := client.New(srv.URL)

	entries, total, err := c.List(context.Background(), 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("total=%d len=%d", total, len(entries))
	}
	if entries[0].Amendment == nil || entries[0].Amendment.ActID != "ACT-1" {
		t.Errorf("amendment: %+v", entries[0].Amendment)
	}
}

func TestGet_notFound(t *testing.T) {
	srv, _ := fakeServer(t)
	c, _ := client.New(srv.URL)

	_, err := c.Get(context.Background(), 99)
	if !errors.Is(err, client.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestVerify_valid(t *testing.T) {
	srv, _ := fakeServer(t)
	c, _ := client.New(srv.URL)

	res, err := c.Verify(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Valid || res.Checked != 1 {
		t.Errorf("result: %+v", res)
	}
	if res.FirstBadSeq != -1 {
		t.Errorf("first bad seq on valid chain: %d", res.FirstBadSeq)
	}
}

func TestNew_rejectsEmptyBaseURL(t *testing.T) {
	if _, err := client.New(""); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
