// Package client is the LexLedger Go SDK.
//
// It wraps the LexLedger HTTP API: reading the amendment history, verifying
// the hash chain, and (with an admin secret) appending amendments and
// ingesting legal act XML documents.
//
// # Read-only use
//
// Reading the ledger requires no credentials:
//
//	c, _ := client.New("http://localhost:8080")
//	entries, total, err := c.List(ctx, 0, 20)
//	res, err := c.Verify(ctx, false)
//
// # Administrative use
//
// Mutating calls need a bearer token. Pass the admin secret and the client
// exchanges it for a token on demand, refreshing before expiry:
//
//	c, _ := client.New("http://localhost:8080",
//	    client.WithAdminSecret(os.Getenv("LEXLEDGER_ADMIN_SECRET")),
//	)
//	result, err := c.Submit(ctx, client.Amendment{
//	    ActID:      "ACT-2024-001",
//	    Content:    "Artykuł 5 otrzymuje brzmienie ...",
//	    ChangeType: "substantive",
//	    Author:     "Sejm RP",
//	}, nil) // nil timestamp: the server assigns the time
//
// A pre-obtained token can be attached directly with WithToken; it is never
// auto-refreshed.
package client
