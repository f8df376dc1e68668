// Package session persists finished agent runs as transcripts in SQLite.
//
// Invariants:
// - A transcript is written in a single transaction: either the run row and
//   all of its messages are stored, or nothing is.
// - Run ids are validated before they reach a query.
// - Messages keep the order in which the run produced them.
//
// Usage:
//
//	store, _ := session.Open("/tmp/warden/transcripts.db")
//	defer store.Close()
//	_ = store.Save(ctx, transcript)
//	runs, _ := store.List(ctx, 10)
//	_ = runs
package session
