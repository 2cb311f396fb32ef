// Package checkpoint persists in-flight ticket runs so they can be resumed.
//
// A Checkpoint records the next stage a run will execute together with the
// serialized workflow state at that point. Stores are keyed by run ID, which
// is unique per run, so concurrent runs never share an entry.
//
// Implementations:
//   - MemoryStore: process-local map, the default
//   - FileStore: one JSON file per run under a base directory
//   - SQLiteStore: single table in a SQLite database
//
// Example usage:
//
//	store, err := checkpoint.NewSQLiteStore("checkpoints.db")
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	cp, err := store.Load(ctx, runID)
package checkpoint
