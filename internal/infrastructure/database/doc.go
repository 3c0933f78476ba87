// Package database provides SQLite connectivity and schema migrations for
// Gray Logic Remote.
//
// The database holds gateway profiles, the user's selected entities and
// tab assignments. Entity state itself is never persisted: the gateway is
// the source of truth.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/remote.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
