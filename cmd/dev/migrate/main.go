package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Hariprasath006/Campus-Resource-Management/pkg/config"
	"github.com/Hariprasath006/Campus-Resource-Management/pkg/db"
)

func main() {
	steps := flag.Int("steps", 0, "number of migrations to apply (negative rolls back); 0 applies all pending")
	flag.Parse()

	cfg := config.Load()
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "file://migrations"
	}

	// Uses DIRECT_URL when set, so migrations bypass a transaction pooler.
	st, err := db.MigrateSteps(cfg.MigrationsPath, cfg, *steps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		os.Exit(1)
	}
	if st.Dirty {
		fmt.Fprintf(os.Stderr, "schema version %d is dirty; fix it by hand before migrating again\n", st.Version)
		os.Exit(1)
	}

	// Check the runtime connection too (DATABASE_URL if set). DSNs are not
	// printed.
	pool, err := db.Open(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "runtime db open failed: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	var tables int
	const q = `SELECT count(*) FROM information_schema.tables WHERE table_name IN ('resources', 'bookings', 'booking_audit')`
	if err := pool.QueryRow(context.Background(), q).Scan(&tables); err != nil {
		fmt.Fprintf(os.Stderr, "schema check failed: %v\n", err)
		os.Exit(1)
	}

	if st.Changed {
		fmt.Printf("migrated to version %d (%d/3 tables present)\n", st.Version, tables)
		return
	}
	fmt.Printf("schema already at version %d (%d/3 tables present)\n", st.Version, tables)
}
