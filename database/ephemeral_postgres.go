package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/stapelberg/postgrestest"
)

// startEphemeralPostgres starts a throwaway PostgreSQL server with one fresh
// database. The server is removed again by BunDB.Close.
func startEphemeralPostgres(ctx context.Context) (*sql.DB, *postgrestest.Server, error) {
	Logger.Info("Starting ephemeral PostgreSQL server...")

	pgt, err := postgrestest.Start(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start ephemeral postgres: %w", err)
	}

	dsn, err := pgt.CreateDatabase(ctx)
	if err != nil {
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to create pdfcanvas database: %w", err)
	}
	Logger.Info("Created ephemeral database", "dsn", dsn)

	// postgrestest hands out lib/pq style connection strings
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to open pdfcanvas database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		pgt.Cleanup()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	Logger.Info("Connected to ephemeral PostgreSQL database successfully")
	return db, pgt, nil
}
