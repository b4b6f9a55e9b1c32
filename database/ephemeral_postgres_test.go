package database

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/drummonds/pdfcanvas/config"
	"github.com/drummonds/pdfcanvas/engine/codec"
	"github.com/drummonds/pdfcanvas/engine/host"
	"github.com/drummonds/pdfcanvas/engine/layout"
)

// TestEphemeralPostgres runs the repository against a throwaway PostgreSQL server
func TestEphemeralPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping ephemeral PostgreSQL test in short mode")
	}

	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	db, err := NewRepository(config.ServerConfig{DatabaseType: "ephemeral"})
	if err != nil {
		t.Fatalf("Failed to start ephemeral postgres: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	t.Log("Ephemeral PostgreSQL server started successfully!")

	job, err := db.CreateJob(JobTypeSession, "ephemeral")
	if err != nil {
		t.Fatalf("Failed to create job: %v", err)
	}
	if err := db.UpdateJobStatus(job.ID, JobStatusCancelled, "cleared"); err != nil {
		t.Fatalf("Failed to update job: %v", err)
	}
	got, err := db.GetJob(job.ID)
	if err != nil || got.Status != JobStatusCancelled {
		t.Fatalf("Expected cancelled job, got %+v (%v)", got, err)
	}

	c := host.NewController(db.Surface(), 0)
	for i, w := range []float64{200, 300} {
		msg := channelInsert(codec.Encode(testPNG(t, int(w), 10), codec.Binary), w, 10, i)
		if _, err := c.OnPayload(ctx, msg); err != nil {
			t.Fatalf("Page %d: %v", i, err)
		}
	}
	drawables, err := db.Surface().Drawables(ctx)
	if err != nil {
		t.Fatalf("Failed to list drawables: %v", err)
	}
	if len(drawables) != 2 || drawables[1].X != 250 {
		t.Errorf("Unexpected drawables %+v", drawables)
	}
	if center, _ := db.Surface().ViewportCenter(ctx); center != (layout.Point{}) {
		t.Errorf("Expected default centre, got %+v", center)
	}
}
