package store

import (
	"context"
	"log"
	"time"

	"github.com/tanvi/stepflow/internal/observability"
)

// Pruner is the part of the archive the janitor needs.
type Pruner interface {
	PruneOlderThan(retention time.Duration) (int64, error)
}

// Janitor sweeps the render archive in the background, deleting rows past
// the retention window.
type Janitor struct {
	Archive   Pruner
	Interval  time.Duration
	Retention time.Duration
	Logger    *observability.Logger
}

func NewJanitor(archive Pruner, interval, retention time.Duration, logger *observability.Logger) *Janitor {
	return &Janitor{
		Archive:   archive,
		Interval:  interval,
		Retention: retention,
		Logger:    logger,
	}
}

func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	log.Println("Archive janitor started...")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *Janitor) sweep() {
	observability.SetStatus(observability.RoleArchiving, "prune")
	defer observability.SetStatus(observability.RoleIdle, "")

	pruned, err := j.Archive.PruneOlderThan(j.Retention)
	if err != nil {
		log.Printf("Error pruning render archive: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("Pruned %d archived renders older than %s", pruned, j.Retention)
		if j.Logger != nil {
			j.Logger.Log(observability.Event{
				Type: observability.EventTypeArchive,
				Data: map[string]any{"pruned": pruned},
			})
		}
	}
}
