package metrics

import (
	"context"
	"time"
)

// Snapshot is one zone's state after a completed tick.
type Snapshot struct {
	Timestamp   time.Time
	Zone        string
	Temperature float64
	Level       int
	Step        int
	AllStandby  bool
}

// Collector records control-loop snapshots.
type Collector interface {
	Record(ctx context.Context, snapshot *Snapshot) error
	Close() error
}

// Repository persists snapshots.
type Repository interface {
	Record(snapshot *Snapshot) error
	Close() error
}
