package journal

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/lockstep/internal/sim"
)

// EngineVersion is stamped on every run.
const EngineVersion = "0.1.0"

// RunInfo describes one recorded run.
type RunInfo struct {
	ID        string
	StartedAt time.Time
	FixedStep time.Duration
	Version   string
}

// Run writes rows for one run. Obtain one from StartRun.
//
// Thread-safety: safe for concurrent use; the database serializes writes.
type Run struct {
	j    *Journal
	info RunInfo
	seq  *Sequencer
}

// StartRun inserts a run row with a fresh UUIDv7 id.
func (j *Journal) StartRun(ctx context.Context, startedAt time.Time, fixedStep time.Duration) (*Run, error) {
	info := RunInfo{
		ID:        uuid.Must(uuid.NewV7()).String(),
		StartedAt: startedAt,
		FixedStep: fixedStep,
		Version:   EngineVersion,
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at_unix, fixed_dt_ns, engine_version)
		VALUES (?, ?, ?, ?)
	`,
		info.ID,
		info.StartedAt.Unix(),
		int64(info.FixedStep),
		info.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	return &Run{j: j, info: info, seq: &Sequencer{}}, nil
}

// Info returns the run's metadata.
func (r *Run) Info() RunInfo {
	return r.info
}

// RecordSnapshot stores set under its tick. Recording the same tick twice
// keeps the first row.
func (r *Run) RecordSnapshot(ctx context.Context, set *sim.SnapshotSet) error {
	payload, err := EncodeSnapshot(set)
	if err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}

	_, err = r.j.db.ExecContext(ctx, `
		INSERT INTO snapshots (run_id, tick, objects, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, tick) DO NOTHING
	`,
		r.info.ID,
		int64(set.Tick),
		set.Len(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	return nil
}

// RecordEvent stores a lifecycle event and returns its sequence number.
func (r *Run) RecordEvent(ctx context.Context, frame uint64, kind, node string) (int64, error) {
	seq := r.seq.Next()
	_, err := r.j.db.ExecContext(ctx, `
		INSERT INTO lifecycle (run_id, seq, frame, kind, node)
		VALUES (?, ?, ?, ?, ?)
	`,
		r.info.ID,
		seq,
		int64(frame),
		kind,
		node,
	)
	if err != nil {
		return 0, fmt.Errorf("record event: %w", err)
	}
	return seq, nil
}

// EncodeSnapshot returns the canonical JSON form of set. Objects are
// listed in ascending id order.
func EncodeSnapshot(set *sim.SnapshotSet) ([]byte, error) {
	ids := make([]sim.BodyID, 0, set.Len())
	for id := range set.Objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	objects := make([]any, 0, len(ids))
	for _, id := range ids {
		o := set.Objects[id]
		objects = append(objects, map[string]any{
			"id": uint32(o.ID),
			"position": map[string]any{
				"x": o.Position.X,
				"y": o.Position.Y,
				"z": o.Position.Z,
			},
			"rotation": map[string]any{
				"w": o.Rotation.W,
				"x": o.Rotation.X,
				"y": o.Rotation.Y,
				"z": o.Rotation.Z,
			},
		})
	}

	return MarshalCanonical(map[string]any{
		"tick":    set.Tick,
		"objects": objects,
	})
}
