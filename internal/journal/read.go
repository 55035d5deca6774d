package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/lockstep/internal/sim"
)

// SnapshotRecord is a stored snapshot.
type SnapshotRecord struct {
	RunID   string
	Tick    uint64
	Objects int
	Payload []byte
}

// Decode parses the payload back into a SnapshotSet.
func (r SnapshotRecord) Decode() (sim.SnapshotSet, error) {
	var wire struct {
		Tick    uint64            `json:"tick"`
		Objects []sim.ObjectState `json:"objects"`
	}
	if err := json.Unmarshal(r.Payload, &wire); err != nil {
		return sim.SnapshotSet{}, fmt.Errorf("decode snapshot %d: %w", r.Tick, err)
	}

	set := sim.NewSnapshotSet()
	set.Tick = wire.Tick
	for _, o := range wire.Objects {
		set.Objects[o.ID] = o
	}
	return set, nil
}

// LifecycleRecord is a stored lifecycle event.
type LifecycleRecord struct {
	RunID string
	Seq   int64
	Frame uint64
	Kind  string
	Node  string
}

// Runs returns every run, oldest first.
func (j *Journal) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at_unix, fixed_dt_ns, engine_version
		FROM runs
		ORDER BY started_at_unix ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunInfo{}
	for rows.Next() {
		var (
			info    RunInfo
			started int64
			dt      int64
		)
		if err := rows.Scan(&info.ID, &started, &dt, &info.Version); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		info.StartedAt = time.Unix(started, 0)
		info.FixedStep = time.Duration(dt)
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// LatestRun returns the most recent run's id, or "" when the journal is
// empty.
func (j *Journal) LatestRun(ctx context.Context) (string, error) {
	runs, err := j.Runs(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", nil
	}
	return runs[len(runs)-1].ID, nil
}

// Snapshots returns a run's snapshots in tick order.
func (j *Journal) Snapshots(ctx context.Context, runID string) ([]SnapshotRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, tick, objects, payload
		FROM snapshots
		WHERE run_id = ?
		ORDER BY tick ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	records := []SnapshotRecord{}
	for rows.Next() {
		var (
			rec     SnapshotRecord
			tick    int64
			payload string
		)
		if err := rows.Scan(&rec.RunID, &tick, &rec.Objects, &payload); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		rec.Tick = uint64(tick)
		rec.Payload = []byte(payload)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return records, nil
}

// Lifecycle returns a run's lifecycle events in seq order.
func (j *Journal) Lifecycle(ctx context.Context, runID string) ([]LifecycleRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, seq, frame, kind, node
		FROM lifecycle
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query lifecycle: %w", err)
	}
	defer rows.Close()

	records := []LifecycleRecord{}
	for rows.Next() {
		var (
			rec   LifecycleRecord
			frame int64
		)
		if err := rows.Scan(&rec.RunID, &rec.Seq, &frame, &rec.Kind, &rec.Node); err != nil {
			return nil, fmt.Errorf("scan lifecycle: %w", err)
		}
		rec.Frame = uint64(frame)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lifecycle: %w", err)
	}
	return records, nil
}
