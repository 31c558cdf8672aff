package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alanyoungcy/fixedyield/internal/domain"
)

const (
	snapshotPrefix  = "snapshots/"
	archiveLockKey  = "archive:snapshot"
	multipartAbove  = 8 << 20
	defaultLockHold = 5 * time.Minute
)

// SnapshotArchiver writes derived position lists to object storage and reads
// back a day of history.
type SnapshotArchiver struct {
	writer   domain.BlobWriter
	reader   domain.BlobReader
	locks    domain.LockManager
	audit    domain.AuditStore
	lockHold time.Duration
	logger   *slog.Logger
}

// ArchiverConfig wires a SnapshotArchiver. Locks and Audit are optional.
type ArchiverConfig struct {
	Writer domain.BlobWriter
	Reader domain.BlobReader
	Locks  domain.LockManager
	Audit  domain.AuditStore
	// LockHold is how long the archive lock is held, normally the archive
	// interval, so one replica writes per interval.
	LockHold time.Duration
	Logger   *slog.Logger
}

// NewSnapshotArchiver creates a SnapshotArchiver.
func NewSnapshotArchiver(cfg ArchiverConfig) *SnapshotArchiver {
	hold := cfg.LockHold
	if hold <= 0 {
		hold = defaultLockHold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotArchiver{
		writer:   cfg.Writer,
		reader:   cfg.Reader,
		locks:    cfg.Locks,
		audit:    cfg.Audit,
		lockHold: hold,
		logger:   logger.With(slog.String("component", "snapshot_archiver")),
	}
}

// SnapshotPath returns the object key for a snapshot taken at at.
//
//	snapshots/2025/01/31/1738281600.json
func SnapshotPath(at time.Time) string {
	return dayPrefix(at) + fmt.Sprintf("%d.json", at.Unix())
}

func dayPrefix(day time.Time) string {
	return snapshotPrefix + day.UTC().Format("2006/01/02") + "/"
}

// Archive stores snap. It returns false without writing when another replica
// holds the archive lock for the current interval or the snapshot is already
// stored.
func (a *SnapshotArchiver) Archive(ctx context.Context, snap domain.PositionSnapshot) (bool, error) {
	if a.locks != nil {
		// The lock is left to expire so the interval stays claimed.
		if _, err := a.locks.Acquire(ctx, archiveLockKey, a.lockHold); err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				a.logger.DebugContext(ctx, "archive skipped, lock held elsewhere")
				return false, nil
			}
			return false, fmt.Errorf("s3blob: acquire archive lock: %w", err)
		}
	}

	path := SnapshotPath(snap.ComputedAt)
	if a.reader != nil {
		exists, err := a.reader.Exists(ctx, path)
		if err != nil {
			return false, fmt.Errorf("s3blob: check snapshot %s: %w", path, err)
		}
		if exists {
			a.logger.DebugContext(ctx, "archive skipped, snapshot already stored", slog.String("path", path))
			return false, nil
		}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return false, fmt.Errorf("s3blob: marshal snapshot: %w", err)
	}

	if len(data) > multipartAbove {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(data), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return false, fmt.Errorf("s3blob: archive snapshot: %w", err)
	}

	a.logger.InfoContext(ctx, "snapshot archived",
		slog.String("path", path),
		slog.Int("positions", len(snap.Positions)),
	)
	if a.audit != nil {
		if err := a.audit.Log(ctx, "snapshot.archived", map[string]any{
			"path":      path,
			"positions": len(snap.Positions),
		}); err != nil {
			a.logger.WarnContext(ctx, "audit snapshot failed", slog.String("error", err.Error()))
		}
	}
	return true, nil
}

// History loads every snapshot archived on the UTC day of day, oldest first.
func (a *SnapshotArchiver) History(ctx context.Context, day time.Time) ([]domain.PositionSnapshot, error) {
	infos, err := a.reader.List(ctx, dayPrefix(day))
	if err != nil {
		return nil, fmt.Errorf("s3blob: list history: %w", err)
	}

	paths := make([]string, 0, len(infos))
	for _, info := range infos {
		if strings.HasSuffix(info.Path, ".json") {
			paths = append(paths, info.Path)
		}
	}
	sort.Strings(paths)

	out := make([]domain.PositionSnapshot, 0, len(paths))
	for _, p := range paths {
		snap, err := a.load(ctx, p)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ComputedAt.Before(out[j].ComputedAt) })
	return out, nil
}

func (a *SnapshotArchiver) load(ctx context.Context, path string) (domain.PositionSnapshot, error) {
	body, err := a.reader.Get(ctx, path)
	if err != nil {
		return domain.PositionSnapshot{}, fmt.Errorf("s3blob: load snapshot: %w", err)
	}
	defer body.Close()

	var snap domain.PositionSnapshot
	if err := json.NewDecoder(body).Decode(&snap); err != nil {
		return domain.PositionSnapshot{}, fmt.Errorf("s3blob: decode snapshot %s: %w", path, err)
	}
	return snap, nil
}
