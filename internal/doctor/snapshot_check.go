package doctor

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/thoreinstein/dotsnapshot/internal/errors"
	"github.com/thoreinstein/dotsnapshot/internal/snapshot"
)

// SnapshotCheck verifies the checksum of the most recent snapshot.
type SnapshotCheck struct {
	store *snapshot.Manager
}

var _ Check = (*SnapshotCheck)(nil)

// NewSnapshotCheck creates a check over the snapshots in store.
func NewSnapshotCheck(store *snapshot.Manager) *SnapshotCheck {
	return &SnapshotCheck{store: store}
}

// Name returns the unique identifier for this check.
func (c *SnapshotCheck) Name() string {
	return "latest-snapshot"
}

// Category returns the grouping for this check.
func (c *SnapshotCheck) Category() string {
	return "snapshots"
}

// Run verifies the latest snapshot.
func (c *SnapshotCheck) Run(context.Context) *CheckResult {
	result := &CheckResult{
		Name:     c.Name(),
		Category: c.Category(),
	}

	infos, err := c.store.List()
	if err != nil {
		result.Status = SeverityError
		result.Message = fmt.Sprintf("cannot list snapshots in %s: %v", c.store.Root(), err)
		return result
	}
	if len(infos) == 0 {
		result.Status = SeverityInfo
		result.Message = "no snapshots in " + c.store.Root()
		result.FixHint = "run: dotsnapshot snapshot"
		return result
	}

	latest := infos[0]
	result.Details = map[string]any{
		"name":      latest.Name,
		"path":      latest.Path,
		"plugins":   latest.PluginCount,
		"size":      humanize.Bytes(uint64(max(latest.SizeBytes, 0))),
		"snapshots": len(infos),
	}

	err = c.store.Verify(latest.Path)
	switch {
	case err == nil:
		result.Status = SeverityPass
		result.Message = fmt.Sprintf("%s verified (%s)", latest.Name, humanize.Time(latest.CreatedAt))
	case errors.Is(err, snapshot.ErrChecksumMismatch):
		result.Status = SeverityError
		result.Message = latest.Name + " changed since it was taken"
		result.FixHint = "take a fresh snapshot: dotsnapshot snapshot"
	case errors.Is(err, errors.ErrValidation):
		result.Status = SeverityWarning
		result.Message = err.Error()
		result.FixHint = "the snapshot run was interrupted; take a fresh snapshot"
	default:
		result.Status = SeverityError
		result.Message = err.Error()
	}
	return result
}
