package scaffold

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/HendryAvila/phasegate/internal/ledger"
)

// Mover relocates feature folders between the active and removed roots.
type Mover interface {
	MoveToRemoved(ctx context.Context, layout ledger.Layout, id string) (string, error)
	MoveToActive(ctx context.Context, layout ledger.Layout, id string) (string, error)
}

// FolderMover implements Mover with os.Rename. Contents move verbatim.
type FolderMover struct{}

var _ Mover = FolderMover{}

// MoveToRemoved moves <active>/<id> to <removed>/<id> and returns the new path.
func (FolderMover) MoveToRemoved(ctx context.Context, layout ledger.Layout, id string) (string, error) {
	return move(ctx, layout.FeaturePath(id), layout.RemovedFeaturePath(id), layout.RemovedPath())
}

// MoveToActive moves <removed>/<id> back to <active>/<id>.
func (FolderMover) MoveToActive(ctx context.Context, layout ledger.Layout, id string) (string, error) {
	return move(ctx, layout.RemovedFeaturePath(id), layout.FeaturePath(id), layout.ActivePath())
}

func move(ctx context.Context, src, dst, dstRoot string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrFolderMissing, src)
		}
		return "", ledger.FSError(err)
	}
	if _, err := os.Lstat(dst); err == nil {
		return "", fmt.Errorf("%w: %s", ErrFolderExists, dst)
	}
	if err := os.MkdirAll(dstRoot, 0o755); err != nil {
		return "", ledger.FSError(fmt.Errorf("creating %s: %w", dstRoot, err))
	}
	if err := os.Rename(src, dst); err != nil {
		return "", ledger.FSError(fmt.Errorf("moving %s: %w", src, err))
	}
	return dst, nil
}
