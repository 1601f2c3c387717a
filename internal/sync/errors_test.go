package sync

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflictErrorClassification(t *testing.T) {
	push := &ConflictError{Collection: "roads", Op: "push", State: Diverged,
		LocalVersion: "1.0.1", RemoteVersion: "1.0.2"}
	assert.ErrorIs(t, push, ErrPushConflict)
	assert.NotErrorIs(t, push, ErrPullConflict)
	assert.NotErrorIs(t, push, ErrUnrelatedHistories)
	assert.Contains(t, push.Error(), "roads")
	assert.Contains(t, push.Error(), "diverged")

	pull := &ConflictError{Collection: "roads", Op: "pull", State: Diverged, Unrelated: true}
	assert.ErrorIs(t, pull, ErrPullConflict)
	assert.ErrorIs(t, pull, ErrUnrelatedHistories)
	assert.Contains(t, pull.Error(), "no common version")
	assert.Contains(t, pull.Error(), "none", "empty version pointers read as none")
}

func TestDirtyErrorClassification(t *testing.T) {
	err := &DirtyError{Collection: "roads", Files: []string{"a.parquet", "b.tif"}}
	assert.ErrorIs(t, err, ErrUncommittedChanges)
	assert.Contains(t, err.Error(), "2 uncommitted")
	assert.Contains(t, err.Error(), "a.parquet")

	wrapped := errors.Join(errors.New("outer"), err)
	assert.ErrorIs(t, wrapped, ErrUncommittedChanges)
}
