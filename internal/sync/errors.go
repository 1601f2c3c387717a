package sync

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPushConflict       = errors.New("push conflict")
	ErrPullConflict       = errors.New("pull conflict")
	ErrUnrelatedHistories = errors.New("unrelated histories")
	ErrUncommittedChanges = errors.New("uncommitted local changes")
)

// ConflictError reports a push or pull refused because local and remote
// history disagree. It is never resolved automatically; the caller decides
// between pulling first, pushing first, or forcing.
type ConflictError struct {
	Collection    string
	Op            string // "push" or "pull"
	State         State
	Unrelated     bool
	LocalVersion  string
	RemoteVersion string
}

func (e *ConflictError) Error() string {
	if e.Unrelated {
		return fmt.Sprintf("%s %s: local and remote histories share no common version (local %s, remote %s)",
			e.Op, e.Collection, orNone(e.LocalVersion), orNone(e.RemoteVersion))
	}
	return fmt.Sprintf("%s %s: %s (local %s, remote %s)",
		e.Op, e.Collection, e.State, orNone(e.LocalVersion), orNone(e.RemoteVersion))
}

func (e *ConflictError) Is(target error) bool {
	switch target {
	case ErrPushConflict:
		return e.Op == "push"
	case ErrPullConflict:
		return e.Op == "pull"
	case ErrUnrelatedHistories:
		return e.Unrelated
	}
	return false
}

// DirtyError reports tracked files modified locally since the last
// recorded version.
type DirtyError struct {
	Collection string
	Files      []string
}

func (e *DirtyError) Error() string {
	return fmt.Sprintf("%s: %d uncommitted local changes (%s)",
		e.Collection, len(e.Files), strings.Join(e.Files, ", "))
}

func (e *DirtyError) Is(target error) bool {
	return target == ErrUncommittedChanges
}

func orNone(version string) string {
	if version == "" {
		return "none"
	}
	return version
}
