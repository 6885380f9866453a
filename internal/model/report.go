package model

import (
	"fmt"
	"time"
)

// TargetStatus is the outcome of applying one chain.
type TargetStatus int

const (
	// Patched indicates every directive applied.
	Patched TargetStatus = iota
	// RolledBack indicates a directive failed and the target was restored.
	RolledBack
)

func (s TargetStatus) String() string {
	switch s {
	case Patched:
		return "patched"
	case RolledBack:
		return "rolled back"
	default:
		return "unknown"
	}
}

// TargetResult records what happened to one target.
type TargetResult struct {
	Target     Path
	Mode       Mode
	Directives int
	Sources    []Path
	Status     TargetStatus
	Err        error
}

// CleanAction describes what cleanup did with one backup entry.
type CleanAction int

const (
	// Restored means the pristine snapshot was copied back.
	Restored CleanAction = iota
	// Deleted means a mod-created target and its tombstone were removed.
	Deleted
	// Discarded means the target was hand-edited and the stale backup dropped.
	Discarded
	// Kept means the backup was left in place because its target is gone.
	Kept
)

func (a CleanAction) String() string {
	switch a {
	case Restored:
		return "restored"
	case Deleted:
		return "deleted"
	case Discarded:
		return "discarded"
	case Kept:
		return "kept"
	default:
		return "unknown"
	}
}

// ParseCleanAction is the inverse of CleanAction.String.
func ParseCleanAction(s string) (CleanAction, error) {
	for _, a := range []CleanAction{Restored, Deleted, Discarded, Kept} {
		if a.String() == s {
			return a, nil
		}
	}

	return 0, fmt.Errorf("unknown cleanup action %q", s)
}

// CleanResult records one cleanup decision.
type CleanResult struct {
	Target Path
	Action CleanAction
}

// RunReport summarizes a whole run.
type RunReport struct {
	Started time.Time
	Cleaned []CleanResult
	Targets []TargetResult
	Mods    int
}

// Failed returns the targets that were rolled back.
func (r RunReport) Failed() []TargetResult {
	var failed []TargetResult

	for _, t := range r.Targets {
		if t.Status == RolledBack {
			failed = append(failed, t)
		}
	}

	return failed
}

// DirectiveCount returns the total number of directives across all targets.
func (r RunReport) DirectiveCount() int {
	total := 0
	for _, t := range r.Targets {
		total += t.Directives
	}

	return total
}
