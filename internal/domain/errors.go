package domain

import (
	"fmt"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

// BackupIntegrityError means a target had to be rolled back but its
// snapshot is gone. The run cannot guarantee a safe state and aborts.
type BackupIntegrityError struct {
	Target m.Path
	Backup m.Path
}

func (e *BackupIntegrityError) Error() string {
	return fmt.Sprintf("backup %s for %s is missing", e.Backup, e.Target)
}

// TargetError reports the directive that failed while patching one target.
// The target has been restored when this error is returned.
type TargetError struct {
	Target    m.Path
	Index     int
	Directive m.Directive
	Err       error
}

func (e *TargetError) Error() string {
	return fmt.Sprintf("%s: directive #%d (%s %s from %s) failed: %v",
		e.Target, e.Index+1, e.Directive.Mode, e.Directive.Source(), e.Directive.Origin, e.Err)
}

func (e *TargetError) Unwrap() error {
	return e.Err
}
