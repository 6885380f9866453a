package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"modimporter.dev/pkg/modimporter/internal/adapter"
	m "modimporter.dev/pkg/modimporter/internal/model"
)

const tombstoneExt = ".del"

// BackupEntry is one record of the backup store.
type BackupEntry struct {
	Target    m.Path
	Backup    m.Path
	Tombstone bool
}

// BackupStore snapshots targets before their first edit and undoes
// edits on rollback or cleanup.
type BackupStore interface {
	// Acquire records the pristine state of target: a snapshot of its bytes,
	// or a tombstone when it does not exist yet.
	Acquire(target m.Path) error

	// Rollback puts target back into the state recorded by Acquire.
	Rollback(target m.Path) error

	// Cleanup walks the store, reverting every tracked target, and reports
	// what it did with each entry.
	Cleanup() ([]m.CleanResult, error)

	// Entries lists the current records.
	Entries() ([]BackupEntry, error)
}

type backupStore struct {
	fs  adapter.ContentFSAdapter
	dir m.Path
	mu  sync.Mutex
}

// NewBackupStore returns a store keeping its records below dir.
func NewBackupStore(fs adapter.ContentFSAdapter, dir m.Path) BackupStore {
	return &backupStore{fs: fs, dir: dir}
}

func (b *backupStore) snapshotPath(target m.Path) m.Path {
	return b.dir.Join(target.String())
}

func (b *backupStore) tombstonePath(target m.Path) m.Path {
	return b.dir.Join(target.String() + tombstoneExt)
}

func (b *backupStore) mkdirs(paths ...m.Path) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, p := range paths {
		if err := b.fs.MkdirAll(p); err != nil {
			return err
		}
	}

	return nil
}

func (b *backupStore) edited(target m.Path) (bool, error) {
	data, err := b.fs.ReadFile(target)
	if err != nil {
		return false, err
	}

	return isEdited(target, data), nil
}

func (b *backupStore) Acquire(target m.Path) error {
	snapshot := b.snapshotPath(target)

	if err := b.mkdirs(snapshot.Dir()); err != nil {
		slog.Error("Failed to create backup directories", "target", target, "error", err)
		return fmt.Errorf("failed to create backup directories for %s: %w", target, err)
	}

	if !b.fs.Exists(target) {
		created := b.missingAncestor(target)
		slog.Debug("Writing tombstone", "target", target, "createdDir", created)

		// The tombstone holds the highest directory the target's creation
		// will add, so removing the target can remove that branch too.
		if err := b.fs.WriteFile(b.tombstonePath(target), []byte(created)); err != nil {
			slog.Error("Failed to write tombstone", "target", target, "error", err)
			return fmt.Errorf("failed to write tombstone for %s: %w", target, err)
		}

		return nil
	}

	edited, err := b.edited(target)
	if err != nil {
		slog.Error("Failed to read target", "target", target, "error", err)
		return fmt.Errorf("failed to read %s: %w", target, err)
	}

	// A marked target with a surviving snapshot was left over by an
	// interrupted cleanup; the snapshot is still the pristine state.
	if edited && b.fs.Exists(snapshot) {
		slog.Debug("Restoring leftover snapshot", "target", target)

		if err := b.fs.CopyFile(snapshot, target); err != nil {
			slog.Error("Failed to restore snapshot", "target", target, "error", err)
			return fmt.Errorf("failed to restore %s: %w", target, err)
		}

		return nil
	}

	if err := b.fs.CopyFile(target, snapshot); err != nil {
		slog.Error("Failed to snapshot target", "target", target, "error", err)
		return fmt.Errorf("failed to snapshot %s: %w", target, err)
	}

	return nil
}

// missingAncestor returns the highest parent directory of target that does
// not exist yet, or "" when the parent is already present.
func (b *backupStore) missingAncestor(target m.Path) m.Path {
	var top m.Path

	for dir := target.Dir(); dir != "." && dir != "/" && !b.fs.Exists(dir); dir = dir.Dir() {
		top = dir
	}

	return top
}

// removeCreated deletes a mod-created target and the empty directories its
// creation added, up to the one recorded in its tombstone.
func (b *backupStore) removeCreated(target, tombstone m.Path) error {
	if err := b.fs.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Error("Failed to remove created target", "target", target, "error", err)
		return fmt.Errorf("failed to remove %s: %w", target, err)
	}

	data, err := b.fs.ReadFile(tombstone)
	if err != nil {
		slog.Error("Failed to read tombstone", "tombstone", tombstone, "error", err)
		return fmt.Errorf("failed to read %s: %w", tombstone, err)
	}

	top := m.NormalizePath(strings.TrimSpace(string(data)))
	if top == "." || !target.Within(top) {
		return nil
	}

	for dir := target.Dir(); dir.Within(top); dir = dir.Dir() {
		if b.fs.IsDir(dir) {
			removed, err := b.fs.RemoveIfEmpty(dir)
			if err != nil {
				slog.Error("Failed to remove created directory", "dir", dir, "error", err)
				return fmt.Errorf("failed to remove %s: %w", dir, err)
			}

			if !removed {
				break
			}
		}

		if dir == top {
			break
		}
	}

	return nil
}

func (b *backupStore) Rollback(target m.Path) error {
	if tombstone := b.tombstonePath(target); b.fs.Exists(tombstone) {
		return b.removeCreated(target, tombstone)
	}

	snapshot := b.snapshotPath(target)

	if err := b.fs.CopyFile(snapshot, target); err != nil {
		if adapter.IsNotExist(err) {
			slog.Error("Backup missing during rollback", "target", target, "backup", snapshot)
			return &BackupIntegrityError{Target: target, Backup: snapshot}
		}

		slog.Error("Failed to roll back target", "target", target, "error", err)

		return fmt.Errorf("failed to roll back %s: %w", target, err)
	}

	return nil
}

func (b *backupStore) Cleanup() ([]m.CleanResult, error) {
	if !b.fs.IsDir(b.dir) {
		return nil, nil
	}

	var results []m.CleanResult

	if _, err := b.cleanDir(b.dir, &results); err != nil {
		return results, err
	}

	return results, nil
}

// cleanDir reverts every entry below dir and removes it when it ends up
// empty, reporting whether it did.
func (b *backupStore) cleanDir(dir m.Path, results *[]m.CleanResult) (bool, error) {
	entries, err := b.fs.ReadDir(dir)
	if err != nil {
		slog.Error("Failed to list backup directory", "dir", dir, "error", err)
		return false, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	for _, entry := range entries {
		if b.fs.IsDir(entry) {
			if _, err := b.cleanDir(entry, results); err != nil {
				return false, err
			}

			continue
		}

		result, err := b.cleanEntry(entry)
		if err != nil {
			return false, err
		}

		*results = append(*results, result)
	}

	removed, err := b.fs.RemoveIfEmpty(dir)
	if err != nil {
		slog.Error("Failed to remove backup directory", "dir", dir, "error", err)
		return false, fmt.Errorf("failed to remove %s: %w", dir, err)
	}

	return removed, nil
}

func (b *backupStore) target(entry m.Path) (m.Path, bool) {
	rel := m.Path(strings.TrimPrefix(entry.String(), b.dir.String()+"/"))
	if tomb, ok := strings.CutSuffix(rel.String(), tombstoneExt); ok {
		return m.Path(tomb), true
	}

	return rel, false
}

func (b *backupStore) cleanEntry(entry m.Path) (m.CleanResult, error) {
	target, tombstone := b.target(entry)

	if tombstone {
		slog.Info("Deleting mod-created target", "target", target)

		if err := b.removeCreated(target, entry); err != nil {
			return m.CleanResult{}, err
		}

		if err := b.fs.Remove(entry); err != nil {
			slog.Error("Failed to delete tombstone", "tombstone", entry, "error", err)
			return m.CleanResult{}, fmt.Errorf("failed to delete %s: %w", entry, err)
		}

		return m.CleanResult{Target: target, Action: m.Deleted}, nil
	}

	if !b.fs.Exists(target) || b.fs.IsDir(target) {
		slog.Warn("Keeping backup of missing target", "target", target, "backup", entry)
		return m.CleanResult{Target: target, Action: m.Kept}, nil
	}

	edited, err := b.edited(target)
	if err != nil {
		slog.Error("Failed to read target", "target", target, "error", err)
		return m.CleanResult{}, fmt.Errorf("failed to read %s: %w", target, err)
	}

	action := m.Discarded

	if edited {
		slog.Info("Restoring target", "target", target)

		if err := b.fs.CopyFile(entry, target); err != nil {
			slog.Error("Failed to restore target", "target", target, "error", err)
			return m.CleanResult{}, fmt.Errorf("failed to restore %s: %w", target, err)
		}

		action = m.Restored
	} else {
		slog.Info("Target was edited by hand, discarding stale backup", "target", target)
	}

	if err := b.fs.Remove(entry); err != nil {
		slog.Error("Failed to delete backup", "backup", entry, "error", err)
		return m.CleanResult{}, fmt.Errorf("failed to delete %s: %w", entry, err)
	}

	return m.CleanResult{Target: target, Action: action}, nil
}

func (b *backupStore) Entries() ([]BackupEntry, error) {
	if !b.fs.IsDir(b.dir) {
		return nil, nil
	}

	var entries []BackupEntry

	err := b.fs.Walk(b.dir, func(path m.Path, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		target, tombstone := b.target(path)
		entries = append(entries, BackupEntry{Target: target, Backup: path, Tombstone: tombstone})

		return nil
	})
	if err != nil {
		slog.Error("Failed to list backups", "dir", b.dir, "error", err)
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	return entries, nil
}
