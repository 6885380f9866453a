package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"modimporter.dev/pkg/modimporter/internal/adapter"
	"modimporter.dev/pkg/modimporter/internal/binrec"
	"modimporter.dev/pkg/modimporter/internal/merge"
	m "modimporter.dev/pkg/modimporter/internal/model"
)

// errSkipped marks a directive whose source is missing.
var errSkipped = errors.New("source missing")

// Orchestrator applies patch chains to their targets.
type Orchestrator interface {
	// ApplyChain runs every directive of chain in order. A failing
	// directive rolls the target back and is reported in the result; the
	// returned error is reserved for failures that make the whole run
	// unsafe.
	ApplyChain(ctx context.Context, chain m.Chain) (m.TargetResult, error)
}

type orchestrator struct {
	fs           adapter.ContentFSAdapter
	backups      BackupStore
	codec        *binrec.Codec
	importPrefix string
	now          func() time.Time
}

// NewOrchestrator constructs an Orchestrator writing through fs and
// recording pristine state in backups.
func NewOrchestrator(fs adapter.ContentFSAdapter, backups BackupStore, importPrefix string) Orchestrator {
	return newOrchestrator(fs, backups, importPrefix, time.Now)
}

func newOrchestrator(fs adapter.ContentFSAdapter, backups BackupStore, importPrefix string, now func() time.Time) *orchestrator {
	return &orchestrator{
		fs:           fs,
		backups:      backups,
		codec:        binrec.NewCodec(binrec.ObstacleSchema),
		importPrefix: importPrefix,
		now:          now,
	}
}

func (o *orchestrator) ApplyChain(ctx context.Context, chain m.Chain) (m.TargetResult, error) {
	result := m.TargetResult{
		Target:     chain.Target,
		Directives: len(chain.Directives),
		Status:     m.Patched,
	}

	if len(chain.Directives) == 0 {
		return result, nil
	}

	result.Mode = chain.Directives[0].Mode
	for _, d := range chain.Directives {
		result.Sources = append(result.Sources, d.Sources...)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	if err := o.backups.Acquire(chain.Target); err != nil {
		result.Status = m.RolledBack
		result.Err = &TargetError{Target: chain.Target, Index: 0, Directive: chain.Directives[0], Err: err}

		return result, nil
	}

	pending := binrec.NewPendingPatch()
	lastBinary := -1

	for i, d := range chain.Directives {
		err := o.apply(chain.Target, d, pending)
		if errors.Is(err, errSkipped) {
			continue
		}

		if err != nil {
			return o.fail(result, i, d, err)
		}

		if d.Mode == m.ModeBinaryMerge {
			lastBinary = i
		}
	}

	if !pending.Empty() {
		if err := o.applyBinary(chain.Target, pending); err != nil {
			return o.fail(result, lastBinary, chain.Directives[lastBinary], err)
		}
	}

	marker := provenanceMarker(result.Mode, chain.Target, o.now())
	if len(marker) > 0 {
		if err := o.fs.AppendFile(chain.Target, marker); err != nil {
			slog.Error("Failed to append provenance marker", "target", chain.Target, "error", err)
			return o.fail(result, len(chain.Directives)-1, chain.Directives[len(chain.Directives)-1], err)
		}
	}

	return result, nil
}

func (o *orchestrator) fail(result m.TargetResult, index int, d m.Directive, cause error) (m.TargetResult, error) {
	slog.Error("Directive failed, rolling back target", "target", result.Target, "directive", d, "error", cause)

	if err := o.backups.Rollback(result.Target); err != nil {
		var integrity *BackupIntegrityError
		if errors.As(err, &integrity) {
			return result, err
		}

		cause = errors.Join(cause, err)
	}

	result.Status = m.RolledBack
	result.Err = &TargetError{Target: result.Target, Index: index, Directive: d, Err: cause}

	return result, nil
}

// readSource loads the primary source of d; a missing source is logged
// and skipped.
func (o *orchestrator) readSource(d m.Directive) ([]byte, error) {
	data, err := o.fs.ReadFile(d.Source())
	if adapter.IsNotExist(err) {
		slog.Warn("Source file not found, skipping", "source", d.Source(), "origin", d.Origin)
		return nil, errSkipped
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", d.Source(), err)
	}

	return data, nil
}

// readTarget loads target content; nil means it does not exist yet.
func (o *orchestrator) readTarget(target m.Path) ([]byte, error) {
	data, err := o.fs.ReadFile(target)
	if adapter.IsNotExist(err) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}

	return data, nil
}

func (o *orchestrator) importLine(d m.Directive) string {
	return fmt.Sprintf("Import %q", o.importPrefix+"/"+d.Source().String())
}

type fileMerger func(base, patch []byte) ([]byte, error)

var fileMergers = map[m.Mode]fileMerger{
	m.ModeTreeMerge: merge.TreeFile,
	m.ModeFlatMerge: merge.FlatFile,
	m.ModeGridMerge: merge.GridFile,
}

func (o *orchestrator) apply(target m.Path, d m.Directive, pending *binrec.PendingPatch) error {
	slog.Debug("Applying directive", "target", target, "directive", d)

	switch d.Mode {
	case m.ModeReplaceWhole:
		if !o.fs.Exists(d.Source()) {
			slog.Warn("Source file not found, skipping", "source", d.Source(), "origin", d.Origin)
			return errSkipped
		}

		return o.fs.CopyFile(d.Source(), target)

	case m.ModeImportLine:
		return o.fs.AppendFile(target, []byte("\n"+o.importLine(d)))

	case m.ModeImportLineTop:
		base, err := o.readTarget(target)
		if err != nil {
			return err
		}

		return o.fs.WriteFile(target, append([]byte(o.importLine(d)+"\n"), base...))

	case m.ModeBinaryMerge:
		data, err := o.readSource(d)
		if err != nil {
			return err
		}

		patch, err := binrec.ParsePatch(o.codec.Schema, data)
		if err != nil {
			return err
		}

		pending.Merge(patch)

		return nil
	}

	merger, ok := fileMergers[d.Mode]
	if !ok {
		return fmt.Errorf("unsupported mode %s", d.Mode)
	}

	patch, err := o.readSource(d)
	if err != nil {
		return err
	}

	base, err := o.readTarget(target)
	if err != nil {
		return err
	}

	out, err := merger(base, patch)
	if err != nil {
		return err
	}

	return o.fs.WriteFile(target, out)
}

// applyBinary decodes target once, applies every accumulated binary patch
// and writes it back.
func (o *orchestrator) applyBinary(target m.Path, pending *binrec.PendingPatch) error {
	data, err := o.fs.ReadFile(target)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", target, err)
	}

	records, err := o.codec.Decode(data)
	if err != nil {
		return err
	}

	patched := pending.Apply(o.codec.Schema, records)

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		if ops, err := o.codec.Schema.Diff(records, patched); err == nil {
			slog.Debug("Binary patch", "target", target, "operations", ops.String())
		}
	}

	out, err := o.codec.Encode(patched)
	if err != nil {
		return err
	}

	return o.fs.WriteFile(target, out)
}
