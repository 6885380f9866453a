package adapter

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	m "modimporter.dev/pkg/modimporter/internal/model"
)

// ReportStore persists the summary of the last run.
type ReportStore interface {
	SaveReport(path m.Path, report m.RunReport) error
	LoadReport(path m.Path) (m.RunReport, error)
}

type reportDoc struct {
	Started time.Time   `yaml:"started"`
	Mods    int         `yaml:"mods"`
	Cleaned []cleanDoc  `yaml:"cleaned,omitempty"`
	Targets []targetDoc `yaml:"targets,omitempty"`
}

type cleanDoc struct {
	Target string `yaml:"target"`
	Action string `yaml:"action"`
}

type targetDoc struct {
	Target     string   `yaml:"target"`
	Mode       string   `yaml:"mode"`
	Directives int      `yaml:"directives"`
	Sources    []string `yaml:"sources,omitempty"`
	Status     string   `yaml:"status"`
	Error      string   `yaml:"error,omitempty"`
}

// YAMLReportStore stores reports as YAML inside the content root.
type YAMLReportStore struct {
	fs ContentFSAdapter
}

// NewYAMLReportStore constructs a YAMLReportStore.
func NewYAMLReportStore(fs ContentFSAdapter) *YAMLReportStore {
	return &YAMLReportStore{fs: fs}
}

// SaveReport writes report to path.
func (s *YAMLReportStore) SaveReport(path m.Path, report m.RunReport) error {
	doc := reportDoc{Started: report.Started, Mods: report.Mods}

	for _, c := range report.Cleaned {
		doc.Cleaned = append(doc.Cleaned, cleanDoc{Target: c.Target.String(), Action: c.Action.String()})
	}

	for _, t := range report.Targets {
		td := targetDoc{
			Target:     t.Target.String(),
			Mode:       t.Mode.String(),
			Directives: t.Directives,
			Status:     t.Status.String(),
		}

		for _, src := range t.Sources {
			td.Sources = append(td.Sources, src.String())
		}

		if t.Err != nil {
			td.Error = t.Err.Error()
		}

		doc.Targets = append(doc.Targets, td)
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode run report: %w", err)
	}

	return s.fs.WriteFile(path, data)
}

// LoadReport reads a report written by SaveReport.
func (s *YAMLReportStore) LoadReport(path m.Path) (m.RunReport, error) {
	data, err := s.fs.ReadFile(path)
	if err != nil {
		return m.RunReport{}, err
	}

	var doc reportDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return m.RunReport{}, fmt.Errorf("failed to decode run report: %w", err)
	}

	report := m.RunReport{Started: doc.Started, Mods: doc.Mods}

	for _, c := range doc.Cleaned {
		action, err := m.ParseCleanAction(c.Action)
		if err != nil {
			return m.RunReport{}, err
		}

		report.Cleaned = append(report.Cleaned, m.CleanResult{Target: m.Path(c.Target), Action: action})
	}

	for _, td := range doc.Targets {
		mode, err := m.ParseMode(td.Mode)
		if err != nil {
			return m.RunReport{}, err
		}

		status := m.Patched
		if td.Status == m.RolledBack.String() {
			status = m.RolledBack
		}

		tr := m.TargetResult{
			Target:     m.Path(td.Target),
			Mode:       mode,
			Directives: td.Directives,
			Status:     status,
		}

		for _, src := range td.Sources {
			tr.Sources = append(tr.Sources, m.Path(src))
		}

		if td.Error != "" {
			tr.Err = errors.New(td.Error)
		}

		report.Targets = append(report.Targets, tr)
	}

	return report, nil
}
