package batch

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// AuditEntry records how one row was classified and how its resolution
// ended. Coordinates are deliberately absent: the provider's terms forbid
// persisting geocoded results, and the audit file outlives the run.
type AuditEntry struct {
	Row            int     `yaml:"row"`
	Address        string  `yaml:"address"`
	Type           string  `yaml:"type"`
	Confidence     float64 `yaml:"confidence"`
	Justification  string  `yaml:"justification"`
	Status         string  `yaml:"status"`
	Reason         string  `yaml:"reason,omitempty"`
	ProviderStatus string  `yaml:"provider_status,omitempty"`
}

// AuditReport is the per-run classification audit.
type AuditReport struct {
	RunID       string       `yaml:"run_id"`
	GeneratedAt time.Time    `yaml:"generated_at"`
	Column      string       `yaml:"column"`
	Entries     []AuditEntry `yaml:"entries"`
}

// NewAuditReport builds an audit report from a completed outcome set.
func NewAuditReport(column string, outcomes []Outcome) *AuditReport {
	r := &AuditReport{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Column:      column,
		Entries:     make([]AuditEntry, len(outcomes)),
	}
	for i, o := range outcomes {
		r.Entries[i] = AuditEntry{
			Row:            o.Record.Index,
			Address:        o.Record.Address,
			Type:           string(o.Record.Type),
			Confidence:     o.Classification.Confidence,
			Justification:  o.Classification.Reason,
			Status:         string(o.Record.Status),
			Reason:         o.Reason,
			ProviderStatus: o.ProviderStatus,
		}
	}
	return r
}

// WriteFile writes the report as YAML.
func (r *AuditReport) WriteFile(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return eris.Wrap(err, "batch: marshal audit report")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "batch: write audit report")
	}
	return nil
}
