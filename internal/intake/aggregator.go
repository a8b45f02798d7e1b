package intake

import (
	"encoding/json"

	"github.com/cockroachdb/errors"

	"caseintake/internal/models"
)

// Aggregator holds the case record edited by one form. It is not safe for
// concurrent use; Session serializes access to it.
type Aggregator struct {
	record models.PatientCaseRecord
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Apply runs a batch of field updates, then the checks against the result.
// Either every update applies or none does. The returned effect is
// RefetchCategories if any update asked for it.
func (a *Aggregator) Apply(updates []FieldUpdate, checks ...func(*models.PatientCaseRecord) error) (Effect, error) {
	next := cloneRecord(a.record)
	effect := NoEffect
	for _, u := range updates {
		eff, err := applyUpdate(&next, u)
		if err != nil {
			return NoEffect, err
		}
		if eff > effect {
			effect = eff
		}
	}
	for _, check := range checks {
		if err := check(&next); err != nil {
			return NoEffect, err
		}
	}
	a.record = next
	return effect, nil
}

// Merge overlays a stored record onto the form. Every field present in data
// is taken, including false, zero and empty values; absent fields keep their
// current value.
func (a *Aggregator) Merge(data []byte) error {
	next := cloneRecord(a.record)
	if err := json.Unmarshal(data, &next); err != nil {
		return errors.Wrap(err, "failed to merge stored record")
	}
	a.record = next
	return nil
}

// Record returns a copy of the current record.
func (a *Aggregator) Record() models.PatientCaseRecord {
	return cloneRecord(a.record)
}

func (a *Aggregator) ID() string {
	return a.record.ID
}

func (a *Aggregator) SetIdentity(id, caseID string) {
	a.record.ID = id
	if caseID != "" {
		a.record.CaseID = caseID
	}
}

func (a *Aggregator) SetFiles(files models.CaseFiles) {
	a.record.Files = cloneFiles(files)
}

func (a *Aggregator) Validate() error {
	return Validate(&a.record)
}

// TextStatus reports every bounded free-text field.
func (a *Aggregator) TextStatus() []TextStatus {
	out := make([]TextStatus, 0, len(fields.bounded))
	for _, f := range fields.bounded {
		out = append(out, f.limit.Status(f.name, *f.get(&a.record)))
	}
	return out
}

func cloneRecord(r models.PatientCaseRecord) models.PatientCaseRecord {
	out := r
	c := &out.Clinical
	for _, ts := range []*models.ToothSet{
		&c.MissingTeeth, &c.ImpactedTeeth, &c.CrownedTeeth,
		&c.ImplantTeeth, &c.DoNotMoveTeeth, &c.AttachmentFreeTeeth,
	} {
		if *ts != nil {
			*ts = append(models.ToothSet(nil), (*ts)...)
		}
	}
	out.Files = cloneFiles(r.Files)
	return out
}

func cloneFiles(f models.CaseFiles) models.CaseFiles {
	var out models.CaseFiles
	for i := range f {
		if f[i] != nil {
			out[i] = append([]models.FileEntry{}, f[i]...)
		}
	}
	return out
}
