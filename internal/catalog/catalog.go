// Package catalog holds the static instrument definitions and the factor
// selector table used to score them. Definitions are embedded YAML files and
// are validated against the selector table when loaded, so a renamed or
// missing question id fails at startup instead of during scoring.
package catalog

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kagehq/kage/internal/model"
)

//go:embed instruments/*.yaml
var instrumentFS embed.FS

// ErrUnknownInstrument is returned when an instrument/form pair is not in the catalog.
var ErrUnknownInstrument = errors.New("unknown instrument")

type formKey struct {
	id   model.InstrumentID
	form model.Form
}

// Catalog is an immutable, validated set of instrument definitions.
type Catalog struct {
	instruments map[formKey]*model.Instrument
	checksum    string
}

// Load parses and validates the embedded instrument definitions.
func Load() (*Catalog, error) {
	return LoadFS(instrumentFS, "instruments")
}

// MustLoad is like Load but panics on a configuration error.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return c
}

// LoadFS parses and validates every *.yaml file in dir of fsys.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read instruments dir: %w", err)
	}

	c := &Catalog{instruments: make(map[formKey]*model.Instrument)}
	h := sha256.New()
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".yaml" {
			continue
		}
		data, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		h.Write(data)

		var inst model.Instrument
		if err := yaml.Unmarshal(data, &inst); err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		if err := validateInstrument(&inst); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		key := formKey{inst.ID, inst.Form}
		if _, dup := c.instruments[key]; dup {
			return nil, fmt.Errorf("%s: duplicate definition of %s/%s", e.Name(), inst.ID, inst.Form)
		}
		c.instruments[key] = &inst
		slog.Debug("loaded instrument", "file", e.Name(), "id", inst.ID, "form", inst.Form, "questions", len(inst.Questions))
	}

	if err := c.validateSet(); err != nil {
		return nil, err
	}
	c.checksum = hex.EncodeToString(h.Sum(nil))
	return c, nil
}

func validateInstrument(inst *model.Instrument) error {
	if !inst.ID.Valid() {
		return fmt.Errorf("invalid instrument id %q", inst.ID)
	}
	if inst.Form != model.FormShort && inst.Form != model.FormFull {
		return fmt.Errorf("%s: invalid form %q", inst.ID, inst.Form)
	}
	if len(inst.Questions) == 0 {
		return fmt.Errorf("%s/%s: no questions", inst.ID, inst.Form)
	}

	seen := make(map[string]bool, len(inst.Questions))
	for _, q := range inst.Questions {
		if q.ID == "" {
			return fmt.Errorf("%s/%s: question with empty id", inst.ID, inst.Form)
		}
		if seen[q.ID] {
			return fmt.Errorf("%s/%s: duplicate question id %q", inst.ID, inst.Form, q.ID)
		}
		seen[q.ID] = true
		if q.Scoring != model.ScoringNormal && q.Scoring != model.ScoringReverse {
			return fmt.Errorf("%s/%s: question %q has invalid scoring %q", inst.ID, inst.Form, q.ID, q.Scoring)
		}
		if q.Category == "" {
			return fmt.Errorf("%s/%s: question %q has no category", inst.ID, inst.Form, q.ID)
		}
	}

	factors, ok := factorTables[tableKey{inst.ID, inst.Form.Variant()}]
	if !ok {
		return fmt.Errorf("%s/%s: no factor table", inst.ID, inst.Form)
	}
	covered := make(map[string]string, len(inst.Questions))
	for _, f := range factors {
		matched := 0
		for _, q := range inst.Questions {
			if !f.Selector.Match(q.ID) {
				continue
			}
			matched++
			if q.Category != f.Label {
				return fmt.Errorf("%s/%s: question %q has category %q but factor %s expects %q",
					inst.ID, inst.Form, q.ID, q.Category, f.Factor, f.Label)
			}
			if prev, dup := covered[q.ID]; dup {
				return fmt.Errorf("%s/%s: question %q selected by both %s and %s",
					inst.ID, inst.Form, q.ID, prev, f.Factor)
			}
			covered[q.ID] = f.Factor
		}
		if matched == 0 {
			return fmt.Errorf("%s/%s: factor %s selects no questions", inst.ID, inst.Form, f.Factor)
		}
	}
	for _, q := range inst.Questions {
		if _, ok := covered[q.ID]; !ok {
			return fmt.Errorf("%s/%s: question %q is not scored by any factor", inst.ID, inst.Form, q.ID)
		}
	}
	return nil
}

func (c *Catalog) validateSet() error {
	for _, id := range model.InstrumentIDs {
		forms := c.Forms(id)
		if len(forms) == 0 {
			return fmt.Errorf("instrument %s has no definition", id)
		}
		mandatory := c.instruments[formKey{id, forms[0]}].Mandatory
		for _, f := range forms[1:] {
			if c.instruments[formKey{id, f}].Mandatory != mandatory {
				return fmt.Errorf("instrument %s: forms disagree on mandatory flag", id)
			}
		}
	}
	return nil
}

// Instrument returns the definition of one form of an instrument.
func (c *Catalog) Instrument(id model.InstrumentID, form model.Form) (*model.Instrument, error) {
	inst, ok := c.instruments[formKey{id, form}]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnknownInstrument, id, form)
	}
	return inst, nil
}

// Forms lists the published forms of an instrument, short first.
func (c *Catalog) Forms(id model.InstrumentID) []model.Form {
	var forms []model.Form
	for _, f := range []model.Form{model.FormShort, model.FormFull} {
		if _, ok := c.instruments[formKey{id, f}]; ok {
			forms = append(forms, f)
		}
	}
	return forms
}

// Instruments returns summaries of every definition in display order.
func (c *Catalog) Instruments() []model.InstrumentSummary {
	out := make([]model.InstrumentSummary, 0, len(c.instruments))
	for _, inst := range c.instruments {
		out = append(out, model.InstrumentSummary{
			ID:            inst.ID,
			Title:         inst.Title,
			Form:          inst.Form,
			Mandatory:     inst.Mandatory,
			QuestionCount: len(inst.Questions),
		})
	}
	order := make(map[model.InstrumentID]int, len(model.InstrumentIDs))
	for i, id := range model.InstrumentIDs {
		order[id] = i
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return order[out[i].ID] < order[out[j].ID]
		}
		return out[i].Form > out[j].Form // "short" before "full"
	})
	return out
}

// Factors returns the factor selectors for records of the given variant.
func (c *Catalog) Factors(id model.InstrumentID, v model.Variant) []model.FactorQuery {
	t, _ := factorsFor(id, v)
	return t
}

// Mandatory lists the instruments required for a complete profile.
func (c *Catalog) Mandatory() []model.InstrumentID {
	var out []model.InstrumentID
	for _, id := range model.InstrumentIDs {
		forms := c.Forms(id)
		if len(forms) > 0 && c.instruments[formKey{id, forms[0]}].Mandatory {
			out = append(out, id)
		}
	}
	return out
}

// Checksum is the SHA-256 of the loaded definition files.
func (c *Catalog) Checksum() string {
	return c.checksum
}
