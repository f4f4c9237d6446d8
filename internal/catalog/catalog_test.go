package catalog

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kagehq/kage/internal/model"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	tests := []struct {
		id    model.InstrumentID
		form  model.Form
		count int
	}{
		{model.Personality, model.FormShort, 12},
		{model.Personality, model.FormFull, 66},
		{model.ProblemSolving, model.FormShort, 6},
		{model.ProblemSolving, model.FormFull, 32},
		{model.CognitiveStyle, model.FormShort, 6},
		{model.CognitiveStyle, model.FormFull, 45},
		{model.Attention, model.FormFull, 6},
		{model.SocialCommunication, model.FormFull, 10},
		{model.Sensory, model.FormFull, 6},
	}
	for _, tt := range tests {
		t.Run(string(tt.id)+"/"+string(tt.form), func(t *testing.T) {
			inst, err := c.Instrument(tt.id, tt.form)
			require.NoError(t, err)
			assert.Len(t, inst.Questions, tt.count)
		})
	}

	assert.NotEmpty(t, c.Checksum())
	assert.Len(t, c.Instruments(), len(tests))
}

func TestShortPersonalityReverseItems(t *testing.T) {
	c := MustLoad()
	inst, err := c.Instrument(model.Personality, model.FormShort)
	require.NoError(t, err)

	reverse := 0
	for _, q := range inst.Questions {
		if q.Scoring == model.ScoringReverse {
			reverse++
			assert.NotEqual(t, "Honesty-Humility", q.Category, "honesty items are scored normally")
		}
	}
	assert.Equal(t, 6, reverse)
}

func TestMandatory(t *testing.T) {
	c := MustLoad()
	assert.Equal(t, []model.InstrumentID{
		model.Personality, model.ProblemSolving, model.CognitiveStyle,
	}, c.Mandatory())
}

func TestUnknownInstrument(t *testing.T) {
	c := MustLoad()
	_, err := c.Instrument(model.Attention, model.FormShort)
	assert.ErrorIs(t, err, ErrUnknownInstrument)
}

func TestFactorsFallBackForSingleForm(t *testing.T) {
	c := MustLoad()
	lite := c.Factors(model.Sensory, model.VariantLite)
	full := c.Factors(model.Sensory, model.VariantFull)
	assert.Equal(t, full, lite)

	kaiLite := c.Factors(model.ProblemSolving, model.VariantLite)
	kaiFull := c.Factors(model.ProblemSolving, model.VariantFull)
	assert.NotEqual(t, kaiLite, kaiFull)
}

func TestInstrumentsOrder(t *testing.T) {
	list := MustLoad().Instruments()
	require.NotEmpty(t, list)
	assert.Equal(t, model.Personality, list[0].ID)
	assert.Equal(t, model.FormShort, list[0].Form)
	assert.Equal(t, model.FormFull, list[1].Form)
	assert.Equal(t, model.Sensory, list[len(list)-1].ID)
}

// fixtureFS returns a complete catalog with one file replaced.
func fixtureFS(t *testing.T, name, body string) fstest.MapFS {
	t.Helper()
	fsys := fstest.MapFS{}
	entries, err := instrumentFS.ReadDir("instruments")
	require.NoError(t, err)
	for _, e := range entries {
		data, err := instrumentFS.ReadFile("instruments/" + e.Name())
		require.NoError(t, err)
		fsys["instruments/"+e.Name()] = &fstest.MapFile{Data: data}
	}
	if body == "" {
		delete(fsys, "instruments/"+name)
	} else {
		fsys["instruments/"+name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

func TestLoadRejectsInconsistentDefinitions(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{
			name: "question not covered by a factor",
			file: "attention-screening.yaml",
			body: `id: attention-screening
form: full
questions:
  - {id: as1, category: Inattention, scoring: normal, text: a}
  - {id: as2, category: Inattention, scoring: normal, text: b}
  - {id: as3, category: Inattention, scoring: normal, text: c}
  - {id: as4, category: Hyperactivity, scoring: normal, text: d}
  - {id: as7, category: Hyperactivity, scoring: normal, text: e}
`,
			wantErr: `question "as7" is not scored by any factor`,
		},
		{
			name: "factor selects nothing",
			file: "sensory-sensitivity.yaml",
			body: `id: sensory-sensitivity
form: full
questions:
  - {id: sn1, category: Sensitivity, scoring: normal, text: a}
  - {id: sn5, category: Aesthetic, scoring: normal, text: b}
`,
			wantErr: "factor composure selects no questions",
		},
		{
			name: "category mismatch",
			file: "problem-solving-style_short.yaml",
			body: `id: problem-solving-style
form: short
mandatory: true
questions:
  - {id: k1, category: Innovation, scoring: normal, text: a}
  - {id: k4, category: Innovation, scoring: normal, text: b}
`,
			wantErr: `question "k1" has category "Innovation" but factor adaption expects "Adaption"`,
		},
		{
			name: "bad scoring direction",
			file: "social-communication.yaml",
			body: `id: social-communication
form: full
questions:
  - {id: aq1, category: Social Communication, scoring: sideways, text: a}
`,
			wantErr: `invalid scoring "sideways"`,
		},
		{
			name: "duplicate question id",
			file: "social-communication.yaml",
			body: `id: social-communication
form: full
questions:
  - {id: aq1, category: Social Communication, scoring: normal, text: a}
  - {id: aq1, category: Social Communication, scoring: normal, text: b}
`,
			wantErr: `duplicate question id "aq1"`,
		},
		{
			name:    "missing instrument",
			file:    "sensory-sensitivity.yaml",
			body:    "",
			wantErr: "instrument sensory-sensitivity has no definition",
		},
		{
			name: "mandatory flag disagreement",
			file: "cognitive-style_short.yaml",
			body: `id: cognitive-style
form: short
mandatory: false
questions:
  - {id: o1, category: Object, scoring: normal, text: a}
  - {id: s1, category: Spatial, scoring: normal, text: b}
  - {id: v1, category: Verbal, scoring: normal, text: c}
`,
			wantErr: "forms disagree on mandatory flag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(fixtureFS(t, tt.file, tt.body), "instruments")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
