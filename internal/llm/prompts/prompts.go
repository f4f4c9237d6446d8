package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/kagehq/kage/internal/model"
)

// TemplateFS holds the built-in narrative templates.
//
//go:embed templates/*.txt
var TemplateFS embed.FS

var (
	reportDataRegex         = regexp.MustCompile(`(?i)</?\s*report-data\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxNameRunes = 200

// PromptVariant selects the audience of a narrative.
type PromptVariant string

const (
	// PromptPersonal addresses the subject directly.
	PromptPersonal PromptVariant = "personal"
	// PromptRecruiter is written for a hiring manager.
	PromptRecruiter PromptVariant = "recruiter"
	// PromptCoach suggests team contributions.
	PromptCoach PromptVariant = "coach"
)

var validVariants = map[PromptVariant]bool{
	PromptPersonal:  true,
	PromptRecruiter: true,
	PromptCoach:     true,
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// TraitLine is one formatted trait in a prompt.
type TraitLine struct {
	Label string
	Value string
}

// NarrativeData holds template data for narrative prompts.
type NarrativeData struct {
	Language       string
	SubjectName    string
	ArchetypeTitle string
	Traits         []TraitLine
	RiskLevel      model.RiskLevel
	Missing        string
	IsFull         bool
}

// Load loads prompt templates from fsys.
// It uses sync.Once to ensure templates are loaded only once.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		templates = make(map[PromptVariant]*template.Template)
		for _, v := range []PromptVariant{PromptPersonal, PromptRecruiter, PromptCoach} {
			file := "templates/narrative_" + string(v) + ".txt"
			content, err := fs.ReadFile(fsys, file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New(string(v)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// NewNarrativeData extracts the prompt fields from a localized report.
func NewNarrativeData(r model.Report, subjectName, lang string) NarrativeData {
	d := NarrativeData{
		Language:       lang,
		SubjectName:    sanitizeName(subjectName),
		ArchetypeTitle: r.Archetype.Title,
		RiskLevel:      r.RiskLevel,
		IsFull:         r.IsFullVersion,
	}
	for _, t := range r.Traits {
		d.Traits = append(d.Traits, TraitLine{Label: t.Label, Value: strconv.FormatFloat(t.Value, 'f', 1, 64)})
	}
	missing := make([]string, 0, len(r.MissingMandatory))
	for _, id := range r.MissingMandatory {
		missing = append(missing, string(id))
	}
	d.Missing = strings.Join(missing, ", ")
	return d
}

// BuildNarrativePrompt renders the system prompt for the given variant.
func BuildNarrativePrompt(variant PromptVariant, data NarrativeData) (string, error) {
	if templates == nil {
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := templates[variant]
	if !ok {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sanitizeName strips markup that could break out of the report-data block.
func sanitizeName(name string) string {
	name = reportDataRegex.ReplaceAllString(name, "")
	name = systemInstructionsRegex.ReplaceAllString(name, "")
	name = strings.Join(strings.Fields(name), " ")

	if name == "" {
		return "[anonymous]"
	}
	if utf8.RuneCountInString(name) > maxNameRunes {
		name = string([]rune(name)[:maxNameRunes])
	}
	return name
}
