package model

import (
	"time"
)

// MaxScale is the top of the Likert scale used by every instrument.
const MaxScale = 5

// InstrumentID identifies one of the fixed assessment instruments.
type InstrumentID string

const (
	// Personality is the six-factor HEXACO instrument.
	Personality InstrumentID = "personality"
	// ProblemSolving is the adaption/innovation (KAI) instrument.
	ProblemSolving InstrumentID = "problem-solving-style"
	// CognitiveStyle is the object/spatial/verbal (OSIVQ) instrument.
	CognitiveStyle InstrumentID = "cognitive-style"
	// Attention is the ASRS attention screener.
	Attention InstrumentID = "attention-screening"
	// SocialCommunication is the AQ instrument.
	SocialCommunication InstrumentID = "social-communication"
	// Sensory is the sensory-processing sensitivity instrument.
	Sensory InstrumentID = "sensory-sensitivity"
)

// InstrumentIDs lists every instrument in display order.
var InstrumentIDs = []InstrumentID{
	Personality,
	ProblemSolving,
	CognitiveStyle,
	Attention,
	SocialCommunication,
	Sensory,
}

// Valid reports whether id is one of the known instruments.
func (id InstrumentID) Valid() bool {
	for _, known := range InstrumentIDs {
		if id == known {
			return true
		}
	}
	return false
}

// Form distinguishes the short and full editions of an instrument definition.
type Form string

const (
	FormShort Form = "short"
	FormFull  Form = "full"
)

// Variant returns the record variant a submission of this form produces.
func (f Form) Variant() Variant {
	if f == FormFull {
		return VariantFull
	}
	return VariantLite
}

// Variant tags a stored result as coming from the lite or full form.
type Variant string

const (
	VariantLite Variant = "lite"
	VariantFull Variant = "full"
)

// Scoring is the direction in which a raw answer is read.
type Scoring string

const (
	ScoringNormal  Scoring = "normal"
	ScoringReverse Scoring = "reverse"
)

// Question is a single Likert item.
type Question struct {
	ID       string  `json:"id" yaml:"id"`
	Text     string  `json:"text" yaml:"text"`
	Category string  `json:"category" yaml:"category"`
	Scoring  Scoring `json:"scoring" yaml:"scoring"`
}

// Instrument is the static definition of one form of an assessment.
type Instrument struct {
	ID          InstrumentID `json:"id" yaml:"id"`
	Title       string       `json:"title" yaml:"title"`
	Description string       `json:"description,omitempty" yaml:"description"`
	Source      string       `json:"source,omitempty" yaml:"source"`
	Form        Form         `json:"form" yaml:"form"`
	Mandatory   bool         `json:"mandatory" yaml:"mandatory"`
	Questions   []Question   `json:"questions" yaml:"questions"`
}

// InstrumentSummary is the list view of an instrument form.
type InstrumentSummary struct {
	ID            InstrumentID `json:"id"`
	Title         string       `json:"title"`
	Form          Form         `json:"form"`
	Mandatory     bool         `json:"mandatory"`
	QuestionCount int          `json:"question_count"`
}

// RawAnswers maps question id to the raw 1..5 answer.
type RawAnswers map[string]int

// Meta is the metadata block embedded in a normalized answer map.
type Meta struct {
	Variant       Variant   `json:"variant"`
	QuestionCount int       `json:"question_count"`
	Timestamp     time.Time `json:"timestamp"`
}

// Record is one completed assessment. Records are insert-only.
type Record struct {
	ID           int64        `json:"id"`
	SubjectID    string       `json:"subject_id"`
	InstrumentID InstrumentID `json:"instrument_id"`
	Variant      Variant      `json:"variant"`
	Answers      ResultData   `json:"answers"`
	CompletedAt  time.Time    `json:"completed_at"`
}

// SubScore is a derived per-factor aggregate. It is never persisted.
type SubScore struct {
	Factor      string  `json:"factor"`
	Label       string  `json:"label"`
	Sum         int     `json:"sum"`
	Average     float64 `json:"average"`
	Count       int     `json:"contributing_count"`
	MaxPossible int     `json:"max_possible"`
}

// RiskLevel is the coarse review flag derived from Honesty-Humility.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
)

// CompletionState tracks progress of one subject on one instrument.
type CompletionState string

const (
	StateNotStarted    CompletionState = "not_started"
	StateLiteCompleted CompletionState = "lite_completed"
	StateFullCompleted CompletionState = "full_completed"
)

// Advance moves the state forward after a completion of the given variant.
// Full completion is terminal.
func (s CompletionState) Advance(v Variant) CompletionState {
	switch {
	case s == StateFullCompleted || v == VariantFull:
		return StateFullCompleted
	default:
		return StateLiteCompleted
	}
}

// TraitValue is one entry of the integrated trait vector.
type TraitValue struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Archetype summarizes the dominant integrated trait.
type Archetype struct {
	Key         string `json:"key"`
	Title       string `json:"archetype_title"`
	ColorTheme  string `json:"color_theme"`
	Description string `json:"description"`
}

// InstrumentReport is the per-instrument part of a report.
type InstrumentReport struct {
	InstrumentID InstrumentID    `json:"instrument_id"`
	State        CompletionState `json:"state"`
	Variant      Variant         `json:"variant,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	SubScores    []SubScore      `json:"sub_scores,omitempty"`
}

// Report is the decision-support payload for one subject.
type Report struct {
	SubjectID        string             `json:"subject_id"`
	Title            string             `json:"title,omitempty"`
	Archetype        Archetype          `json:"archetype"`
	Traits           []TraitValue       `json:"trait_vector"`
	IsFullVersion    bool               `json:"is_full_version"`
	RiskLevel        RiskLevel          `json:"risk_level,omitempty"`
	RiskLabel        string             `json:"risk_label,omitempty"`
	HonestyHumility  float64            `json:"honesty_humility"`
	Instruments      []InstrumentReport `json:"instruments"`
	MissingMandatory []InstrumentID     `json:"missing_mandatory,omitempty"`
	MissingNote      string             `json:"missing_note,omitempty"`
	ConfidenceNote   string             `json:"confidence_note,omitempty"`
	Narrative        string             `json:"narrative,omitempty"`
	GeneratedAt      time.Time          `json:"generated_at"`
}

// Subject is a person taking assessments.
type Subject struct {
	ID          string    `json:"subject_id"`
	DisplayName string    `json:"display_name"`
	ShareID     string    `json:"share_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// HiringStatus is the pipeline stage of an organization candidate.
type HiringStatus string

const (
	HiringScreening HiringStatus = "screening"
	HiringInterview HiringStatus = "interview"
	HiringOffer     HiringStatus = "offer"
	HiringRejected  HiringStatus = "rejected"
)

// Candidate links a subject to an organization's recruiting pipeline.
type Candidate struct {
	ID             int64        `json:"id"`
	OrganizationID string       `json:"organization_id"`
	SubjectID      string       `json:"subject_id"`
	CampaignID     *string      `json:"campaign_id,omitempty"`
	HiringStatus   HiringStatus `json:"hiring_status"`
	RiskLevel      RiskLevel    `json:"risk_level"`
	CreatedAt      time.Time    `json:"created_at"`

	// Derived from the current history when served; not persisted.
	IsFullVersion   bool      `json:"is_full_version"`
	HonestyHumility float64   `json:"honesty_humility"`
	ImportRiskLevel RiskLevel `json:"import_risk_level,omitempty"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	Lang            string
	Narrative       bool
	PromptVariant   string
	ReportCacheSize int
}
