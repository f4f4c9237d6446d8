package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kagehq/kage/internal/catalog"
	"github.com/kagehq/kage/internal/model"
	"github.com/kagehq/kage/internal/scoring"
)

// scoreOutput is what `kage score` prints.
type scoreOutput struct {
	Record    model.Record     `json:"record"`
	SubScores []model.SubScore `json:"sub_scores"`
	RiskLevel model.RiskLevel  `json:"risk_level,omitempty"`
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one submission offline and print it as JSON",
		RunE:  runScore,
	}
	f := cmd.Flags()
	f.StringP("instrument", "i", string(model.Personality), "Instrument id")
	f.StringP("form", "f", "", "Instrument form (short, full); defaults to the first published form")
	f.String("answers", "-", "JSON file mapping question id to a 1..5 answer (- for stdin)")
	f.StringP("subject", "s", "offline", "Subject id recorded in the output")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func runScore(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	id := model.InstrumentID(v.GetString("instrument"))
	form := model.Form(v.GetString("form"))
	if form == "" {
		if forms := cat.Forms(id); len(forms) > 0 {
			form = forms[0]
		}
	}
	inst, err := cat.Instrument(id, form)
	if err != nil {
		return err
	}

	raw, err := readAnswers(cmd.InOrStdin(), v.GetString("answers"))
	if err != nil {
		return err
	}

	rec, err := scoring.Normalize(v.GetString("subject"), inst, raw, time.Now().UTC())
	if err != nil {
		return err
	}
	out := scoreOutput{
		Record:    rec,
		SubScores: scoring.AggregateRecord(cat, rec),
	}
	if id == model.Personality {
		out.RiskLevel, _ = scoring.PersonalityRisk(cat, []model.Record{rec})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readAnswers(stdin io.Reader, path string) (model.RawAnswers, error) {
	var data []byte
	var err error
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	var raw model.RawAnswers
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse answers %s: %w", path, err)
	}
	return raw, nil
}
