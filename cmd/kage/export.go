package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kagehq/kage/internal/catalog"
	appI18n "github.com/kagehq/kage/internal/i18n"
	"github.com/kagehq/kage/internal/model"
	"github.com/kagehq/kage/internal/report"
	"github.com/kagehq/kage/internal/store"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every subject's report as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "kage.db", "SQLite database path")
	f.StringP("lang", "l", "en", "Report language (en, ja)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	cat, err := catalog.Load()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	entries, err := db.ExportSubjects()
	if err != nil {
		return fmt.Errorf("export subjects: %w", err)
	}
	svc, err := report.New(db, cat, report.Options{CacheSize: len(entries) + 1})
	if err != nil {
		return fmt.Errorf("create report service: %w", err)
	}
	if err := svc.Export(cmd.Context(), entries, lang); err != nil {
		return fmt.Errorf("build reports: %w", err)
	}

	export := model.ReportExport{
		ExportedAt: time.Now().UTC(),
		Catalog:    cat.Checksum(),
		Subjects:   entries,
	}
	if export.Subjects == nil {
		export.Subjects = []model.SubjectExport{}
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}
