package model

import "time"

// ReportExport is the top-level JSON structure written by `kage export`.
type ReportExport struct {
	ExportedAt time.Time       `json:"exported_at"`
	Catalog    string          `json:"catalog_checksum"`
	Subjects   []SubjectExport `json:"subjects"`
}

// SubjectExport holds one subject's computed report.
type SubjectExport struct {
	Subject     Subject `json:"subject"`
	ResultCount int     `json:"result_count"`
	Report      Report  `json:"report"`
}
