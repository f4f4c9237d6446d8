package store

import (
	"fmt"

	"github.com/kagehq/kage/internal/model"
)

// ExportSubjects returns every subject with its stored result count. The
// report part of each entry is left for the caller to fill in.
func (s *Store) ExportSubjects() ([]model.SubjectExport, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.display_name, s.share_id, s.created_at, COUNT(r.id)
		 FROM subjects s LEFT JOIN assessment_results r ON r.subject_id = s.id
		 GROUP BY s.id ORDER BY s.created_at, s.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []model.SubjectExport
	for rows.Next() {
		var e model.SubjectExport
		if err := rows.Scan(&e.Subject.ID, &e.Subject.DisplayName, &e.Subject.ShareID, &e.Subject.CreatedAt, &e.ResultCount); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
