package store

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kagehq/kage/internal/model"
)

// CreateCandidate adds a subject to an organization's pipeline. A subject
// can be a candidate of each organization once.
func (s *Store) CreateCandidate(c model.Candidate) (model.Candidate, error) {
	if c.HiringStatus == "" {
		c.HiringStatus = model.HiringScreening
	}
	c.CreatedAt = time.Now().UTC()
	res, err := s.db.Exec(
		`INSERT INTO candidate_profiles (organization_id, subject_id, campaign_id, hiring_status, risk_level, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(organization_id, subject_id) DO NOTHING`,
		c.OrganizationID, c.SubjectID, c.CampaignID, c.HiringStatus, c.RiskLevel, c.CreatedAt,
	)
	if err != nil {
		slog.Error("failed to create candidate", "org", c.OrganizationID, "subject_id", c.SubjectID, "error", err)
		return model.Candidate{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Candidate{}, err
	}
	if n == 0 {
		return model.Candidate{}, fmt.Errorf("%w: %s in %s", ErrCandidateExists, c.SubjectID, c.OrganizationID)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return model.Candidate{}, err
	}
	slog.Info("created candidate", "id", c.ID, "org", c.OrganizationID, "subject_id", c.SubjectID, "risk", c.RiskLevel)
	return c, nil
}

// ListCandidates returns an organization's candidates, newest first.
func (s *Store) ListCandidates(orgID string) ([]model.Candidate, error) {
	rows, err := s.db.Query(
		`SELECT id, organization_id, subject_id, campaign_id, hiring_status, risk_level, created_at
		 FROM candidate_profiles WHERE organization_id = ? ORDER BY created_at DESC, id DESC`, orgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Candidate
	for rows.Next() {
		var c model.Candidate
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.SubjectID, &c.CampaignID, &c.HiringStatus, &c.RiskLevel, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
