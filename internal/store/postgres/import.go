package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/djlord-it/careerhub/internal/domain"
)

// ReplaceAll swaps both collections for the given documents in one
// transaction. Rows are streamed with COPY; readers see either the old or
// the new collections, never a mix.
func (s *Store) ReplaceAll(ctx context.Context, jobs []domain.Job, industries []domain.Industry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, queryTruncate); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	jobStmt, err := tx.PrepareContext(ctx, pq.CopyIn("jobs", "job_id", "doc"))
	if err != nil {
		return fmt.Errorf("copy jobs: %w", err)
	}
	for _, j := range jobs {
		if j.Skills == nil {
			j.Skills = []string{}
		}
		doc, err := json.Marshal(j)
		if err != nil {
			jobStmt.Close()
			return fmt.Errorf("encode job %d: %w", j.JobID, err)
		}
		if _, err := jobStmt.ExecContext(ctx, j.JobID, string(doc)); err != nil {
			jobStmt.Close()
			return fmt.Errorf("copy job %d: %w", j.JobID, err)
		}
	}
	if _, err := jobStmt.ExecContext(ctx); err != nil {
		jobStmt.Close()
		return fmt.Errorf("flush jobs: %w", err)
	}
	if err := jobStmt.Close(); err != nil {
		return err
	}

	indStmt, err := tx.PrepareContext(ctx, pq.CopyIn("industries", "industry_id", "industry_name"))
	if err != nil {
		return fmt.Errorf("copy industries: %w", err)
	}
	for _, ind := range industries {
		if _, err := indStmt.ExecContext(ctx, ind.IndustryID, ind.IndustryName); err != nil {
			indStmt.Close()
			return fmt.Errorf("copy industry %d: %w", ind.IndustryID, err)
		}
	}
	if _, err := indStmt.ExecContext(ctx); err != nil {
		indStmt.Close()
		return fmt.Errorf("flush industries: %w", err)
	}
	if err := indStmt.Close(); err != nil {
		return err
	}

	return tx.Commit()
}
