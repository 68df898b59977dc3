package catalog

import (
	"context"
	"errors"

	"github.com/djlord-it/careerhub/internal/domain"
)

// Create validates job and inserts it under the next job_id, which it returns.
// Ids increase in creation order.
func (s *Service) Create(ctx context.Context, job domain.Job) (int64, error) {
	if err := s.validateJob(job); err != nil {
		s.outcome("create", OutcomeRejected)
		return 0, err
	}
	job.JobID = 0
	if job.Skills == nil {
		job.Skills = []string{}
	}

	var id int64
	err := s.call(ctx, "insert_next", func(ctx context.Context) error {
		var err error
		id, err = s.store.InsertNext(ctx, job)
		return err
	})
	if err != nil {
		s.outcome("create", OutcomeFailed)
		return 0, err
	}
	s.outcome("create", OutcomeCreated)
	s.log.Info().Int64("job_id", id).Msg("job created")
	return id, nil
}

// UpdateOutcome describes a successful partial update.
type UpdateOutcome struct {
	JobID   int64
	Fields  []string // fields named by the patch, in whitelist order
	Changed bool     // false when every value already matched
}

// Update applies patch to the document with jobID. It returns ErrNotFound
// when the document does not exist; nothing is written on any error.
func (s *Service) Update(ctx context.Context, jobID int64, patch domain.Patch) (UpdateOutcome, error) {
	if patch.Empty() {
		s.outcome("update", OutcomeRejected)
		return UpdateOutcome{}, invalid("", "No valid fields to update")
	}
	if err := s.validatePatch(patch); err != nil {
		s.outcome("update", OutcomeRejected)
		return UpdateOutcome{}, err
	}

	var res UpdateResult
	err := s.call(ctx, "update", func(ctx context.Context) error {
		var err error
		res, err = s.store.Update(ctx, jobID, patch)
		return err
	})
	if err == nil && res.Matched == 0 {
		err = ErrNotFound
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.outcome("update", OutcomeNotFound)
		} else {
			s.outcome("update", OutcomeFailed)
		}
		return UpdateOutcome{}, err
	}

	out := UpdateOutcome{JobID: jobID, Fields: patch.Fields(), Changed: res.Modified > 0}
	if out.Changed {
		s.outcome("update", OutcomeUpdated)
		s.log.Info().Int64("job_id", jobID).Strs("fields", out.Fields).Msg("job updated")
	} else {
		s.outcome("update", OutcomeUnchanged)
	}
	return out, nil
}

// Delete removes the document with jobID, or returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, jobID int64) error {
	var n int64
	err := s.call(ctx, "delete", func(ctx context.Context) error {
		var err error
		n, err = s.store.Delete(ctx, jobID)
		return err
	})
	if err == nil && n == 0 {
		err = ErrNotFound
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.outcome("delete", OutcomeNotFound)
		} else {
			s.outcome("delete", OutcomeFailed)
		}
		return err
	}
	s.outcome("delete", OutcomeDeleted)
	s.log.Info().Int64("job_id", jobID).Msg("job deleted")
	return nil
}
