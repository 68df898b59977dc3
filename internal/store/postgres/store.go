package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/djlord-it/careerhub/internal/catalog"
	"github.com/djlord-it/careerhub/internal/domain"
)

// idLockKey is the transaction-scoped advisory lock taken while assigning
// the next job_id.
const idLockKey int64 = 0x6a6f62_6964 // "jobid"

// fieldColumns maps each matchable field to its text expression.
var fieldColumns = map[catalog.Field]string{
	catalog.FieldIndustry: "doc->'company'->>'industry_name'",
	catalog.FieldLocation: "doc->'company'->>'headquarters'",
	catalog.FieldCompany:  "doc->'company'->>'name'",
	catalog.FieldDegree:   "doc->'education'->>'level'",
}

// Store implements catalog.Store on a PostgreSQL JSONB table.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL store with the given database connection.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the tables and indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, querySchema)
	return err
}

func (s *Store) Get(ctx context.Context, jobID int64) (domain.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, queryGetJob, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, catalog.ErrNotFound
	}
	return job, err
}

// FindEqualFold compares lower(field) against the lower-cased values with
// = ANY, so values are bound parameters and never patterns.
func (s *Store) FindEqualFold(ctx context.Context, field catalog.Field, values ...string) ([]domain.Job, error) {
	query, err := equalFoldQuery(field)
	if err != nil {
		return nil, err
	}
	lowered := make([]string, len(values))
	for i, v := range values {
		lowered[i] = strings.ToLower(v)
	}
	return s.queryJobs(ctx, query, pq.Array(lowered))
}

func equalFoldQuery(field catalog.Field) (string, error) {
	if field == catalog.FieldSkills {
		return fmt.Sprintf(queryFindEqualFold, querySkillsPredicate), nil
	}
	col, ok := fieldColumns[field]
	if !ok {
		return "", fmt.Errorf("postgres: unsupported field %q", field)
	}
	return fmt.Sprintf(queryFindEqualFold, "lower("+col+") = ANY($1)"), nil
}

func (s *Store) FindSalaryRange(ctx context.Context, min, max int64) ([]domain.Job, error) {
	return s.queryJobs(ctx, queryFindSalaryRange, min, max)
}

func (s *Store) All(ctx context.Context) ([]domain.Job, error) {
	return s.queryJobs(ctx, queryAll)
}

func (s *Store) CountByIndustry(ctx context.Context) ([]catalog.IndustryCount, error) {
	rows, err := s.db.QueryContext(ctx, queryCountByIndustry)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.IndustryCount
	for rows.Next() {
		var (
			industry sql.NullString
			count    int64
		)
		if err := rows.Scan(&industry, &count); err != nil {
			return nil, err
		}
		result = append(result, catalog.IndustryCount{Industry: industry.String, JobCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) TopBySalary(ctx context.Context, n int) ([]domain.Job, error) {
	return s.queryJobs(ctx, queryTopBySalary, n)
}

func (s *Store) DistinctCompanies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, queryDistinctCompanies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// InsertNext assigns max(job_id)+1 and inserts in one transaction. The
// advisory lock serializes concurrent creators; the primary key is the
// backstop.
func (s *Store) InsertNext(ctx context.Context, job domain.Job) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, queryLockJobIDs, idLockKey); err != nil {
		return 0, fmt.Errorf("lock job ids: %w", err)
	}

	var next int64
	if err := tx.QueryRowContext(ctx, queryNextJobID).Scan(&next); err != nil {
		return 0, fmt.Errorf("next job id: %w", err)
	}

	job.JobID = next
	doc, err := json.Marshal(job)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, queryInsertJob, next, string(doc)); err != nil {
		if isDuplicateKeyError(err) {
			return 0, fmt.Errorf("job_id %d already taken: %w", next, err)
		}
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

// Update merges the patch into the stored document. A statement that
// affects no row means either the job is missing or nothing changed; an
// existence check tells the two apart.
func (s *Store) Update(ctx context.Context, jobID int64, patch domain.Patch) (catalog.UpdateResult, error) {
	set, err := json.Marshal(patch.Values())
	if err != nil {
		return catalog.UpdateResult{}, err
	}

	result, err := s.db.ExecContext(ctx, queryUpdateJob, jobID, string(set))
	if err != nil {
		return catalog.UpdateResult{}, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return catalog.UpdateResult{}, err
	}
	if rowsAffected > 0 {
		return catalog.UpdateResult{Matched: 1, Modified: 1}, nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx, queryJobExists, jobID).Scan(&exists); err != nil {
		return catalog.UpdateResult{}, err
	}
	if !exists {
		return catalog.UpdateResult{}, nil
	}
	return catalog.UpdateResult{Matched: 1}, nil
}

func (s *Store) Delete(ctx context.Context, jobID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx, queryDeleteJob, jobID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]domain.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (domain.Job, error) {
	var (
		id  int64
		doc []byte
	)
	if err := row.Scan(&id, &doc); err != nil {
		return domain.Job{}, err
	}
	var job domain.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return domain.Job{}, fmt.Errorf("decode job %d: %w", id, err)
	}
	job.JobID = id
	if job.Skills == nil {
		job.Skills = []string{}
	}
	return job, nil
}

// isDuplicateKeyError reports a PostgreSQL unique violation (23505).
func isDuplicateKeyError(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
