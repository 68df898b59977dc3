// Package memory is an in-process catalog store for development and tests.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/djlord-it/careerhub/internal/catalog"
	"github.com/djlord-it/careerhub/internal/domain"
	"github.com/djlord-it/careerhub/internal/ingest"
)

// Store keeps documents in a map guarded by one RWMutex. Every document
// going in or out is copied, so callers never share slices with the store.
type Store struct {
	mu   sync.RWMutex
	jobs map[int64]domain.Job
}

func New() *Store {
	return &Store{jobs: make(map[int64]domain.Job)}
}

// NewFromFile returns a store seeded from a jobs.json file written by ingest.
func NewFromFile(path string) (*Store, error) {
	jobs, err := ingest.ReadJobs(path)
	if err != nil {
		return nil, fmt.Errorf("seed memory store: %w", err)
	}
	s := New()
	if err := s.Load(jobs); err != nil {
		return nil, err
	}
	return s, nil
}

// Load replaces the whole collection. Duplicate job ids are rejected.
func (s *Store) Load(jobs []domain.Job) error {
	next := make(map[int64]domain.Job, len(jobs))
	for _, j := range jobs {
		if _, dup := next[j.JobID]; dup {
			return fmt.Errorf("duplicate job_id %d", j.JobID)
		}
		next[j.JobID] = clone(j)
	}
	s.mu.Lock()
	s.jobs = next
	s.mu.Unlock()
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}

func (s *Store) Get(ctx context.Context, jobID int64) (domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[jobID]
	if !ok {
		return domain.Job{}, catalog.ErrNotFound
	}
	return clone(j), nil
}

func (s *Store) FindEqualFold(ctx context.Context, field catalog.Field, values ...string) ([]domain.Job, error) {
	get, ok := fieldValues[field]
	if !ok {
		return nil, fmt.Errorf("memory: unsupported field %q", field)
	}
	return s.filter(func(j domain.Job) bool {
		for _, have := range get(j) {
			for _, want := range values {
				if domain.SameText(have, want) {
					return true
				}
			}
		}
		return false
	}), nil
}

func (s *Store) FindSalaryRange(ctx context.Context, min, max int64) ([]domain.Job, error) {
	return s.filter(func(j domain.Job) bool {
		return j.AverageSalary >= min && j.AverageSalary <= max
	}), nil
}

func (s *Store) All(ctx context.Context) ([]domain.Job, error) {
	return s.filter(func(domain.Job) bool { return true }), nil
}

func (s *Store) CountByIndustry(ctx context.Context) ([]catalog.IndustryCount, error) {
	s.mu.RLock()
	counts := make(map[string]int64)
	for _, j := range s.jobs {
		counts[j.Company.IndustryName]++
	}
	s.mu.RUnlock()

	out := make([]catalog.IndustryCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, catalog.IndustryCount{Industry: name, JobCount: n})
	}
	sort.Slice(out, func(i, k int) bool { return out[i].JobCount > out[k].JobCount })
	return out, nil
}

func (s *Store) TopBySalary(ctx context.Context, n int) ([]domain.Job, error) {
	all := s.filter(func(domain.Job) bool { return true })
	sort.SliceStable(all, func(i, k int) bool {
		return all[i].AverageSalary > all[k].AverageSalary
	})
	if n >= 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (s *Store) DistinctCompanies(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	out := []string{}
	for _, j := range s.jobs {
		if !seen[j.Company.Name] {
			seen[j.Company.Name] = true
			out = append(out, j.Company.Name)
		}
	}
	return out, nil
}

// InsertNext holds the write lock across max+1 and the insert.
func (s *Store) InsertNext(ctx context.Context, job domain.Job) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var max int64
	for id := range s.jobs {
		if id > max {
			max = id
		}
	}
	job.JobID = max + 1
	s.jobs[job.JobID] = clone(job)
	return job.JobID, nil
}

func (s *Store) Update(ctx context.Context, jobID int64, patch domain.Patch) (catalog.UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.jobs[jobID]
	if !ok {
		return catalog.UpdateResult{}, nil
	}
	next := patch.Apply(clone(cur))
	if reflect.DeepEqual(cur, next) {
		return catalog.UpdateResult{Matched: 1}, nil
	}
	s.jobs[jobID] = next
	return catalog.UpdateResult{Matched: 1, Modified: 1}, nil
}

func (s *Store) Delete(ctx context.Context, jobID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[jobID]; !ok {
		return 0, nil
	}
	delete(s.jobs, jobID)
	return 1, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// filter returns copies of the matching documents ordered by job_id.
func (s *Store) filter(keep func(domain.Job) bool) []domain.Job {
	s.mu.RLock()
	out := make([]domain.Job, 0)
	for _, j := range s.jobs {
		if keep(j) {
			out = append(out, clone(j))
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, k int) bool { return out[i].JobID < out[k].JobID })
	return out
}

var fieldValues = map[catalog.Field]func(domain.Job) []string{
	catalog.FieldIndustry: func(j domain.Job) []string { return []string{j.Company.IndustryName} },
	catalog.FieldLocation: func(j domain.Job) []string { return []string{j.Company.Headquarters} },
	catalog.FieldCompany:  func(j domain.Job) []string { return []string{j.Company.Name} },
	catalog.FieldDegree:   func(j domain.Job) []string { return []string{j.Education.Level} },
	catalog.FieldSkills:   func(j domain.Job) []string { return j.Skills },
}

func clone(j domain.Job) domain.Job {
	if j.Skills == nil {
		j.Skills = []string{}
	} else {
		j.Skills = append([]string{}, j.Skills...)
	}
	j.PostingDate = cloneString(j.PostingDate)
	j.ClosingDate = cloneString(j.ClosingDate)
	if j.Company.IndustryID != nil {
		id := *j.Company.IndustryID
		j.Company.IndustryID = &id
	}
	return j
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
