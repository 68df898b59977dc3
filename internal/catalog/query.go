package catalog

import (
	"context"
	"sort"
	"strings"

	"github.com/djlord-it/careerhub/internal/domain"
)

// TopSalaryLimit is the size of the top-by-salary ranking.
const TopSalaryLimit = 5

// MinSkillMatches is how many requested skills a document must carry to be
// returned by BySkills.
const MinSkillMatches = 2

// Every list query below returns an empty slice and a nil error when the
// filter is valid but nothing matches.

// Get returns the document with jobID or ErrNotFound.
func (s *Service) Get(ctx context.Context, jobID int64) (domain.Job, error) {
	var job domain.Job
	err := s.call(ctx, "get", func(ctx context.Context) error {
		var err error
		job, err = s.store.Get(ctx, jobID)
		return err
	})
	return job, err
}

func (s *Service) ByIndustry(ctx context.Context, name string) ([]domain.Job, error) {
	return s.byField(ctx, "by_industry", FieldIndustry, "industry", name)
}

func (s *Service) ByLocation(ctx context.Context, location string) ([]domain.Job, error) {
	return s.byField(ctx, "by_location", FieldLocation, "location", location)
}

func (s *Service) ByCompany(ctx context.Context, name string) ([]domain.Job, error) {
	return s.byField(ctx, "by_company", FieldCompany, "company", name)
}

// ByDegree matches education.level.
func (s *Service) ByDegree(ctx context.Context, level string) ([]domain.Job, error) {
	return s.byField(ctx, "by_degree", FieldDegree, "degree", level)
}

// BySkill matches documents carrying the skill as any element of skills.
func (s *Service) BySkill(ctx context.Context, skill string) ([]domain.Job, error) {
	return s.byField(ctx, "by_skill", FieldSkills, "skill", skill)
}

func (s *Service) byField(ctx context.Context, op string, field Field, param, value string) ([]domain.Job, error) {
	if strings.TrimSpace(value) == "" {
		return nil, invalid(param, "must not be empty")
	}
	jobs, err := s.find(ctx, op, field, value)
	if err != nil {
		return nil, err
	}
	s.recordLookup(ctx, param, value)
	s.observe(op, len(jobs))
	return jobs, nil
}

func (s *Service) find(ctx context.Context, op string, field Field, values ...string) ([]domain.Job, error) {
	var jobs []domain.Job
	err := s.call(ctx, op, func(ctx context.Context) error {
		var err error
		jobs, err = s.store.FindEqualFold(ctx, field, values...)
		return err
	})
	return nonNil(jobs), err
}

// BySkills returns documents carrying at least MinSkillMatches of the
// requested skills. Names are trimmed and blanks dropped; fewer than two
// remaining names is a validation error.
func (s *Service) BySkills(ctx context.Context, names []string) ([]domain.Job, error) {
	names = cleanNames(names)
	if len(names) < MinSkillMatches {
		return nil, invalid("skills", "Please provide at least two skills to match.")
	}

	candidates, err := s.find(ctx, "by_skills", FieldSkills, names...)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Job, 0, len(candidates))
	for _, job := range candidates {
		if skillMatches(job, names) >= MinSkillMatches {
			out = append(out, job)
		}
	}
	for _, n := range names {
		s.recordLookup(ctx, "skill", n)
	}
	s.observe("by_skills", len(out))
	return out, nil
}

// skillMatches counts the requested names present in job.Skills. A name
// repeated in the request counts once per occurrence.
func skillMatches(job domain.Job, names []string) int {
	n := 0
	for _, name := range names {
		if job.HasSkill(name) {
			n++
		}
	}
	return n
}

// BySalary returns documents whose average_salary lies within r, inclusive.
func (s *Service) BySalary(ctx context.Context, r SalaryRange) ([]domain.Job, error) {
	var jobs []domain.Job
	err := s.call(ctx, "by_salary", func(ctx context.Context) error {
		var err error
		jobs, err = s.store.FindSalaryRange(ctx, r.Min, r.Max)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.observe("by_salary", len(jobs))
	return nonNil(jobs), nil
}

// ByExperience returns documents whose years_of_experience falls in level's
// bucket. Documents with an unparseable range are skipped.
func (s *Service) ByExperience(ctx context.Context, level ExperienceLevel) ([]domain.Job, error) {
	if level == "" {
		return nil, invalid("experience_level", "parameter is required")
	}
	var all []domain.Job
	err := s.call(ctx, "by_experience", func(ctx context.Context) error {
		var err error
		all, err = s.store.All(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Job, 0)
	for _, job := range all {
		if bucket, ok := ExperienceBucket(job.YearsOfExperience); ok && bucket == level {
			out = append(out, job)
		}
	}
	s.recordLookup(ctx, "experience_level", string(level))
	s.observe("by_experience", len(out))
	return out, nil
}

// CountByIndustry returns job counts per industry name, count descending
// with ties broken by industry name ascending.
func (s *Service) CountByIndustry(ctx context.Context) ([]IndustryCount, error) {
	var groups []IndustryCount
	err := s.call(ctx, "count_by_industry", func(ctx context.Context) error {
		var err error
		groups, err = s.store.CountByIndustry(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].JobCount != groups[j].JobCount {
			return groups[i].JobCount > groups[j].JobCount
		}
		return groups[i].Industry < groups[j].Industry
	})
	if groups == nil {
		groups = []IndustryCount{}
	}
	return groups, nil
}

// TopBySalary returns the TopSalaryLimit best paid documents, salary
// descending then job_id ascending.
func (s *Service) TopBySalary(ctx context.Context) ([]domain.Job, error) {
	var jobs []domain.Job
	err := s.call(ctx, "top_by_salary", func(ctx context.Context) error {
		var err error
		jobs, err = s.store.TopBySalary(ctx, TopSalaryLimit)
		return err
	})
	return nonNil(jobs), err
}

// HiringCompanies lists every distinct company name, sorted
// case-insensitively.
func (s *Service) HiringCompanies(ctx context.Context) ([]string, error) {
	var names []string
	err := s.call(ctx, "hiring_companies", func(ctx context.Context) error {
		var err error
		names, err = s.store.DistinctCompanies(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func nonNil(jobs []domain.Job) []domain.Job {
	if jobs == nil {
		return []domain.Job{}
	}
	return jobs
}
