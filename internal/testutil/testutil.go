// Package testutil provides shared test helpers for careerhub.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/djlord-it/careerhub/internal/domain"
)

// FakeClock provides deterministic time for testing.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// TestContext returns a context with a 5-second timeout.
// The context is cancelled when the test completes.
func TestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// NewJob returns a complete document; callers override what the test needs.
func NewJob(id int64, title string) domain.Job {
	return domain.Job{
		JobID:             id,
		Title:             title,
		YearsOfExperience: "3-5",
		Description:       "Build things",
		Responsibilities:  "Ship things",
		Company: domain.Company{
			CompanyID:    100 + id,
			Name:         "Acme",
			Headquarters: "New York",
			Size:         "500",
			Type:         "Private",
			Website:      "https://acme.example.com",
			Description:  "Widgets",
			IndustryID:   Ptr(int64(7)),
			IndustryName: "Technology",
		},
		Education:      domain.Education{EducationID: 1, Level: "Bachelor's", Field: "Computer Science"},
		Skills:         []string{},
		EmploymentType: "Full-time",
		AverageSalary:  100000,
		Benefits:       "Health",
		Remote:         false,
		JobPostingURL:  "https://jobs.example.com/" + title,
		PostingDate:    Ptr("2025-01-02"),
		ClosingDate:    nil,
	}
}

// FixtureJobs is a small catalog exercising every query:
//
//	id  company  location       industry    degree      skills               salary  years
//	1   Acme     New York       Technology  Bachelor's  Python SQL Spark     120000  3-6
//	2   Globex   Berlin         Finance     Master's    Python Excel         90000   2-4
//	3   Initech  new york       Technology  PhD         Java sql python      150000  6-9
//	4   Hooli    San Francisco  Design      Bachelor's  Figma                150000  1-2
//	5   initech  Austin         Technology  Diploma     (none)               30000   n/a
func FixtureJobs() []domain.Job {
	j1 := NewJob(1, "Data Engineer")
	j1.Skills = []string{"Python", "SQL", "Spark"}
	j1.AverageSalary = 120000
	j1.YearsOfExperience = "3-6"

	j2 := NewJob(2, "Analyst")
	j2.Company.Name = "Globex"
	j2.Company.Headquarters = "Berlin"
	j2.Company.IndustryID = Ptr(int64(8))
	j2.Company.IndustryName = "Finance"
	j2.Education.Level = "Master's"
	j2.Skills = []string{"Python", "Excel"}
	j2.AverageSalary = 90000
	j2.YearsOfExperience = "2-4"

	j3 := NewJob(3, "Principal Engineer")
	j3.Company.Name = "Initech"
	j3.Company.Headquarters = "new york"
	j3.Education.Level = "PhD"
	j3.Skills = []string{"Java", "sql", "python"}
	j3.AverageSalary = 150000
	j3.YearsOfExperience = "6-9"
	j3.Remote = true

	j4 := NewJob(4, "Designer")
	j4.Company.Name = "Hooli"
	j4.Company.Headquarters = "San Francisco"
	j4.Company.IndustryID = nil
	j4.Company.IndustryName = "Design"
	j4.Skills = []string{"Figma"}
	j4.AverageSalary = 150000
	j4.YearsOfExperience = "1-2"

	j5 := NewJob(5, "Intern")
	j5.Company.Name = "initech"
	j5.Company.Headquarters = "Austin"
	j5.Education.Level = "Diploma"
	j5.AverageSalary = 30000
	j5.YearsOfExperience = "n/a"
	j5.PostingDate = nil

	return []domain.Job{j1, j2, j3, j4, j5}
}
