package catalog

import (
	"context"

	"github.com/djlord-it/careerhub/internal/domain"
)

// Field names a string field of the job document that supports
// case-insensitive whole-string matching. Values are dotted document paths.
type Field string

const (
	FieldIndustry Field = "company.industry_name"
	FieldLocation Field = "company.headquarters"
	FieldCompany  Field = "company.name"
	FieldDegree   Field = "education.level"
	FieldSkills   Field = "skills" // matches any element of the array
)

// Fields lists every Field, for stores that build per-field query tables.
var Fields = []Field{FieldIndustry, FieldLocation, FieldCompany, FieldDegree, FieldSkills}

// IndustryCount is one group of the count-by-industry aggregation.
type IndustryCount struct {
	Industry string `json:"industry" bson:"_id"`
	JobCount int64  `json:"job_count" bson:"job_count"`
}

// UpdateResult reports what an Update touched.
type UpdateResult struct {
	Matched  int64
	Modified int64
}

// Store is the persisted job collection. Implementations live under
// internal/store. Every list result is ordered by job_id ascending unless
// the method says otherwise.
type Store interface {
	// Get returns ErrNotFound when no document has the id.
	Get(ctx context.Context, jobID int64) (domain.Job, error)

	// FindEqualFold returns documents whose field equals any of values when
	// both sides are lower-cased. Values are literals, never patterns.
	FindEqualFold(ctx context.Context, field Field, values ...string) ([]domain.Job, error)

	// FindSalaryRange returns documents with min <= average_salary <= max.
	FindSalaryRange(ctx context.Context, min, max int64) ([]domain.Job, error)

	All(ctx context.Context) ([]domain.Job, error)

	// CountByIndustry groups by company.industry_name, count descending.
	// Order among equal counts is store defined.
	CountByIndustry(ctx context.Context) ([]IndustryCount, error)

	// TopBySalary returns at most n documents ordered by average_salary
	// descending then job_id ascending.
	TopBySalary(ctx context.Context, n int) ([]domain.Job, error)

	// DistinctCompanies returns each company.name once, in no particular order.
	DistinctCompanies(ctx context.Context) ([]string, error)

	// InsertNext assigns job_id = max(job_id)+1 (1 when empty) and inserts
	// the document as one atomic step. It returns the assigned id.
	InsertNext(ctx context.Context, job domain.Job) (int64, error)

	// Update overwrites the patch's fields on the document with jobID.
	Update(ctx context.Context, jobID int64, patch domain.Patch) (UpdateResult, error)

	// Delete removes the document and reports how many were removed.
	Delete(ctx context.Context, jobID int64) (int64, error)

	Ping(ctx context.Context) error
}
