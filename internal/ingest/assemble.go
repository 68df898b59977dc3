package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/djlord-it/careerhub/internal/domain"
)

// Source file names inside the data directory.
const (
	FilePostings   = "jobs.csv"
	FileDetails    = "jobs_detail.csv"
	FileCompanies  = "companies.csv"
	FileIndustries = "industries.csv"
	FileEducation  = "education.csv"
	FileSkills     = "skills.csv"
)

// sourceDateLayout accepts MM/DD/YYYY with or without zero padding.
const sourceDateLayout = "1/2/2006"

// Sources are the six tabular inputs of one ingestion run.
type Sources struct {
	Postings   *Table
	Details    *Table
	Companies  *Table
	Industries *Table
	Education  *Table
	Skills     *Table
}

// LoadSources reads every source file from dir.
func LoadSources(dir string) (Sources, error) {
	var src Sources
	files := []struct {
		dst  **Table
		file string
	}{
		{&src.Postings, FilePostings},
		{&src.Details, FileDetails},
		{&src.Companies, FileCompanies},
		{&src.Industries, FileIndustries},
		{&src.Education, FileEducation},
		{&src.Skills, FileSkills},
	}
	for _, f := range files {
		t, err := ReadTable(filepath.Join(dir, f.file), f.file)
		if err != nil {
			return Sources{}, err
		}
		*f.dst = t
	}
	return src, nil
}

// MissingIndustry records a company whose industry id did not resolve.
type MissingIndustry struct {
	IndustryID *int64
	CompanyID  int64
}

// Assembler joins postings with their details and resolves every reference
// into a self-contained domain.Job.
type Assembler struct {
	log zerolog.Logger
}

func NewAssembler(log zerolog.Logger) *Assembler {
	return &Assembler{log: log}
}

// Assemble inner-joins postings (id) with details (job_id) in posting order.
// Postings without details are skipped. Any Fault aborts the whole batch.
func (a *Assembler) Assemble(src Sources, lk *Lookups) ([]domain.Job, []MissingIndustry, error) {
	postings, details := src.Postings, src.Details
	if err := postings.Require("id", "company_id", "title", "years_of_experience", "average_salary",
		"employment_type", "remote", "posting_date", "closing_date", "job_posting_url"); err != nil {
		return nil, nil, err
	}
	if err := details.Require("job_id", "description", "responsibilities", "benefits",
		"education_id", "skills_requirement"); err != nil {
		return nil, nil, err
	}

	detailByJob := make(map[int64][]string, len(details.Rows))
	for i, row := range details.Rows {
		jobID, err := parseID(details.Get(row, "job_id"))
		if err != nil {
			return nil, nil, &Fault{Table: details.Name, Row: i + 1, Err: fmt.Errorf("job_id: %w", err)}
		}
		if _, dup := detailByJob[jobID]; dup {
			return nil, nil, &Fault{Table: details.Name, Row: i + 1, JobID: jobID,
				Err: errors.New("more than one details row for posting")}
		}
		detailByJob[jobID] = row
	}

	remote := boolColumn(postings, "remote")

	var (
		jobs    []domain.Job
		missing []MissingIndustry
		seen    = make(map[int64]bool, len(postings.Rows))
	)
	for i, row := range postings.Rows {
		id, err := parseID(postings.Get(row, "id"))
		if err != nil {
			return nil, nil, &Fault{Table: postings.Name, Row: i + 1, Err: fmt.Errorf("id: %w", err)}
		}
		if seen[id] {
			return nil, nil, &Fault{Table: postings.Name, Row: i + 1, JobID: id,
				Err: errors.New("duplicate posting id")}
		}
		seen[id] = true
		detail, ok := detailByJob[id]
		if !ok {
			continue
		}

		job, miss, err := a.assembleOne(id, postings, row, details, detail, lk)
		if err != nil {
			return nil, nil, err
		}
		job.Remote = remote[i]
		if miss != nil {
			missing = append(missing, *miss)
		}
		jobs = append(jobs, job)
	}
	return jobs, missing, nil
}

func (a *Assembler) assembleOne(id int64, pt *Table, p []string, dt *Table, d []string, lk *Lookups) (domain.Job, *MissingIndustry, error) {
	fault := func(table string, err error) error {
		return &Fault{Table: table, JobID: id, Err: err}
	}

	companyID, err := parseID(pt.Get(p, "company_id"))
	if err != nil {
		return domain.Job{}, nil, fault(pt.Name, fmt.Errorf("company_id: %w", err))
	}
	comp, ok := lk.Companies[companyID]
	if !ok {
		return domain.Job{}, nil, fault(pt.Name, fmt.Errorf("company %d not found", companyID))
	}

	var miss *MissingIndustry
	industryName := domain.UnknownIndustry
	if ind, ok := lk.industry(comp.IndustryID); ok {
		industryName = ind.IndustryName
	} else {
		miss = &MissingIndustry{IndustryID: comp.IndustryID, CompanyID: companyID}
		a.log.Warn().
			Str("industry_id", formatOptionalID(comp.IndustryID)).
			Int64("company_id", companyID).
			Msgf("Industry ID %s not found for company %d", formatOptionalID(comp.IndustryID), companyID)
	}

	educationID, err := parseID(dt.Get(d, "education_id"))
	if err != nil {
		return domain.Job{}, nil, fault(dt.Name, fmt.Errorf("education_id: %w", err))
	}
	edu, ok := lk.Education[educationID]
	if !ok {
		return domain.Job{}, nil, fault(dt.Name, fmt.Errorf("education %d not found", educationID))
	}

	skills, err := ParseSkills(dt.Get(d, "skills_requirement"), lk.Skills)
	if err != nil {
		return domain.Job{}, nil, fault(dt.Name, fmt.Errorf("skills_requirement: %w", err))
	}

	postingDate, err := ConvertDate(pt.Get(p, "posting_date"))
	if err != nil {
		return domain.Job{}, nil, fault(pt.Name, fmt.Errorf("posting_date: %w", err))
	}
	closingDate, err := ConvertDate(pt.Get(p, "closing_date"))
	if err != nil {
		return domain.Job{}, nil, fault(pt.Name, fmt.Errorf("closing_date: %w", err))
	}

	salary, err := parseSalary(pt.Get(p, "average_salary"))
	if err != nil {
		return domain.Job{}, nil, fault(pt.Name, fmt.Errorf("average_salary: %w", err))
	}

	job := domain.Job{
		JobID:             id,
		Title:             pt.Get(p, "title"),
		YearsOfExperience: pt.Get(p, "years_of_experience"),
		Description:       dt.Get(d, "description"),
		Responsibilities:  dt.Get(d, "responsibilities"),
		Company: domain.Company{
			CompanyID:    companyID,
			Name:         comp.Name,
			Headquarters: comp.Headquarters,
			Size:         comp.Size,
			Type:         comp.Type,
			Website:      comp.Website,
			Description:  comp.Description,
			IndustryID:   comp.IndustryID,
			IndustryName: industryName,
		},
		Education: domain.Education{
			EducationID: educationID,
			Level:       edu.Level,
			Field:       edu.Field,
		},
		Skills:         skills,
		EmploymentType: pt.Get(p, "employment_type"),
		AverageSalary:  salary,
		Benefits:       dt.Get(d, "benefits"),
		JobPostingURL:  pt.Get(p, "job_posting_url"),
		PostingDate:    postingDate,
		ClosingDate:    closingDate,
	}
	return job, miss, nil
}

// ParseSkills decodes a JSON array of skill ids and resolves each through
// skills. Ids that do not resolve are dropped. A missing value yields an
// empty, non-nil slice.
func ParseSkills(raw string, skills map[int64]string) ([]string, error) {
	out := []string{}
	if isMissing(raw) {
		return out, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var ids []any
	if err := dec.Decode(&ids); err != nil {
		return nil, err
	}
	for _, v := range ids {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			continue
		}
		if name, ok := skills[int64(f)]; ok {
			out = append(out, name)
		}
	}
	return out, nil
}

// ConvertDate turns a MM/DD/YYYY source value into an ISO-8601 date.
// Missing values yield nil; anything else that does not parse is an error.
func ConvertDate(raw string) (*string, error) {
	if isMissing(raw) {
		return nil, nil
	}
	t, err := time.Parse(sourceDateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("date %q does not match MM/DD/YYYY", raw)
	}
	iso := t.Format(time.DateOnly)
	return &iso, nil
}

func parseSalary(raw string) (int64, error) {
	if isMissing(raw) {
		return 0, errors.New("missing value")
	}
	n, err := parseID(raw)
	if err == nil {
		return n, nil
	}
	// Fractional salaries such as "85000.50" are truncated.
	f, ferr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, err
	}
	return int64(f), nil
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return "nan"
	}
	return fmt.Sprintf("%d", *id)
}

// TransformIndustries is the flat industries passthrough: id becomes industry_id.
func TransformIndustries(t *Table) ([]domain.Industry, error) {
	if err := t.Require("id", "industry_name"); err != nil {
		return nil, err
	}
	out := make([]domain.Industry, 0, len(t.Rows))
	for i, row := range t.Rows {
		id, err := rowID(t, i, row)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.Industry{IndustryID: id, IndustryName: t.Get(row, "industry_name")})
	}
	return out, nil
}
