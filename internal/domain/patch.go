package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// UpdatableFields is the whitelist of document fields a partial update may
// overwrite. job_id is deliberately absent.
var UpdatableFields = []string{
	"title",
	"years_of_experience",
	"description",
	"responsibilities",
	"company",
	"education",
	"skills",
	"employment_type",
	"average_salary",
	"benefits",
	"remote",
	"job_posting_url",
	"posting_date",
	"closing_date",
}

var fieldOrder = func() map[string]int {
	m := make(map[string]int, len(UpdatableFields))
	for i, f := range UpdatableFields {
		m[f] = i
	}
	return m
}()

// ErrUnknownField is returned by Patch.Set for names outside UpdatableFields.
var ErrUnknownField = errors.New("unknown field")

// IsUpdatable reports whether name is in UpdatableFields.
func IsUpdatable(name string) bool {
	_, ok := fieldOrder[name]
	return ok
}

// Patch is a typed partial update of a Job. Only the fields that were Set
// are applied; a Set date field holding nil clears the date.
type Patch struct {
	fields []string
	values Job
}

// Set decodes raw into the named field. Keys inside company and education
// must name fields of those objects.
func (p *Patch) Set(name string, raw json.RawMessage) error {
	target := p.target(name)
	if target == nil {
		return ErrUnknownField
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return err
	}
	for _, f := range p.fields {
		if f == name {
			return nil
		}
	}
	p.fields = append(p.fields, name)
	sort.Slice(p.fields, func(i, k int) bool {
		return fieldOrder[p.fields[i]] < fieldOrder[p.fields[k]]
	})
	return nil
}

// Fields returns the names that were set, in whitelist order.
func (p Patch) Fields() []string {
	out := make([]string, len(p.fields))
	copy(out, p.fields)
	return out
}

func (p Patch) Empty() bool { return len(p.fields) == 0 }

// Has reports whether name was set.
func (p Patch) Has(name string) bool {
	for _, f := range p.fields {
		if f == name {
			return true
		}
	}
	return false
}

// Company returns the replacement company when the patch sets one.
func (p Patch) Company() (Company, bool) {
	return p.values.Company, p.Has("company")
}

// PostingDate and ClosingDate return the replacement dates when set.
func (p Patch) PostingDate() (*string, bool) { return p.values.PostingDate, p.Has("posting_date") }
func (p Patch) ClosingDate() (*string, bool) { return p.values.ClosingDate, p.Has("closing_date") }

// Values returns the set fields keyed by document field name. Stores use it
// to build their native update statements.
func (p Patch) Values() map[string]any {
	src := p.values
	out := make(map[string]any, len(p.fields))
	for _, f := range p.fields {
		switch f {
		case "title":
			out[f] = src.Title
		case "years_of_experience":
			out[f] = src.YearsOfExperience
		case "description":
			out[f] = src.Description
		case "responsibilities":
			out[f] = src.Responsibilities
		case "company":
			out[f] = src.Company
		case "education":
			out[f] = src.Education
		case "skills":
			out[f] = nonNilSkills(src.Skills)
		case "employment_type":
			out[f] = src.EmploymentType
		case "average_salary":
			out[f] = src.AverageSalary
		case "benefits":
			out[f] = src.Benefits
		case "remote":
			out[f] = src.Remote
		case "job_posting_url":
			out[f] = src.JobPostingURL
		case "posting_date":
			out[f] = src.PostingDate
		case "closing_date":
			out[f] = src.ClosingDate
		}
	}
	return out
}

// Apply returns a copy of j with the patch applied. JobID is never touched.
func (p Patch) Apply(j Job) Job {
	src := p.values
	for _, f := range p.fields {
		switch f {
		case "title":
			j.Title = src.Title
		case "years_of_experience":
			j.YearsOfExperience = src.YearsOfExperience
		case "description":
			j.Description = src.Description
		case "responsibilities":
			j.Responsibilities = src.Responsibilities
		case "company":
			j.Company = src.Company
		case "education":
			j.Education = src.Education
		case "skills":
			j.Skills = append([]string{}, src.Skills...)
		case "employment_type":
			j.EmploymentType = src.EmploymentType
		case "average_salary":
			j.AverageSalary = src.AverageSalary
		case "benefits":
			j.Benefits = src.Benefits
		case "remote":
			j.Remote = src.Remote
		case "job_posting_url":
			j.JobPostingURL = src.JobPostingURL
		case "posting_date":
			j.PostingDate = src.PostingDate
		case "closing_date":
			j.ClosingDate = src.ClosingDate
		}
	}
	return j
}

func (p *Patch) target(name string) any {
	v := &p.values
	switch name {
	case "title":
		return &v.Title
	case "years_of_experience":
		return &v.YearsOfExperience
	case "description":
		return &v.Description
	case "responsibilities":
		return &v.Responsibilities
	case "company":
		return &v.Company
	case "education":
		return &v.Education
	case "skills":
		return &v.Skills
	case "employment_type":
		return &v.EmploymentType
	case "average_salary":
		return &v.AverageSalary
	case "benefits":
		return &v.Benefits
	case "remote":
		return &v.Remote
	case "job_posting_url":
		return &v.JobPostingURL
	case "posting_date":
		return &v.PostingDate
	case "closing_date":
		return &v.ClosingDate
	}
	return nil
}

func nonNilSkills(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
