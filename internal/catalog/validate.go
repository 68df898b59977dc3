package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/djlord-it/careerhub/internal/domain"
)

// Salary bounds applied when a request omits one side of the range.
const (
	DefaultMinSalary int64 = 0
	DefaultMaxSalary int64 = 999999999
)

// SalaryRange is an inclusive bound on average_salary.
type SalaryRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// ParseSalaryRange reads optional integer bounds. An empty string selects
// the default; anything else must be an integer.
func ParseSalaryRange(minRaw, maxRaw string) (SalaryRange, error) {
	r := SalaryRange{Min: DefaultMinSalary, Max: DefaultMaxSalary}
	var errs ValidationErrors
	if minRaw != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(minRaw), 10, 64)
		if err != nil {
			errs = append(errs, ValidationError{Field: "min_salary", Message: fmt.Sprintf("invalid integer %q", minRaw)})
		}
		r.Min = n
	}
	if maxRaw != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(maxRaw), 10, 64)
		if err != nil {
			errs = append(errs, ValidationError{Field: "max_salary", Message: fmt.Sprintf("invalid integer %q", maxRaw)})
		}
		r.Max = n
	}
	if len(errs) > 0 {
		return SalaryRange{}, errs
	}
	return r, nil
}

// ParseSkillList splits an '&'-separated list, trimming names and dropping blanks.
func ParseSkillList(raw string) []string {
	return cleanNames(strings.Split(raw, "&"))
}

func cleanNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// DecodeJob decodes a create payload. Fields not in the document schema are
// rejected; job_id, if present, is ignored because Create assigns it.
func DecodeJob(body []byte) (domain.Job, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return domain.Job{}, invalid("", "No data provided")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var job domain.Job
	if err := dec.Decode(&job); err != nil {
		return domain.Job{}, invalid("", "invalid JSON: %v", err)
	}
	job.JobID = 0
	return job, nil
}

// nullable lists the updatable fields that accept an explicit null.
var nullable = map[string]bool{"posting_date": true, "closing_date": true}

// DecodePatch decodes a partial update payload into a typed Patch.
// job_id is stripped. Unknown field names reject the whole payload with an
// *UnknownFieldsError listing every offender.
func DecodePatch(body []byte) (domain.Patch, error) {
	var patch domain.Patch
	if len(bytes.TrimSpace(body)) == 0 {
		return patch, invalid("", "No data provided or invalid JSON")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return patch, invalid("", "No data provided or invalid JSON")
	}
	if len(raw) == 0 {
		return patch, invalid("", "Request body cannot be empty")
	}

	delete(raw, "job_id")
	if len(raw) == 0 {
		return patch, invalid("", "No valid fields to update")
	}

	var unknown []string
	for name := range raw {
		if !domain.IsUpdatable(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return patch, &UnknownFieldsError{Fields: unknown}
	}

	var errs ValidationErrors
	for _, name := range domain.UpdatableFields {
		v, ok := raw[name]
		if !ok {
			continue
		}
		if !nullable[name] && bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			errs = append(errs, ValidationError{Field: name, Message: "must not be null"})
			continue
		}
		if err := patch.Set(name, v); err != nil {
			errs = append(errs, ValidationError{Field: name, Message: fmt.Sprintf("invalid value: %v", err)})
		}
	}
	if len(errs) > 0 {
		return domain.Patch{}, errs
	}
	return patch, nil
}

// validateJob checks a create payload: title, company.name and
// company.industry_name are required.
func (s *Service) validateJob(job domain.Job) error {
	var errs ValidationErrors
	if err := s.validate.Struct(job); err != nil {
		errs = append(errs, translate(err)...)
	}
	errs = append(errs, validateDates(job.PostingDate, job.ClosingDate)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validatePatch checks the values a patch would write.
func (s *Service) validatePatch(p domain.Patch) error {
	var errs ValidationErrors
	if c, ok := p.Company(); ok {
		if err := s.validate.Struct(c); err != nil {
			for _, e := range translate(err) {
				e.Field = "company." + strings.TrimPrefix(e.Field, "company.")
				errs = append(errs, e)
			}
		}
	}
	var posting, closing *string
	if d, ok := p.PostingDate(); ok {
		posting = d
	}
	if d, ok := p.ClosingDate(); ok {
		closing = d
	}
	errs = append(errs, validateDates(posting, closing)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateDates(posting, closing *string) ValidationErrors {
	var errs ValidationErrors
	for _, d := range []struct {
		field string
		value *string
	}{{"posting_date", posting}, {"closing_date", closing}} {
		if d.value == nil {
			continue
		}
		if _, err := time.Parse(time.DateOnly, *d.value); err != nil {
			errs = append(errs, ValidationError{Field: d.field, Message: fmt.Sprintf("%q is not an ISO-8601 date (YYYY-MM-DD)", *d.value)})
		}
	}
	return errs
}

// jsonPaths maps validator struct namespaces to document field paths.
var jsonPaths = map[string]string{
	"Job.Title":                "title",
	"Job.Company.Name":         "company.name",
	"Job.Company.IndustryName": "company.industry_name",
	"Company.Name":             "name",
	"Company.IndustryName":     "industry_name",
}

func translate(err error) ValidationErrors {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationErrors{{Message: err.Error()}}
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		field, ok := jsonPaths[fe.Namespace()]
		if !ok {
			field = fe.Namespace()
		}
		msg := "is required"
		if fe.Tag() != "required" {
			msg = fmt.Sprintf("failed %q check", fe.Tag())
		}
		out = append(out, ValidationError{Field: field, Message: msg})
	}
	return out
}
