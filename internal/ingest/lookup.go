package ingest

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/djlord-it/careerhub/internal/domain"
)

// CompanyRecord is one row of companies.csv.
type CompanyRecord struct {
	ID           int64
	Name         string
	Headquarters string
	Size         string
	Type         string
	Website      string
	Description  string
	IndustryID   *int64
}

// EducationRecord is one row of education.csv.
type EducationRecord struct {
	ID    int64
	Level string
	Field string
}

// Lookups holds the id-keyed reference tables used to resolve foreign keys
// during assembly. When a reference table repeats an id the last row wins
// and a warning is logged. Absent keys are handled by the Assembler: a
// missing industry becomes domain.UnknownIndustry, a missing company or
// education level is a Fault.
type Lookups struct {
	Companies  map[int64]CompanyRecord
	Industries map[int64]domain.Industry
	Education  map[int64]EducationRecord
	Skills     map[int64]string
}

// BuildLookups indexes the four reference tables by their id column.
func BuildLookups(src Sources, log zerolog.Logger) (*Lookups, error) {
	lk := &Lookups{}
	var err error

	if lk.Companies, err = buildCompanies(src.Companies, log); err != nil {
		return nil, err
	}
	if lk.Industries, err = buildIndustries(src.Industries, log); err != nil {
		return nil, err
	}
	if lk.Education, err = buildEducation(src.Education, log); err != nil {
		return nil, err
	}
	if lk.Skills, err = buildSkills(src.Skills, log); err != nil {
		return nil, err
	}
	return lk, nil
}

func buildCompanies(t *Table, log zerolog.Logger) (map[int64]CompanyRecord, error) {
	if err := t.Require("id", "company_name", "company_headquarters", "company_size",
		"company_type", "company_website", "company_description", "industry_id"); err != nil {
		return nil, err
	}
	out := make(map[int64]CompanyRecord, len(t.Rows))
	for i, row := range t.Rows {
		id, err := rowID(t, i, row)
		if err != nil {
			return nil, err
		}
		industryID, err := parseOptionalID(t.Get(row, "industry_id"))
		if err != nil {
			return nil, &Fault{Table: t.Name, Row: i + 1, Err: fmt.Errorf("industry_id: %w", err)}
		}
		warnDuplicate(log, t.Name, id, out)
		out[id] = CompanyRecord{
			ID:           id,
			Name:         t.Get(row, "company_name"),
			Headquarters: t.Get(row, "company_headquarters"),
			Size:         t.Get(row, "company_size"),
			Type:         t.Get(row, "company_type"),
			Website:      t.Get(row, "company_website"),
			Description:  t.Get(row, "company_description"),
			IndustryID:   industryID,
		}
	}
	return out, nil
}

func buildIndustries(t *Table, log zerolog.Logger) (map[int64]domain.Industry, error) {
	if err := t.Require("id", "industry_name"); err != nil {
		return nil, err
	}
	out := make(map[int64]domain.Industry, len(t.Rows))
	for i, row := range t.Rows {
		id, err := rowID(t, i, row)
		if err != nil {
			return nil, err
		}
		warnDuplicate(log, t.Name, id, out)
		out[id] = domain.Industry{IndustryID: id, IndustryName: t.Get(row, "industry_name")}
	}
	return out, nil
}

func buildEducation(t *Table, log zerolog.Logger) (map[int64]EducationRecord, error) {
	if err := t.Require("id", "level", "field"); err != nil {
		return nil, err
	}
	out := make(map[int64]EducationRecord, len(t.Rows))
	for i, row := range t.Rows {
		id, err := rowID(t, i, row)
		if err != nil {
			return nil, err
		}
		warnDuplicate(log, t.Name, id, out)
		out[id] = EducationRecord{ID: id, Level: t.Get(row, "level"), Field: t.Get(row, "field")}
	}
	return out, nil
}

// buildSkills maps skill id directly to the skill name.
func buildSkills(t *Table, log zerolog.Logger) (map[int64]string, error) {
	if err := t.Require("id", "skill"); err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(t.Rows))
	for i, row := range t.Rows {
		id, err := rowID(t, i, row)
		if err != nil {
			return nil, err
		}
		warnDuplicate(log, t.Name, id, out)
		out[id] = t.Get(row, "skill")
	}
	return out, nil
}

func rowID(t *Table, i int, row []string) (int64, error) {
	id, err := parseID(t.Get(row, "id"))
	if err != nil {
		return 0, &Fault{Table: t.Name, Row: i + 1, Err: fmt.Errorf("id: %w", err)}
	}
	return id, nil
}

func warnDuplicate[V any](log zerolog.Logger, table string, id int64, m map[int64]V) {
	if _, dup := m[id]; dup {
		log.Warn().Str("table", table).Int64("id", id).Msg("duplicate id, last row wins")
	}
}

func (lk *Lookups) industry(id *int64) (domain.Industry, bool) {
	if id == nil {
		return domain.Industry{}, false
	}
	ind, ok := lk.Industries[*id]
	return ind, ok
}
