package domain

import "strings"

// UnknownIndustry is stored in company.industry_name when the company's
// industry id does not resolve.
const UnknownIndustry = "Unknown"

// Job is the denormalized job document. Every query and mutation operates on it.
type Job struct {
	JobID             int64     `json:"job_id" bson:"job_id"`
	Title             string    `json:"title" bson:"title" validate:"required"`
	YearsOfExperience string    `json:"years_of_experience" bson:"years_of_experience"`
	Description       string    `json:"description" bson:"description"`
	Responsibilities  string    `json:"responsibilities" bson:"responsibilities"`
	Company           Company   `json:"company" bson:"company"`
	Education         Education `json:"education" bson:"education"`
	Skills            []string  `json:"skills" bson:"skills"`
	EmploymentType    string    `json:"employment_type" bson:"employment_type"`
	AverageSalary     int64     `json:"average_salary" bson:"average_salary"`
	Benefits          string    `json:"benefits" bson:"benefits"`
	Remote            bool      `json:"remote" bson:"remote"`
	JobPostingURL     string    `json:"job_posting_url" bson:"job_posting_url"`

	// ISO-8601 dates (YYYY-MM-DD); nil when the source value was missing.
	PostingDate *string `json:"posting_date" bson:"posting_date"`
	ClosingDate *string `json:"closing_date" bson:"closing_date"`
}

// Company is embedded in every Job. IndustryName is a denormalized copy.
type Company struct {
	CompanyID    int64  `json:"company_id" bson:"company_id"`
	Name         string `json:"name" bson:"name" validate:"required"`
	Headquarters string `json:"headquarters" bson:"headquarters"`
	Size         string `json:"size" bson:"size"`
	Type         string `json:"type" bson:"type"`
	Website      string `json:"website" bson:"website"`
	Description  string `json:"description" bson:"description"`
	IndustryID   *int64 `json:"industry_id" bson:"industry_id"`
	IndustryName string `json:"industry_name" bson:"industry_name" validate:"required"`
}

type Education struct {
	EducationID int64  `json:"education_id" bson:"education_id"`
	Level       string `json:"level" bson:"level"`
	Field       string `json:"field" bson:"field"`
}

// Industry is the flat industries collection written next to the jobs.
type Industry struct {
	IndustryID   int64  `json:"industry_id" bson:"industry_id"`
	IndustryName string `json:"industry_name" bson:"industry_name"`
}

// SameText reports whether a and b are equal once both are lower-cased.
// This is the whole-string, case-insensitive match used by every lookup.
func SameText(a, b string) bool {
	return strings.ToLower(a) == strings.ToLower(b)
}

// HasSkill reports whether any element of skills matches name case-insensitively.
func (j Job) HasSkill(name string) bool {
	for _, s := range j.Skills {
		if SameText(s, name) {
			return true
		}
	}
	return false
}
