package api

import (
	"github.com/djlord-it/careerhub/internal/catalog"
	"github.com/djlord-it/careerhub/internal/domain"
)

type WelcomeResponse struct {
	APIVersion string `json:"apiVersion"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type CreateJobResponse struct {
	Message string `json:"message"`
	JobID   int64  `json:"job_id"`
}

type UpdateJobResponse struct {
	Message       string   `json:"message"`
	JobID         int64    `json:"job_id"`
	UpdatedFields []string `json:"updated_fields,omitempty"`
	FieldsChecked []string `json:"fields_checked,omitempty"`
}

type DeleteJobResponse struct {
	Message string `json:"message"`
	JobID   int64  `json:"job_id"`
}

type CountByIndustryResponse struct {
	TotalIndustries int                     `json:"total_industries"`
	Industries      []catalog.IndustryCount `json:"industries"`
}

type TopSalaryResponse struct {
	Count   int          `json:"count"`
	TopJobs []domain.Job `json:"top_jobs"`
}

type HiringCompaniesResponse struct {
	Count     int      `json:"count"`
	Companies []string `json:"companies"`
}
