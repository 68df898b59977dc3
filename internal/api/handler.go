// Package api serves the job catalog over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/djlord-it/careerhub/internal/catalog"
	"github.com/djlord-it/careerhub/internal/domain"
	"github.com/djlord-it/careerhub/internal/metrics"
)

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

const serverErrorMessage = "Server error"

// Catalog is the query and mutation surface the handlers call.
type Catalog interface {
	Get(ctx context.Context, jobID int64) (domain.Job, error)
	ByIndustry(ctx context.Context, name string) ([]domain.Job, error)
	ByLocation(ctx context.Context, location string) ([]domain.Job, error)
	ByCompany(ctx context.Context, name string) ([]domain.Job, error)
	ByDegree(ctx context.Context, level string) ([]domain.Job, error)
	BySkill(ctx context.Context, skill string) ([]domain.Job, error)
	BySkills(ctx context.Context, names []string) ([]domain.Job, error)
	BySalary(ctx context.Context, r catalog.SalaryRange) ([]domain.Job, error)
	ByExperience(ctx context.Context, level catalog.ExperienceLevel) ([]domain.Job, error)
	CountByIndustry(ctx context.Context) ([]catalog.IndustryCount, error)
	TopBySalary(ctx context.Context) ([]domain.Job, error)
	HiringCompanies(ctx context.Context) ([]string, error)

	Create(ctx context.Context, job domain.Job) (int64, error)
	Update(ctx context.Context, jobID int64, patch domain.Patch) (catalog.UpdateOutcome, error)
	Delete(ctx context.Context, jobID int64) error
}

// HealthChecker reports a dependency's health for verbose /health responses.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthChecker.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Ping(ctx context.Context) error { return f(ctx) }

type namedCheck struct {
	name    string
	checker HealthChecker
}

type Handler struct {
	catalog Catalog
	checks  []namedCheck
	log     zerolog.Logger
}

func NewHandler(c Catalog) *Handler {
	return &Handler{catalog: c, log: zerolog.Nop()}
}

// WithHealthChecker adds a component to verbose /health responses.
func (h *Handler) WithHealthChecker(name string, hc HealthChecker) *Handler {
	h.checks = append(h.checks, namedCheck{name: name, checker: hc})
	return h
}

func (h *Handler) WithLogger(l zerolog.Logger) *Handler {
	h.log = l.With().Str("component", "api").Logger()
	return h
}

// RouterOptions configures the middleware chain.
type RouterOptions struct {
	Metrics          metrics.Sink // nil = no request metrics
	RateLimitRPS     float64      // 0 = unlimited
	RateLimitBurst   int
	CORSAllowOrigins []string
}

// NewRouter builds the gin engine with middleware and every route.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()

	r.Use(requestID())
	r.Use(recovery(h.log))
	r.Use(accessLog(h.log))
	if opts.Metrics != nil {
		r.Use(recordMetrics(opts.Metrics))
	}
	r.Use(corsConfig(opts.CORSAllowOrigins))
	if opts.RateLimitRPS > 0 {
		burst := opts.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		r.Use(rateLimit(newClientLimiters(opts.RateLimitRPS, burst)))
	}

	h.Register(r)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
	})
	return r
}

// Register binds every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.welcome)
	r.GET("/health", h.health)

	r.POST("/create/jobPost", h.createJob)
	r.PUT("/job/:job_id", h.updateJob)
	r.DELETE("/job/:job_id", h.deleteJob)

	// Static segments take precedence over /jobs/:job_id.
	r.GET("/jobs/salary", h.jobsBySalary)
	r.GET("/jobs/experience", h.jobsByExperience)
	r.GET("/jobs/count-by-industry", h.countByIndustry)
	r.GET("/jobs/top-salary", h.topSalary)
	r.GET("/jobs/:job_id", h.getJob)

	r.GET("/jobs/industry/:industry_name", h.listBy("industry_name", "industry", "No jobs found for industry: %s", h.catalog.ByIndustry))
	r.GET("/jobs/location/:location", h.listBy("location", "location", "No jobs found in location: %s", h.catalog.ByLocation))
	r.GET("/jobs/skill/:skill_name", h.listBy("skill_name", "skill", "No jobs found requiring skill: %s", h.catalog.BySkill))
	r.GET("/jobs/company/:company_name", h.listBy("company_name", "company", "No jobs found from company: %s", h.catalog.ByCompany))
	r.GET("/jobs/degree/:degree_name", h.listBy("degree_name", "degree", "No jobs found requiring degree: %s", h.catalog.ByDegree))
	r.GET("/jobs/skills/:skill_names", h.jobsBySkills)

	r.GET("/companies/hiring", h.hiringCompanies)
}

func (h *Handler) welcome(c *gin.Context) {
	c.JSON(http.StatusOK, WelcomeResponse{
		APIVersion: "v1.0",
		Status:     "200",
		Message:    "Welcome to Careerhub: Your job portal!",
	})
}

func (h *Handler) health(c *gin.Context) {
	// Check if verbose mode requested via ?verbose=true
	verbose := c.Query("verbose") == "true"

	if !verbose || len(h.checks) == 0 {
		c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string, len(h.checks)),
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	for _, check := range h.checks {
		if err := check.checker.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Components[check.name] = "unhealthy: " + err.Error()
		} else {
			resp.Components[check.name] = "healthy"
		}
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, resp)
}

func (h *Handler) getJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	job, err := h.catalog.Get(c.Request.Context(), jobID)
	if err != nil {
		h.fail(c, err, jobNotFound(jobID))
		return
	}
	c.JSON(http.StatusOK, job)
}

// listBy serves the single-value lookups. The matched value is echoed under
// key; an empty result is a 404 carrying count 0.
func (h *Handler) listBy(param, key, emptyFormat string, lookup func(context.Context, string) ([]domain.Job, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		value := c.Param(param)
		jobs, err := lookup(c.Request.Context(), value)
		if err != nil {
			h.fail(c, err, nil)
			return
		}
		if len(jobs) == 0 {
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf(emptyFormat, value),
				key:     value,
				"count": 0,
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{key: value, "count": len(jobs), "jobs": jobs})
	}
}

func (h *Handler) jobsBySkills(c *gin.Context) {
	names := catalog.ParseSkillList(c.Param("skill_names"))
	jobs, err := h.catalog.BySkills(c.Request.Context(), names)
	if catalog.IsValidation(err) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           "Please provide at least two skills to match.",
			"skills_provided": names,
		})
		return
	}
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	if len(jobs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":           "No jobs found requiring at least 2 of: " + strings.Join(names, ", "),
			"skills_required": names,
			"count":           0,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills_required": names, "count": len(jobs), "jobs": jobs})
}

func (h *Handler) jobsBySalary(c *gin.Context) {
	r, err := catalog.ParseSalaryRange(c.Query("min_salary"), c.Query("max_salary"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid salary values. Please provide valid integers.",
			"hint":    "Example: /jobs/salary?min_salary=50000&max_salary=100000",
			"details": err.Error(),
		})
		return
	}
	jobs, err := h.catalog.BySalary(c.Request.Context(), r)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	if len(jobs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":        fmt.Sprintf("No jobs found with salary between $%d and $%d", r.Min, r.Max),
			"salary_range": r,
			"count":        0,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"salary_range": r, "count": len(jobs), "jobs": jobs})
}

func (h *Handler) jobsByExperience(c *gin.Context) {
	level, err := catalog.ParseExperienceLevel(c.Query("experience_level"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "experience_level parameter is required",
			"hint":  "Example: /jobs/experience?experience_level=Entry Level",
		})
		return
	}
	jobs, err := h.catalog.ByExperience(c.Request.Context(), level)
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	title := level.Title()
	if len(jobs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":            "No jobs found for experience level: " + title,
			"experience_level": title,
			"count":            0,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"experience_level": title, "count": len(jobs), "jobs": jobs})
}

func (h *Handler) countByIndustry(c *gin.Context) {
	groups, err := h.catalog.CountByIndustry(c.Request.Context())
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, CountByIndustryResponse{TotalIndustries: len(groups), Industries: groups})
}

func (h *Handler) topSalary(c *gin.Context) {
	jobs, err := h.catalog.TopBySalary(c.Request.Context())
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, TopSalaryResponse{Count: len(jobs), TopJobs: jobs})
}

func (h *Handler) hiringCompanies(c *gin.Context) {
	names, err := h.catalog.HiringCompanies(c.Request.Context())
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, HiringCompaniesResponse{Count: len(names), Companies: names})
}

func (h *Handler) createJob(c *gin.Context) {
	body, ok := h.readBody(c)
	if !ok {
		return
	}
	job, err := catalog.DecodeJob(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	jobID, err := h.catalog.Create(c.Request.Context(), job)
	if err != nil {
		var verrs catalog.ValidationErrors
		if errors.As(err, &verrs) {
			c.JSON(http.StatusBadRequest, gin.H{"error": createErrorMessage(verrs), "details": verrs.Error()})
			return
		}
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, CreateJobResponse{Message: "Job post created successfully", JobID: jobID})
}

// createMessages keeps the messages clients already match on for the
// required create fields.
var createMessages = map[string]string{
	"title":                 "Title is required",
	"company.name":          "Company name is required",
	"company.industry_name": "Industry is required",
}

func createErrorMessage(verrs catalog.ValidationErrors) string {
	for _, field := range []string{"title", "company.name", "company.industry_name"} {
		for _, e := range verrs {
			if e.Field == field {
				return createMessages[field]
			}
		}
	}
	return verrs.Error()
}

func (h *Handler) updateJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	body, ok := h.readBody(c)
	if !ok {
		return
	}

	patch, err := catalog.DecodePatch(body)
	if err != nil {
		h.rejectPatch(c, err)
		return
	}

	out, err := h.catalog.Update(c.Request.Context(), jobID, patch)
	if err != nil {
		if catalog.IsValidation(err) {
			h.rejectPatch(c, err)
			return
		}
		h.fail(c, err, jobNotFound(jobID))
		return
	}
	if !out.Changed {
		c.JSON(http.StatusOK, UpdateJobResponse{
			Message:       "No modifications made (values unchanged)",
			JobID:         jobID,
			FieldsChecked: out.Fields,
		})
		return
	}
	c.JSON(http.StatusOK, UpdateJobResponse{
		Message:       "Job updated successfully",
		JobID:         jobID,
		UpdatedFields: out.Fields,
	})
}

func (h *Handler) rejectPatch(c *gin.Context, err error) {
	var unknown *catalog.UnknownFieldsError
	if errors.As(err, &unknown) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          unknown.Error(),
			"allowed_fields": domain.UpdatableFields,
		})
		return
	}
	resp := gin.H{"error": err.Error()}
	var ve catalog.ValidationError
	if errors.As(err, &ve) && ve.Message == "No valid fields to update" {
		resp["hint"] = "job_id cannot be updated. Provide other fields."
	}
	c.JSON(http.StatusBadRequest, resp)
}

func (h *Handler) deleteJob(c *gin.Context) {
	jobID, ok := h.jobID(c)
	if !ok {
		return
	}
	if err := h.catalog.Delete(c.Request.Context(), jobID); err != nil {
		h.fail(c, err, jobNotFound(jobID))
		return
	}
	c.JSON(http.StatusOK, DeleteJobResponse{Message: "Job deleted successfully", JobID: jobID})
}

// jobID parses the :job_id segment. A non-integer id matches no job.
func (h *Handler) jobID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("job_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
		return 0, false
	}
	return id, true
}

func (h *Handler) readBody(c *gin.Context) ([]byte, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBodySize)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return nil, false
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No data provided or invalid JSON"})
		return nil, false
	}
	return body, true
}

func jobNotFound(jobID int64) gin.H {
	return gin.H{"error": fmt.Sprintf("Job with ID %d not found", jobID), "job_id": jobID}
}

// fail maps a catalog error to a response. notFound is the body for
// ErrNotFound; store faults and anything unexpected become a generic 500
// and the cause is logged with the request id.
func (h *Handler) fail(c *gin.Context, err error, notFound gin.H) {
	switch {
	case catalog.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, catalog.ErrNotFound) && notFound != nil:
		c.JSON(http.StatusNotFound, notFound)
	default:
		_ = c.Error(err)
		reqID := c.GetString(requestIDKey)
		h.log.Error().Err(err).Str(requestIDKey, reqID).Str("route", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: serverErrorMessage, RequestID: reqID})
	}
}
