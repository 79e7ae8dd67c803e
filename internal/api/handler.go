// Package api implements the SignalX HTTP surface.
//
// Routes:
//
//	POST /api/admin/check-supply-demand        evaluate a region, alert the admin
//	POST /api/admin/send-bulk-alert            digest of many region reports
//	POST /api/admin/jobs/{id}/review           approve or reject a posting
//	POST /api/admin/users/{id}/review          approve or reject an employer
//	POST /api/jobs                             create and moderate a posting
//	GET  /api/jobs/search                      public job search
//	POST /api/jobs/send-alerts                 notify matching workers
//	POST /api/applications                     apply to a posting
//	POST /api/applications/{id}/decision       accept or reject
//	POST /api/applications/notify-employer     employer notification email
//	POST /api/applications/send-status-email   worker status email
//	POST /api/users                            first sign-in
//	POST /api/users/{id}/profile               submit employer profile
//	GET  /api/test-email                       mail transport check
//	POST /api/test-email                       canned test send
//	GET  /health, /ready, /metrics
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"signalx/internal/alerts"
	"signalx/internal/analytics"
	"signalx/internal/applications"
	"signalx/internal/common/auth"
	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/logger"
	"signalx/internal/common/observability"
	"signalx/internal/common/validation"
	"signalx/internal/jobs"
	"signalx/internal/models"
	"signalx/internal/notify"
	"signalx/internal/search"
	"signalx/internal/store"
)

// maxBodyBytes caps request bodies; bulk digests are the largest.
const maxBodyBytes = 1 << 20

type RiskChecker interface {
	CheckRegion(ctx context.Context, req analytics.CheckRequest) (*analytics.CheckResult, error)
}

type BulkAlerter interface {
	SendBulk(ctx context.Context, reports []*models.RiskAlertEvent) (alerts.BulkResult, error)
}

type JobService interface {
	Create(ctx context.Context, in jobs.CreateInput) (*jobs.CreateResult, error)
	Review(ctx context.Context, id string, approve bool, publishAt *time.Time) (*models.JobPosting, error)
	Search(ctx context.Context, q search.Query) (*search.Result, error)
	SendAlerts(ctx context.Context, req jobs.AlertRequest) (*jobs.AlertResult, error)
}

type ApplicationService interface {
	Apply(ctx context.Context, workerID, jobID string) (*models.ApplicationRecord, error)
	NotifyEmployer(ctx context.Context, applicationID, jobID string) (*applications.EmailResult, error)
	Decide(ctx context.Context, applicationID string, status models.ApplicationStatus) (*models.ApplicationRecord, error)
	SendStatusEmail(ctx context.Context, applicationID string, status models.ApplicationStatus) (*applications.EmailResult, error)
}

type UserService interface {
	EnsureProfile(ctx context.Context, id, email, name string) (*models.UserProfile, error)
	CompleteProfile(ctx context.Context, id string, d store.ProfileDetails) (*models.UserProfile, error)
	Review(ctx context.Context, id string, approve bool) (*models.UserProfile, error)
}

// TokenValidator is satisfied by auth.KeycloakClient.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.TokenInfo, error)
}

// Deps are the services behind the handlers. Auth and Obs may be nil.
type Deps struct {
	Risk         RiskChecker
	Alerts       BulkAlerter
	Jobs         JobService
	Applications ApplicationService
	Users        UserService
	Mailer       notify.Mailer
	Auth         TokenValidator
	Obs          *observability.Observability
	Checks       map[string]func(context.Context) error

	AdminRole  string
	AdminEmail string
	AppURL     string
}

type Handler struct {
	deps   Deps
	logger logger.Logger
}

func NewHandler(deps Deps, log logger.Logger) *Handler {
	return &Handler{deps: deps, logger: log.With(map[string]interface{}{"component": "api"})}
}

// RegisterRoutes mounts every route on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	h.handle(mux, "POST /api/admin/check-supply-demand", h.admin(h.checkSupplyDemand))
	h.handle(mux, "POST /api/admin/send-bulk-alert", h.admin(h.sendBulkAlert))
	h.handle(mux, "POST /api/admin/jobs/{id}/review", h.admin(h.reviewJob))
	h.handle(mux, "POST /api/admin/users/{id}/review", h.admin(h.reviewUser))

	h.handle(mux, "POST /api/jobs", h.createJob)
	h.handle(mux, "GET /api/jobs/search", h.searchJobs)
	h.handle(mux, "POST /api/jobs/send-alerts", h.sendJobAlerts)

	h.handle(mux, "POST /api/applications", h.apply)
	h.handle(mux, "POST /api/applications/{id}/decision", h.decideApplication)
	h.handle(mux, "POST /api/applications/notify-employer", h.notifyEmployer)
	h.handle(mux, "POST /api/applications/send-status-email", h.sendStatusEmail)

	h.handle(mux, "POST /api/users", h.ensureUser)
	h.handle(mux, "POST /api/users/{id}/profile", h.completeProfile)

	h.handle(mux, "GET /api/test-email", h.verifyEmail)
	h.handle(mux, "POST /api/test-email", h.sendTestEmail)

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.ready)
	mux.Handle("GET /metrics", metricsHandler())
}

// Routes returns a ready-to-serve mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func (h *Handler) handle(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.Handle(pattern, h.instrument(pattern, fn))
}

// decode validates the body against schema before decoding it into out.
func decode(r *http.Request, schema validation.JSONSchema, out interface{}) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.NewValidationError("unreadable request body")
	}
	return validation.Bind(raw, schema, out)
}

func jsonOK(w http.ResponseWriter, code int, fields map[string]interface{}) {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["success"] = true
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(fields)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// fail maps err to a status. Server-side failures are logged with their
// details and answered with the generic message only.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	std := apperrors.AsStandard(err)
	status := apperrors.HTTPStatus(std.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", map[string]interface{}{
			"path":    r.URL.Path,
			"code":    string(std.Code),
			"details": std.Details,
		})
	}
	jsonError(w, std.Message, status)
}
