// Package flow implements the send state machine as gin handlers. Every
// request re-derives behaviour from the session draft plus a freshly fetched
// template and service policy.
package flow

import (
	"context"
	"net/http"
	"time"

	"github.com/cds-snc/notification-admin-sub002/internal/common/api"
	"github.com/cds-snc/notification-admin-sub002/internal/common/config"
	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/common/logger"
	"github.com/cds-snc/notification-admin-sub002/internal/common/metrics"
	"github.com/cds-snc/notification-admin-sub002/internal/common/observability"
	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/draft"
	"github.com/cds-snc/notification-admin-sub002/internal/send/policy"
	"github.com/cds-snc/notification-admin-sub002/internal/send/submit"
	"github.com/cds-snc/notification-admin-sub002/internal/send/uploads"

	"github.com/gin-gonic/gin"
)

// Backend is the part of the API client the send pipeline reads and writes.
type Backend interface {
	GetService(ctx context.Context, serviceID string) (*models.Service, error)
	GetTemplate(ctx context.Context, serviceID, templateID string, version int) (*models.Template, error)
	GetServiceStatistics(ctx context.Context, serviceID string) (models.ServiceStatistics, error)
	HasSentPreviously(ctx context.Context, serviceID, templateID string, version int, fileName string) (bool, error)
	GetJob(ctx context.Context, serviceID, jobID string) (*models.Job, error)
	CreateJob(ctx context.Context, serviceID string, req models.CreateJobRequest) (*models.Job, error)
	SendNotification(ctx context.Context, serviceID string, req models.OneOffRequest) (*models.OneOffResponse, error)
	GetNotification(ctx context.Context, serviceID, notificationID string) (*models.Notification, error)
	GetSenders(ctx context.Context, serviceID string, templateType models.TemplateType) ([]models.Sender, error)
	GetSafelist(ctx context.Context, serviceID string) (*api.Safelist, error)
}

// UploadStore keeps accepted spreadsheets until they are committed.
type UploadStore interface {
	Put(ctx context.Context, serviceID string, data []byte) (string, error)
	Fetch(ctx context.Context, serviceID, uploadID string) (*models.Upload, error)
	Metadata(ctx context.Context, serviceID, uploadID string) (map[string]string, error)
	SetMetadata(ctx context.Context, serviceID, uploadID string, meta map[string]string) error
	ListSendBucket(ctx context.Context, serviceID string) ([]uploads.Object, error)
	FetchFromSendBucket(ctx context.Context, serviceID, key string) ([]byte, error)
}

// SessionSaver persists the session state after a handler changed it.
type SessionSaver interface {
	Save(ctx context.Context, st *draft.State) error
}

type Handler struct {
	backend  Backend
	uploads  UploadStore
	sessions SessionSaver
	policy   *policy.Evaluator
	submit   *submit.Adapter
	csv      config.CSVConfig
	obs      *observability.Observability
	logger   logger.Logger
}

type Dependencies struct {
	Backend       Backend
	Uploads       UploadStore
	Sessions      SessionSaver
	CSV           config.CSVConfig
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(deps Dependencies) *Handler {
	log := logger.ForComponent(deps.Logger, "send-flow")
	return &Handler{
		backend:  deps.Backend,
		uploads:  deps.Uploads,
		sessions: deps.Sessions,
		policy:   policy.NewEvaluator(deps.Backend, deps.Logger),
		submit:   submit.NewAdapter(deps.Backend, deps.Logger),
		csv:      deps.CSV,
		obs:      deps.Observability,
		logger:   log,
	}
}

// Register mounts every send route on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/services/:service_id/send/:template_id/set-sender", h.step("set_sender", h.getSetSender))
	r.POST("/services/:service_id/send/:template_id/set-sender", h.step("set_sender", h.postSetSender))
	r.GET("/services/:service_id/send/:template_id/csv", h.step("upload_csv", h.getUploadCSV))
	r.POST("/services/:service_id/send/:template_id/csv", h.step("upload_csv", h.postUploadCSV))
	r.GET("/services/:service_id/send/:template_id/s3-send", h.step("s3_send", h.getS3Send))
	r.POST("/services/:service_id/send/:template_id/s3-send", h.step("s3_send", h.postS3Send))
	r.GET("/services/:service_id/send/:template_id/example.csv", h.step("example_csv", h.getExampleCSV))

	r.GET("/services/:service_id/send/:template_id/one-off", h.step("one_off", h.startOneOff(false)))
	r.GET("/services/:service_id/send/:template_id/test", h.step("one_off", h.startOneOff(true)))
	r.GET("/services/:service_id/send/:template_id/one-off/:step", h.step("one_off_step", h.getStep(false)))
	r.POST("/services/:service_id/send/:template_id/one-off/:step", h.step("one_off_step", h.postStep(false)))
	r.GET("/services/:service_id/send/:template_id/test/:step", h.step("one_off_step", h.getStep(true)))
	r.POST("/services/:service_id/send/:template_id/test/:step", h.step("one_off_step", h.postStep(true)))

	r.GET("/services/:service_id/:template_id/check/:upload_id", h.step("check_bulk", h.getCheck))
	r.GET("/services/:service_id/:template_id/check/:upload_id/:row", h.step("check_bulk", h.getCheck))
	r.POST("/services/:service_id/start-job/:upload_id", h.step("start_job", h.postStartJob))

	r.GET("/services/:service_id/template/:template_id/notification/check", h.step("check_one_off", h.getCheckNotification))
	r.POST("/services/:service_id/template/:template_id/notification/check", h.step("send_one_off", h.postCheckNotification))

	r.GET("/services/:service_id/jobs/:job_id", h.step("view_job", h.getJob))
	r.GET("/services/:service_id/notification/:notification_id", h.step("view_notification", h.getNotification))
}

// step wraps a handler with a span, step metrics and error propagation.
func (h *Handler) step(name string, fn func(c *gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, span := h.obs.StartSpan(c.Request.Context(), "send."+name)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		outcome := "ok"
		if err := fn(c); err != nil {
			outcome = "error"
			span.RecordError(err)
			h.fail(c, err)
		}
		metrics.SendStepsTotal.WithLabelValues(name, outcome).Inc()
		h.obs.RecordStep(ctx, name, outcome)
		h.obs.RecordStepDuration(ctx, name, time.Since(start))
	}
}

// fail attaches err for errors.Handler. Backend 404s become plain not-found
// so they render as 404 rather than 502.
func (h *Handler) fail(c *gin.Context, err error) {
	if stdErr, ok := apperrors.AsStandardError(err); ok && stdErr.Code == apperrors.ErrCodeUpstreamBackend && apperrors.IsNotFound(err) {
		err = apperrors.NewResourceNotFoundError("backend", stdErr.Details)
	}
	_ = c.Error(err)
}

// request is the per-request context every send handler starts from.
type request struct {
	ctx        context.Context
	serviceID  string
	templateID string
	state      *draft.State
	user       *models.User
}

func (r *request) draft() *draft.SendDraft { return &r.state.Draft }

// begin loads the session state and checks the user may send for the
// service in the path.
func (h *Handler) begin(c *gin.Context) (*request, error) {
	st, ok := StateFrom(c)
	if !ok {
		return nil, apperrors.NewForbiddenError("no session")
	}
	req := &request{
		ctx:        c.Request.Context(),
		serviceID:  c.Param("service_id"),
		templateID: c.Param("template_id"),
		state:      st,
		user:       &st.Session.User,
	}
	if !req.user.HasPermission(req.serviceID, models.UserPermissionSendMessages) {
		return nil, apperrors.NewForbiddenError("user cannot send messages for service " + req.serviceID)
	}
	return req, nil
}

func (h *Handler) template(req *request, templateID string) (*models.Template, error) {
	return h.backend.GetTemplate(req.ctx, req.serviceID, templateID, 0)
}

// servicePolicy fetches the service and builds the policy for this request.
// In trial mode the safelist includes the current user.
func (h *Handler) servicePolicy(req *request) (*models.Service, *models.ServicePolicy, error) {
	svc, err := h.backend.GetService(req.ctx, req.serviceID)
	if err != nil {
		return nil, nil, err
	}
	stats, err := h.backend.GetServiceStatistics(req.ctx, req.serviceID)
	if err != nil {
		return nil, nil, err
	}

	var safelist []string
	if svc.Restricted {
		sl, err := h.backend.GetSafelist(req.ctx, req.serviceID)
		if err != nil {
			return nil, nil, err
		}
		safelist = sl.All()
		for _, self := range []string{req.user.EmailAddress, req.user.MobileNumber} {
			if self != "" {
				safelist = append(safelist, self)
			}
		}
	}

	return svc, models.NewServicePolicy(svc, stats.TotalRequested(), h.csv.MaxRows, h.csv.MaxRowsBulkSend, safelist), nil
}

func senderName(svc *models.Service) string {
	if svc.PrefixSMS {
		return svc.Name
	}
	return ""
}

// render pops pending flashes into data, saves the session and writes the
// page.
func (h *Handler) render(c *gin.Context, req *request, status int, name string, data gin.H) error {
	data["Flashes"] = req.state.PopFlashes()
	data["ServiceID"] = req.serviceID
	data["User"] = req.user
	if err := h.sessions.Save(req.ctx, req.state); err != nil {
		return err
	}
	c.HTML(status, name, data)
	return nil
}

// redirect saves the session then redirects.
func (h *Handler) redirect(c *gin.Context, req *request, status int, location string) error {
	if err := h.sessions.Save(req.ctx, req.state); err != nil {
		return err
	}
	c.Redirect(status, location)
	return nil
}

func (h *Handler) found(c *gin.Context, req *request, location string) error {
	return h.redirect(c, req, http.StatusFound, location)
}
