// Package submit hands a finished draft to the backend.
package submit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/common/logger"
	"github.com/cds-snc/notification-admin-sub002/internal/common/metrics"
	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/draft"
)

// Backend is the subset of the API client used to commit sends.
type Backend interface {
	GetJob(ctx context.Context, serviceID, jobID string) (*models.Job, error)
	CreateJob(ctx context.Context, serviceID string, req models.CreateJobRequest) (*models.Job, error)
	SendNotification(ctx context.Context, serviceID string, req models.OneOffRequest) (*models.OneOffResponse, error)
}

// ErrorKind is a backend rejection the user can act on.
type ErrorKind string

const (
	KindNotAllowedToSendTo ErrorKind = "not-allowed-to-send-to"
	KindTooManyMessages    ErrorKind = "too-many-messages"
	KindMessageTooLong     ErrorKind = "message-too-long"
)

// RejectedError is a backend rejection mapped to an ErrorKind.
type RejectedError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("send rejected (%s): %s", e.Kind, e.Message)
}

func (e *RejectedError) Unwrap() error { return e.Err }

var kindPatterns = []struct {
	kind    ErrorKind
	needles []string
}{
	{KindNotAllowedToSendTo, []string{"not allowed to send to", "trial mode"}},
	{KindTooManyMessages, []string{"exceeded send limits", "too many"}},
	{KindMessageTooLong, []string{"character count greater than", "too long"}},
}

// Classify maps a backend error message to an ErrorKind. Only upstream
// backend errors are considered.
func Classify(err error) (ErrorKind, bool) {
	stdErr, ok := apperrors.AsStandardError(err)
	if !ok || stdErr.Code != apperrors.ErrCodeUpstreamBackend {
		return "", false
	}
	msg := strings.ToLower(stdErr.Details)
	for _, p := range kindPatterns {
		for _, n := range p.needles {
			if strings.Contains(msg, n) {
				return p.kind, true
			}
		}
	}
	return "", false
}

func reject(err error) error {
	if kind, ok := Classify(err); ok {
		stdErr, _ := apperrors.AsStandardError(err)
		return &RejectedError{Kind: kind, Message: stdErr.Details, Err: err}
	}
	return err
}

type Adapter struct {
	backend Backend
	logger  logger.Logger
}

func NewAdapter(backend Backend, log logger.Logger) *Adapter {
	return &Adapter{backend: backend, logger: logger.ForComponent(log, "submit")}
}

// CommitResult says whether Commit created the job or found it already there.
type CommitResult struct {
	JobID   string
	Created bool
}

// Commit creates the job for uploadID. A job that already exists is
// returned with Created false and nothing is sent again; only a not-found
// lookup allows creation.
func (a *Adapter) Commit(ctx context.Context, t *models.Template, serviceID, uploadID string, scheduledFor *time.Time, d *draft.SendDraft) (*CommitResult, error) {
	existing, err := a.backend.GetJob(ctx, serviceID, uploadID)
	switch {
	case err == nil:
		a.logger.Info("Job already exists", map[string]interface{}{
			"serviceId": serviceID,
			"jobId":     existing.ID,
		})
		return &CommitResult{JobID: existing.ID}, nil
	case !apperrors.IsNotFound(err):
		return nil, err
	}

	job, err := a.backend.CreateJob(ctx, serviceID, models.CreateJobRequest{ID: uploadID, ScheduledFor: scheduledFor})
	if err != nil {
		return nil, reject(err)
	}
	metrics.JobsCreated.WithLabelValues(string(t.Type)).Inc()
	a.logger.Info("Job created", map[string]interface{}{
		"serviceId":         serviceID,
		"jobId":             job.ID,
		"templateId":        t.ID,
		"notificationCount": job.NotificationCount,
	})

	d.ClearAfterSend()
	return &CommitResult{JobID: job.ID, Created: true}, nil
}

// SendOneOff sends a single notification from the draft's recipient and
// values.
func (a *Adapter) SendOneOff(ctx context.Context, t *models.Template, serviceID, createdBy string, d *draft.SendDraft) (string, error) {
	personalisation, err := json.Marshal(d.PlaceholderValues)
	if err != nil {
		return "", apperrors.NewInternalError(fmt.Errorf("encode personalisation: %w", err))
	}

	to := d.Recipient
	if t.Type == models.TemplateTypeLetter {
		to, _ = d.PlaceholderValues.Get("address line 1")
	}

	resp, err := a.backend.SendNotification(ctx, serviceID, models.OneOffRequest{
		TemplateID:      t.ID,
		To:              to,
		Personalisation: models.OrderedJSON(personalisation),
		SenderID:        d.SenderID,
		CreatedBy:       createdBy,
	})
	if err != nil {
		err = reject(err)
		result := "error"
		if rej, ok := err.(*RejectedError); ok {
			result = string(rej.Kind)
		}
		metrics.OneOffSent.WithLabelValues(string(t.Type), result).Inc()
		return "", err
	}

	metrics.OneOffSent.WithLabelValues(string(t.Type), "sent").Inc()
	a.logger.Info("One-off notification sent", map[string]interface{}{
		"serviceId":      serviceID,
		"templateId":     t.ID,
		"notificationId": resp.ID,
	})
	d.ClearAfterSend()
	return resp.ID, nil
}
