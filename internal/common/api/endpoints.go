// internal/common/api/endpoints.go
package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cds-snc/notification-admin-sub002/internal/models"
)

// GetService returns the service record.
func (c *Client) GetService(ctx context.Context, serviceID string) (*models.Service, error) {
	var svc models.Service
	key := fmt.Sprintf("service-%s", serviceID)
	err := c.cached(ctx, "service", key, &svc, func() error {
		raw, err := c.getData(ctx, fmt.Sprintf("/service/%s", serviceID), nil, &svc)
		if err != nil {
			return err
		}
		return checkSchema("service", raw)
	})
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

// GetTemplate returns a template version. version 0 means the latest.
func (c *Client) GetTemplate(ctx context.Context, serviceID, templateID string, version int) (*models.Template, error) {
	path := fmt.Sprintf("/service/%s/template/%s", serviceID, templateID)
	versionKey := "None"
	if version > 0 {
		path = fmt.Sprintf("%s/version/%d", path, version)
		versionKey = strconv.Itoa(version)
	}
	key := fmt.Sprintf("service-%s-template-%s-version-%s", serviceID, templateID, versionKey)

	var tmpl models.Template
	err := c.cached(ctx, "template", key, &tmpl, func() error {
		raw, err := c.getData(ctx, path, nil, &tmpl)
		if err != nil {
			return err
		}
		return checkSchema("template", raw)
	})
	if err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// GetServiceStatistics returns today's per-channel counts. Never cached.
func (c *Client) GetServiceStatistics(ctx context.Context, serviceID string) (models.ServiceStatistics, error) {
	stats := models.ServiceStatistics{}
	query := url.Values{"today_only": {"True"}}
	if _, err := c.getData(ctx, fmt.Sprintf("/service/%s/statistics", serviceID), query, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// HasSentPreviously asks whether a job for the same template version and
// file name already exists.
func (c *Client) HasSentPreviously(ctx context.Context, serviceID, templateID string, version int, fileName string) (bool, error) {
	query := url.Values{
		"template_id":        {templateID},
		"template_version":   {strconv.Itoa(version)},
		"original_file_name": {fileName},
	}
	var sent bool
	if _, err := c.getData(ctx, fmt.Sprintf("/service/%s/job/has_sent_previously", serviceID), query, &sent); err != nil {
		return false, err
	}
	return sent, nil
}

// GetJob returns the job. A missing job is an UPSTREAM_BACKEND_ERROR with
// status 404; see errors.IsNotFound.
func (c *Client) GetJob(ctx context.Context, serviceID, jobID string) (*models.Job, error) {
	var job models.Job
	raw, err := c.getData(ctx, fmt.Sprintf("/service/%s/job/%s", serviceID, jobID), nil, &job)
	if err != nil {
		return nil, err
	}
	if err := checkSchema("job", raw); err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJob commits an upload as a job.
func (c *Client) CreateJob(ctx context.Context, serviceID string, req models.CreateJobRequest) (*models.Job, error) {
	raw, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/service/%s/job", serviceID), nil, req)
	if err != nil {
		return nil, err
	}
	var env struct {
		Data models.Job `json:"data"`
	}
	if err := decode(raw, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// SendNotification sends a single message.
func (c *Client) SendNotification(ctx context.Context, serviceID string, req models.OneOffRequest) (*models.OneOffResponse, error) {
	raw, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/service/%s/send-notification", serviceID), nil, req)
	if err != nil {
		return nil, err
	}
	var out models.OneOffResponse
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetNotification(ctx context.Context, serviceID, notificationID string) (*models.Notification, error) {
	var n models.Notification
	if err := c.getJSON(ctx, fmt.Sprintf("/service/%s/notifications/%s", serviceID, notificationID), &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// GetSenders lists the senders for a channel as generic Sender entries.
func (c *Client) GetSenders(ctx context.Context, serviceID string, templateType models.TemplateType) ([]models.Sender, error) {
	switch templateType {
	case models.TemplateTypeEmail:
		var rows []models.EmailReplyTo
		if err := c.getJSON(ctx, fmt.Sprintf("/service/%s/email-reply-to", serviceID), &rows); err != nil {
			return nil, err
		}
		out := make([]models.Sender, 0, len(rows))
		for _, r := range rows {
			out = append(out, models.Sender{ID: r.ID, Value: r.EmailAddress, IsDefault: r.IsDefault})
		}
		return out, nil
	case models.TemplateTypeSMS:
		var rows []models.SMSSender
		if err := c.getJSON(ctx, fmt.Sprintf("/service/%s/sms-sender", serviceID), &rows); err != nil {
			return nil, err
		}
		out := make([]models.Sender, 0, len(rows))
		for _, r := range rows {
			out = append(out, models.Sender{ID: r.ID, Value: r.SMSSender, IsDefault: r.IsDefault})
		}
		return out, nil
	case models.TemplateTypeLetter:
		var rows []models.LetterContact
		if err := c.getJSON(ctx, fmt.Sprintf("/service/%s/letter-contact", serviceID), &rows); err != nil {
			return nil, err
		}
		out := make([]models.Sender, 0, len(rows))
		for _, r := range rows {
			out = append(out, models.Sender{ID: r.ID, Value: r.ContactBlock, IsDefault: r.IsDefault})
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown template type %q", templateType)
}

// Safelist is the set of recipients a trial-mode service may send to.
type Safelist struct {
	EmailAddresses []string `json:"email_addresses"`
	PhoneNumbers   []string `json:"phone_numbers"`
}

func (s Safelist) All() []string {
	out := make([]string, 0, len(s.EmailAddresses)+len(s.PhoneNumbers))
	out = append(out, s.EmailAddresses...)
	return append(out, s.PhoneNumbers...)
}

func (c *Client) GetSafelist(ctx context.Context, serviceID string) (*Safelist, error) {
	var s Safelist
	if err := c.getJSON(ctx, fmt.Sprintf("/service/%s/safelist", serviceID), &s); err != nil {
		return nil, err
	}
	return &s, nil
}
