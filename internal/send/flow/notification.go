package flow

import (
	"errors"
	"net/http"

	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/policy"
	"github.com/cds-snc/notification-admin-sub002/internal/send/preview"
	"github.com/cds-snc/notification-admin-sub002/internal/send/submit"

	"github.com/gin-gonic/gin"
)

// oneOffCheck is the loaded state of the single-send check screen.
type oneOffCheck struct {
	template *models.Template
	service  *models.Service
	preview  *preview.Preview
	decision policy.Decision
	steps    int
	redirect string
}

func (h *Handler) loadOneOffCheck(req *request) (*oneOffCheck, error) {
	t, err := h.template(req, req.templateID)
	if err != nil {
		return nil, err
	}
	d := req.draft()
	if d.TemplateID != t.ID {
		return &oneOffCheck{redirect: entryURL(req.serviceID, t.ID, false)}, nil
	}
	// The template may have been edited since the values were collected.
	d.Pruned(t)
	fields := t.FieldsToFillIn(d.PrefillSelf)
	if missing := firstMissing(d, fields, len(fields)); missing >= 0 {
		return &oneOffCheck{redirect: stepURL(req.serviceID, t.ID, d.PrefillSelf, missing)}, nil
	}
	if !d.Complete(t) {
		return &oneOffCheck{redirect: entryURL(req.serviceID, t.ID, d.PrefillSelf)}, nil
	}

	svc, pol, err := h.servicePolicy(req)
	if err != nil {
		return nil, err
	}
	decision, err := h.policy.Evaluate(req.ctx, policy.Input{
		Template: t,
		Policy:   pol,
		Mode:     policy.ModeOneOff,
		SenderID: d.SenderID,
	})
	if err != nil {
		return nil, err
	}

	p := preview.Assemble(t, d.PlaceholderValues.Map(), preview.Options{SenderName: senderName(svc)})
	if t.Type == models.TemplateTypeLetter {
		d.LetterPageCount = p.PageCount
	}
	return &oneOffCheck{
		template: t,
		service:  svc,
		preview:  p,
		decision: decision,
		steps:    len(fields),
	}, nil
}

func (h *Handler) oneOffCheckPage(req *request, chk *oneOffCheck, errorKind submit.ErrorKind) gin.H {
	d := req.draft()
	return gin.H{
		"Template":        chk.template,
		"Preview":         chk.preview,
		"Values":          d.PlaceholderValues.Keys(),
		"ValueMap":        d.PlaceholderValues.Map(),
		"Decision":        chk.decision.String(),
		"DecisionMessage": decisionMessage(chk.decision, 0),
		"CanSend":         chk.decision.Allowed() && !chk.preview.TooLong,
		"ErrorKind":       string(errorKind),
		"ErrorMessage":    rejectedMessage(errorKind),
		"SendLink":        checkNotificationURL(req.serviceID, chk.template.ID),
		"BackLink":        oneOffCheckBackLink(req.serviceID, chk.template.ID, d.PrefillSelf, chk.steps),
	}
}

func (h *Handler) getCheckNotification(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	chk, err := h.loadOneOffCheck(req)
	if err != nil {
		return err
	}
	if chk.redirect != "" {
		return h.found(c, req, chk.redirect)
	}
	return h.render(c, req, http.StatusOK, "check_one_off.html", h.oneOffCheckPage(req, chk, ""))
}

func (h *Handler) postCheckNotification(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	chk, err := h.loadOneOffCheck(req)
	if err != nil {
		return err
	}
	if chk.redirect != "" {
		return h.found(c, req, chk.redirect)
	}
	if !chk.decision.Allowed() || chk.preview.TooLong {
		return h.render(c, req, http.StatusOK, "check_one_off.html", h.oneOffCheckPage(req, chk, ""))
	}

	id, err := h.submit.SendOneOff(req.ctx, chk.template, req.serviceID, req.user.ID, req.draft())
	if err != nil {
		var rej *submit.RejectedError
		if errors.As(err, &rej) {
			return h.render(c, req, http.StatusOK, "check_one_off.html", h.oneOffCheckPage(req, chk, rej.Kind))
		}
		return err
	}
	return h.found(c, req, notificationURL(req.serviceID, id))
}

func (h *Handler) getJob(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	job, err := h.backend.GetJob(req.ctx, req.serviceID, c.Param("job_id"))
	if err != nil {
		return err
	}
	return h.render(c, req, http.StatusOK, "job.html", gin.H{"Job": job})
}

func (h *Handler) getNotification(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	n, err := h.backend.GetNotification(req.ctx, req.serviceID, c.Param("notification_id"))
	if err != nil {
		return err
	}
	return h.render(c, req, http.StatusOK, "notification.html", gin.H{"Notification": n})
}
