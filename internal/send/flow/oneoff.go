package flow

import (
	"net/http"

	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/draft"
	"github.com/cds-snc/notification-admin-sub002/internal/send/placeholder"
	"github.com/cds-snc/notification-admin-sub002/internal/send/preview"

	"github.com/gin-gonic/gin"
)

// startOneOff enters the single-recipient flow. The test flavour fills the
// recipient from the signed-in user, and falls back to one-off when the user
// has no address for the channel.
func (h *Handler) startOneOff(prefillSelf bool) func(c *gin.Context) error {
	return func(c *gin.Context) error {
		req, err := h.begin(c)
		if err != nil {
			return err
		}
		t, err := h.template(req, req.templateID)
		if err != nil {
			return err
		}

		prefill := prefillSelf
		d := req.draft()
		d.ForTemplate(t.ID)
		d.ClearRecipients()
		d.UploadID = ""
		d.OriginalFileName = ""
		d.Source = ""
		if prefill && t.Type != models.TemplateTypeLetter {
			self := req.user.SelfRecipient(t.Type)
			if self == "" {
				prefill = false
			} else {
				d.SetValue(t, t.RecipientColumns()[0], self)
			}
		}
		d.PrefillSelf = prefill
		return h.found(c, req, stepURL(req.serviceID, t.ID, prefill, 0))
	}
}

// firstMissing returns the index of the first field without a value among
// fields[:upto], or -1.
func firstMissing(d *draft.SendDraft, fields []string, upto int) int {
	for i := 0; i < upto && i < len(fields); i++ {
		if !d.PlaceholderValues.Has(fields[i]) {
			return i
		}
	}
	return -1
}

// stepState resolves the step in the path against the draft. redirect is
// set when the draft cannot show step n yet.
type stepState struct {
	template *models.Template
	fields   []string
	n        int
	redirect string
}

func (h *Handler) resolveStep(c *gin.Context, req *request, prefillSelf bool) (*stepState, error) {
	n, ok := parseIndexed(c.Param("step"), "step")
	if !ok {
		return nil, errNotFound("step " + c.Param("step"))
	}
	t, err := h.template(req, req.templateID)
	if err != nil {
		return nil, err
	}

	s := &stepState{template: t, n: n}
	d := req.draft()
	if d.TemplateID != t.ID || d.PrefillSelf != prefillSelf {
		s.redirect = entryURL(req.serviceID, t.ID, prefillSelf)
		return s, nil
	}
	d.Pruned(t)
	if prefillSelf && t.Type != models.TemplateTypeLetter && d.Recipient == "" {
		s.redirect = entryURL(req.serviceID, t.ID, prefillSelf)
		return s, nil
	}

	s.fields = t.FieldsToFillIn(prefillSelf)
	if missing := firstMissing(d, s.fields, n); missing >= 0 {
		s.redirect = stepURL(req.serviceID, t.ID, prefillSelf, missing)
		return s, nil
	}
	if n >= len(s.fields) {
		s.redirect = checkNotificationURL(req.serviceID, t.ID)
	}
	return s, nil
}

func (h *Handler) stepForm(s *stepState, policy *models.ServicePolicy) *placeholder.Form {
	name := s.fields[s.n]
	optional := s.template.Type == models.TemplateTypeLetter && models.IsOptionalAddressColumn(name)
	return placeholder.FormFor(name, s.template.Type, optional, policy)
}

func (h *Handler) stepPage(req *request, s *stepState, form *placeholder.Form, prefillSelf bool, svc *models.Service) gin.H {
	d := req.draft()
	page := gin.H{
		"Template":    s.template,
		"Form":        form,
		"StepHeading": placeholder.Message(placeholder.StepHeadingOf, s.n+1, len(s.fields)),
		"BackLink":    stepBackLink(req.serviceID, s.template.ID, prefillSelf, s.n),
		"Preview":     preview.Assemble(s.template, d.PlaceholderValues.Map(), preview.Options{SenderName: senderName(svc)}),
	}
	if s.n == 0 && !prefillSelf {
		switch s.template.Type {
		case models.TemplateTypeEmail:
			page["SkipLink"] = entryURL(req.serviceID, s.template.ID, true)
			page["SkipText"] = placeholder.Message(placeholder.SkipUseMyEmail)
		case models.TemplateTypeSMS:
			page["SkipLink"] = entryURL(req.serviceID, s.template.ID, true)
			page["SkipText"] = placeholder.Message(placeholder.SkipUseMyPhone)
		}
		page["UploadLink"] = sendURL(req.serviceID, s.template.ID, "csv")
	}
	return page
}

func (h *Handler) getStep(prefillSelf bool) func(c *gin.Context) error {
	return func(c *gin.Context) error {
		req, err := h.begin(c)
		if err != nil {
			return err
		}
		s, err := h.resolveStep(c, req, prefillSelf)
		if err != nil {
			return err
		}
		if s.redirect != "" {
			return h.found(c, req, s.redirect)
		}
		svc, pol, err := h.servicePolicy(req)
		if err != nil {
			return err
		}

		d := req.draft()
		d.StepIndex = s.n
		form := h.stepForm(s, pol)
		form.Value, _ = d.PlaceholderValues.Get(form.Name)
		return h.render(c, req, http.StatusOK, "one_off_step.html", h.stepPage(req, s, form, prefillSelf, svc))
	}
}

func (h *Handler) postStep(prefillSelf bool) func(c *gin.Context) error {
	return func(c *gin.Context) error {
		req, err := h.begin(c)
		if err != nil {
			return err
		}
		s, err := h.resolveStep(c, req, prefillSelf)
		if err != nil {
			return err
		}
		if s.redirect != "" {
			return h.found(c, req, s.redirect)
		}
		svc, pol, err := h.servicePolicy(req)
		if err != nil {
			return err
		}

		form := h.stepForm(s, pol)
		if err := form.Validate(c.PostForm("placeholder_value")); err != nil {
			return h.render(c, req, http.StatusOK, "one_off_step.html", h.stepPage(req, s, form, prefillSelf, svc))
		}

		d := req.draft()
		d.SetValue(s.template, form.Name, form.Normalised)
		d.StepIndex = s.n + 1
		if d.StepIndex < len(s.fields) {
			return h.found(c, req, stepURL(req.serviceID, s.template.ID, prefillSelf, d.StepIndex))
		}
		return h.found(c, req, checkNotificationURL(req.serviceID, s.template.ID))
	}
}
