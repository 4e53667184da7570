package flow

import (
	"errors"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/policy"
	"github.com/cds-snc/notification-admin-sub002/internal/send/preview"
	"github.com/cds-snc/notification-admin-sub002/internal/send/recipients"
	"github.com/cds-snc/notification-admin-sub002/internal/send/submit"

	"github.com/gin-gonic/gin"
)

const (
	firstPreviewRow    = 2
	msgUploadNotValid  = "Fix the problems in your file before sending"
	msgInvalidSchedule = "Choose a valid time to send"
)

func errNotFound(what string) error {
	return apperrors.NewResourceNotFoundError("send", what)
}

// previewRow reads the row-{r} segment. Rows start at 2 because row 1 of
// the spreadsheet is the header. shown is the number of data rows that can
// be previewed. Past the end only row 2 is allowed, so an empty file still
// renders the template.
func previewRow(segment string, shown int) (int, bool) {
	if segment == "" {
		return firstPreviewRow, true
	}
	r, ok := parseIndexed(segment, "row")
	if !ok || r < firstPreviewRow {
		return 0, false
	}
	if r > shown+1 && r != firstPreviewRow {
		return 0, false
	}
	return r, true
}

// decisionMessage is the error heading shown for a policy block.
func decisionMessage(d policy.Decision, policyMaxRows int) string {
	switch d.Kind {
	case policy.BlockChannelDisabled:
		return "Your service is not allowed to send this type of message"
	case policy.BlockLetterInTrial:
		return "You cannot send letters while your service is in trial mode"
	case policy.BlockTrialLimit:
		return "You cannot send to these recipients while your service is in trial mode"
	case policy.BlockOverAllowance:
		if d.Allowance == policy.AllowanceRowCap {
			return "Your file has too many rows. You can only send " + strconv.Itoa(policyMaxRows) + " messages at a time"
		}
		return "You cannot send this many messages today. You have " + strconv.Itoa(d.Limit) + " messages left"
	case policy.BlockDuplicateSubmission:
		return "These messages have already been sent today. You sent " + d.FileName + " before"
	}
	return ""
}

func (h *Handler) getCheck(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	uploadID := c.Param("upload_id")
	upload, err := h.uploads.Fetch(req.ctx, req.serviceID, uploadID)
	if err != nil {
		return err
	}
	if tid := upload.Metadata[models.MetaTemplateID]; tid != "" && tid != req.templateID {
		return errNotFound("upload " + uploadID + " for template " + req.templateID)
	}

	t, err := h.template(req, req.templateID)
	if err != nil {
		return err
	}
	svc, pol, err := h.servicePolicy(req)
	if err != nil {
		return err
	}

	fileName := upload.OriginalFileName()
	view := recipients.Parse(upload.Data, t.Type, t.Placeholders(), pol, pol.RemainingMessages())
	if view.Err() != nil {
		return apperrors.NewInvalidSpreadsheetError(fileName, view.Err())
	}

	count := view.CountOfRecipients()
	shown := view.RowsShown()
	r, ok := previewRow(c.Param("row"), shown)
	if !ok {
		return errNotFound("row " + c.Param("row"))
	}

	d := req.draft()
	d.ForTemplate(t.ID)
	decision, err := h.policy.Evaluate(req.ctx, policy.Input{
		Template:   t,
		Policy:     pol,
		Mode:       policy.ModeBulk,
		Recipients: view,
		FileName:   fileName,
		SenderID:   d.SenderID,
	})
	if err != nil {
		return err
	}

	missing := view.MissingColumnHeaders()
	duplicates := view.DuplicateRecipientColumnHeaders()
	valid := count > 0 && !view.HasErrors() && decision.Allowed() && len(missing) == 0 && len(duplicates) == 0

	meta := maps.Clone(upload.Metadata)
	if meta == nil {
		meta = make(map[string]string)
	}
	meta[models.MetaTemplateID] = t.ID
	meta[models.MetaNotificationCount] = strconv.Itoa(count)
	meta[models.MetaValid] = strconv.FormatBool(valid)
	if d.SenderID != "" {
		meta[models.MetaSenderID] = d.SenderID
	}
	if err := h.uploads.SetMetadata(req.ctx, req.serviceID, uploadID, meta); err != nil {
		return err
	}

	d.UploadID = uploadID
	d.OriginalFileName = fileName

	values := map[string]string{}
	if row, ok := view.RowAt(r - firstPreviewRow); ok {
		values = row.Personalisation()
	}
	p := preview.Assemble(t, values, preview.Options{SenderName: senderName(svc)})

	page := gin.H{
		"Template":          t,
		"UploadID":          uploadID,
		"FileName":          fileName,
		"Preview":           p,
		"PreviewRow":        r,
		"Count":             count,
		"Headers":           view.Headers(),
		"Rows":              view.Preview(h.csv.PreviewRows),
		"TooManyRows":       view.TooManyRows(),
		"MaxRows":           view.MaxRows(),
		"HasErrors":         view.HasErrors(),
		"ErrorSummary":      view.ErrorSummary(),
		"BadRecipients":     view.RowsWithBadRecipients(),
		"NotInSafelist":     view.RowsNotInSafelist(),
		"MissingColumns":    missing,
		"DuplicateColumns":  duplicates,
		"Decision":          decision.String(),
		"DecisionMessage":   decisionMessage(decision, pol.MaxRows),
		"PreviouslySent":    decision.Kind == policy.BlockDuplicateSubmission,
		"CanSubmit":         valid,
		"StartJobLink":      startJobURL(req.serviceID, uploadID),
		"BackLink":          bulkCheckBackLink(req.serviceID, t.ID, d.Source),
		"RemainingMessages": pol.RemainingMessages(),
	}
	if r > firstPreviewRow {
		page["PrevRowLink"] = checkRowURL(req.serviceID, t.ID, uploadID, r-1)
	}
	if r <= shown {
		page["NextRowLink"] = checkRowURL(req.serviceID, t.ID, uploadID, r+1)
	}
	return h.render(c, req, http.StatusOK, "check_bulk.html", page)
}

// postStartJob commits a checked upload. A job that already exists for the
// upload sends the user back to the check screen with 301.
func (h *Handler) postStartJob(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	uploadID := c.Param("upload_id")
	meta, err := h.uploads.Metadata(req.ctx, req.serviceID, uploadID)
	if err != nil {
		return err
	}
	templateID := meta[models.MetaTemplateID]
	if templateID == "" {
		return errNotFound("template for upload " + uploadID)
	}
	t, err := h.template(req, templateID)
	if err != nil {
		return err
	}
	check := checkURL(req.serviceID, t.ID, uploadID)

	var scheduledFor *time.Time
	if raw := strings.TrimSpace(c.PostForm("scheduled_for")); raw != "" {
		at, err := time.Parse(time.RFC3339, raw)
		if err != nil || !at.After(time.Now()) {
			req.state.AddFlash("error", msgInvalidSchedule)
			return h.found(c, req, check)
		}
		at = at.UTC()
		scheduledFor = &at
	}

	d := req.draft()
	existing, err := h.backend.GetJob(req.ctx, req.serviceID, uploadID)
	switch {
	case err == nil:
		h.logger.Info("Start job repeated for existing job", map[string]interface{}{
			"serviceId": req.serviceID,
			"jobId":     existing.ID,
		})
		return h.redirect(c, req, http.StatusMovedPermanently, check)
	case !apperrors.IsNotFound(err):
		return err
	}

	upload := &models.Upload{ID: uploadID, ServiceID: req.serviceID, Metadata: meta}
	if !upload.IsValid() {
		req.state.AddFlash("error", msgUploadNotValid)
		return h.found(c, req, check)
	}

	res, err := h.submit.Commit(req.ctx, t, req.serviceID, uploadID, scheduledFor, d)
	if err != nil {
		var rej *submit.RejectedError
		if errors.As(err, &rej) {
			req.state.AddFlash("error", rejectedMessage(rej.Kind))
			return h.found(c, req, check)
		}
		return err
	}
	if !res.Created {
		return h.redirect(c, req, http.StatusMovedPermanently, check)
	}
	return h.found(c, req, jobURL(req.serviceID, res.JobID))
}

// rejectedMessage is the user-visible text for a backend rejection.
func rejectedMessage(kind submit.ErrorKind) string {
	switch kind {
	case submit.KindNotAllowedToSendTo:
		return "You cannot send to this recipient while your service is in trial mode"
	case submit.KindTooManyMessages:
		return "You cannot send this many messages today"
	case submit.KindMessageTooLong:
		return "Message is too long"
	}
	return ""
}
