package flow

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	apperrors "github.com/cds-snc/notification-admin-sub002/internal/common/errors"
	"github.com/cds-snc/notification-admin-sub002/internal/models"
	"github.com/cds-snc/notification-admin-sub002/internal/send/draft"
	"github.com/cds-snc/notification-admin-sub002/internal/send/recipients"

	"github.com/gin-gonic/gin"
)

const (
	msgChooseFile      = "You need to choose a file to upload"
	msgChooseObject    = "Choose a file to send"
	msgNoS3Permission  = "service cannot send from the object store"
	maxUploadFormBytes = 10 << 20
)

// errSpreadsheetRejected is returned by acceptSpreadsheet with the message
// to show on the form.
type errSpreadsheetRejected struct{ message string }

func (e *errSpreadsheetRejected) Error() string { return e.message }

func (h *Handler) uploadPage(req *request, t *models.Template, svc *models.Service) gin.H {
	return gin.H{
		"Template":        t,
		"ExpectedColumns": t.ExpectedColumns(),
		"Formats":         recipients.SupportedFormats,
		"CanSendFromS3":   svc != nil && svc.HasPermission(models.PermissionSendFromS3),
		"ExampleLink":     sendURL(req.serviceID, t.ID, "example.csv"),
		"BackLink":        templateURL(req.serviceID, t.ID),
	}
}

func (h *Handler) getUploadCSV(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	t, err := h.template(req, req.templateID)
	if err != nil {
		return err
	}
	svc, err := h.backend.GetService(req.ctx, req.serviceID)
	if err != nil {
		return err
	}

	d := req.draft()
	d.ForTemplate(t.ID)
	d.ClearRecipients()
	return h.render(c, req, http.StatusOK, "upload.html", h.uploadPage(req, t, svc))
}

func (h *Handler) postUploadCSV(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	t, err := h.template(req, req.templateID)
	if err != nil {
		return err
	}
	svc, err := h.backend.GetService(req.ctx, req.serviceID)
	if err != nil {
		return err
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadFormBytes)
	fileName, data, err := readUpload(c)
	if err == nil {
		err = h.acceptSpreadsheet(c, req, t, fileName, data, draft.SourceCSV)
	}
	var rejected *errSpreadsheetRejected
	switch {
	case err == nil:
		return nil
	case errors.As(err, &rejected):
		page := h.uploadPage(req, t, svc)
		page["Error"] = rejected.message
		return h.render(c, req, http.StatusOK, "upload.html", page)
	default:
		return err
	}
}

func readUpload(c *gin.Context) (string, []byte, error) {
	fh, err := c.FormFile("file")
	if err != nil || fh.Filename == "" {
		return "", nil, &errSpreadsheetRejected{message: msgChooseFile}
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return "", nil, &errSpreadsheetRejected{message: msgChooseFile}
	}
	return fh.Filename, data, nil
}

// acceptSpreadsheet converts the file to CSV, stores it with its metadata,
// records the upload on the draft and redirects to the check screen.
func (h *Handler) acceptSpreadsheet(c *gin.Context, req *request, t *models.Template, fileName string, data []byte, source draft.Source) error {
	sheet, err := recipients.FromFile(fileName, data)
	if err != nil {
		if stdErr, ok := apperrors.AsStandardError(err); ok &&
			(stdErr.Code == apperrors.ErrCodeInvalidSpreadsheet || stdErr.Code == apperrors.ErrCodeUnparseableDate) {
			h.logger.Info("Spreadsheet rejected", map[string]interface{}{
				"serviceId": req.serviceID,
				"fileName":  fileName,
				"reason":    stdErr.Details,
			})
			return &errSpreadsheetRejected{message: stdErr.Message}
		}
		return err
	}

	uploadID, err := h.uploads.Put(req.ctx, req.serviceID, sheet.Data)
	if err != nil {
		return err
	}

	d := req.draft()
	d.ForTemplate(t.ID)
	meta := map[string]string{
		models.MetaTemplateID:       t.ID,
		models.MetaOriginalFileName: fileName,
	}
	if d.SenderID != "" {
		meta[models.MetaSenderID] = d.SenderID
	}
	if err := h.uploads.SetMetadata(req.ctx, req.serviceID, uploadID, meta); err != nil {
		return err
	}

	d.ClearRecipients()
	d.UploadID = uploadID
	d.OriginalFileName = fileName
	d.Source = source

	h.logger.Info("Spreadsheet uploaded", map[string]interface{}{
		"serviceId":  req.serviceID,
		"templateId": t.ID,
		"uploadId":   uploadID,
		"fileName":   fileName,
		"source":     string(source),
	})
	return h.found(c, req, checkURL(req.serviceID, t.ID, uploadID))
}

// sendFromS3Service loads the service and checks it may pick files from the
// object store.
func (h *Handler) sendFromS3Service(req *request) (*models.Service, error) {
	svc, err := h.backend.GetService(req.ctx, req.serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.HasPermission(models.PermissionSendFromS3) {
		return nil, apperrors.NewForbiddenError(msgNoS3Permission)
	}
	return svc, nil
}

func (h *Handler) s3Page(c *gin.Context, req *request, t *models.Template, message string) error {
	objects, err := h.uploads.ListSendBucket(req.ctx, req.serviceID)
	if err != nil {
		return err
	}
	return h.render(c, req, http.StatusOK, "s3_send.html", gin.H{
		"Template": t,
		"Objects":  objects,
		"Error":    message,
		"BackLink": templateURL(req.serviceID, t.ID),
	})
}

func (h *Handler) getS3Send(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	if _, err := h.sendFromS3Service(req); err != nil {
		return err
	}
	t, err := h.template(req, req.templateID)
	if err != nil {
		return err
	}

	d := req.draft()
	d.ForTemplate(t.ID)
	d.ClearRecipients()
	return h.s3Page(c, req, t, "")
}

func (h *Handler) postS3Send(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	if _, err := h.sendFromS3Service(req); err != nil {
		return err
	}
	t, err := h.template(req, req.templateID)
	if err != nil {
		return err
	}

	key := strings.TrimSpace(c.PostForm("key"))
	if key == "" {
		return h.s3Page(c, req, t, msgChooseObject)
	}
	data, err := h.uploads.FetchFromSendBucket(req.ctx, req.serviceID, key)
	if err != nil {
		return err
	}

	var rejected *errSpreadsheetRejected
	err = h.acceptSpreadsheet(c, req, t, path.Base(key), data, draft.SourceS3)
	if err != nil && errors.As(err, &rejected) {
		return h.s3Page(c, req, t, rejected.message)
	}
	return err
}

// exampleValue is the sample cell written under column in example.csv.
func exampleValue(t *models.Template, column string, user *models.User) string {
	switch models.NormaliseKey(column) {
	case models.NormaliseKey(models.ColumnEmailAddress):
		if user.EmailAddress != "" {
			return user.EmailAddress
		}
		return "test@example.com"
	case models.NormaliseKey(models.ColumnPhoneNumber):
		if user.MobileNumber != "" {
			return user.MobileNumber
		}
		return "+16502532222"
	case "addressline1":
		return "A. Name"
	case "addressline2":
		return "123 Example St."
	case "addressline3":
		return "Ottawa ON"
	case models.NormaliseKey(models.ColumnPostcode):
		return "K1A 0B1"
	}
	if models.IsRecipientColumn(t.Type, column) {
		return ""
	}
	return "example"
}

func (h *Handler) getExampleCSV(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	t, err := h.template(req, req.templateID)
	if err != nil {
		return err
	}

	header := t.ExpectedColumns()
	row := make([]string, len(header))
	for i, col := range header {
		row[i] = exampleValue(t, col, req.user)
	}

	fileName := strings.TrimSpace(t.Name)
	if fileName == "" {
		fileName = "example"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName+".csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", recipients.RenderCSV([][]string{header, row}, true))
	return nil
}
