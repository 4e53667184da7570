package flow

import (
	"net/http"

	"github.com/cds-snc/notification-admin-sub002/internal/models"

	"github.com/gin-gonic/gin"
)

// nextAfterSender is where the choose-sender step continues to. Only the
// bulk and one-off entry pages are accepted.
func nextAfterSender(c *gin.Context, serviceID, templateID string) string {
	switch c.Query("next") {
	case "csv":
		return sendURL(serviceID, templateID, "csv")
	case "s3-send":
		return sendURL(serviceID, templateID, "s3-send")
	case "test":
		return entryURL(serviceID, templateID, true)
	}
	return entryURL(serviceID, templateID, false)
}

func (h *Handler) getSetSender(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	t, err := h.template(req, req.templateID)
	if err != nil {
		return err
	}

	d := req.draft()
	d.ForTemplate(t.ID)
	d.ClearSender()

	if t.ReplyTo != "" {
		d.SenderID = t.ReplyTo
		return h.found(c, req, nextAfterSender(c, req.serviceID, t.ID))
	}

	senders, err := h.backend.GetSenders(req.ctx, req.serviceID, t.Type)
	if err != nil {
		return err
	}
	if len(senders) <= 1 {
		if s, ok := models.DefaultSender(senders); ok {
			d.SenderID = s.ID
		}
		return h.found(c, req, nextAfterSender(c, req.serviceID, t.ID))
	}

	selected, _ := models.DefaultSender(senders)
	return h.render(c, req, http.StatusOK, "set_sender.html", gin.H{
		"Template": t,
		"Senders":  senders,
		"Selected": selected.ID,
		"Next":     c.Query("next"),
		"BackLink": templateURL(req.serviceID, t.ID),
	})
}

func (h *Handler) postSetSender(c *gin.Context) error {
	req, err := h.begin(c)
	if err != nil {
		return err
	}
	t, err := h.template(req, req.templateID)
	if err != nil {
		return err
	}
	senders, err := h.backend.GetSenders(req.ctx, req.serviceID, t.Type)
	if err != nil {
		return err
	}

	chosen, ok := models.FindSender(senders, c.PostForm("sender"))
	if !ok {
		return h.render(c, req, http.StatusOK, "set_sender.html", gin.H{
			"Template": t,
			"Senders":  senders,
			"Next":     c.Query("next"),
			"Error":    "Select a sender",
			"BackLink": templateURL(req.serviceID, t.ID),
		})
	}

	d := req.draft()
	d.ForTemplate(t.ID)
	d.SenderID = chosen.ID
	h.logger.Debug("Sender chosen", map[string]interface{}{
		"serviceId":  req.serviceID,
		"templateId": t.ID,
		"senderId":   chosen.ID,
	})
	return h.found(c, req, nextAfterSender(c, req.serviceID, t.ID))
}
