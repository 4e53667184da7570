package flow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cds-snc/notification-admin-sub002/internal/send/draft"
)

func flavour(prefillSelf bool) string {
	if prefillSelf {
		return "test"
	}
	return "one-off"
}

func templateURL(serviceID, templateID string) string {
	return fmt.Sprintf("/services/%s/templates/%s", serviceID, templateID)
}

func sendURL(serviceID, templateID, page string) string {
	return fmt.Sprintf("/services/%s/send/%s/%s", serviceID, templateID, page)
}

func entryURL(serviceID, templateID string, prefillSelf bool) string {
	return sendURL(serviceID, templateID, flavour(prefillSelf))
}

func stepURL(serviceID, templateID string, prefillSelf bool, n int) string {
	return fmt.Sprintf("/services/%s/send/%s/%s/step-%d", serviceID, templateID, flavour(prefillSelf), n)
}

func checkURL(serviceID, templateID, uploadID string) string {
	return fmt.Sprintf("/services/%s/%s/check/%s", serviceID, templateID, uploadID)
}

func checkRowURL(serviceID, templateID, uploadID string, row int) string {
	return fmt.Sprintf("%s/row-%d", checkURL(serviceID, templateID, uploadID), row)
}

func checkNotificationURL(serviceID, templateID string) string {
	return fmt.Sprintf("/services/%s/template/%s/notification/check", serviceID, templateID)
}

func startJobURL(serviceID, uploadID string) string {
	return fmt.Sprintf("/services/%s/start-job/%s", serviceID, uploadID)
}

func jobURL(serviceID, jobID string) string {
	return fmt.Sprintf("/services/%s/jobs/%s", serviceID, jobID)
}

func notificationURL(serviceID, notificationID string) string {
	return fmt.Sprintf("/services/%s/notification/%s", serviceID, notificationID)
}

// stepBackLink goes to the previous step of the same flavour, or to the
// template from the first step.
func stepBackLink(serviceID, templateID string, prefillSelf bool, n int) string {
	if n > 0 {
		return stepURL(serviceID, templateID, prefillSelf, n-1)
	}
	return templateURL(serviceID, templateID)
}

// oneOffCheckBackLink returns to the last step of the flavour the draft was
// filled in with.
func oneOffCheckBackLink(serviceID, templateID string, prefillSelf bool, steps int) string {
	if steps == 0 {
		return templateURL(serviceID, templateID)
	}
	return stepURL(serviceID, templateID, prefillSelf, steps-1)
}

// bulkCheckBackLink returns to the form the upload came from.
func bulkCheckBackLink(serviceID, templateID string, source draft.Source) string {
	if source == draft.SourceS3 {
		return sendURL(serviceID, templateID, "s3-send")
	}
	return sendURL(serviceID, templateID, "csv")
}

// parseIndexed reads the number out of a path segment such as "step-3".
func parseIndexed(segment, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(segment, prefix+"-")
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
