// internal/models/service.go
package models

// Service permissions recognised by the send pipeline.
const (
	PermissionEmail            = "email"
	PermissionSMS              = "sms"
	PermissionLetter           = "letter"
	PermissionInternationalSMS = "international_sms"
	PermissionSendFromS3       = "send_from_s3"
)

// Service is the subset of the backend service record the pipeline reads.
type Service struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Restricted       bool     `json:"restricted"`
	Permissions      []string `json:"permissions"`
	MessageLimit     int      `json:"message_limit"`
	SMSDailyLimit    int      `json:"sms_daily_limit,omitempty"`
	BulkSendEnabled  bool     `json:"bulk_send"`
	PrefixSMS        bool     `json:"prefix_sms"`
	EmailFrom        string   `json:"email_from,omitempty"`
	CountAsLive      bool     `json:"count_as_live"`
	OrganisationType string   `json:"organisation_type,omitempty"`
}

func (s *Service) HasPermission(p string) bool {
	for _, have := range s.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// ServicePolicy is the per-request view of a service used to validate a
// send. InTrialMode mirrors Service.Restricted.
type ServicePolicy struct {
	ServiceID          string          `json:"service_id"`
	InTrialMode        bool            `json:"in_trial_mode"`
	Permissions        map[string]bool `json:"permissions"`
	MessageLimitToday  int             `json:"message_limit_today"`
	MessagesSentToday  int             `json:"messages_sent_today"`
	MaxRows            int             `json:"max_rows"`
	SafelistIdentities []string        `json:"safelist_identities,omitempty"`
}

// NewServicePolicy derives a policy from the service record, today's sent
// count, the configured row caps and the trial safelist.
func NewServicePolicy(svc *Service, sentToday, maxRows, maxRowsBulkSend int, safelist []string) *ServicePolicy {
	perms := make(map[string]bool, len(svc.Permissions))
	for _, p := range svc.Permissions {
		perms[p] = true
	}
	rows := maxRows
	if svc.BulkSendEnabled && maxRowsBulkSend > 0 {
		rows = maxRowsBulkSend
	}
	p := &ServicePolicy{
		ServiceID:         svc.ID,
		InTrialMode:       svc.Restricted,
		Permissions:       perms,
		MessageLimitToday: svc.MessageLimit,
		MessagesSentToday: sentToday,
		MaxRows:           rows,
	}
	if svc.Restricted {
		p.SafelistIdentities = safelist
	}
	return p
}

func (p *ServicePolicy) HasPermission(perm string) bool {
	return p.Permissions[perm]
}

// CanSend reports whether the channel of templateType is switched on.
func (p *ServicePolicy) CanSend(templateType TemplateType) bool {
	return IsValidType(templateType) && p.Permissions[string(templateType)]
}

// RemainingMessages is never negative.
func (p *ServicePolicy) RemainingMessages() int {
	remaining := p.MessageLimitToday - p.MessagesSentToday
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ServiceStatistics is the per-channel count of today's notifications.
type ServiceStatistics map[string]struct {
	Requested int `json:"requested"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// TotalRequested sums requested counts across all channels.
func (s ServiceStatistics) TotalRequested() int {
	total := 0
	for _, ch := range s {
		total += ch.Requested
	}
	return total
}
