// internal/models/user.go
package models

// Per-service user permissions checked by the send pipeline.
const (
	UserPermissionSendMessages    = "send_messages"
	UserPermissionManageTemplates = "manage_templates"
)

type User struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	EmailAddress  string              `json:"email_address"`
	MobileNumber  string              `json:"mobile_number,omitempty"`
	Permissions   map[string][]string `json:"permissions"`
	PlatformAdmin bool                `json:"platform_admin"`
}

// HasPermission checks a permission for one service. Platform admins have
// every permission.
func (u *User) HasPermission(serviceID, permission string) bool {
	if u.PlatformAdmin {
		return true
	}
	for _, p := range u.Permissions[serviceID] {
		if p == permission {
			return true
		}
	}
	return false
}

// SelfRecipient is the address used to pre-fill a send-to-self for the given
// channel. Letters have no self recipient.
func (u *User) SelfRecipient(templateType TemplateType) string {
	switch templateType {
	case TemplateTypeEmail:
		return u.EmailAddress
	case TemplateTypeSMS:
		return u.MobileNumber
	}
	return ""
}
