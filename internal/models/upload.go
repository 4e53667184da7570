// internal/models/upload.go
package models

// Object metadata keys stamped on an upload.
const (
	MetaTemplateID        = "template_id"
	MetaNotificationCount = "notification_count"
	MetaValid             = "valid"
	MetaOriginalFileName  = "original_file_name"
	MetaSenderID          = "sender_id"
)

// Upload is an accepted spreadsheet, stored as CSV, awaiting commit.
type Upload struct {
	ID        string
	ServiceID string
	Data      []byte
	Metadata  map[string]string
}

// IsValid reads the valid flag stamped at the preview step.
func (u *Upload) IsValid() bool {
	return u.Metadata[MetaValid] == "True" || u.Metadata[MetaValid] == "true"
}

func (u *Upload) OriginalFileName() string {
	return u.Metadata[MetaOriginalFileName]
}
