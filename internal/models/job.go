// internal/models/job.go
package models

import "time"

// Job is a committed batch send. Its ID is the upload ID it was created from.
type Job struct {
	ID                string     `json:"id"`
	ServiceID         string     `json:"service"`
	TemplateID        string     `json:"template"`
	TemplateVersion   int        `json:"template_version"`
	OriginalFileName  string     `json:"original_file_name"`
	NotificationCount int        `json:"notification_count"`
	JobStatus         string     `json:"job_status,omitempty"`
	SenderID          string     `json:"sender_id,omitempty"`
	ScheduledFor      *time.Time `json:"scheduled_for,omitempty"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
}

// CreateJobRequest is the body of the backend create-job call.
type CreateJobRequest struct {
	ID           string     `json:"id"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}
