package models

// EmailTemplate is a notification template stored in the DB.
// Subject and Body use {{.key}} placeholders filled from the task payload.
type EmailTemplate struct {
	TemplateID string `bson:"template_id" json:"template_id"` // e.g. "new_request", "request_accepted"
	Locale     string `bson:"locale" json:"locale"`           // e.g. "ko-KR"
	Subject    string `bson:"subject" json:"subject"`
	Body       string `bson:"body" json:"body"`
}
