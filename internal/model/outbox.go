package model

import "time"

// OutboxMail is a rendered mail waiting for delivery by the mail relay.
type OutboxMail struct {
	ID             string            `json:"id"`
	Recipients     map[string]string `json:"recipients"` // address -> display name
	SenderName     string            `json:"senderName"`
	SenderMail     string            `json:"senderMail,omitempty"`
	Subject        string            `json:"subject"`
	ContentHTML    string            `json:"contentHtml"`
	ContentPlain   string            `json:"contentPlain"`
	SalesChannelID string            `json:"salesChannelId"`
	TemplateID     string            `json:"templateId"`
	CreatedAt      time.Time         `json:"createdAt"`
}
