package model

// MailMessage is the unrendered mail payload handed to the mailer: template
// sources plus addressing.
type MailMessage struct {
	Recipients     map[string]string `json:"recipients"` // address -> display name
	SenderName     string            `json:"senderName"`
	SenderMail     string            `json:"senderMail,omitempty"`
	SalesChannelID string            `json:"salesChannelId"`
	TemplateID     string            `json:"templateId"`
	CustomFields   map[string]any    `json:"customFields,omitempty"`
	Subject        string            `json:"subject"`
	ContentHTML    string            `json:"contentHtml"`
	ContentPlain   string            `json:"contentPlain"`
	MediaIDs       []string          `json:"mediaIds"`
}
