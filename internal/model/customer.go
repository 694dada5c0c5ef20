package model

// Customer is the owner of an abandoned cart.
type Customer struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	FirstName    string         `json:"firstName"`
	LastName     string         `json:"lastName"`
	CustomFields map[string]any `json:"customFields,omitempty"`
}

// FullName joins first and last name the way mail recipients are addressed.
func (c *Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}

// SalesChannel scopes carts and rules.
type SalesChannel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Promotion is a discount that may hand out individually generated codes.
type Promotion struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	UseIndividualCodes bool   `json:"useIndividualCodes"`
}

// PromotionCode is one individually generated voucher code.
type PromotionCode struct {
	ID          string `json:"id"`
	PromotionID string `json:"promotionId"`
	Code        string `json:"code"`
}

// MailTemplate holds the translated mail contents used by the send_email action.
type MailTemplate struct {
	ID           string         `json:"id"`
	SenderName   string         `json:"senderName"`
	Subject      string         `json:"subject"`
	ContentHTML  string         `json:"contentHtml"`
	ContentPlain string         `json:"contentPlain"`
	CustomFields map[string]any `json:"customFields,omitempty"`
}
