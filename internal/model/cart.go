package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line item types kept by the archiving collaborator.
const (
	LineItemTypeProduct   = "product"
	LineItemTypePromotion = "promotion"
	LineItemTypeCustom    = "custom"
)

// AbandonedCart is a persisted snapshot of a cart that was judged abandoned.
// The engine only ever mutates LastAutomationAt and AutomationCount.
type AbandonedCart struct {
	ID               string          `json:"id"`
	CustomerID       string          `json:"customerId"`
	SalesChannelID   string          `json:"salesChannelId"`
	TotalPrice       decimal.Decimal `json:"totalPrice"`
	CurrencyCode     string          `json:"currencyIsoCode"`
	CreatedAt        time.Time       `json:"createdAt"`
	LastAutomationAt *time.Time      `json:"lastAutomationAt,omitempty"`
	AutomationCount  int             `json:"automationCount"`
	LineItems        []LineItem      `json:"lineItems"`

	// Resolved associations; nil when the referenced row is gone.
	Customer     *Customer     `json:"customer,omitempty"`
	SalesChannel *SalesChannel `json:"salesChannel,omitempty"`
}

// LineItemCount returns the number of line items (0 when none are loaded).
func (c *AbandonedCart) LineItemCount() int {
	return len(c.LineItems)
}

// LineItem is one archived position of an abandoned cart.
type LineItem struct {
	ID           string          `json:"id"`
	CartID       string          `json:"cartId"`
	ProductID    *string         `json:"productId,omitempty"` // nil when the product no longer exists
	ReferencedID string          `json:"referencedId,omitempty"`
	Type         string          `json:"type"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	Label        string          `json:"label"`
}

// DisplayLabel returns the label to show for the item. The label is the
// only description left once the product reference has been removed.
func (li LineItem) DisplayLabel() string {
	if li.Label != "" {
		return li.Label
	}
	if li.ProductID != nil {
		return *li.ProductID
	}
	return li.ReferencedID
}
