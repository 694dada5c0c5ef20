package action

import (
	"context"

	"github.com/roach88/cartrecovery/internal/model"
)

// The stores below return errors wrapping model.ErrNotFound for missing rows.

// CustomerStore reads and updates customers.
type CustomerStore interface {
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	UpdateCustomFields(ctx context.Context, id string, fields map[string]any) error
}

// CustomerTagStore maintains the customer/tag relation. Adding a present tag
// and removing an absent one are no-ops.
type CustomerTagStore interface {
	AddCustomerTag(ctx context.Context, customerID, tagID string) error
	RemoveCustomerTag(ctx context.Context, customerID, tagID string) error
}

// PromotionStore reads promotions and persists generated codes.
type PromotionStore interface {
	GetPromotion(ctx context.Context, id string) (*model.Promotion, error)
	CreatePromotionCode(ctx context.Context, code model.PromotionCode) error
}

// MailTemplateStore reads mail templates.
type MailTemplateStore interface {
	GetMailTemplate(ctx context.Context, id string) (*model.MailTemplate, error)
}

// Mailer renders and dispatches a templated mail. data holds the extra
// render variables.
type Mailer interface {
	Send(ctx context.Context, msg model.MailMessage, data map[string]any) error
}
