package action

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
)

// SetCustomerCustomField merges one custom field into the customer's
// existing custom fields.
//
// Config: customFieldName (required, non-empty), value (any JSON value,
// null included).
type SetCustomerCustomField struct {
	Customers CustomerStore
	Logger    logger.Logger
}

func (SetCustomerCustomField) Type() string { return "set_customer_custom_field" }

func (a SetCustomerCustomField) Execute(ctx context.Context, cart *model.AbandonedCart, cfg model.Config, _ *Context) error {
	name, cerr := required(a.Type(), cfg, "customFieldName")
	if cerr != nil {
		orDiscard(a.Logger).Warn("set_customer_custom_field skipped: no custom field name configured", "cartId", cart.ID)
		return nil
	}
	value := cfg["value"]

	customer, err := a.Customers.GetCustomer(ctx, cart.CustomerID)
	if errors.Is(err, model.ErrNotFound) {
		orDiscard(a.Logger).Warn("set_customer_custom_field skipped: customer not found", "customerId", cart.CustomerID, "cartId", cart.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load customer %s: %w", cart.CustomerID, err)
	}

	fields := maps.Clone(customer.CustomFields)
	if fields == nil {
		fields = make(map[string]any, 1)
	}
	fields[name] = value
	if err := a.Customers.UpdateCustomFields(ctx, customer.ID, fields); err != nil {
		return fmt.Errorf("update custom fields of customer %s: %w", customer.ID, err)
	}

	orDiscard(a.Logger).Info("set customer custom field", "customFieldName", name, "customerId", customer.ID, "cartId", cart.ID)
	return nil
}

func (a SetCustomerCustomField) Validate(cfg model.Config) []Problem {
	_, cerr := required(a.Type(), cfg, "customFieldName")
	return problems(a.Type(), cerr)
}
