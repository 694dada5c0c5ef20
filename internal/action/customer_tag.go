package action

import (
	"context"
	"fmt"

	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
)

// AddCustomerTag tags the cart's customer. Config: tagId (required).
type AddCustomerTag struct {
	Tags   CustomerTagStore
	Logger logger.Logger
}

func (AddCustomerTag) Type() string { return "add_customer_tag" }

func (a AddCustomerTag) Execute(ctx context.Context, cart *model.AbandonedCart, cfg model.Config, _ *Context) error {
	tagID, cerr := required(a.Type(), cfg, "tagId")
	if cerr != nil {
		orDiscard(a.Logger).Warn("add_customer_tag skipped: no tag configured", "cartId", cart.ID)
		return nil
	}
	if err := a.Tags.AddCustomerTag(ctx, cart.CustomerID, tagID); err != nil {
		return fmt.Errorf("add tag %s to customer %s: %w", tagID, cart.CustomerID, err)
	}
	orDiscard(a.Logger).Info("added customer tag", "tagId", tagID, "customerId", cart.CustomerID, "cartId", cart.ID)
	return nil
}

func (a AddCustomerTag) Validate(cfg model.Config) []Problem {
	_, cerr := required(a.Type(), cfg, "tagId")
	return problems(a.Type(), cerr)
}

// RemoveCustomerTag untags the cart's customer. Config: tagId (required).
type RemoveCustomerTag struct {
	Tags   CustomerTagStore
	Logger logger.Logger
}

func (RemoveCustomerTag) Type() string { return "remove_customer_tag" }

func (a RemoveCustomerTag) Execute(ctx context.Context, cart *model.AbandonedCart, cfg model.Config, _ *Context) error {
	tagID, cerr := required(a.Type(), cfg, "tagId")
	if cerr != nil {
		orDiscard(a.Logger).Warn("remove_customer_tag skipped: no tag configured", "cartId", cart.ID)
		return nil
	}
	if err := a.Tags.RemoveCustomerTag(ctx, cart.CustomerID, tagID); err != nil {
		return fmt.Errorf("remove tag %s from customer %s: %w", tagID, cart.CustomerID, err)
	}
	orDiscard(a.Logger).Info("removed customer tag", "tagId", tagID, "customerId", cart.CustomerID, "cartId", cart.ID)
	return nil
}

func (a RemoveCustomerTag) Validate(cfg model.Config) []Problem {
	_, cerr := required(a.Type(), cfg, "tagId")
	return problems(a.Type(), cerr)
}
