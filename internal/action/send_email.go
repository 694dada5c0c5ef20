package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
)

// SendEmail mails the cart's customer using a stored template.
//
// Config: mailTemplateId (required), replyTo (optional sender override).
type SendEmail struct {
	Templates MailTemplateStore
	Mailer    Mailer
	Logger    logger.Logger
}

func (SendEmail) Type() string { return "send_email" }

func (a SendEmail) Execute(ctx context.Context, cart *model.AbandonedCart, cfg model.Config, ac *Context) error {
	templateID, cerr := required(a.Type(), cfg, "mailTemplateId")
	if cerr != nil {
		orDiscard(a.Logger).Warn("send_email skipped: no mail template configured", "cartId", cart.ID)
		return nil
	}

	tpl, err := a.Templates.GetMailTemplate(ctx, templateID)
	if errors.Is(err, model.ErrNotFound) {
		orDiscard(a.Logger).Warn("send_email skipped: mail template not found", "mailTemplateId", templateID, "cartId", cart.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load mail template %s: %w", templateID, err)
	}

	customer := cart.Customer
	if customer == nil {
		orDiscard(a.Logger).Warn("send_email skipped: customer not loaded", "cartId", cart.ID)
		return nil
	}

	msg := model.MailMessage{
		Recipients:     map[string]string{customer.Email: customer.FullName()},
		SenderName:     tpl.SenderName,
		SalesChannelID: cart.SalesChannelID,
		TemplateID:     tpl.ID,
		CustomFields:   tpl.CustomFields,
		Subject:        tpl.Subject,
		ContentHTML:    tpl.ContentHTML,
		ContentPlain:   tpl.ContentPlain,
		MediaIDs:       []string{},
	}
	if replyTo, ok := cfg.String("replyTo"); ok {
		msg.SenderMail = replyTo
	}

	var voucher any
	if code, ok := ac.VoucherCode(); ok {
		voucher = code
	}
	data := map[string]any{
		"customer":      customer,
		"abandonedCart": cart,
		"lineItems":     cart.LineItems,
		"voucherCode":   voucher,
		"salesChannel":  cart.SalesChannel,
	}

	if err := a.Mailer.Send(ctx, msg, data); err != nil {
		return fmt.Errorf("send mail to %s: %w", customer.Email, err)
	}
	orDiscard(a.Logger).Info("sent recovery mail", "mailTemplateId", tpl.ID, "cartId", cart.ID, "customerId", customer.ID)
	return nil
}

func (a SendEmail) Validate(cfg model.Config) []Problem {
	_, cerr := required(a.Type(), cfg, "mailTemplateId")
	return problems(a.Type(), cerr)
}
