package action

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/cartrecovery/internal/model"
)

var errDown = errors.New("store unavailable")

type fakeCustomers struct {
	customers map[string]*model.Customer
	updateErr error
	updates   int
}

func (f *fakeCustomers) GetCustomer(_ context.Context, id string) (*model.Customer, error) {
	c, ok := f.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, model.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomers) UpdateCustomFields(_ context.Context, id string, fields map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	f.customers[id].CustomFields = fields
	return nil
}

type fakeTags struct {
	tags map[string]map[string]bool
	err  error
}

func newFakeTags() *fakeTags { return &fakeTags{tags: map[string]map[string]bool{}} }

func (f *fakeTags) AddCustomerTag(_ context.Context, customerID, tagID string) error {
	if f.err != nil {
		return f.err
	}
	if f.tags[customerID] == nil {
		f.tags[customerID] = map[string]bool{}
	}
	f.tags[customerID][tagID] = true
	return nil
}

func (f *fakeTags) RemoveCustomerTag(_ context.Context, customerID, tagID string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.tags[customerID], tagID)
	return nil
}

type fakePromotions struct {
	promotions map[string]*model.Promotion
	codes      []model.PromotionCode
	createErr  error
}

func (f *fakePromotions) GetPromotion(_ context.Context, id string) (*model.Promotion, error) {
	p, ok := f.promotions[id]
	if !ok {
		return nil, fmt.Errorf("promotion %s: %w", id, model.ErrNotFound)
	}
	return p, nil
}

func (f *fakePromotions) CreatePromotionCode(_ context.Context, code model.PromotionCode) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.codes = append(f.codes, code)
	return nil
}

type fakeTemplates map[string]*model.MailTemplate

func (f fakeTemplates) GetMailTemplate(_ context.Context, id string) (*model.MailTemplate, error) {
	t, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("mail template %s: %w", id, model.ErrNotFound)
	}
	return t, nil
}

type sentMail struct {
	msg  model.MailMessage
	data map[string]any
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg model.MailMessage, data map[string]any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{msg: msg, data: data})
	return nil
}

type seqIDs struct{ n int }

func (s *seqIDs) Generate() string {
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}
