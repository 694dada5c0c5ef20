package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartrecovery/internal/model"
)

func TestPromotionCodes(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertPromotion(ctx, model.Promotion{ID: "promo-1", Name: "10% off", UseIndividualCodes: true}))
	p, err := s.GetPromotion(ctx, "promo-1")
	require.NoError(t, err)
	assert.True(t, p.UseIndividualCodes)

	require.NoError(t, s.CreatePromotionCode(ctx, model.PromotionCode{ID: "c2", PromotionID: "promo-1", Code: "RECOVER-ZZ99"}))
	require.NoError(t, s.CreatePromotionCode(ctx, model.PromotionCode{ID: "c1", PromotionID: "promo-1", Code: "RECOVER-AA00"}))
	assert.Error(t, s.CreatePromotionCode(ctx, model.PromotionCode{ID: "c3", PromotionID: "promo-1", Code: "RECOVER-AA00"}),
		"duplicate codes are rejected")

	codes, err := s.PromotionCodes(ctx, "promo-1")
	require.NoError(t, err)
	require.Len(t, codes, 2)
	assert.Equal(t, "RECOVER-AA00", codes[0].Code)

	_, err = s.GetPromotion(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestMailTemplateAndOutbox(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertMailTemplate(ctx, model.MailTemplate{
		ID: "tpl-1", SenderName: "Shop", Subject: "Hi", ContentHTML: "<b>hi</b>", ContentPlain: "hi",
		CustomFields: map[string]any{"campaign": "spring"},
	}))
	tpl, err := s.GetMailTemplate(ctx, "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "<b>hi</b>", tpl.ContentHTML)
	assert.Equal(t, "spring", tpl.CustomFields["campaign"])

	_, err = s.GetMailTemplate(ctx, "nope")
	assert.ErrorIs(t, err, model.ErrNotFound)

	mail := model.OutboxMail{
		ID:             "mail-1",
		Recipients:     map[string]string{"ada@example.com": "Ada Lovelace"},
		SenderName:     "Shop",
		Subject:        "Hi Ada",
		ContentHTML:    "<p>Hi & bye</p>",
		ContentPlain:   "Hi",
		SalesChannelID: "sc-1",
		TemplateID:     "tpl-1",
		CreatedAt:      baseTime,
	}
	require.NoError(t, s.EnqueueMail(ctx, mail))
	later := mail
	later.ID = "mail-0"
	later.CreatedAt = baseTime.Add(time.Second)
	require.NoError(t, s.EnqueueMail(ctx, later))

	outbox, err := s.Outbox(ctx)
	require.NoError(t, err)
	require.Len(t, outbox, 2)
	assert.Equal(t, mail, outbox[0])
	assert.Equal(t, "mail-0", outbox[1].ID)
}
