package action

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/roach88/cartrecovery/internal/logger"
	"github.com/roach88/cartrecovery/internal/model"
)

// DefaultCodePattern is used when a generate_voucher action sets no codePattern.
const DefaultCodePattern = "RECOVER-%s%s%d%d"

// CodeGenerator expands voucher code patterns: %s becomes a random letter
// A-Z, %d a random digit 0-9. Every other character, including the % of an
// unrecognized placeholder, is copied literally.
type CodeGenerator struct {
	intn func(n int) int
}

// NewCodeGenerator returns a generator backed by crypto/rand.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{intn: cryptoIntn}
}

// NewCodeGeneratorWithSource returns a generator drawing from intn, which
// must return a value in [0, n).
func NewCodeGeneratorWithSource(intn func(n int) int) *CodeGenerator {
	return &CodeGenerator{intn: intn}
}

func cryptoIntn(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("voucher: read random: %v", err))
	}
	return int(v.Int64())
}

// Generate expands pattern.
func (g *CodeGenerator) Generate(pattern string) string {
	var b strings.Builder
	b.Grow(len(pattern))
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '%' && i+1 < len(pattern) {
			switch pattern[i+1] {
			case 's':
				b.WriteByte(byte('A' + g.intn(26)))
				i++
				continue
			case 'd':
				b.WriteByte(byte('0' + g.intn(10)))
				i++
				continue
			}
		}
		b.WriteByte(pattern[i])
	}
	return b.String()
}

// GenerateVoucher creates an individual promotion code and exposes it to
// later actions through Context.
//
// Config: promotionId (required), codePattern (default DefaultCodePattern).
type GenerateVoucher struct {
	Promotions     PromotionStore
	Codes          *CodeGenerator
	IDs            model.IDGenerator
	DefaultPattern string
	Logger         logger.Logger
}

func (GenerateVoucher) Type() string { return "generate_voucher" }

func (a GenerateVoucher) Execute(ctx context.Context, cart *model.AbandonedCart, cfg model.Config, ac *Context) error {
	promotionID, cerr := required(a.Type(), cfg, "promotionId")
	if cerr != nil {
		orDiscard(a.Logger).Warn("generate_voucher skipped: no promotion configured", "cartId", cart.ID)
		return nil
	}

	promo, err := a.Promotions.GetPromotion(ctx, promotionID)
	if errors.Is(err, model.ErrNotFound) {
		orDiscard(a.Logger).Warn("generate_voucher skipped: promotion not found", "promotionId", promotionID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load promotion %s: %w", promotionID, err)
	}
	if !promo.UseIndividualCodes {
		orDiscard(a.Logger).Warn("generate_voucher skipped: promotion does not use individual codes", "promotionId", promotionID)
		return nil
	}

	code := a.Codes.Generate(a.pattern(cfg))
	if err := a.Promotions.CreatePromotionCode(ctx, model.PromotionCode{
		ID:          a.IDs.Generate(),
		PromotionID: promotionID,
		Code:        code,
	}); err != nil {
		return fmt.Errorf("store voucher code for promotion %s: %w", promotionID, err)
	}
	ac.SetVoucherCode(code)

	orDiscard(a.Logger).Info("generated voucher code", "code", code, "promotionId", promotionID, "cartId", cart.ID)
	return nil
}

func (a GenerateVoucher) pattern(cfg model.Config) string {
	if p, ok := cfg.String("codePattern"); ok {
		return p
	}
	if a.DefaultPattern != "" {
		return a.DefaultPattern
	}
	return DefaultCodePattern
}

func (a GenerateVoucher) Validate(cfg model.Config) []Problem {
	_, cerr := required(a.Type(), cfg, "promotionId")
	return problems(a.Type(), cerr)
}
