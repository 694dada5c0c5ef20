package mail

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// moneyFunc returns the "money" template function: {{ money .abandonedCart.TotalPrice .abandonedCart.CurrencyCode }}.
// Unknown currency codes fall back to "<amount> <code>".
func moneyFunc(lang language.Tag) func(amount any, code string) (string, error) {
	printer := message.NewPrinter(lang)
	return func(amount any, code string) (string, error) {
		value, err := toFloat(amount)
		if err != nil {
			return "", err
		}
		unit, err := currency.ParseISO(code)
		if err != nil {
			return fmt.Sprintf("%.2f %s", value, code), nil
		}
		return printer.Sprint(currency.Symbol(unit.Amount(value))), nil
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n.InexactFloat64(), nil
	case *decimal.Decimal:
		if n == nil {
			return 0, nil
		}
		return n.InexactFloat64(), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return 0, fmt.Errorf("money: %w", err)
		}
		return d.InexactFloat64(), nil
	default:
		return 0, fmt.Errorf("money: unsupported amount type %T", v)
	}
}
