package condition

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/roach88/cartrecovery/internal/model"
)

// decode maps a flat config onto out. Nil values are dropped first so the
// defaults already set in out survive; strings such as "24" decode into
// numeric fields.
func decode(typ string, cfg model.Config, out any) error {
	input := make(map[string]any, len(cfg))
	for k, v := range cfg {
		if v != nil {
			input[k] = v
		}
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("condition %s: build decoder: %w", typ, err)
	}
	if err := dec.Decode(input); err != nil {
		return &ConfigError{Type: typ, Message: err.Error()}
	}
	return nil
}

// comparison is the config shape shared by the numeric and time conditions.
type comparison struct {
	Operator string `mapstructure:"operator"`
	Value    int64  `mapstructure:"value"`
	Unit     string `mapstructure:"unit"`
}

// parseComparison decodes cfg with the given defaults and resolves the operator.
func parseComparison(typ string, cfg model.Config, defOp Operator, defValue int64) (Operator, comparison, error) {
	c := comparison{Value: defValue}
	if err := decode(typ, cfg, &c); err != nil {
		return "", c, err
	}
	op, ok := ParseOperator(c.Operator, defOp)
	if !ok {
		return "", c, &ConfigError{Type: typ, Field: "operator", Message: fmt.Sprintf("unknown operator %q", c.Operator)}
	}
	return op, c, nil
}
