package condition

// Operator is a normalized comparison operator.
type Operator string

const (
	OpGTE Operator = "gte"
	OpLTE Operator = "lte"
	OpGT  Operator = "gt"
	OpLT  Operator = "lt"
	OpEQ  Operator = "eq"
	OpNEQ Operator = "neq"
)

// Operators lists every supported operator.
var Operators = []Operator{OpGTE, OpLTE, OpGT, OpLT, OpEQ, OpNEQ}

var operatorAliases = map[string]Operator{
	"gte": OpGTE, ">=": OpGTE,
	"lte": OpLTE, "<=": OpLTE,
	"gt": OpGT, ">": OpGT,
	"lt": OpLT, "<": OpLT,
	"eq": OpEQ, "==": OpEQ,
	"neq": OpNEQ, "!=": OpNEQ,
}

// ParseOperator accepts both the word and symbol forms. Empty input yields
// def; anything unrecognized reports ok=false.
func ParseOperator(s string, def Operator) (Operator, bool) {
	if s == "" {
		return def, true
	}
	op, ok := operatorAliases[s]
	return op, ok
}

// SQL returns the SQL comparison symbol.
func (op Operator) SQL() string {
	switch op {
	case OpGTE:
		return ">="
	case OpLTE:
		return "<="
	case OpGT:
		return ">"
	case OpLT:
		return "<"
	case OpEQ:
		return "="
	default:
		return "!="
	}
}

// Mirror returns the operator with swapped operands: a op b == b op.Mirror() a.
// Age conditions use it to turn "now - ts op d" into "ts op.Mirror() now - d".
func (op Operator) Mirror() Operator {
	switch op {
	case OpGTE:
		return OpLTE
	case OpLTE:
		return OpGTE
	case OpGT:
		return OpLT
	case OpLT:
		return OpGT
	default:
		return op
	}
}

// CompareInt applies the operator to two integers.
func (op Operator) CompareInt(a, b int64) bool {
	switch op {
	case OpGTE:
		return a >= b
	case OpLTE:
		return a <= b
	case OpGT:
		return a > b
	case OpLT:
		return a < b
	case OpEQ:
		return a == b
	case OpNEQ:
		return a != b
	}
	return false
}

// CompareFloat applies the operator to two floats without tolerance.
func (op Operator) CompareFloat(a, b float64) bool {
	switch op {
	case OpGTE:
		return a >= b
	case OpLTE:
		return a <= b
	case OpGT:
		return a > b
	case OpLT:
		return a < b
	case OpEQ:
		return a == b
	case OpNEQ:
		return a != b
	}
	return false
}
