package phantom

// Condition comparison applied by a Filter.
type Condition string

const (
	CondEq  Condition = "eq"
	CondEq2 Condition = "="

	CondNotEq  Condition = "neq"
	CondNotEq2 Condition = "!="

	CondLike Condition = "like"

	CondGreater     Condition = ">"
	CondGreaterOrEq Condition = ">="
	CondLess        Condition = "<"
	CondLessOrEq    Condition = "<="
)

// normalize maps aliases to canonical conditions, empty means equality.
func (c Condition) normalize() Condition {
	switch c {
	case "", CondEq2:
		return CondEq
	case CondNotEq2:
		return CondNotEq
	default:
		return c
	}
}

// IsRange reports whether condition compares a single bound.
func (c Condition) IsRange() bool {
	switch c {
	case CondGreater, CondGreaterOrEq, CondLess, CondLessOrEq:
		return true
	default:
		return false
	}
}
