package ratel

// AngleUnit selects the unit trigonometric builtins interpret their
// arguments in.
type AngleUnit int8

const (
	Radians AngleUnit = iota
	Degrees
	Gradians
)

func (a AngleUnit) String() string {
	switch a {
	case Radians:
		return "radians"
	case Degrees:
		return "degrees"
	case Gradians:
		return "gradians"
	default:
		return "radians"
	}
}

// Settings is the immutable configuration surface of the engine. The zero
// value is not useful; construct with DefaultSettings and adjust fields
// before the first use. A Settings value must not be mutated once any
// tokenizer, parser, or context has been built from it.
type Settings struct {
	// Angle is the unit for trigonometric functions.
	Angle AngleUnit
	// DecimalPlaces bounds the fraction digits when formatting inexact
	// values.
	DecimalPlaces int
	// ForceDouble makes all arithmetic IEEE double instead of exact
	// rational.
	ForceDouble bool
	// GroupDigits formats integers with locale thousands separators.
	// Grouped output does not re-parse, so it is off by default.
	GroupDigits bool

	// Feature toggles. A disabled feature fails at parse time (or at
	// evaluation for implicit multiplication against runtime bindings).
	ImplicitMultiply bool
	Vectors          bool
	Matrices         bool
	Units            bool
	Comprehensions   bool
	Lambdas          bool
	UserFunctions    bool

	// StrictShapes makes mismatched vector and matrix shapes an error
	// instead of zero-padding to the larger shape.
	StrictShapes bool

	// Ceilings. All are enforced synchronously inside the parser and
	// evaluator; exceeding one aborts immediately.
	MaxRecursionDepth  int
	MaxExpressionDepth int
	MaxVectorSize      int
	MaxMatrixDim       int
	MaxIdentifierLen   int
}

// DefaultSettings returns the settings every feature enabled and the default
// ceilings.
func DefaultSettings() *Settings {
	return &Settings{
		Angle:              Radians,
		DecimalPlaces:      6,
		ImplicitMultiply:   true,
		Vectors:            true,
		Matrices:           true,
		Units:              true,
		Comprehensions:     true,
		Lambdas:            true,
		UserFunctions:      true,
		MaxRecursionDepth:  256,
		MaxExpressionDepth: 128,
		MaxVectorSize:      100000,
		MaxMatrixDim:       1000,
		MaxIdentifierLen:   64,
	}
}
