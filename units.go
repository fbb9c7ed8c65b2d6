package ratel

import (
	"math"
	"math/big"
	"sort"
)

// Unit is a measurement unit. Factor converts a magnitude in this unit to
// the dimension's base unit; Offset handles affine scales (temperatures).
type Unit struct {
	Name   string
	Symbol string
	Dim    string
	Factor *big.Rat
	Offset *big.Rat
}

// toBase converts a magnitude in u to the dimension's base unit.
func (u *Unit) toBase(mag *big.Rat) *big.Rat {
	r := new(big.Rat).Mul(mag, u.Factor)
	if u.Offset != nil {
		r.Add(r, u.Offset)
	}
	return r
}

// fromBase converts a base-unit magnitude into u.
func (u *Unit) fromBase(mag *big.Rat) *big.Rat {
	r := new(big.Rat).Set(mag)
	if u.Offset != nil {
		r.Sub(r, u.Offset)
	}
	return r.Quo(r, u.Factor)
}

// Convert re-expresses a quantity in the target unit. The dimensions must
// match.
func (q *Quantity) Convert(to *Unit) (*Quantity, error) {
	if q.Unit.Dim != to.Dim {
		return nil, &EvalError{Msg: "cannot convert " + q.Unit.Dim + " to " + to.Dim}
	}
	return &Quantity{Mag: to.fromBase(q.Unit.toBase(q.Mag)), Unit: to}, nil
}

// UnitRegistry is the name→unit lookup consumed by the tokenizer and
// evaluator. The core only calls IsDefined, Get, and Names; the data behind
// the registry is owned by the caller.
type UnitRegistry interface {
	IsDefined(name string) bool
	Get(name string) (*Unit, bool)
	Names() []string
}

// ConstRegistry is the name→value lookup for named constants.
type ConstRegistry interface {
	IsDefined(name string) bool
	Get(name string) (Value, bool)
	Names() []string
}

// FuncRegistry is the name→builtin lookup for function calls.
type FuncRegistry interface {
	IsDefined(name string) bool
	Get(name string) (*Builtin, bool)
	Names() []string
}

// UnitTable is a map-backed UnitRegistry.
type UnitTable map[string]*Unit

func (t UnitTable) IsDefined(name string) bool { _, ok := t[name]; return ok }
func (t UnitTable) Get(name string) (*Unit, bool) {
	u, ok := t[name]
	return u, ok
}
func (t UnitTable) Names() []string { return sortedKeys(t) }

// ConstTable is a map-backed ConstRegistry.
type ConstTable map[string]Value

func (t ConstTable) IsDefined(name string) bool { _, ok := t[name]; return ok }
func (t ConstTable) Get(name string) (Value, bool) {
	v, ok := t[name]
	return v, ok
}
func (t ConstTable) Names() []string { return sortedKeys(t) }

// FuncTable is a map-backed FuncRegistry.
type FuncTable map[string]*Builtin

func (t FuncTable) IsDefined(name string) bool { _, ok := t[name]; return ok }
func (t FuncTable) Get(name string) (*Builtin, bool) {
	f, ok := t[name]
	return f, ok
}
func (t FuncTable) Names() []string { return sortedKeys(t) }

func sortedKeys[M ~map[string]V, V any](m M) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func rat(a, b int64) *big.Rat { return big.NewRat(a, b) }

// ratDec builds an exact rational from a decimal string.
func ratDec(s string) *big.Rat {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		panic("ratel: bad unit factor " + s)
	}
	return r
}

// DefaultUnits returns the built-in unit table. The set is intentionally
// modest; hosts with full unit databases inject their own registry.
func DefaultUnits() UnitTable {
	t := UnitTable{}
	def := func(dim, factor string, names ...string) {
		f := ratDec(factor)
		u := &Unit{Name: names[0], Symbol: names[len(names)-1], Dim: dim, Factor: f}
		for _, n := range names {
			t[n] = u
		}
	}
	// Length, base meter.
	def("length", "1", "meter", "meters", "metre", "metres", "m")
	def("length", "1000", "kilometer", "kilometers", "km")
	def("length", "0.01", "centimeter", "centimeters", "cm")
	def("length", "0.001", "millimeter", "millimeters", "mm")
	def("length", "0.3048", "foot", "feet", "ft")
	def("length", "0.0254", "inch", "inches")
	def("length", "0.9144", "yard", "yards", "yd")
	def("length", "1609.344", "mile", "miles", "mi")
	// Mass, base kilogram.
	def("mass", "1", "kilogram", "kilograms", "kg")
	def("mass", "0.001", "gram", "grams", "g")
	def("mass", "0.000001", "milligram", "milligrams", "mg")
	def("mass", "0.45359237", "pound", "pounds", "lb", "lbs")
	def("mass", "0.028349523125", "ounce", "ounces", "oz")
	def("mass", "1000", "tonne", "tonnes", "t")
	// Time, base second.
	def("time", "1", "second", "seconds", "s", "sec")
	def("time", "60", "minute", "minutes", "min")
	def("time", "3600", "hour", "hours", "h", "hr")
	def("time", "86400", "day", "days")
	def("time", "604800", "week", "weeks")
	// Volume, base liter.
	def("volume", "1", "liter", "liters", "litre", "litres", "L")
	def("volume", "0.001", "milliliter", "milliliters", "mL", "ml")
	def("volume", "3.785411784", "gallon", "gallons", "gal")
	// Angle, base radian.
	def("angle", "1", "radian", "radians", "rad")
	t["degree"] = &Unit{Name: "degree", Symbol: "deg", Dim: "angle", Factor: ratDec("0.017453292519943295")}
	t["degrees"] = t["degree"]
	t["deg"] = t["degree"]
	t["gradian"] = &Unit{Name: "gradian", Symbol: "grad", Dim: "angle", Factor: ratDec("0.015707963267948967")}
	t["gradians"] = t["gradian"]
	t["grad"] = t["gradian"]
	// Data, base byte.
	def("data", "1", "byte", "bytes", "B")
	def("data", "1024", "kibibyte", "kibibytes", "KiB")
	def("data", "1048576", "mebibyte", "mebibytes", "MiB")
	// Temperature, base kelvin; affine scales carry offsets.
	t["kelvin"] = &Unit{Name: "kelvin", Symbol: "K", Dim: "temperature", Factor: rat(1, 1)}
	t["K"] = t["kelvin"]
	t["celsius"] = &Unit{Name: "celsius", Symbol: "C", Dim: "temperature", Factor: rat(1, 1), Offset: ratDec("273.15")}
	t["fahrenheit"] = &Unit{Name: "fahrenheit", Symbol: "F", Dim: "temperature", Factor: rat(5, 9), Offset: ratDec("255.37222222222222222")}
	return t
}

// DefaultConstants returns the built-in named constants. Transcendental
// values are generated at high precision and rounded once.
func DefaultConstants() ConstTable {
	pi := piFloat()
	e := eFloat()
	return ConstTable{
		"pi":  FloatValue(pi),
		"tau": FloatValue(2 * pi),
		"e":   FloatValue(e),
		"phi": FloatValue(1.618033988749895),
		"inf": FloatValue(math.Inf(1)),
	}
}
