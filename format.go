package ratel

import (
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var display = message.NewPrinter(language.English)

// Format renders a value for display. Exact rationals render as integers or
// canonical fractions; floats honor the DecimalPlaces setting. Integers get
// locale digit grouping.
func Format(v Value, s *Settings) string {
	if s == nil {
		s = DefaultSettings()
	}
	switch v.Kind {
	case KindRational:
		return formatRat(v.Rat, s)
	case KindFloat:
		return formatFloat(v.Float, s)
	case KindPercent:
		return formatRat(v.Rat, s) + "%"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindString:
		return v.Str
	case KindQuantity:
		// Converted magnitudes are rarely tidy fractions; show decimals.
		mag := v.Quant.Mag
		if mag.IsInt() {
			return formatRat(mag, s) + " " + v.Quant.Unit.Name
		}
		f, _ := mag.Float64()
		return formatFloat(f, s) + " " + v.Quant.Unit.Name
	case KindVector:
		var b strings.Builder
		b.WriteByte('{')
		for i, e := range v.Vec {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(Format(e, s))
		}
		b.WriteByte('}')
		return b.String()
	case KindMatrix:
		var b strings.Builder
		b.WriteByte('[')
		for i, row := range v.Mat {
			if i > 0 {
				b.WriteString("; ")
			}
			for j, e := range row {
				if j > 0 {
					b.WriteString(", ")
				}
				b.WriteString(Format(e, s))
			}
		}
		b.WriteByte(']')
		return b.String()
	case KindRange:
		out := formatRat(v.Rng.Start, s) + ".." + formatRat(v.Rng.End, s)
		if v.Rng.Step != nil && v.Rng.Step.Cmp(big.NewRat(1, 1)) != 0 {
			out += " step " + formatRat(v.Rng.Step, s)
		}
		return out
	case KindLambda:
		return "(" + strings.Join(v.Fn.Params, ", ") + ") -> " + Render(v.Fn.Body)
	}
	return "none"
}

func formatRat(r *big.Rat, s *Settings) string {
	if r.IsInt() {
		if s.GroupDigits {
			return groupInt(r.Num())
		}
		return r.Num().String()
	}
	if s.ForceDouble {
		f, _ := r.Float64()
		return formatFloat(f, s)
	}
	return r.Num().String() + "/" + r.Denom().String()
}

func formatFloat(f float64, s *Settings) string {
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if dot := strings.IndexByte(out, '.'); dot >= 0 && len(out)-dot-1 > s.DecimalPlaces {
		out = strconv.FormatFloat(f, 'f', s.DecimalPlaces, 64)
		out = strings.TrimRight(out, "0")
		out = strings.TrimSuffix(out, ".")
	}
	return out
}

// groupInt renders an integer with locale thousands separators.
func groupInt(n *big.Int) string {
	if n.IsInt64() {
		return display.Sprintf("%d", n.Int64())
	}
	return n.String()
}
