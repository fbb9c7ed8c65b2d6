package ratel

import (
	"math/big"
	"strings"
	"testing"
)

func TestUnitConversions(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"2 kilometers in meters", "2000 meter"},
		{"1000 m in km", "1 kilometer"},
		{"1 feet in meters", "0.3048 meter"},
		{"1 m in feet", "3.28084 foot"},
		{"3 hours in minutes", "180 minute"},
		{"2 pounds in ounces", "32 ounce"},
		{"1 gallons in liters", "3.785412 liter"},
		{"1 KiB in bytes", "1024 byte"},
		{"90 degrees in radians", "1.570796 radian"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestUnitConversionsAffine(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"0 celsius in fahrenheit", "32 fahrenheit"},
		{"100 celsius in fahrenheit", "212 fahrenheit"},
		{"0 celsius in kelvin", "273.15 kelvin"},
		{"273.15 kelvin in celsius", "0 celsius"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			if got := evalFormat(t, c.src); got != c.want {
				t.Errorf("%s = %s, want %s", c.src, got, c.want)
			}
		})
	}
}

func TestUnitConversionDimensionMismatch(t *testing.T) {
	for _, src := range []string{
		"1 meters in seconds",
		"1 kg in meters",
		"3 liters in degrees",
	} {
		t.Run(src, func(t *testing.T) {
			_, err := EvalString(src, NewContext())
			if err == nil {
				t.Fatalf("EvalString(%q) succeeded, want conversion error", src)
			}
			if !strings.Contains(err.Error(), "cannot convert") {
				t.Errorf("error = %q, want mention of cannot convert", err)
			}
		})
	}
}

func TestUnitAliases(t *testing.T) {
	units := DefaultUnits()
	for display, aliases := range map[string][]string{
		"meter":  {"meters", "metre", "metres", "m"},
		"foot":   {"feet", "ft"},
		"second": {"seconds", "s", "sec"},
		"degree": {"degrees", "deg"},
	} {
		canon, ok := units.Get(display)
		if !ok {
			t.Fatalf("unit %q not defined", display)
		}
		if canon.Name != display {
			t.Errorf("unit %q has display name %q", display, canon.Name)
		}
		for _, alias := range aliases {
			u, ok := units.Get(alias)
			if !ok {
				t.Errorf("alias %q not defined", alias)
				continue
			}
			if u != canon {
				t.Errorf("alias %q resolves to %q, not %q", alias, u.Name, display)
			}
		}
	}
	if units.IsDefined("furlong") {
		t.Error("furlong should not be a default unit")
	}
}

func TestQuantityConvertExact(t *testing.T) {
	units := DefaultUnits()
	foot, _ := units.Get("foot")
	mile, _ := units.Get("mile")
	q := &Quantity{Mag: big.NewRat(5280, 1), Unit: foot}
	conv, err := q.Convert(mile)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if conv.Mag.Cmp(big.NewRat(1, 1)) != 0 {
		t.Errorf("5280 feet = %s miles, want 1", conv.Mag.RatString())
	}

	second, _ := units.Get("second")
	if _, err := q.Convert(second); err == nil {
		t.Error("length to time conversion succeeded")
	}
}
