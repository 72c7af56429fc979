// Package format renders decimal amounts for terminal display.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	zeroEpsilon = decimal.RequireFromString("0.000000001")
	tinyEpsilon = decimal.RequireFromString("0.00001")
)

// Number renders a value with four decimal places and thousands grouping.
// Values indistinguishable from zero render as "0.0" and dust amounts
// below display precision as "~0".
func Number(value decimal.Decimal) string {
	return render(value, 4)
}

// Short is Number at two decimal places, for compact columns.
func Short(value decimal.Decimal) string {
	return render(value, 2)
}

func render(value decimal.Decimal, places int32) string {
	abs := value.Abs()
	if abs.LessThan(zeroEpsilon) {
		return "0.0"
	}
	if abs.LessThan(tinyEpsilon) {
		return "~0"
	}

	fixed := value.StringFixed(places)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	return sign + group(whole) + "." + frac
}

// group inserts a comma every three digits from the right.
func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
