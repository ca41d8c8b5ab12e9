// Package money normalizes user-typed Brazilian currency text to exact
// decimal values and back.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts localized currency text ("R$ 1.874,97") to a decimal.
// A comma, when present, is the decimal separator and every dot is a
// thousands separator. Without a comma, a single dot is treated as a regular
// decimal point; multiple dots are all treated as thousands separators.
// Empty input and non-numeric residue both parse to zero: entry forms feed
// raw text straight in and expect a lenient default, never an error.
func ParseAmount(text string) decimal.Decimal {
	v := strings.TrimSpace(text)
	v = strings.TrimSpace(strings.TrimPrefix(v, "R$"))
	if v == "" {
		return decimal.Zero
	}

	if strings.Contains(v, ",") {
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	} else if strings.Count(v, ".") > 1 {
		v = strings.ReplaceAll(v, ".", "")
	}

	parsed, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

// FormatAmount renders a value in fixed pt-BR style: dot as thousands
// separator, comma as decimal separator, always two decimal digits. The
// output does not depend on the host locale.
func FormatAmount(value decimal.Decimal) string {
	fixed := value.StringFixed(2)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var groups []string
	for len(intPart) > 3 {
		groups = append([]string{intPart[len(intPart)-3:]}, groups...)
		intPart = intPart[:len(intPart)-3]
	}
	groups = append([]string{intPart}, groups...)

	out := strings.Join(groups, ".") + "," + fracPart
	if negative {
		out = "-" + out
	}
	return out
}
