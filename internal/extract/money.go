package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/staywatch/staywatch/internal/types"
)

// moneyPattern matches a currency symbol (optionally prefixed, as in
// "NZ$"), an amount with thousands separators, and an optional trailing
// ISO code, e.g. "$165", "NZ$1,234.50", "$495 NZD".
var moneyPattern = regexp.MustCompile(`([A-Z]{0,2}\$|€|£|¥)\s*([\d,]+(?:\.\d+)?)(?:\s*([A-Z]{3}))?`)

// ParseMoney extracts the first monetary value from free text. Absence
// of a recognizable amount yields nil, never a zero value: a missing
// price and a zero price are different facts.
func ParseMoney(raw string) *types.Money {
	raw = strings.TrimSpace(raw)
	m := moneyPattern.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
	if err != nil {
		return nil
	}

	currency := m[1]
	if m[3] != "" {
		currency = m[3]
	}
	return &types.Money{Amount: amount, Currency: currency, Raw: raw}
}
