package extract

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minTotalAmount = 0.01
	maxTotalAmount = 99999.0
)

// totalKeywords mark the grand-total line of a receipt, ordered from the
// most specific phrasing to the most generic. The first keyword that hits
// a usable line wins.
var totalKeywords = []string{
	// Latvian
	"summa apmaksai", "kopā apmaksai",
	// Russian
	"итого к оплате",
	// English
	"amount due", "total due", "grand total",
	// German
	"zahlbetrag", "gesamtbetrag", "endbetrag",
	// Polish
	"do zapłaty",
	"к оплате", "zu zahlen",
	"razem", "kopā", "summa", "summe", "итого", "сумма", "suma",
	"total",
}

// taxDiscountWords disqualify a line: a number next to one of these is a
// VAT rate or a discount, not the total.
var taxDiscountWords = []string{
	"pvn", "vat", "mwst", "ндс", "tax",
	"atlaide", "rabatt", "rabat", "discount", "скидка",
}

var reNumericToken = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// parseAmount parses a monetary string whose separators may follow any of
// the supported locales. When both '.' and ',' appear, the rightmost one
// is the decimal point and the other a thousands separator; a lone ','
// is a decimal point. The heuristic is ambiguous for inputs like "1,234"
// by nature; that trade-off is accepted.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// extractTotalAmount finds the receipt total. Within a keyword line the
// largest numeric value wins, so a grand total beats a co-occurring
// line-item subtotal. Lines carrying a percent sign or a tax/discount
// word are rejected outright.
func extractTotalAmount(rt RecognizedText) *float64 {
	for _, kw := range totalKeywords {
		for _, line := range rt.Lines {
			if !strings.Contains(strings.ToLower(line), kw) {
				continue
			}
			if isTaxOrDiscountLine(line) {
				continue
			}
			if v, ok := largestAmountIn(line); ok {
				return &v
			}
		}
	}
	return nil
}

func isTaxOrDiscountLine(line string) bool {
	if strings.Contains(line, "%") {
		return true
	}
	lower := strings.ToLower(line)
	for _, w := range taxDiscountWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func largestAmountIn(line string) (float64, bool) {
	var best float64
	found := false
	for _, tok := range reNumericToken.FindAllString(line, -1) {
		v, ok := parseAmount(tok)
		if !ok || v <= minTotalAmount || v > maxTotalAmount {
			continue
		}
		if !found || v > best {
			best = v
			found = true
		}
	}
	return best, found
}

// currencyMarker maps a symbol or code occurrence to an ISO-4217 code.
type currencyMarker struct {
	symbols []string
	code    *regexp.Regexp
	iso     string
}

// Checked in fixed priority order; the first marker present in the text
// wins.
var currencyMarkers = []currencyMarker{
	{[]string{"€"}, regexp.MustCompile(`(?i)\bEUR\b`), "EUR"},
	{[]string{"$"}, regexp.MustCompile(`(?i)\bUSD\b`), "USD"},
	{[]string{"£"}, regexp.MustCompile(`(?i)\bGBP\b`), "GBP"},
	{[]string{"₽", "руб", "Руб", "РУБ"}, regexp.MustCompile(`(?i)\bRUB\b`), "RUB"},
	{[]string{"zł", "Zł", "ZŁ"}, regexp.MustCompile(`(?i)\bPLN\b`), "PLN"},
}

// extractCurrency detects the receipt currency by symbol or code. Empty
// string means unknown.
func extractCurrency(text string) string {
	for _, m := range currencyMarkers {
		for _, sym := range m.symbols {
			if strings.Contains(text, sym) {
				return m.iso
			}
		}
		if m.code.MatchString(text) {
			return m.iso
		}
	}
	return ""
}
