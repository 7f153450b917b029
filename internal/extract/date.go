package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date formats are tried in strict order: named month (day first), named
// month (month first), numeric dd.mm.yyyy, ISO yyyy-mm-dd, then two-digit
// years. Within a format every occurrence is a candidate.
var (
	reNamedDayFirst   = regexp.MustCompile(`(?i)(\d{1,2})\.?\s+(` + monthAlternation() + `)\pL*\.?\s+(\d{4})`)
	reNamedMonthFirst = regexp.MustCompile(`(?i)(` + monthAlternation() + `)\pL*\.?\s+(\d{1,2})[,.]?\s+(\d{4})`)
	reNumericDate     = regexp.MustCompile(`(\d{2})[.\-/](\d{2})[.\-/](\d{4})`)
	reISODate         = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	reShortYearDate   = regexp.MustCompile(`(\d{2})[.\-/](\d{2})[.\-/](\d{2})\b`)

	reClockTime = regexp.MustCompile(`\d{2}:\d{2}:\d{2}`)
	reISOStamp  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)
)

// purchaseKeywords signal a purchase/order/invoice date in any supported
// language. Checked in this order; earlier entries win.
var purchaseKeywords = []string{
	// German
	"bestelldatum", "kaufdatum", "rechnungsdatum", "lieferdatum",
	"datum:", "bestellt am", "gekauft am",
	// English
	"date of purchase", "order date", "purchase date",
	"invoice date", "sale date", "sold on", "purchased on",
	"transaction date", "receipt date",
	// Latvian
	"pirkuma datums", "datums", "pasūtījuma datums",
	// Polish
	"data zakupu", "data zamówienia", "data sprzedaży",
	// Russian
	"дата покупки", "дата заказа", "дата продажи",
	"дата чека", "дата:",
}

// loyaltyPhrases mark card-validity lines on receipts. A date next to one
// of these is the loyalty card expiry, not the transaction date.
var loyaltyPhrases = []string{
	"valid until", "gültig bis", "derīga līdz", "ważna do", "действительна до",
}

// parseAnyDate returns the first valid calendar date found in s, trying
// every known format in order. Invalid candidates (impossible day, month
// or out-of-range year) are skipped, not errors.
func parseAnyDate(s string) *time.Time {
	for _, m := range reNamedDayFirst.FindAllStringSubmatch(s, -1) {
		day, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		month, ok := monthNumber(m[2])
		if !ok {
			continue
		}
		year, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		if d := makeDate(year, month, day); d != nil {
			return d
		}
	}

	for _, m := range reNamedMonthFirst.FindAllStringSubmatch(s, -1) {
		month, ok := monthNumber(m[1])
		if !ok {
			continue
		}
		day, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		year, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		if d := makeDate(year, month, day); d != nil {
			return d
		}
	}

	for _, m := range reNumericDate.FindAllStringSubmatch(s, -1) {
		if d := numericDate(m[3], m[2], m[1]); d != nil {
			return d
		}
	}

	for _, m := range reISODate.FindAllStringSubmatch(s, -1) {
		if d := numericDate(m[1], m[2], m[3]); d != nil {
			return d
		}
	}

	for _, m := range reShortYearDate.FindAllStringSubmatch(s, -1) {
		day, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		month, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		yy, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		year := 1900 + yy
		if yy < 50 {
			year = 2000 + yy
		}
		if d := makeDate(year, month, day); d != nil {
			return d
		}
	}

	return nil
}

func numericDate(year, month, day string) *time.Time {
	y, err := strconv.Atoi(year)
	if err != nil {
		return nil
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return nil
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return nil
	}
	return makeDate(y, m, d)
}

// makeDate validates the candidate and builds a timestamp at midday UTC.
// Midday keeps the calendar date stable when the value later crosses a
// timezone boundary in storage or the manifest.
func makeDate(year, month, day int) *time.Time {
	if year < 2000 || year > 2100 {
		return nil
	}
	if month < 1 || month > 12 {
		return nil
	}
	if day < 1 || day > 31 {
		return nil
	}
	d := time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
	return &d
}

// extractPurchaseDate finds the purchase date of a warranty document.
// Keyword-anchored matches win; without any keyword the first date found
// anywhere in the text is used. That fallback is intentionally permissive
// and can pick up a product code that happens to look like a date.
func extractPurchaseDate(text string) *time.Time {
	lower := strings.ToLower(text)
	lines := strings.Split(text, "\n")

	for _, kw := range purchaseKeywords {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		// ToLower can change rune byte lengths, so idx is only a valid
		// offset into lower itself.
		end := idx + 100
		if end > len(lower) {
			end = len(lower)
		}
		if d := parseAnyDate(lower[idx:end]); d != nil {
			return d
		}
		// The date may sit on the next line or two after the keyword.
		for i, line := range lines {
			if !strings.Contains(strings.ToLower(line), kw) {
				continue
			}
			for off := 0; off <= 2 && i+off < len(lines); off++ {
				if d := parseAnyDate(lines[i+off]); d != nil {
					return d
				}
			}
			break
		}
	}

	return parseAnyDate(text)
}

// extractReceiptDate finds the transaction date on a point-of-sale slip.
// Priority: a line carrying a full transaction timestamp, then keyword
// anchors (skipping loyalty-card validity lines), then the date on the
// last line containing one. Receipts print the transaction stamp near the
// bottom, after header and loyalty noise, so the last match wins here,
// the opposite of extractPurchaseDate.
func extractReceiptDate(rt RecognizedText) *time.Time {
	for _, line := range rt.Lines {
		if reClockTime.MatchString(line) || reISOStamp.MatchString(line) {
			if d := parseAnyDate(line); d != nil {
				return d
			}
		}
	}

	for _, kw := range purchaseKeywords {
		for i, line := range rt.Lines {
			if isLoyaltyLine(line) || !strings.Contains(strings.ToLower(line), kw) {
				continue
			}
			for off := 0; off <= 2 && i+off < len(rt.Lines); off++ {
				candidate := rt.Lines[i+off]
				if isLoyaltyLine(candidate) {
					continue
				}
				if d := parseAnyDate(candidate); d != nil {
					return d
				}
			}
		}
	}

	var last *time.Time
	for _, line := range rt.Lines {
		if isLoyaltyLine(line) {
			continue
		}
		if d := parseAnyDate(line); d != nil {
			last = d
		}
	}
	return last
}

func isLoyaltyLine(line string) bool {
	lower := strings.ToLower(line)
	for _, p := range loyaltyPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
