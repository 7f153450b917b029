package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	maxWarrantyMonths = 120
	maxWarrantyYears  = 30
)

// durationPattern pairs a quantity-plus-unit expression with its unit.
// Patterns are ordered by specificity and checked first to last.
type durationPattern struct {
	re    *regexp.Regexp
	years bool
}

var durationPatterns = []durationPattern{
	// German: "12 Monate Garantie", "Garantie: 2 Jahre"
	{regexp.MustCompile(`(?i)(\d+)\s*monate?\s+(?:gewähr\pL*|garantie)`), false},
	{regexp.MustCompile(`(?i)(\d+)\s*jahre?\s+(?:gewähr\pL*|garantie)`), true},
	{regexp.MustCompile(`(?i)(?:gewähr\pL*|garantie)\s*:?\s*(\d+)\s*monate?`), false},
	{regexp.MustCompile(`(?i)(?:gewähr\pL*|garantie)\s*:?\s*(\d+)\s*jahre?`), true},
	// English: "24-month limited warranty", "warranty: 2 years"
	{regexp.MustCompile(`(?i)(\d+)\s*-?\s*months?\s+(?:of\s+)?(?:limited\s+)?warrant\pL+`), false},
	{regexp.MustCompile(`(?i)(\d+)\s*-?\s*years?\s+(?:of\s+)?(?:limited\s+)?warrant\pL+`), true},
	{regexp.MustCompile(`(?i)warrant\pL+\s*:?\s*(\d+)\s*months?`), false},
	{regexp.MustCompile(`(?i)warrant\pL+\s*:?\s*(\d+)\s*years?`), true},
	// Latvian: "24 mēnešu garantija"
	{regexp.MustCompile(`(?i)(\d+)\s*m[eē]ne[sš]\pL*\s*garantij\pL*`), false},
	{regexp.MustCompile(`(?i)(\d+)\s*gad\pL*\s*garantij\pL*`), true},
	{regexp.MustCompile(`(?i)garantij\pL*\s*:?\s*(\d+)\s*m[eē]ne[sš]\pL*`), false},
	// Polish: "12 miesięcy gwarancji"
	{regexp.MustCompile(`(?i)(\d+)\s*miesięcy?\s+gwarancj\pL*`), false},
	{regexp.MustCompile(`(?i)(\d+)\s*mies\pL*\s+gwarancj\pL*`), false},
	{regexp.MustCompile(`(?i)(\d+)\s*lat\pL*\s+gwarancj\pL*`), true},
	{regexp.MustCompile(`(?i)gwarancj\pL*\s*:?\s*(\d+)\s*miesięcy?`), false},
	// Russian: "12 месяцев гарантии", "срок гарантии: 12"
	{regexp.MustCompile(`(?i)(\d+)\s*месяц\pL*\s+гаранти\pL*`), false},
	{regexp.MustCompile(`(?i)(\d+)\s*год\pL*\s+гаранти\pL*`), true},
	{regexp.MustCompile(`(?i)гаранти\pL*\s*:?\s*(\d+)\s*месяц\pL*`), false},
	{regexp.MustCompile(`(?i)гаранти\pL*\s*:?\s*(\d+)\s*год\pL*`), true},
	{regexp.MustCompile(`(?i)срок\s+гаранти\pL*\s*:?\s*(\d+)`), false},
}

// warrantyWords are stems used by the windowed fallback when no structured
// pattern matched.
var warrantyWords = []string{
	"warrant", "garantie", "garantij", "gwarancj", "гаранти", "gewähr", "garant",
}

var (
	reBareMonths = regexp.MustCompile(`(?i)(\d+)\s*(?:months?|monate?|mēneš\pL*|miesięcy|месяц\pL*|mēn\pL*)`)
	reBareYears  = regexp.MustCompile(`(?i)(\d+)\s*(?:years?|jahre?|gad\pL*|lat\pL*|год\pL*)`)
)

// endDateKeywords announce an explicitly printed warranty end date.
var endDateKeywords = []string{
	// German
	"garantie bis", "gültig bis", "gewährleistung bis",
	// English
	"warranty until", "warranty expires", "valid until",
	"expires on", "expiry date", "expiration date",
	// Latvian
	"garantija līdz", "derīga līdz",
	// Polish
	"gwarancja do", "ważna do",
	// Russian
	"гарантия до", "действительна до",
}

// extractWarrantyMonths finds the warranty duration in months. A year
// figure is converted to months. Durations over 120 months or 30 years
// are treated as noise. Nil means no duration was found.
func extractWarrantyMonths(text string) *int {
	for _, p := range durationPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if p.years {
			if n < 1 || n > maxWarrantyYears {
				continue
			}
			months := n * 12
			return &months
		}
		if n < 1 || n > maxWarrantyMonths {
			continue
		}
		return &n
	}

	// Fallback: a bare "<number> <unit>" near any warranty keyword. The
	// window is cut from the lowered text; offsets into it are not valid
	// in the original when ToLower changed a rune's byte length.
	lower := strings.ToLower(text)
	for _, word := range warrantyWords {
		idx := strings.Index(lower, word)
		if idx < 0 {
			continue
		}
		start := idx - 40
		if start < 0 {
			start = 0
		}
		end := idx + 80
		if end > len(lower) {
			end = len(lower)
		}
		zone := lower[start:end]
		if m := reBareMonths.FindStringSubmatch(zone); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= maxWarrantyMonths {
				return &n
			}
		}
		if m := reBareYears.FindStringSubmatch(zone); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= maxWarrantyYears {
				months := n * 12
				return &months
			}
		}
	}
	return nil
}

// computeEndDate derives the warranty end date. An end date printed in the
// text wins over anything computed; otherwise the purchase date (or now,
// when none was found) is advanced by the extracted duration.
func computeEndDate(text string, purchaseDate *time.Time, months *int, now time.Time) *time.Time {
	if d := extractExplicitEndDate(text); d != nil {
		return d
	}
	if months != nil {
		base := now
		if purchaseDate != nil {
			base = *purchaseDate
		}
		end := addMonths(base, *months)
		return &end
	}
	return nil
}

func extractExplicitEndDate(text string) *time.Time {
	lower := strings.ToLower(text)
	for _, kw := range endDateKeywords {
		idx := strings.Index(lower, kw)
		if idx < 0 {
			continue
		}
		end := idx + 60
		if end > len(lower) {
			end = len(lower)
		}
		if d := parseAnyDate(lower[idx:end]); d != nil {
			return d
		}
	}
	return nil
}

// addMonths advances t by calendar months, clamping to the last day of
// the target month so Jan 31 + 1 month is Feb 28/29, not Mar 2.
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	m := int(month) - 1 + months
	year += m / 12
	m %= 12
	if m < 0 {
		m += 12
		year--
	}
	target := time.Month(m + 1)
	if last := daysInMonth(year, target); day > last {
		day = last
	}
	return time.Date(year, target, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}
