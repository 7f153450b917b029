package extract

import (
	"regexp"
	"sort"
	"strings"
)

// monthNames maps month names and common abbreviations to month numbers
// for every language the app supports: English, German, Latvian, Polish
// and Russian. Names shared between languages appear once.
var monthNames = map[string]int{
	// English
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
	"jan": 1, "feb": 2, "mar": 3, "apr": 4,
	"jun": 6, "jul": 7, "aug": 8,
	"sep": 9, "oct": 10, "nov": 11, "dec": 12,
	// German
	"januar": 1, "februar": 2, "märz": 3, "marz": 3,
	"mai": 5, "juni": 6, "juli": 7,
	"oktober": 10, "dezember": 12,
	"mär": 3, "okt": 10, "dez": 12,
	// Latvian
	"janvāris": 1, "februāris": 2, "marts": 3, "aprīlis": 4,
	"maijs": 5, "jūnijs": 6, "jūlijs": 7, "augusts": 8,
	"septembris": 9, "oktobris": 10, "novembris": 11, "decembris": 12,
	"janv": 1, "febr": 2, "jūn": 6, "jūl": 7, "sept": 9,
	// Polish
	"stycznia": 1, "lutego": 2, "marca": 3, "kwietnia": 4,
	"maja": 5, "czerwca": 6, "lipca": 7, "sierpnia": 8,
	"września": 9, "wrzesnia": 9, "października": 10, "pazdziernika": 10,
	"listopada": 11, "grudnia": 12,
	"sty": 1, "lut": 2, "kwi": 4, "cze": 6,
	"lip": 7, "sie": 8, "wrz": 9, "paź": 10, "paz": 10,
	"lis": 11, "gru": 12,
	// Russian
	"января": 1, "февраля": 2, "марта": 3, "апреля": 4,
	"мая": 5, "июня": 6, "июля": 7, "августа": 8,
	"сентября": 9, "октября": 10, "ноября": 11, "декабря": 12,
	"янв": 1, "фев": 2, "мар": 3, "апр": 4,
	"июн": 6, "июл": 7, "авг": 8, "сен": 9,
	"окт": 10, "ноя": 11, "дек": 12,
}

// monthAlternation builds a regexp alternation of all known month names,
// longest first so "september" wins over "sep".
func monthAlternation() string {
	names := make([]string, 0, len(monthNames))
	for name := range monthNames {
		names = append(names, regexp.QuoteMeta(name))
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return strings.Join(names, "|")
}

// monthNumber resolves a matched month token to its number. OCR output
// often carries declension suffixes, so after an exact lookup the 4-rune
// and 3-rune prefixes are tried as well.
func monthNumber(token string) (int, bool) {
	token = strings.ToLower(token)
	if n, ok := monthNames[token]; ok {
		return n, true
	}
	r := []rune(token)
	if len(r) > 4 {
		if n, ok := monthNames[string(r[:4])]; ok {
			return n, true
		}
	}
	if len(r) > 3 {
		if n, ok := monthNames[string(r[:3])]; ok {
			return n, true
		}
	}
	return 0, false
}
