package extract

import (
	"regexp"
	"strings"
)

const (
	maxProductNameLen = 80
	maxStoreNameLen   = 60
)

// productSkipWords filters lines that describe the document rather than
// the product: store brands, document-structure words, totals, tax
// abbreviations, in every supported language.
var productSkipWords = []string{
	// Store names / marketplaces
	"ebay", "amazon", "maxima", "rimi", "lidl", "mediamarkt", "saturn",
	"wildberries", "ozon", "aliexpress",
	// Document type words
	"rechnung", "packzettel", "invoice", "receipt", "чек", "кассовый",
	"paragon", "faktura",
	// German document fields
	"bestellung", "lieferadresse", "absenderadresse", "artikelnr",
	"stückzahl", "artikelpreis", "gesamtbetrag", "versand",
	"zwischensumme",
	// Latvian
	"summa", "atlaide", "čeks", "kasieris", "veikals",
	// Common noise
	"total", "итого", "сумма", "https://", "http://",
	"pvn", "ндс", "mwst", "vat",
}

var productSkipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+[.,]\d{2}\s*[€$£]?$`),     // bare price
	regexp.MustCompile(`^\d{2}[.\-/]\d{2}[.\-/]\d{4}`), // date
	regexp.MustCompile(`^[+\-#*=_]{3,}`),               // separator ruler
	regexp.MustCompile(`^\d{5,}$`),                     // long numeric code
	regexp.MustCompile(`^https?://`),                   // URL
	regexp.MustCompile(`^[A-Z0-9]{15,}$`),              // hash/order code
}

// reBrandProduct matches "<known manufacturer> <model words>", the most
// reliable product-name shape on marketplace invoices.
var reBrandProduct = regexp.MustCompile(`(?i)(Lenovo|Apple|Samsung|Sony|HP|Dell|Asus|Acer|Xiaomi|Huawei|LG|Panasonic|Philips|Bosch|Siemens)[ \t]+[\w \t\-]+`)

// reLetterRun requires a run of at least four letters in any supported
// alphabet before a line qualifies as a product name.
var reLetterRun = regexp.MustCompile(`[A-Za-zА-Яа-яĀāĒēĪīŪūÄÖÜäöüąćęłń]{4,}`)

// knownStores is the retailer allow-list, checked anywhere in the text
// before any line heuristic runs.
var knownStores = []string{
	"eBay", "Amazon", "MAXIMA", "Maxima", "Rimi", "Lidl", "Aldi",
	"Saturn", "MediaMarkt", "Media Markt", "Wildberries", "Ozon",
	"AliExpress", "Elmo", "Euronics", "Pigu", "RD Electronics",
	"Top-Notebook", "TopNotebook",
}

// storeWords precede or describe a store in a header line.
var storeWords = []string{
	"veikals", "sia ", "ооо ", "оао ", "ип ", "магазин",
	"store", "shop", "market", "ltd", "inc", "gmbh", "s.a.", "sp. z o.o.",
}

var reNoiseOnly = regexp.MustCompile(`^[\d\s\-+*#=_.]+$`)

// extractProductName guesses the product from a warranty document: a
// known-brand match first, then the first line that survives the noise
// filters and contains a real word.
func extractProductName(rt RecognizedText) *string {
	if m := reBrandProduct.FindString(rt.Raw); m != "" {
		name := truncate(strings.TrimSpace(m), maxProductNameLen)
		return &name
	}

	for _, line := range rt.Lines {
		n := len([]rune(line))
		if n < 5 || n > 120 {
			continue
		}
		lower := strings.ToLower(line)
		if containsAny(lower, productSkipWords) {
			continue
		}
		if matchesAny(line, productSkipPatterns) {
			continue
		}
		if reLetterRun.MatchString(line) {
			name := truncate(line, maxProductNameLen)
			return &name
		}
	}
	return nil
}

// extractStoreName guesses the selling store: the retailer allow-list
// first, then a store-keyword line near the top, then the first plausible
// header line.
func extractStoreName(rt RecognizedText) *string {
	lower := strings.ToLower(rt.Raw)
	for _, store := range knownStores {
		if strings.Contains(lower, strings.ToLower(store)) {
			s := store
			return &s
		}
	}

	head := rt.Lines
	if len(head) > 8 {
		head = head[:8]
	}
	for _, line := range head {
		if containsAny(strings.ToLower(line), storeWords) {
			s := truncate(line, maxStoreNameLen)
			return &s
		}
	}

	for _, line := range rt.Lines {
		n := len([]rune(line))
		if n >= 3 && n <= maxStoreNameLen && !reNoiseOnly.MatchString(line) {
			s := line
			return &s
		}
	}
	return nil
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func matchesAny(s string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
