// Package normalize turns noisy statement text into comparable strings and
// stable merchant fingerprints.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// numericRun matches digit runs that may contain separators (dates, card masks, codes).
	numericRun = regexp.MustCompile(`\d(?:[\d./,\-]*\d)?`)
	// amount matches monetary values such as 29,90 or 12.99.
	amount = regexp.MustCompile(`\b\d{1,3}(?:[.,]\d{3})*[.,]\d{2}\b`)
)

// MinNumericRun is the digit count from which a numeric run is treated as noise.
const MinNumericRun = 5

// boilerplate tokens carry payment-method or statement noise rather than merchant identity.
var boilerplate = map[string]struct{}{
	"pix": {}, "ted": {}, "doc": {}, "tef": {}, "compra": {}, "compras": {},
	"debito": {}, "credito": {}, "cartao": {}, "card": {}, "pos": {},
	"visa": {}, "mastercard": {}, "master": {}, "elo": {}, "amex": {}, "maestro": {},
	"purchase": {}, "debit": {}, "credit": {}, "pag": {}, "pagto": {}, "pgto": {},
	"parc": {}, "parcela": {}, "ref": {}, "aut": {}, "nsu": {}, "trx": {},
	"transf": {}, "transferencia": {}, "enviado": {}, "recebido": {}, "www": {}, "com": {}, "br": {},
}

// stopWords never make useful rule patterns.
var stopWords = map[string]struct{}{
	"de": {}, "da": {}, "do": {}, "das": {}, "dos": {}, "e": {}, "em": {}, "na": {}, "no": {},
	"para": {}, "por": {}, "the": {}, "and": {}, "of": {}, "ltda": {}, "eireli": {},
	"inc": {}, "llc": {}, "corp": {}, "company": {}, "loja": {}, "store": {}, "sao": {}, "paulo": {},
}

// FoldAccents removes diacritics, leaving the base letters.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Normalize lower-cases, removes diacritics, strips punctuation and collapses whitespace.
// It never fails; whitespace-only input yields "".
func Normalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	folded := strings.ToLower(FoldAccents(s))
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)

	return strings.Join(strings.Fields(mapped), " ")
}

// Fingerprint derives a stable merchant key. Descriptions that differ only in
// transaction-specific numbers (dates, card digits, codes, amounts) share a fingerprint.
// Malformed or empty input yields "".
func Fingerprint(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	text := strings.ToLower(FoldAccents(s))
	text = amount.ReplaceAllString(text, " ")
	text = numericRun.ReplaceAllStringFunc(text, func(run string) string {
		if countDigits(run) >= MinNumericRun {
			return " "
		}
		return run
	})

	tokens := strings.Fields(Normalize(text))
	kept := tokens[:0]
	for _, tok := range tokens {
		if isBoilerplate(tok) {
			continue
		}
		kept = append(kept, tok)
	}

	return strings.Join(kept, " ")
}

// SignificantWords returns normalized words of at least minLen runes that can
// identify a merchant.
func SignificantWords(s string, minLen int) []string {
	var words []string
	for _, tok := range strings.Fields(Normalize(s)) {
		if len([]rune(tok)) < minLen || isNumeric(tok) {
			continue
		}
		if isBoilerplate(tok) {
			continue
		}
		if _, skip := stopWords[tok]; skip {
			continue
		}
		words = append(words, tok)
	}
	return words
}

// LongestSignificantWord picks the longest significant word. Equal lengths
// resolve to the leftmost word in the description.
func LongestSignificantWord(s string, minLen int) string {
	best := ""
	for _, w := range SignificantWords(s, minLen) {
		if len([]rune(w)) > len([]rune(best)) {
			best = w
		}
	}
	return best
}

// isBoilerplate reports whether a normalized token is statement noise.
func isBoilerplate(tok string) bool {
	_, ok := boilerplate[tok]
	return ok
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
