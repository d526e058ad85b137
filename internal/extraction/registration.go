package extraction

import (
	"regexp"
	"strings"
)

// registrationDigits is the number of digits after the T prefix
const registrationDigits = 13

// RegistrationLabel is the label printed in front of a registration number
const RegistrationLabel = "登録番号"

var (
	strictRegistrationRe  = regexp.MustCompile(`T[-0-9\s]{13,20}`)
	labeledRegistrationRe = regexp.MustCompile(`(?:登録番号|(?i:registration\s*(?:number|no\.?)))[:：\s]*([T\d\s-]+)`)
	fuzzyRegistrationRe   = regexp.MustCompile(`T\s*([0-9SODIlZBG]{13})`)
	separatorRe           = regexp.MustCompile(`[-\s]`)
	nonDigitRe            = regexp.MustCompile(`\D`)
)

// lookalikeDigits maps letters OCR confuses with digits to the digit
var lookalikeDigits = map[rune]rune{
	'S': '5',
	'O': '0',
	'D': '0',
	'I': '1',
	'l': '1',
	'Z': '2',
	'B': '8',
	'G': '6',
}

// normalizeLookalikes replaces look-alike letters using lookalikeDigits
func normalizeLookalikes(s string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := lookalikeDigits[r]; ok {
			return d
		}
		return r
	}, s)
}

var registrationRules = []rule[document]{
	strictRegistration,
	labeledRegistration,
	fuzzyRegistration,
	scanRegistration,
}

// ExtractRegistrationNumber finds a T + 13 digit registration number.
// It returns "" when none is found.
func ExtractRegistrationNumber(text string, lines []string) string {
	v, _ := firstMatch(document{text: text, lines: lines}, registrationRules)
	return v
}

// strictRegistration accepts T followed by 13 digits with stray spaces or
// hyphens in between. The whole run must clean to exactly 13 digits.
func strictRegistration(d document) (string, bool) {
	for _, m := range strictRegistrationRe.FindAllString(d.text, -1) {
		digits := separatorRe.ReplaceAllString(m[1:], "")
		if len(digits) == registrationDigits && isDigits(digits) {
			return "T" + digits, true
		}
	}
	return "", false
}

func labeledRegistration(d document) (string, bool) {
	m := labeledRegistrationRe.FindStringSubmatch(d.text)
	if m == nil {
		return "", false
	}
	raw := separatorRe.ReplaceAllString(m[1], "")
	switch {
	case len(raw) == registrationDigits && isDigits(raw):
		return "T" + raw, true
	case len(raw) == registrationDigits+1 && raw[0] == 'T' && isDigits(raw[1:]):
		return raw, true
	}
	return "", false
}

func fuzzyRegistration(d document) (string, bool) {
	m := fuzzyRegistrationRe.FindStringSubmatch(d.text)
	if m == nil {
		return "", false
	}
	return "T" + normalizeLookalikes(m[1]), true
}

// scanRegistration takes the first line holding exactly 13 digits. Runs
// starting with 0 are phone numbers.
func scanRegistration(d document) (string, bool) {
	for _, line := range d.lines {
		digits := nonDigitRe.ReplaceAllString(line, "")
		if len(digits) == registrationDigits && digits[0] != '0' {
			return "T" + digits, true
		}
	}
	return "", false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
