package extraction

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const minCompanyNameLen = 3

var phoneRe = regexp.MustCompile(`\d{2,4}-\d{2,4}-\d{4}`)

// ExtractCompanyName returns the first line that is not a date, a
// registration number, a phone number or too short to be a name.
func ExtractCompanyName(lines []string, registrationNumber string) string {
	for _, line := range lines {
		if isDateLine(line) {
			continue
		}
		if strings.Contains(line, RegistrationLabel) || (registrationNumber != "" && strings.Contains(line, registrationNumber)) {
			continue
		}
		if phoneRe.MatchString(line) {
			continue
		}
		if utf8.RuneCountInString(line) < minCompanyNameLen {
			continue
		}
		return line
	}
	return ""
}

func isDateLine(line string) bool {
	return calendarWordDateRe.MatchString(line) || slashDateRe.MatchString(line) || reiwaDateRe.MatchString(line)
}
