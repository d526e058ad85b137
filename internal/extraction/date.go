package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// reiwaOffset converts a Reiwa era year to a Gregorian year (R1 = 2019)
const reiwaOffset = 2018

const (
	minYear = 1900
	maxYear = 2099
)

var (
	timeRe     = regexp.MustCompile(`(\d{1,2}):(\d{1,2})`)
	digitRunRe = regexp.MustCompile(`\d+`)

	relaxedDateTimeRe = regexp.MustCompile(`((?:19|20)\d{2})\D+(\d{1,2})\D+(\d{1,2})\D+(\d{1,2}):(\d{1,2})`)
	calendarWordAnyRe = regexp.MustCompile(`((?:19|20)\d{2})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日.*(\d{1,2}):(\d{1,2})`)
	garbledYearRe     = regexp.MustCompile(`(\d{1,2})\s*月\s*(\d{1,2})\s*[H日].*(\d{1,2}):(\d{1,2})`)

	calendarWordTimeRe = regexp.MustCompile(`((?:19|20)\d{2})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日\s*[(（].*[)）]\s*(\d{1,2}):(\d{1,2})`)
	slashDateTimeRe    = regexp.MustCompile(`((?:19|20)\d{2})[/.-](\d{1,2})[/.-](\d{1,2})\s+(\d{1,2}):(\d{1,2})`)
	calendarWordDateRe = regexp.MustCompile(`((?:19|20)\d{2})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`)
	slashDateRe        = regexp.MustCompile(`((?:19|20)\d{2})[/.-](\d{1,2})[/.-](\d{1,2})`)
	reiwaDateRe        = regexp.MustCompile(`R(\d{1,2})[./年](\d{1,2})[./月](\d{1,2})`)
)

// ExtractDate finds the transaction date and returns it as YYYY-MM-DD, or
// "" when no date is found.
func (e *Extractor) ExtractDate(text string, lines []string) string {
	v, _ := firstMatch(document{text: text, lines: lines}, e.dateRules)
	return v
}

func (e *Extractor) buildDateRules() {
	e.anchoredRules = []rule[string]{
		yearAnchoredDate,
		e.garbledYearDate,
	}
	e.dateRules = []rule[document]{
		e.timeAnchoredDate,
		unanchoredDate,
		kanjiDate,
	}
}

// timeAnchoredDate only trusts lines that also carry a clock time
func (e *Extractor) timeAnchoredDate(d document) (string, bool) {
	for _, line := range d.lines {
		if !timeRe.MatchString(line) {
			continue
		}
		if v, ok := firstMatch(line, e.anchoredRules); ok {
			return v, true
		}
	}
	return "", false
}

var yearLineRules = []rule[string]{
	func(line string) (string, bool) { return matchYMD(relaxedDateTimeRe, line, 0) },
	func(line string) (string, bool) { return matchYMD(calendarWordAnyRe, line, 0) },
	func(line string) (string, bool) { return matchYMD(slashDateRe, line, 0) },
	garbledSeparatorDate,
}

// yearAnchoredDate applies to lines with at least three numbers, one of
// them a plausible 4-digit year.
func yearAnchoredDate(line string) (string, bool) {
	runs := digitRunRe.FindAllString(line, -1)
	if len(runs) < 3 || yearRunIndex(runs) == -1 {
		return "", false
	}
	return firstMatch(line, yearLineRules)
}

// garbledSeparatorDate reads "2025/10706" as 2025-10-06: in a five digit
// run after the year the middle digit is a misread separator.
func garbledSeparatorDate(line string) (string, bool) {
	runs := digitRunRe.FindAllString(line, -1)
	yi := yearRunIndex(runs)
	if yi == -1 {
		return "", false
	}
	for _, run := range runs[yi+1:] {
		if len(run) != 5 {
			continue
		}
		year, _ := strconv.Atoi(runs[yi])
		month, _ := strconv.Atoi(run[:2])
		day, _ := strconv.Atoi(run[3:])
		return canonicalDate(year, month, day)
	}
	return "", false
}

// garbledYearDate recovers "10月8H 13:44" style lines whose year is
// unreadable. The year is taken from the clock, so the result can be wrong
// across a year boundary.
func (e *Extractor) garbledYearDate(line string) (string, bool) {
	m := garbledYearRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	return canonicalDate(e.clock.Now().Year(), month, day)
}

var unanchoredRules = []rule[string]{
	func(text string) (string, bool) { return matchYMD(calendarWordTimeRe, text, 0) },
	func(text string) (string, bool) { return matchYMD(slashDateTimeRe, text, 0) },
	func(text string) (string, bool) { return matchYMD(calendarWordDateRe, text, 0) },
	func(text string) (string, bool) { return matchYMD(slashDateRe, text, 0) },
	func(text string) (string, bool) { return matchYMD(reiwaDateRe, text, reiwaOffset) },
}

func unanchoredDate(d document) (string, bool) {
	return firstMatch(d.text, unanchoredRules)
}

// kanjiDate takes the first three numbers of a line carrying 年, 月 and 日
func kanjiDate(d document) (string, bool) {
	for _, line := range d.lines {
		if !strings.Contains(line, "年") || !strings.Contains(line, "月") || !strings.Contains(line, "日") {
			continue
		}
		runs := digitRunRe.FindAllString(line, -1)
		if len(runs) < 3 {
			continue
		}
		year, err := strconv.Atoi(runs[0])
		if err != nil || year <= 2000 {
			continue
		}
		month, _ := strconv.Atoi(runs[1])
		day, _ := strconv.Atoi(runs[2])
		if v, ok := canonicalDate(year, month, day); ok {
			return v, true
		}
	}
	return "", false
}

// matchYMD returns the first match of re whose first three groups form a
// valid year, month and day. yearOffset is added to the year group.
func matchYMD(re *regexp.Regexp, s string, yearOffset int) (string, bool) {
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if v, ok := canonicalDate(year+yearOffset, month, day); ok {
			return v, true
		}
	}
	return "", false
}

// yearRunIndex returns the index of the first 4-digit run starting with 19
// or 20, or -1.
func yearRunIndex(runs []string) int {
	for i, run := range runs {
		if len(run) == 4 && (strings.HasPrefix(run, "19") || strings.HasPrefix(run, "20")) {
			return i
		}
	}
	return -1
}

// canonicalDate formats a date as YYYY-MM-DD if it exists on the calendar
func canonicalDate(year, month, day int) (string, bool) {
	if year < minYear || year > maxYear || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}
