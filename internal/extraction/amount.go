package extraction

import (
	"regexp"
	"strconv"
	"strings"
)

// totalKeywords label a total or subtotal. The kanji variants are common
// OCR misreadings of 合計.
var totalKeywords = []string{
	"合計", "小計", "Total", "Amount",
	"全言十", "合十", "全計", "言十",
	"支払", "領収",
}

var (
	keywordRes = compileKeywords(totalKeywords)

	leadingNumberRe = regexp.MustCompile(`\d[\d\s,.]*`)
	// y is how OCR often reads a yen sign
	currencyPrefixRe = regexp.MustCompile(`[¥￥\\y]\s*(\d[\d\s,.]*)`)
	currencySuffixRe = regexp.MustCompile(`(\d[\d\s,.]*)円`)
	groupingNoiseRe  = regexp.MustCompile(`[,.\s]`)
)

// compileKeywords builds one pattern per keyword, tolerating spaces between
// its characters.
func compileKeywords(keywords []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		chars := make([]string, 0, len(kw))
		for _, r := range kw {
			chars = append(chars, regexp.QuoteMeta(string(r)))
		}
		res = append(res, regexp.MustCompile(strings.Join(chars, `\s*`)))
	}
	return res
}

// amountPools holds the two candidate pools of ExtractTotalAmount
type amountPools struct {
	keyword []int
	symbol  []int
}

// ExtractTotalAmount picks the receipt total: the largest keyword-labeled
// amount, else the largest currency-marked amount, else 0.
func ExtractTotalAmount(lines []string) int {
	pools := collectAmounts(lines)
	if len(pools.keyword) > 0 {
		return maxOf(pools.keyword)
	}
	return maxOf(pools.symbol)
}

func collectAmounts(lines []string) amountPools {
	var pools amountPools
	for _, line := range lines {
		keywordValues, isKeywordLine := keywordAmounts(line)
		// a line never feeds both pools; 円 amounts on a keyword line are
		// ignored
		if isKeywordLine {
			pools.keyword = append(pools.keyword, keywordValues...)
			pools.keyword = append(pools.keyword, currencyAmounts(line, currencyPrefixRe)...)
			continue
		}
		pools.symbol = append(pools.symbol, currencyAmounts(line, currencyPrefixRe, currencySuffixRe)...)
	}
	return pools
}

// keywordAmounts returns the first number after each keyword found in the
// line, and whether any keyword was found.
func keywordAmounts(line string) ([]int, bool) {
	var values []int
	found := false
	for _, re := range keywordRes {
		loc := re.FindStringIndex(line)
		if loc == nil {
			continue
		}
		found = true
		if v, ok := parseAmount(leadingNumberRe.FindString(line[loc[1]:])); ok {
			values = append(values, v)
		}
	}
	return values, found
}

// currencyAmounts returns the numbers captured by the given currency patterns
func currencyAmounts(line string, patterns ...*regexp.Regexp) []int {
	var values []int
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(line, -1) {
			if v, ok := parseAmount(m[1]); ok {
				values = append(values, v)
			}
		}
	}
	return values
}

// parseAmount reads a digit run, dropping commas, dots and spaces which OCR
// scatters through grouped numbers. Only positive values are accepted.
func parseAmount(raw string) (int, bool) {
	raw = groupingNoiseRe.ReplaceAllString(raw, "")
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func maxOf(values []int) int {
	best := 0
	for _, v := range values {
		if v > best {
			best = v
		}
	}
	return best
}
