// Package extraction turns noisy OCR text from Japanese receipts into
// accounting fields.
//
// Every extractor is best effort: a field that cannot be found is left at
// its zero value and no error is ever returned. An Extractor holds no
// mutable state and is safe for concurrent use.
package extraction

import "time"

// Clock provides the current time
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

// Extractor runs the extraction pipeline
type Extractor struct {
	clock         Clock
	anchoredRules []rule[string]
	dateRules     []rule[document]
}

// New creates an Extractor using the wall clock
func New() *Extractor {
	return NewWithClock(wallClock{})
}

// NewWithClock creates an Extractor with a custom clock for testing. The
// clock only supplies the year for dates printed without a readable one.
func NewWithClock(clock Clock) *Extractor {
	e := &Extractor{clock: clock}
	e.buildDateRules()
	return e
}

// Extract maps raw OCR text to a Result
func (e *Extractor) Extract(raw string) Result {
	lines := SplitLines(raw)
	regNo := ExtractRegistrationNumber(raw, lines)
	return Result{
		RawText:            raw,
		Date:               e.ExtractDate(raw, lines),
		RegistrationNumber: regNo,
		TotalAmount:        ExtractTotalAmount(lines),
		CompanyName:        ExtractCompanyName(lines, regNo),
		PaymentMethod:      ClassifyPaymentMethod(lines),
	}
}

var defaultExtractor = New()

// Extract maps raw OCR text to a Result using the wall clock
func Extract(raw string) Result {
	return defaultExtractor.Extract(raw)
}
