package scanning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zombor/receipt-digitizer/internal/extraction"
)

// Recognizer is an OCR engine turning a receipt image into raw text
type Recognizer interface {
	// RecognizeText reads all text printed on the image
	RecognizeText(ctx context.Context, imageData []byte, contentType string) (string, error)
	// Close releases the engine
	Close() error
}

// Scanner defines the interface for receipt scanning operations
type Scanner interface {
	// ScanReceipt runs OCR on a receipt image/PDF and extracts its fields
	ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*extraction.Result, error)
	// Close closes the scanner and releases resources
	Close() error
}

// OCRScanner implements Scanner with a Recognizer and the extraction pipeline
type OCRScanner struct {
	recognizer Recognizer
	extractor  *extraction.Extractor
}

// NewOCRScanner creates a scanner that owns the given recognizer
func NewOCRScanner(recognizer Recognizer) *OCRScanner {
	return NewOCRScannerWithExtractor(recognizer, extraction.New())
}

// NewOCRScannerWithExtractor creates a scanner with a custom extractor for testing
func NewOCRScannerWithExtractor(recognizer Recognizer, extractor *extraction.Extractor) *OCRScanner {
	return &OCRScanner{
		recognizer: recognizer,
		extractor:  extractor,
	}
}

// ScanReceipt recognizes the text on a receipt and extracts its fields
func (s *OCRScanner) ScanReceipt(ctx context.Context, imageData []byte, contentType string) (*extraction.Result, error) {
	text, err := s.recognizer.RecognizeText(ctx, imageData, contentType)
	if err != nil {
		return nil, fmt.Errorf("recognizing text: %w", err)
	}

	result := s.extractor.Extract(text)
	lines := len(extraction.SplitLines(text))
	if !result.HasDate() && !result.HasTotalAmount() && !result.HasCompanyName() {
		slog.Warn("No receipt fields found in OCR text", "lines", lines)
	}
	slog.Debug("Extracted receipt fields",
		"lines", lines,
		"date", result.Date,
		"registration_number", result.RegistrationNumber,
		"total_amount", result.TotalAmount,
		"payment_method", result.PaymentMethod,
	)
	return &result, nil
}

// Close closes the underlying recognizer
func (s *OCRScanner) Close() error {
	return s.recognizer.Close()
}
