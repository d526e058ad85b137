package scanning

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/receipt-digitizer/internal/extraction"
)

// mockRecognizer is a mock implementation of Recognizer
type mockRecognizer struct {
	text    string
	err     error
	closed  bool
	gotData []byte
	gotType string
}

func (m *mockRecognizer) RecognizeText(ctx context.Context, imageData []byte, contentType string) (string, error) {
	m.gotData = imageData
	m.gotType = contentType
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

func (m *mockRecognizer) Close() error {
	m.closed = true
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

var _ = Describe("OCRScanner", func() {
	var (
		recognizer *mockRecognizer
		scanner    *OCRScanner
		result     *extraction.Result
		err        error
	)

	BeforeEach(func() {
		recognizer = &mockRecognizer{
			text: "ローソン 品川店\n10 月 8H 13:44\n合計 ¥540\nVISA",
		}
		extractor := extraction.NewWithClock(fixedClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
		scanner = NewOCRScannerWithExtractor(recognizer, extractor)
	})

	JustBeforeEach(func() {
		result, err = scanner.ScanReceipt(context.Background(), []byte("image"), "image/png")
	})

	When("recognition succeeds", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should pass the image through", func() {
			Expect(recognizer.gotData).To(Equal([]byte("image")))
			Expect(recognizer.gotType).To(Equal("image/png"))
		})

		It("should extract the fields", func() {
			Expect(result.RawText).To(Equal(recognizer.text))
			Expect(result.CompanyName).To(Equal("ローソン 品川店"))
			Expect(result.Date).To(Equal("2024-10-08"))
			Expect(result.TotalAmount).To(Equal(540))
			Expect(result.PaymentMethod).To(Equal(extraction.CreditCard))
		})
	})

	When("the OCR text holds no receipt fields", func() {
		BeforeEach(func() {
			recognizer.text = ""
		})

		It("should still return a cash result", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.HasDate()).To(BeFalse())
			Expect(result.HasTotalAmount()).To(BeFalse())
			Expect(result.HasCompanyName()).To(BeFalse())
			Expect(result.PaymentMethod).To(Equal(extraction.Cash))
		})
	})

	When("recognition fails", func() {
		BeforeEach(func() {
			recognizer.err = errors.New("engine down")
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("engine down")))
			Expect(result).To(BeNil())
		})
	})

	Describe("Close", func() {
		It("should close the recognizer", func() {
			Expect(scanner.Close()).To(Succeed())
			Expect(recognizer.closed).To(BeTrue())
		})
	})
})
