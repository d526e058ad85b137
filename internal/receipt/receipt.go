package receipt

import (
	"errors"
	"fmt"
	"time"

	"github.com/zombor/receipt-digitizer/internal/extraction"
	"github.com/zombor/receipt-digitizer/internal/registry"
)

// ErrInvalidFields is returned when user-supplied fields fail validation
var ErrInvalidFields = errors.New("invalid receipt fields")

// Receipt represents a confirmed receipt with its stored image
type Receipt struct {
	ID                 string                   `json:"id"`
	Date               string                   `json:"date,omitempty"` // YYYY-MM-DD
	RegistrationNumber string                   `json:"registration_number,omitempty"`
	CompanyName        string                   `json:"company_name,omitempty"`
	TotalAmount        int                      `json:"total_amount"` // Amount in yen, 0 when unknown
	PaymentMethod      extraction.PaymentMethod `json:"payment_method"`
	Category           string                   `json:"category,omitempty"`
	Memo               string                   `json:"memo,omitempty"`
	Filename           string                   `json:"filename"`
	ContentType        string                   `json:"content_type"`
	ImageHash          string                   `json:"image_hash"`
	RawText            string                   `json:"raw_text,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

// Fields are the user-editable parts of a receipt
type Fields struct {
	Date               string                   `json:"date"`
	RegistrationNumber string                   `json:"registration_number"`
	CompanyName        string                   `json:"company_name"`
	TotalAmount        int                      `json:"total_amount"`
	PaymentMethod      extraction.PaymentMethod `json:"payment_method"`
	Category           string                   `json:"category"`
	Memo               string                   `json:"memo"`
}

// Draft is the prefill for a receipt that has been scanned but not saved
type Draft struct {
	Fields
	RawText      string          `json:"raw_text"`
	IssuerSource registry.Source `json:"issuer_source,omitempty"`
}

// FieldsFromResult converts an extraction result to editable fields
func FieldsFromResult(r extraction.Result) Fields {
	return Fields{
		Date:               r.Date,
		RegistrationNumber: r.RegistrationNumber,
		CompanyName:        r.CompanyName,
		TotalAmount:        r.TotalAmount,
		PaymentMethod:      r.PaymentMethod,
	}
}

// Override returns f with every non-empty field of o applied on top
func (f Fields) Override(o Fields) Fields {
	if o.Date != "" {
		f.Date = o.Date
	}
	if o.RegistrationNumber != "" {
		f.RegistrationNumber = o.RegistrationNumber
	}
	if o.CompanyName != "" {
		f.CompanyName = o.CompanyName
	}
	if o.TotalAmount != 0 {
		f.TotalAmount = o.TotalAmount
	}
	if o.PaymentMethod != "" {
		f.PaymentMethod = o.PaymentMethod
	}
	if o.Category != "" {
		f.Category = o.Category
	}
	if o.Memo != "" {
		f.Memo = o.Memo
	}
	return f
}

// Validate checks the field formats and defaults the payment method
func (f *Fields) Validate() error {
	if f.Date != "" {
		if _, err := time.Parse(time.DateOnly, f.Date); err != nil {
			return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidFields, f.Date)
		}
	}
	if f.RegistrationNumber != "" && !registry.ValidNumber(f.RegistrationNumber) {
		return fmt.Errorf("%w: registration number %q", ErrInvalidFields, f.RegistrationNumber)
	}
	if f.TotalAmount < 0 {
		return fmt.Errorf("%w: negative total amount", ErrInvalidFields)
	}
	f.PaymentMethod = extraction.ParsePaymentMethod(string(f.PaymentMethod))
	return nil
}

func (r *Receipt) apply(f Fields) {
	r.Date = f.Date
	r.RegistrationNumber = f.RegistrationNumber
	r.CompanyName = f.CompanyName
	r.TotalAmount = f.TotalAmount
	r.PaymentMethod = f.PaymentMethod
	r.Category = f.Category
	r.Memo = f.Memo
}

// Fields returns the editable fields of the receipt
func (r *Receipt) Fields() Fields {
	return Fields{
		Date:               r.Date,
		RegistrationNumber: r.RegistrationNumber,
		CompanyName:        r.CompanyName,
		TotalAmount:        r.TotalAmount,
		PaymentMethod:      r.PaymentMethod,
		Category:           r.Category,
		Memo:               r.Memo,
	}
}

// dedupeKey identifies receipts with the same content
func (r *Receipt) dedupeKey() string {
	return fmt.Sprintf("%s|%d|%s|%s", r.Date, r.TotalAmount, r.RegistrationNumber, r.CompanyName)
}
