package extraction

import "strings"

// PaymentMethod is the payment instrument printed on a receipt
type PaymentMethod string

// Payment methods. Cash is the default when no keyword matches.
const (
	Cash            PaymentMethod = "Cash"
	CreditCard      PaymentMethod = "CreditCard"
	ElectronicMoney PaymentMethod = "ElectronicMoney" // IC cards and QR code payments
)

// Label returns the Japanese display name used in exports
func (p PaymentMethod) Label() string {
	switch p {
	case CreditCard:
		return "クレジットカード"
	case ElectronicMoney:
		return "電子マネー"
	default:
		return "現金"
	}
}

// FileSuffix returns the short code used in stored file names
func (p PaymentMethod) FileSuffix() string {
	switch p {
	case CreditCard:
		return "cr"
	case ElectronicMoney:
		return "d"
	default:
		return "ca"
	}
}

// ParsePaymentMethod accepts either the enum value or the Japanese label.
// Anything unrecognized is Cash.
func ParsePaymentMethod(s string) PaymentMethod {
	s = strings.TrimSpace(s)
	for _, p := range []PaymentMethod{CreditCard, ElectronicMoney} {
		if strings.EqualFold(s, string(p)) || s == p.Label() {
			return p
		}
	}
	return Cash
}

// Result holds the fields extracted from one OCR text.
// Optional fields are empty (or 0 for TotalAmount) when not found.
type Result struct {
	RawText            string        `json:"rawText"`
	Date               string        `json:"date,omitempty"` // YYYY-MM-DD
	RegistrationNumber string        `json:"registrationNumber,omitempty"`
	TotalAmount        int           `json:"totalAmount,omitempty"`
	CompanyName        string        `json:"companyName,omitempty"`
	PaymentMethod      PaymentMethod `json:"paymentMethod"`
}

// HasDate reports whether a transaction date was found
func (r Result) HasDate() bool { return r.Date != "" }

// HasRegistrationNumber reports whether a registration number was found
func (r Result) HasRegistrationNumber() bool { return r.RegistrationNumber != "" }

// HasTotalAmount reports whether a total was found
func (r Result) HasTotalAmount() bool { return r.TotalAmount > 0 }

// HasCompanyName reports whether a payee line was found
func (r Result) HasCompanyName() bool { return r.CompanyName != "" }
