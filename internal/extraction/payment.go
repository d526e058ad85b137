package extraction

import "strings"

var creditKeywords = []string{
	"クレジット", "カード", "VISA", "Master", "JCB", "Amex", "Diners", "Discover",
}

var electronicMoneyKeywords = []string{
	"電子マネー", "交通系", "Suica", "Pasmo", "ICOCA", "PayPay", "d払い",
	"auPAY", "Rpay", "楽天ペイ", "QUICPay", "iD", "IC",
}

// ClassifyPaymentMethod looks for card or e-money vocabulary. Credit wins
// over e-money; with neither the receipt is Cash.
func ClassifyPaymentMethod(lines []string) PaymentMethod {
	electronic := false
	for _, line := range lines {
		if containsAny(line, creditKeywords) {
			return CreditCard
		}
		if containsAny(line, electronicMoneyKeywords) {
			electronic = true
		}
	}
	if electronic {
		return ElectronicMoney
	}
	return Cash
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
