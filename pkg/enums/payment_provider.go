package enums

import "fmt"

// PaymentProvider identifies the PIX gateway that issued an order's billing.
type PaymentProvider string

const (
	PaymentProviderAbacatePay PaymentProvider = "abacatepay"
	PaymentProviderPagSeguro  PaymentProvider = "pagseguro"
)

var validPaymentProviders = []PaymentProvider{
	PaymentProviderAbacatePay,
	PaymentProviderPagSeguro,
}

// String implements fmt.Stringer.
func (p PaymentProvider) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentProvider.
func (p PaymentProvider) IsValid() bool {
	for _, candidate := range validPaymentProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentProvider converts raw input into a PaymentProvider.
func ParsePaymentProvider(value string) (PaymentProvider, error) {
	for _, candidate := range validPaymentProviders {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment provider %q", value)
}
