package enums

import "fmt"

// WalletEntryType maps to the wallet_entry_type enum in Postgres.
type WalletEntryType string

const (
	WalletEntryTypeOrderCredit     WalletEntryType = "order_credit"
	WalletEntryTypeWithdrawalDebit WalletEntryType = "withdrawal_debit"
	WalletEntryTypeAdjustment      WalletEntryType = "adjustment"
)

var validWalletEntryTypes = []WalletEntryType{
	WalletEntryTypeOrderCredit,
	WalletEntryTypeWithdrawalDebit,
	WalletEntryTypeAdjustment,
}

// String implements fmt.Stringer.
func (t WalletEntryType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical wallet entry enum.
func (t WalletEntryType) IsValid() bool {
	for _, candidate := range validWalletEntryTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletEntryType converts raw input into WalletEntryType.
func ParseWalletEntryType(value string) (WalletEntryType, error) {
	for _, candidate := range validWalletEntryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet entry type %q", value)
}
