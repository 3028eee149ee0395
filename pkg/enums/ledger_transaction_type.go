package enums

import "fmt"

// LedgerTransactionType maps to the ledger_transaction_type enum in Postgres.
type LedgerTransactionType string

const (
	LedgerTransactionTypeFreeze  LedgerTransactionType = "freeze"
	LedgerTransactionTypeRelease LedgerTransactionType = "release"
	LedgerTransactionTypeDebit   LedgerTransactionType = "debit"
	LedgerTransactionTypeCredit  LedgerTransactionType = "credit"
)

var validLedgerTransactionTypes = []LedgerTransactionType{
	LedgerTransactionTypeFreeze,
	LedgerTransactionTypeRelease,
	LedgerTransactionTypeDebit,
	LedgerTransactionTypeCredit,
}

// IsValid reports whether the value matches the canonical ledger transaction enum.
func (t LedgerTransactionType) IsValid() bool {
	for _, candidate := range validLedgerTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerTransactionType converts raw input into LedgerTransactionType.
func ParseLedgerTransactionType(value string) (LedgerTransactionType, error) {
	for _, candidate := range validLedgerTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger transaction type %q", value)
}
