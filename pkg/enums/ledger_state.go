package enums

import "fmt"

// LedgerState is the observable state of a session ledger.
type LedgerState string

const (
	LedgerStateEmpty    LedgerState = "empty"
	LedgerStateNonEmpty LedgerState = "non_empty"
)

var validLedgerStates = []LedgerState{
	LedgerStateEmpty,
	LedgerStateNonEmpty,
}

// String implements fmt.Stringer.
func (s LedgerState) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known ledger state.
func (s LedgerState) IsValid() bool {
	for _, candidate := range validLedgerStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLedgerState converts raw input into LedgerState.
func ParseLedgerState(value string) (LedgerState, error) {
	for _, candidate := range validLedgerStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger state %q", value)
}
