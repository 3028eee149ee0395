package enums

import "fmt"

// AuctionState tracks the lifecycle of an auction.
type AuctionState string

const (
	AuctionStateOpen    AuctionState = "open"
	AuctionStateClosed  AuctionState = "closed"
	AuctionStateSettled AuctionState = "settled"
)

var validAuctionStates = []AuctionState{
	AuctionStateOpen,
	AuctionStateClosed,
	AuctionStateSettled,
}

// String implements fmt.Stringer.
func (s AuctionState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AuctionState.
func (s AuctionState) IsValid() bool {
	for _, candidate := range validAuctionStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the state admits no further transitions.
func (s AuctionState) IsTerminal() bool {
	return s == AuctionStateSettled
}

// ParseAuctionState converts raw input into an AuctionState.
func ParseAuctionState(value string) (AuctionState, error) {
	for _, candidate := range validAuctionStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid auction state %q", value)
}
