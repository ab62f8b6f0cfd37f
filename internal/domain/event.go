package domain

// EventKind classifies a balance-affecting log entry.
type EventKind string

const (
	EventKindNativeBalanceChange EventKind = "NATIVE_BALANCE_CHANGE"
	EventKindFungibleTransfer    EventKind = "FT_TRANSFER"
	EventKindFungibleMint        EventKind = "FT_MINT"
	EventKindFungibleBurn        EventKind = "FT_BURN"
	EventKindUnknown             EventKind = "UNKNOWN"
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	return string(k)
}

// ParseFTEventKind maps the event_kind column of fungible token events.
func ParseFTEventKind(s string) EventKind {
	switch s {
	case "TRANSFER":
		return EventKindFungibleTransfer
	case "MINT":
		return EventKindFungibleMint
	case "BURN":
		return EventKindFungibleBurn
	}
	return EventKindUnknown
}

// NativeBalanceChange is one row of the native coin balance log.
// Numeric fields are canonical decimal text as read from the database.
// Each row carries absolute post-event balances.
type NativeBalanceChange struct {
	InvolvedAccountID *string // counterparty (nullable)
	DeltaAvailable    string  // signed change of the liquid part
	DeltaStaked       string  // signed change of the staked part
	AbsoluteAvailable string  // liquid balance after the event
	AbsoluteStaked    string  // staked balance after the event
	Cause             string  // free-form classification, passed through
	BlockTimestamp    string  // nanoseconds
	BlockHeight       string
}

// FTEvent is one fungible token transfer, mint or burn. It carries no
// absolute balance; balances are reconstructed from an anchor.
type FTEvent struct {
	BlockHeight    string
	BlockTimestamp string // nanoseconds
	Amount         string // magnitude in the token's smallest unit
	EventKind      string // TRANSFER, MINT or BURN, passed through
	OldOwnerID     string // sender, empty for mints
	NewOwnerID     string // receiver, empty for burns
}

// Kind classifies the event.
func (e *FTEvent) Kind() EventKind {
	return ParseFTEventKind(e.EventKind)
}
