package history

// RoleKind tells how an event relates to the account whose history is built.
type RoleKind int

const (
	// Inconsistent means the account is on neither side of the event.
	Inconsistent RoleKind = iota
	// SenderRole means the event moved funds out of the account.
	SenderRole
	// ReceiverRole means the event moved funds into the account.
	ReceiverRole
	// SelfRole means the account sent funds to itself.
	SelfRole
)

func (k RoleKind) String() string {
	switch k {
	case SenderRole:
		return "sender"
	case ReceiverRole:
		return "receiver"
	case SelfRole:
		return "self"
	default:
		return "inconsistent"
	}
}

// Role is the resolved side of an event with its counterparty.
// Counterparty is empty for mints and burns.
type Role struct {
	Kind         RoleKind
	Counterparty string
}

// ResolveRole matches subject against the sender and receiver of an event.
// An empty owner never matches.
func ResolveRole(subject, oldOwner, newOwner string) Role {
	if subject == "" {
		return Role{Kind: Inconsistent}
	}
	switch {
	case oldOwner == subject && newOwner == subject:
		return Role{Kind: SelfRole, Counterparty: subject}
	case oldOwner == subject:
		return Role{Kind: SenderRole, Counterparty: newOwner}
	case newOwner == subject:
		return Role{Kind: ReceiverRole, Counterparty: oldOwner}
	default:
		return Role{Kind: Inconsistent}
	}
}
