package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveRole(t *testing.T) {
	tests := []struct {
		name         string
		old, new     string
		wantKind     RoleKind
		counterparty string
	}{
		{"sender", "alice.near", "bob.near", SenderRole, "bob.near"},
		{"receiver", "bob.near", "alice.near", ReceiverRole, "bob.near"},
		{"mint", "", "alice.near", ReceiverRole, ""},
		{"burn", "alice.near", "", SenderRole, ""},
		{"self", "alice.near", "alice.near", SelfRole, "alice.near"},
		{"neither", "bob.near", "carol.near", Inconsistent, ""},
		{"empty", "", "", Inconsistent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role := ResolveRole("alice.near", tt.old, tt.new)
			assert.Equal(t, tt.wantKind, role.Kind)
			assert.Equal(t, tt.counterparty, role.Counterparty)
		})
	}
}

func TestResolveRole_EmptySubject(t *testing.T) {
	assert.Equal(t, Inconsistent, ResolveRole("", "", "alice.near").Kind)
	assert.Equal(t, Inconsistent, ResolveRole("", "", "").Kind)
}

func TestRoleKind_String(t *testing.T) {
	assert.Equal(t, "sender", SenderRole.String())
	assert.Equal(t, "receiver", ReceiverRole.String())
	assert.Equal(t, "self", SelfRole.String())
	assert.Equal(t, "inconsistent", Inconsistent.String())
}
