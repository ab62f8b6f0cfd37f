package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountID_Valid(t *testing.T) {
	valid := []string{
		"near",
		"usn",
		"vasya.near",
		"pushxo.near",
		"app-1_test.sub.near",
		"a1",
		strings.Repeat("f", 64), // implicit account
	}

	for _, s := range valid {
		id, err := ParseAccountID(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, id.String())
	}
}

func TestParseAccountID_Invalid(t *testing.T) {
	invalid := []string{
		"",
		"a",
		strings.Repeat("a", 65),
		"Vasya.near",
		"vasya..near",
		".near",
		"near.",
		"a--b",
		"a_-b",
		"has space",
		"vasya@near",
	}

	for _, s := range invalid {
		_, err := ParseAccountID(s)
		assert.ErrorIs(t, err, ErrAccountAddressInvalid, "input %q", s)
	}
}

func TestParseOptionalAccountID(t *testing.T) {
	id, err := ParseOptionalAccountID("")
	require.NoError(t, err)
	assert.Nil(t, id)

	id, err = ParseOptionalAccountID("bob.near")
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, AccountID("bob.near"), *id)

	_, err = ParseOptionalAccountID("BOB")
	assert.ErrorIs(t, err, ErrAccountAddressInvalid)
}

func TestParseFTEventKind(t *testing.T) {
	assert.Equal(t, EventKindFungibleTransfer, ParseFTEventKind("TRANSFER"))
	assert.Equal(t, EventKindFungibleMint, ParseFTEventKind("MINT"))
	assert.Equal(t, EventKindFungibleBurn, ParseFTEventKind("BURN"))
	assert.Equal(t, EventKindUnknown, ParseFTEventKind("transfer"))
	assert.Equal(t, EventKindFungibleMint, (&FTEvent{EventKind: "MINT"}).Kind())
}
