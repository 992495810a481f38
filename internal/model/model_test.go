package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestPermission_CoversAndNormalize(t *testing.T) {
	require.True(t, PermWrite.Covers(PermRead), "write implies read")
	require.False(t, PermRead.Covers(PermWrite))
	require.True(t, PermOwner.Covers(PermOwner|PermWrite))
	require.False(t, (PermRead | PermWrite).Covers(PermOwner))
	require.Equal(t, PermRead|PermWrite, (PermOwner | PermWrite).Normalize())
	require.Equal(t, PermRead|PermWrite, PermRead.Union(PermWrite))
}

func TestParsePermissions(t *testing.T) {
	p, err := ParsePermissions([]string{"Write"})
	require.NoError(t, err)
	require.Equal(t, PermRead|PermWrite, p)
	require.Equal(t, []string{"read", "write"}, p.Names())

	_, err = ParsePermissions([]string{"admin"})
	require.Error(t, err)

	p, err = ParsePermissions(nil)
	require.NoError(t, err)
	require.Nil(t, p.Names())
	require.Equal(t, "owner", PermOwner.String())
}

func TestCatalog_ItemLookup(t *testing.T) {
	c := Catalog{LineItems: []LineItem{
		{ID: "L1", Label: "Caramel corn", Price: decimal.RequireFromString("20")},
		{ID: "L2", Label: "Kettle corn", Price: decimal.RequireFromString("15.50")},
	}}
	li, ok := c.Item("L2")
	require.True(t, ok)
	require.Equal(t, "Kettle corn", li.Label)
	_, ok = c.Item("L3")
	require.False(t, ok)
	require.Equal(t, []string{"L1", "L2"}, c.ItemIDs())
}

func TestInvite_ExpiredAt(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	inv := Invite{ExpiresAt: now.Add(time.Hour)}
	require.False(t, inv.ExpiredAt(now))
	require.True(t, inv.ExpiredAt(now.Add(time.Hour)))
}
