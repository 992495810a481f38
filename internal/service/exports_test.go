package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/scoutfund/internal/model"
)

func TestSnapshot_FlagsTruncation(t *testing.T) {
	e := newEnv(t)
	a := e.account("a@example.org")
	p := e.profile(a.ID, "P")
	k := e.catalogK()
	orders := NewOrderService(e.d)
	c := e.campaign(a.ID, p.ID, k.ID)
	for i := 0; i < 3; i++ {
		_, err := orders.CreateOrder(e.ctx, a.ID, OrderInput{
			CampaignID: c.ID,
			Buyer:      model.Buyer{Name: "Neighbour"},
			Lines:      []LineInput{{ItemID: "L1", Quantity: 1}},
		})
		require.NoError(t, err)
	}
	s := NewExportService(e.d, nil)

	s.limit = 3
	snap, err := s.Snapshot(e.ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.False(t, snap.Truncated, "a listing exactly at the cap is complete")
	require.Len(t, snap.Orders, 3)

	s.limit = 2
	snap, err = s.Snapshot(e.ctx, a.ID, p.ID)
	require.NoError(t, err)
	require.True(t, snap.Truncated)
	require.Len(t, snap.Orders, 2)
	require.Len(t, snap.Campaigns, 1)
}
