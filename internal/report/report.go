// Package report writes read-only profile snapshots to durable storage.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/and161185/scoutfund/internal/model"
)

// Exporter stores a snapshot and returns where it can be fetched from.
type Exporter interface {
	Export(ctx context.Context, snap model.ProfileSnapshot) (string, error)
}

type profileDoc struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	DisplayName string    `json:"display_name"`
	Ver         int64     `json:"ver"`
	CreatedAt   time.Time `json:"created_at"`
}

type campaignDoc struct {
	ID         string `json:"id"`
	CatalogID  string `json:"catalog_id"`
	Name       string `json:"name"`
	StartsOn   string `json:"starts_on"`
	EndsOn     string `json:"ends_on"`
	OriginCode string `json:"origin_code,omitempty"`
}

type orderDoc struct {
	ID         string            `json:"id"`
	CampaignID string            `json:"campaign_id"`
	Buyer      model.Buyer       `json:"buyer"`
	Lines      []model.OrderLine `json:"lines"`
	Total      decimal.Decimal   `json:"total"`
	CreatedAt  time.Time         `json:"created_at"`
}

type document struct {
	Profile   profileDoc      `json:"profile"`
	Campaigns []campaignDoc   `json:"campaigns"`
	Orders    []orderDoc      `json:"orders"`
	Total     decimal.Decimal `json:"total"`
	TakenAt   time.Time       `json:"taken_at"`
	Truncated bool            `json:"truncated"`
}

// Encode renders a snapshot as indented JSON.
func Encode(snap model.ProfileSnapshot) ([]byte, error) {
	doc := document{
		Profile: profileDoc{
			ID:          snap.Profile.ID.String(),
			OwnerID:     snap.Profile.OwnerID.String(),
			DisplayName: snap.Profile.DisplayName,
			Ver:         snap.Profile.Ver,
			CreatedAt:   snap.Profile.CreatedAt,
		},
		Campaigns: make([]campaignDoc, 0, len(snap.Campaigns)),
		Orders:    make([]orderDoc, 0, len(snap.Orders)),
		Total:     decimal.Zero,
		TakenAt:   snap.TakenAt,
		Truncated: snap.Truncated,
	}
	for _, c := range snap.Campaigns {
		doc.Campaigns = append(doc.Campaigns, campaignDoc{
			ID:         c.ID.String(),
			CatalogID:  c.CatalogID.String(),
			Name:       c.Name,
			StartsOn:   c.StartsOn.Format(time.DateOnly),
			EndsOn:     c.EndsOn.Format(time.DateOnly),
			OriginCode: c.OriginCode,
		})
	}
	for _, o := range snap.Orders {
		doc.Orders = append(doc.Orders, orderDoc{
			ID:         o.ID.String(),
			CampaignID: o.CampaignID.String(),
			Buyer:      o.Buyer,
			Lines:      o.Lines,
			Total:      o.Total,
			CreatedAt:  o.CreatedAt,
		})
		doc.Total = doc.Total.Add(o.Total)
	}
	return json.MarshalIndent(doc, "", "  ")
}

// objectKey is <prefix>/<profile id>/<timestamp>.json.
func objectKey(prefix string, snap model.ProfileSnapshot) string {
	k := fmt.Sprintf("%s/%s.json", snap.Profile.ID, snap.TakenAt.UTC().Format("20060102T150405Z"))
	if prefix != "" {
		k = prefix + "/" + k
	}
	return k
}
