package postgres

import "github.com/and161185/scoutfund/internal/repository"

// Store aggregates every PostgreSQL repository behind repository.Store.
type Store struct {
	*AccountRepo
	*ProfileRepo
	*CatalogRepo
	*CampaignRepo
	*OrderRepo
	*ShareRepo
	*InviteRepo
}

var _ repository.Store = (*Store)(nil)

// NewStore wires all repositories over one pool.
func NewStore(db *DB) *Store {
	return &Store{
		AccountRepo:  NewAccountRepo(db),
		ProfileRepo:  NewProfileRepo(db),
		CatalogRepo:  NewCatalogRepo(db),
		CampaignRepo: NewCampaignRepo(db),
		OrderRepo:    NewOrderRepo(db),
		ShareRepo:    NewShareRepo(db),
		InviteRepo:   NewInviteRepo(db),
	}
}
