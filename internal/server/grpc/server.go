// Package grpcserver exposes the scoutfund.v1.Fundraiser gRPC API handlers.
package grpcserver

import (
	"context"
	"net"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	pb "github.com/and161185/scoutfund/api/fundraiser/v1"
	"github.com/and161185/scoutfund/internal/convert"
	"github.com/and161185/scoutfund/internal/model"
	"github.com/and161185/scoutfund/internal/service"
)

// Services are the application services the handlers delegate to.
type Services struct {
	Profiles  service.ProfileService
	Sharing   service.SharingService
	Transfer  service.TransferService
	Cascade   service.CascadeService
	Catalogs  service.CatalogService
	Campaigns service.CampaignService
	Orders    service.OrderService
	Exports   service.ExportService
}

// Server wires services into gRPC handlers.
type Server struct {
	svc Services
	log *zap.Logger
}

var _ pb.FundraiserServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(svc Services, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{svc: svc, log: log}
}

// actor returns the caller identity placed in context by AuthUnary.
func actor(ctx context.Context) (model.Identity, error) {
	id, ok := IdentityFromCtx(ctx)
	if !ok {
		return model.Identity{}, status.Error(codes.Unauthenticated, "no auth")
	}
	return id, nil
}

// provisioned returns the caller identity after making sure the account exists.
func (s *Server) provisioned(ctx context.Context) (model.Identity, *model.Account, error) {
	id, err := actor(ctx)
	if err != nil {
		return id, nil, err
	}
	acc, err := s.svc.Profiles.EnsureAccount(ctx, id)
	if err != nil {
		return id, nil, s.fail(ctx, err)
	}
	return id, acc, nil
}

// fail maps err to a status; errors that surface as Internal are logged with their cause.
func (s *Server) fail(ctx context.Context, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		id, _ := IdentityFromCtx(ctx)
		s.log.Error("unexpected error", zap.Error(err), zap.String("account_id", id.AccountID.String()))
	}
	return st
}

// clientIP returns the peer host without port.
func clientIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(p.Addr.String())
	if err != nil {
		return p.Addr.String()
	}
	return host
}

func parseID(field, s string) (uuid.UUID, error) {
	id, err := convert.ParseID(field, s)
	if err != nil {
		return uuid.Nil, toStatus(err)
	}
	return id, nil
}

// --- identity and profiles ---

// WhoAmI provisions the caller on first use and returns its account.
func (s *Server) WhoAmI(ctx context.Context, _ *pb.WhoAmIRequest) (*pb.WhoAmIResponse, error) {
	id, acc, err := s.provisioned(ctx)
	if err != nil {
		return nil, err
	}
	return &pb.WhoAmIResponse{
		AccountID:   acc.ID.String(),
		Email:       acc.Email,
		DisplayName: acc.DisplayName,
		Admin:       id.Admin,
	}, nil
}

// CreateProfile adds a profile owned by the caller.
func (s *Server) CreateProfile(ctx context.Context, req *pb.CreateProfileRequest) (*pb.ProfileResponse, error) {
	id, _, err := s.provisioned(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Profiles.CreateProfile(ctx, id.AccountID, req.DisplayName)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.ProfileResponse{Profile: convert.ToProfile(*p)}, nil
}

// GetProfile returns a profile the caller can read.
func (s *Server) GetProfile(ctx context.Context, req *pb.GetProfileRequest) (*pb.ProfileResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	sp, err := s.svc.Profiles.GetProfile(ctx, id.AccountID, pid)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.ProfileResponse{Profile: convert.ToSharedProfile(*sp)}, nil
}

// ListProfiles returns owned and shared profiles.
func (s *Server) ListProfiles(ctx context.Context, _ *pb.ListProfilesRequest) (*pb.ListProfilesResponse, error) {
	id, _, err := s.provisioned(ctx)
	if err != nil {
		return nil, err
	}
	ps, err := s.svc.Profiles.ListProfiles(ctx, id.AccountID)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.ListProfilesResponse{Profiles: convert.ToSharedProfiles(ps)}, nil
}

// RenameProfile changes the display name with optimistic concurrency.
func (s *Server) RenameProfile(ctx context.Context, req *pb.RenameProfileRequest) (*pb.VersionResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	ver, err := s.svc.Profiles.RenameProfile(ctx, id.AccountID, pid, req.BaseVer, req.DisplayName)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.VersionResponse{Ver: ver}, nil
}

// --- sharing and invites ---

// CreateDirectShare grants an existing account access to a profile.
func (s *Server) CreateDirectShare(ctx context.Context, req *pb.CreateDirectShareRequest) (*pb.ShareResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	perms, err := convert.ParsePermissions(req.Permissions)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	sh, err := s.svc.Sharing.CreateDirectShare(ctx, id.AccountID, pid, req.RecipientEmail, perms)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.ShareResponse{Share: convert.ToShare(*sh)}, nil
}

// CreateInviteCode issues a single-use code. The plaintext is returned only here.
func (s *Server) CreateInviteCode(ctx context.Context, req *pb.CreateInviteCodeRequest) (*pb.CreateInviteCodeResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	perms, err := convert.ParsePermissions(req.Permissions)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	iss, err := s.svc.Sharing.CreateInviteCode(ctx, id.AccountID, pid, perms, ttl)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.CreateInviteCodeResponse{Code: iss.Code, Invite: convert.ToInvite(iss.Invite)}, nil
}

// RedeemInvite turns a code into a share for the caller.
func (s *Server) RedeemInvite(ctx context.Context, req *pb.RedeemInviteRequest) (*pb.RedeemInviteResponse, error) {
	id, _, err := s.provisioned(ctx)
	if err != nil {
		return nil, err
	}
	red, err := s.svc.Sharing.RedeemInvite(ctx, id.AccountID, req.Code, clientIP(ctx))
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.RedeemInviteResponse{Share: convert.ToShare(red.Share), Invite: convert.ToInvite(red.Invite)}, nil
}

// ListShares lists shares of a profile.
func (s *Server) ListShares(ctx context.Context, req *pb.ListSharesRequest) (*pb.ListSharesResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	shares, err := s.svc.Sharing.ListShares(ctx, id.AccountID, pid)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.ListSharesResponse{Shares: convert.ToShares(shares)}, nil
}

// RevokeShare removes an account's access.
func (s *Server) RevokeShare(ctx context.Context, req *pb.RevokeShareRequest) (*pb.Empty, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	aid, err := parseID("account_id", req.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Sharing.RevokeShare(ctx, id.AccountID, pid, aid); err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.Empty{}, nil
}

// ListInvites lists invites of a profile.
func (s *Server) ListInvites(ctx context.Context, req *pb.ListInvitesRequest) (*pb.ListInvitesResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	invs, err := s.svc.Sharing.ListInvites(ctx, id.AccountID, pid)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.ListInvitesResponse{Invites: convert.ToInvites(invs)}, nil
}

// RevokeInvite expires a pending invite.
func (s *Server) RevokeInvite(ctx context.Context, req *pb.RevokeInviteRequest) (*pb.Empty, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	iid, err := parseID("invite_id", req.InviteID)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Sharing.RevokeInvite(ctx, id.AccountID, iid); err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.Empty{}, nil
}

// --- ownership and deletion ---

// TransferOwnership hands the profile to another account.
func (s *Server) TransferOwnership(ctx context.Context, req *pb.TransferOwnershipRequest) (*pb.ProfileResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	to, err := parseID("new_owner_id", req.NewOwnerID)
	if err != nil {
		return nil, err
	}
	p, err := s.svc.Transfer.TransferOwnership(ctx, id.AccountID, pid, to)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	out := convert.ToProfile(*p)
	out.Owned, out.Permissions = false, nil
	return &pb.ProfileResponse{Profile: out}, nil
}

// DeleteProfileCascade removes a profile and everything that hangs off it.
func (s *Server) DeleteProfileCascade(ctx context.Context, req *pb.DeleteProfileCascadeRequest) (*pb.DeleteProfileCascadeResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	rep, err := s.svc.Cascade.DeleteProfileCascade(ctx, id.AccountID, pid)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.DeleteProfileCascadeResponse{
		Campaigns:   rep.Campaigns,
		Orders:      rep.Orders,
		Shares:      rep.Shares,
		Invites:     rep.Invites,
		AlreadyGone: rep.AlreadyGone,
		Resumed:     rep.Resumed,
	}, nil
}

// --- catalogs ---

// CreateCatalog adds a user catalog, or an admin one for admin callers.
func (s *Server) CreateCatalog(ctx context.Context, req *pb.CreateCatalogRequest) (*pb.CatalogResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.svc.Catalogs.CreateCatalog(ctx, id, service.CatalogInput{
		Name:      req.Name,
		Admin:     req.Admin,
		Public:    req.Public,
		LineItems: convert.FromLineItems(req.LineItems),
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.CatalogResponse{Catalog: convert.ToCatalog(*c)}, nil
}

// GetCatalog returns a visible catalog.
func (s *Server) GetCatalog(ctx context.Context, req *pb.GetCatalogRequest) (*pb.CatalogResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	cid, err := parseID("catalog_id", req.CatalogID)
	if err != nil {
		return nil, err
	}
	c, err := s.svc.Catalogs.GetCatalog(ctx, id, cid)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.CatalogResponse{Catalog: convert.ToCatalog(*c)}, nil
}

// ListCatalogs returns every catalog visible to the caller.
func (s *Server) ListCatalogs(ctx context.Context, _ *pb.ListCatalogsRequest) (*pb.ListCatalogsResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	cs, err := s.svc.Catalogs.ListCatalogs(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.ListCatalogsResponse{Catalogs: convert.ToCatalogs(cs)}, nil
}

// UpdateCatalogItems replaces line items at a base version.
func (s *Server) UpdateCatalogItems(ctx context.Context, req *pb.UpdateCatalogItemsRequest) (*pb.VersionResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	cid, err := parseID("catalog_id", req.CatalogID)
	if err != nil {
		return nil, err
	}
	ver, err := s.svc.Catalogs.UpdateCatalogItems(ctx, id, cid, req.BaseVer, convert.FromLineItems(req.LineItems))
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.VersionResponse{Ver: ver}, nil
}

// DeleteCatalog soft-deletes a catalog at a base version.
func (s *Server) DeleteCatalog(ctx context.Context, req *pb.DeleteCatalogRequest) (*pb.Empty, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	cid, err := parseID("catalog_id", req.CatalogID)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Catalogs.DeleteCatalog(ctx, id, cid, req.BaseVer); err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.Empty{}, nil
}

// --- campaigns ---

// CreateCampaign starts a campaign for a profile against a catalog.
func (s *Server) CreateCampaign(ctx context.Context, req *pb.CreateCampaignRequest) (*pb.CampaignResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	cid, err := parseID("catalog_id", req.CatalogID)
	if err != nil {
		return nil, err
	}
	from, err := convert.ParseDay("starts_on", req.StartsOn)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	to, err := convert.ParseDay("ends_on", req.EndsOn)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	c, err := s.svc.Campaigns.CreateCampaign(ctx, id, service.CampaignInput{
		ProfileID:  pid,
		CatalogID:  cid,
		Name:       req.Name,
		StartsOn:   from,
		EndsOn:     to,
		OriginCode: req.OriginCode,
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.CampaignResponse{Campaign: convert.ToCampaign(*c)}, nil
}

// ListCampaigns lists campaigns of a profile.
func (s *Server) ListCampaigns(ctx context.Context, req *pb.ListCampaignsRequest) (*pb.ListCampaignsResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	cs, err := s.svc.Campaigns.ListCampaigns(ctx, id.AccountID, pid, req.Limit)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.ListCampaignsResponse{Campaigns: convert.ToCampaigns(cs)}, nil
}

// --- orders ---

// CreateOrder records an order against a campaign.
func (s *Server) CreateOrder(ctx context.Context, req *pb.CreateOrderRequest) (*pb.OrderResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	cid, err := parseID("campaign_id", req.CampaignID)
	if err != nil {
		return nil, err
	}
	lines := make([]service.LineInput, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, service.LineInput{ItemID: l.ItemID, Quantity: l.Quantity})
	}
	o, err := s.svc.Orders.CreateOrder(ctx, id.AccountID, service.OrderInput{
		CampaignID: cid,
		Buyer:      convert.FromBuyer(req.Buyer),
		Lines:      lines,
	})
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.OrderResponse{Order: convert.ToOrder(*o)}, nil
}

// GetOrder returns one order.
func (s *Server) GetOrder(ctx context.Context, req *pb.GetOrderRequest) (*pb.OrderResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	oid, err := parseID("order_id", req.OrderID)
	if err != nil {
		return nil, err
	}
	o, err := s.svc.Orders.GetOrder(ctx, id.AccountID, oid)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.OrderResponse{Order: convert.ToOrder(*o)}, nil
}

// ListOrders lists orders of a campaign.
func (s *Server) ListOrders(ctx context.Context, req *pb.ListOrdersRequest) (*pb.ListOrdersResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	cid, err := parseID("campaign_id", req.CampaignID)
	if err != nil {
		return nil, err
	}
	orders, err := s.svc.Orders.ListOrders(ctx, id.AccountID, cid, req.Limit)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.ListOrdersResponse{Orders: convert.ToOrders(orders)}, nil
}

// DeleteOrder removes one order.
func (s *Server) DeleteOrder(ctx context.Context, req *pb.DeleteOrderRequest) (*pb.Empty, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	oid, err := parseID("order_id", req.OrderID)
	if err != nil {
		return nil, err
	}
	if err := s.svc.Orders.DeleteOrder(ctx, id.AccountID, oid); err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.Empty{}, nil
}

// --- exports ---

// ExportProfile writes a snapshot report and returns where it went.
func (s *Server) ExportProfile(ctx context.Context, req *pb.ExportProfileRequest) (*pb.ExportProfileResponse, error) {
	id, err := actor(ctx)
	if err != nil {
		return nil, err
	}
	pid, err := parseID("profile_id", req.ProfileID)
	if err != nil {
		return nil, err
	}
	loc, err := s.svc.Exports.ExportProfile(ctx, id.AccountID, pid)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	return &pb.ExportProfileResponse{Location: loc}, nil
}
