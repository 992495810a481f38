package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	pb "github.com/and161185/scoutfund/api/fundraiser/v1"
	"github.com/and161185/scoutfund/internal/auth"
	"github.com/and161185/scoutfund/internal/crypto"
	"github.com/and161185/scoutfund/internal/errs"
	"github.com/and161185/scoutfund/internal/model"
	"github.com/and161185/scoutfund/internal/report"
	"github.com/and161185/scoutfund/internal/repository/memory"
	"github.com/and161185/scoutfund/internal/service"
)

const bufSize = 1 << 20

var signKey = []byte("test-secret")

func newServices(t *testing.T) Services {
	t.Helper()
	d := service.Deps{Store: memory.New(), Log: zaptest.NewLogger(t)}
	h, err := crypto.NewCodeHasher([]byte("pepper"))
	require.NoError(t, err)
	return Services{
		Profiles:  service.NewProfileService(d),
		Sharing:   service.NewSharingService(d, service.SharingConfig{}, h, nil, nil),
		Transfer:  service.NewTransferService(d),
		Cascade:   service.NewCascadeService(d, service.CascadeConfig{BackoffBase: time.Millisecond}),
		Catalogs:  service.NewCatalogService(d),
		Campaigns: service.NewCampaignService(d),
		Orders:    service.NewOrderService(d),
		Exports:   service.NewExportService(d, report.NewDirExporter(t.TempDir())),
	}
}

func startBufGRPC(t *testing.T, srv *Server) *grpc.ClientConn {
	t.Helper()
	log := zaptest.NewLogger(t)
	lis := bufconn.Listen(bufSize)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RecoverUnary(log),
		LoggingUnary(log),
		AuthUnary(signKey),
		ValidateUnary(NewValidator()),
	))
	pb.RegisterFundraiserServer(gs, srv)
	healthpb.RegisterHealthServer(gs, health.NewServer())
	go func() { _ = gs.Serve(lis) }()

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close(); gs.Stop(); _ = lis.Close() })
	return cc
}

/************ helpers ************/

type caller struct {
	id  model.Identity
	ctx context.Context
}

func callerFor(t *testing.T, email string, admin bool) caller {
	t.Helper()
	id := model.Identity{AccountID: uuid.Must(uuid.NewV4()), Email: email, Admin: admin}
	tok, _, err := auth.Issue(signKey, id, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
	return caller{id: id, ctx: ctx}
}

func requireReason(t *testing.T, err error, code codes.Code, reason errs.Code) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, status.Code(err), "status: %v", err)
	info, ok := ErrorInfo(err)
	require.True(t, ok, "missing ErrorInfo on %v", err)
	require.Equal(t, string(reason), info.GetReason())
	require.Equal(t, ErrorDomain, info.GetDomain())
}

func TestServer_E2E_InviteOrderTransferCascade(t *testing.T) {
	cl := pb.NewFundraiserClient(startBufGRPC(t, New(newServices(t), zaptest.NewLogger(t))))

	owner := callerFor(t, "owner@example.org", false)
	guest := callerFor(t, "guest@example.org", false)
	admin := callerFor(t, "admin@example.org", true)

	who, err := cl.WhoAmI(owner.ctx, &pb.WhoAmIRequest{})
	require.NoError(t, err)
	require.Equal(t, owner.id.AccountID.String(), who.AccountID)
	require.Equal(t, "owner", who.DisplayName)
	_, err = cl.WhoAmI(guest.ctx, &pb.WhoAmIRequest{})
	require.NoError(t, err)

	prof, err := cl.CreateProfile(owner.ctx, &pb.CreateProfileRequest{DisplayName: "Troop 12"})
	require.NoError(t, err)
	pid := prof.Profile.ID

	cat, err := cl.CreateCatalog(admin.ctx, &pb.CreateCatalogRequest{
		Name:  "K",
		Admin: true,
		LineItems: []pb.LineItem{
			{ID: "L1", Label: "Caramel corn", Price: decimal.RequireFromString("20.00")},
			{ID: "L2", Label: "Kettle corn", Price: decimal.RequireFromString("15.50")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "admin", cat.Catalog.Kind)

	camp, err := cl.CreateCampaign(owner.ctx, &pb.CreateCampaignRequest{
		ProfileID: pid, CatalogID: cat.Catalog.ID, Name: "Fall", StartsOn: "2026-09-01", EndsOn: "2026-10-31",
	})
	require.NoError(t, err)
	require.Equal(t, "2026-09-01", camp.Campaign.StartsOn)

	ord, err := cl.CreateOrder(owner.ctx, &pb.CreateOrderRequest{
		CampaignID: camp.Campaign.ID,
		Buyer:      pb.Buyer{Name: "Pat"},
		Lines:      []pb.OrderLineInput{{ItemID: "L1", Quantity: 2}, {ItemID: "L2", Quantity: 1}},
	})
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("55.50").Equal(ord.Order.Total), "total %s", ord.Order.Total)

	_, err = cl.CreateOrder(owner.ctx, &pb.CreateOrderRequest{
		CampaignID: camp.Campaign.ID,
		Buyer:      pb.Buyer{Name: "Pat"},
		Lines:      []pb.OrderLineInput{{ItemID: "L1", Quantity: 2}, {ItemID: "L3", Quantity: 1}},
	})
	requireReason(t, err, codes.InvalidArgument, errs.CodeInvalidLineItem)

	listed, err := cl.ListOrders(owner.ctx, &pb.ListOrdersRequest{CampaignID: camp.Campaign.ID})
	require.NoError(t, err)
	require.Len(t, listed.Orders, 1)

	inv, err := cl.CreateInviteCode(owner.ctx, &pb.CreateInviteCodeRequest{ProfileID: pid, Permissions: []string{"read"}})
	require.NoError(t, err)
	require.NotEmpty(t, inv.Code)
	require.Equal(t, "pending", inv.Invite.Status)

	red, err := cl.RedeemInvite(guest.ctx, &pb.RedeemInviteRequest{Code: inv.Code})
	require.NoError(t, err)
	require.Equal(t, guest.id.AccountID.String(), red.Share.AccountID)
	require.Equal(t, []string{"read"}, red.Share.Permissions)
	require.Equal(t, "used", red.Invite.Status)

	_, err = cl.RedeemInvite(guest.ctx, &pb.RedeemInviteRequest{Code: inv.Code})
	requireReason(t, err, codes.Aborted, errs.CodeInviteAlreadyUsed)

	// read-only guest cannot write
	_, err = cl.CreateOrder(guest.ctx, &pb.CreateOrderRequest{
		CampaignID: camp.Campaign.ID,
		Buyer:      pb.Buyer{Name: "Sam"},
		Lines:      []pb.OrderLineInput{{ItemID: "L1", Quantity: 1}},
	})
	require.Equal(t, codes.PermissionDenied, status.Code(err))

	shares, err := cl.ListShares(owner.ctx, &pb.ListSharesRequest{ProfileID: pid})
	require.NoError(t, err)
	require.Len(t, shares.Shares, 1)

	moved, err := cl.TransferOwnership(owner.ctx, &pb.TransferOwnershipRequest{ProfileID: pid, NewOwnerID: guest.id.AccountID.String()})
	require.NoError(t, err)
	require.Equal(t, guest.id.AccountID.String(), moved.Profile.OwnerID)

	_, err = cl.TransferOwnership(owner.ctx, &pb.TransferOwnershipRequest{ProfileID: pid, NewOwnerID: owner.id.AccountID.String()})
	requireReason(t, err, codes.PermissionDenied, errs.CodeNotOwner)

	exp, err := cl.ExportProfile(guest.ctx, &pb.ExportProfileRequest{ProfileID: pid})
	require.NoError(t, err)
	require.Contains(t, exp.Location, "file://")

	rep, err := cl.DeleteProfileCascade(guest.ctx, &pb.DeleteProfileCascadeRequest{ProfileID: pid})
	require.NoError(t, err)
	require.Equal(t, 1, rep.Campaigns)
	require.Equal(t, 1, rep.Orders)

	again, err := cl.DeleteProfileCascade(guest.ctx, &pb.DeleteProfileCascadeRequest{ProfileID: pid})
	require.NoError(t, err)
	require.True(t, again.AlreadyGone)
}

func TestServer_Unauthenticated(t *testing.T) {
	cl := pb.NewFundraiserClient(startBufGRPC(t, New(newServices(t), nil)))

	_, err := cl.WhoAmI(context.Background(), &pb.WhoAmIRequest{})
	require.Equal(t, codes.Unauthenticated, status.Code(err))

	other := model.Identity{AccountID: uuid.Must(uuid.NewV4()), Email: "x@example.org"}
	tok, _, err := auth.Issue([]byte("another-key"), other, time.Hour, time.Now())
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer "+tok)
	_, err = cl.ListProfiles(ctx, &pb.ListProfilesRequest{})
	require.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestServer_ValidationDetails(t *testing.T) {
	cl := pb.NewFundraiserClient(startBufGRPC(t, New(newServices(t), nil)))
	c := callerFor(t, "v@example.org", false)

	_, err := cl.CreateDirectShare(c.ctx, &pb.CreateDirectShareRequest{
		ProfileID:      "not-a-uuid",
		RecipientEmail: "nope",
		Permissions:    []string{"owner"},
	})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	st, _ := status.FromError(err)
	var fields []string
	for _, d := range st.Details() {
		if br, ok := d.(*errdetails.BadRequest); ok {
			for _, v := range br.GetFieldViolations() {
				fields = append(fields, v.GetField())
			}
		}
	}
	require.ElementsMatch(t, []string{"profile_id", "recipient_email", "permissions[0]"}, fields)
}

func TestServer_HealthIsPublic(t *testing.T) {
	cc := startBufGRPC(t, New(newServices(t), nil))

	resp, err := healthpb.NewHealthClient(cc).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestServer_NoIdentityInContext(t *testing.T) {
	s := New(newServices(t), nil)
	_, err := s.ListProfiles(context.Background(), &pb.ListProfilesRequest{})
	require.Equal(t, codes.Unauthenticated, status.Code(err))
}
