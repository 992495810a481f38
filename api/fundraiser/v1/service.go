package fundraiserv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "scoutfund.v1.Fundraiser"

// FullMethod returns "/scoutfund.v1.Fundraiser/<method>".
func FullMethod(method string) string { return "/" + ServiceName + "/" + method }

// FundraiserServer is the server API of the Fundraiser service.
type FundraiserServer interface {
	WhoAmI(context.Context, *WhoAmIRequest) (*WhoAmIResponse, error)
	CreateProfile(context.Context, *CreateProfileRequest) (*ProfileResponse, error)
	GetProfile(context.Context, *GetProfileRequest) (*ProfileResponse, error)
	ListProfiles(context.Context, *ListProfilesRequest) (*ListProfilesResponse, error)
	RenameProfile(context.Context, *RenameProfileRequest) (*VersionResponse, error)

	CreateDirectShare(context.Context, *CreateDirectShareRequest) (*ShareResponse, error)
	CreateInviteCode(context.Context, *CreateInviteCodeRequest) (*CreateInviteCodeResponse, error)
	RedeemInvite(context.Context, *RedeemInviteRequest) (*RedeemInviteResponse, error)
	ListShares(context.Context, *ListSharesRequest) (*ListSharesResponse, error)
	RevokeShare(context.Context, *RevokeShareRequest) (*Empty, error)
	ListInvites(context.Context, *ListInvitesRequest) (*ListInvitesResponse, error)
	RevokeInvite(context.Context, *RevokeInviteRequest) (*Empty, error)

	TransferOwnership(context.Context, *TransferOwnershipRequest) (*ProfileResponse, error)
	DeleteProfileCascade(context.Context, *DeleteProfileCascadeRequest) (*DeleteProfileCascadeResponse, error)

	CreateCatalog(context.Context, *CreateCatalogRequest) (*CatalogResponse, error)
	GetCatalog(context.Context, *GetCatalogRequest) (*CatalogResponse, error)
	ListCatalogs(context.Context, *ListCatalogsRequest) (*ListCatalogsResponse, error)
	UpdateCatalogItems(context.Context, *UpdateCatalogItemsRequest) (*VersionResponse, error)
	DeleteCatalog(context.Context, *DeleteCatalogRequest) (*Empty, error)

	CreateCampaign(context.Context, *CreateCampaignRequest) (*CampaignResponse, error)
	ListCampaigns(context.Context, *ListCampaignsRequest) (*ListCampaignsResponse, error)

	CreateOrder(context.Context, *CreateOrderRequest) (*OrderResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	DeleteOrder(context.Context, *DeleteOrderRequest) (*Empty, error)

	ExportProfile(context.Context, *ExportProfileRequest) (*ExportProfileResponse, error)
}

// unary builds the method descriptor for one handler, running it through the
// server's interceptor chain like generated code does.
func unary[Req, Resp any](name string, call func(FundraiserServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, status.Errorf(codes.InvalidArgument, "decode %s: %v", name, err)
			}
			if interceptor == nil {
				return call(srv.(FundraiserServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(FundraiserServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// ServiceDesc describes the Fundraiser service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FundraiserServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("WhoAmI", FundraiserServer.WhoAmI),
		unary("CreateProfile", FundraiserServer.CreateProfile),
		unary("GetProfile", FundraiserServer.GetProfile),
		unary("ListProfiles", FundraiserServer.ListProfiles),
		unary("RenameProfile", FundraiserServer.RenameProfile),
		unary("CreateDirectShare", FundraiserServer.CreateDirectShare),
		unary("CreateInviteCode", FundraiserServer.CreateInviteCode),
		unary("RedeemInvite", FundraiserServer.RedeemInvite),
		unary("ListShares", FundraiserServer.ListShares),
		unary("RevokeShare", FundraiserServer.RevokeShare),
		unary("ListInvites", FundraiserServer.ListInvites),
		unary("RevokeInvite", FundraiserServer.RevokeInvite),
		unary("TransferOwnership", FundraiserServer.TransferOwnership),
		unary("DeleteProfileCascade", FundraiserServer.DeleteProfileCascade),
		unary("CreateCatalog", FundraiserServer.CreateCatalog),
		unary("GetCatalog", FundraiserServer.GetCatalog),
		unary("ListCatalogs", FundraiserServer.ListCatalogs),
		unary("UpdateCatalogItems", FundraiserServer.UpdateCatalogItems),
		unary("DeleteCatalog", FundraiserServer.DeleteCatalog),
		unary("CreateCampaign", FundraiserServer.CreateCampaign),
		unary("ListCampaigns", FundraiserServer.ListCampaigns),
		unary("CreateOrder", FundraiserServer.CreateOrder),
		unary("GetOrder", FundraiserServer.GetOrder),
		unary("ListOrders", FundraiserServer.ListOrders),
		unary("DeleteOrder", FundraiserServer.DeleteOrder),
		unary("ExportProfile", FundraiserServer.ExportProfile),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "scoutfund/v1/fundraiser",
}

// RegisterFundraiserServer registers srv on s.
func RegisterFundraiserServer(s grpc.ServiceRegistrar, srv FundraiserServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// FundraiserClient calls the Fundraiser service over a client connection,
// always selecting the JSON codec.
type FundraiserClient struct {
	cc grpc.ClientConnInterface
}

// NewFundraiserClient wraps cc.
func NewFundraiserClient(cc grpc.ClientConnInterface) *FundraiserClient {
	return &FundraiserClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *FundraiserClient) WhoAmI(ctx context.Context, in *WhoAmIRequest, opts ...grpc.CallOption) (*WhoAmIResponse, error) {
	return invoke[WhoAmIResponse](ctx, c.cc, "WhoAmI", in, opts)
}

func (c *FundraiserClient) CreateProfile(ctx context.Context, in *CreateProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[ProfileResponse](ctx, c.cc, "CreateProfile", in, opts)
}

func (c *FundraiserClient) GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[ProfileResponse](ctx, c.cc, "GetProfile", in, opts)
}

func (c *FundraiserClient) ListProfiles(ctx context.Context, in *ListProfilesRequest, opts ...grpc.CallOption) (*ListProfilesResponse, error) {
	return invoke[ListProfilesResponse](ctx, c.cc, "ListProfiles", in, opts)
}

func (c *FundraiserClient) RenameProfile(ctx context.Context, in *RenameProfileRequest, opts ...grpc.CallOption) (*VersionResponse, error) {
	return invoke[VersionResponse](ctx, c.cc, "RenameProfile", in, opts)
}

func (c *FundraiserClient) CreateDirectShare(ctx context.Context, in *CreateDirectShareRequest, opts ...grpc.CallOption) (*ShareResponse, error) {
	return invoke[ShareResponse](ctx, c.cc, "CreateDirectShare", in, opts)
}

func (c *FundraiserClient) CreateInviteCode(ctx context.Context, in *CreateInviteCodeRequest, opts ...grpc.CallOption) (*CreateInviteCodeResponse, error) {
	return invoke[CreateInviteCodeResponse](ctx, c.cc, "CreateInviteCode", in, opts)
}

func (c *FundraiserClient) RedeemInvite(ctx context.Context, in *RedeemInviteRequest, opts ...grpc.CallOption) (*RedeemInviteResponse, error) {
	return invoke[RedeemInviteResponse](ctx, c.cc, "RedeemInvite", in, opts)
}

func (c *FundraiserClient) ListShares(ctx context.Context, in *ListSharesRequest, opts ...grpc.CallOption) (*ListSharesResponse, error) {
	return invoke[ListSharesResponse](ctx, c.cc, "ListShares", in, opts)
}

func (c *FundraiserClient) RevokeShare(ctx context.Context, in *RevokeShareRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "RevokeShare", in, opts)
}

func (c *FundraiserClient) ListInvites(ctx context.Context, in *ListInvitesRequest, opts ...grpc.CallOption) (*ListInvitesResponse, error) {
	return invoke[ListInvitesResponse](ctx, c.cc, "ListInvites", in, opts)
}

func (c *FundraiserClient) RevokeInvite(ctx context.Context, in *RevokeInviteRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "RevokeInvite", in, opts)
}

func (c *FundraiserClient) TransferOwnership(ctx context.Context, in *TransferOwnershipRequest, opts ...grpc.CallOption) (*ProfileResponse, error) {
	return invoke[ProfileResponse](ctx, c.cc, "TransferOwnership", in, opts)
}

func (c *FundraiserClient) DeleteProfileCascade(ctx context.Context, in *DeleteProfileCascadeRequest, opts ...grpc.CallOption) (*DeleteProfileCascadeResponse, error) {
	return invoke[DeleteProfileCascadeResponse](ctx, c.cc, "DeleteProfileCascade", in, opts)
}

func (c *FundraiserClient) CreateCatalog(ctx context.Context, in *CreateCatalogRequest, opts ...grpc.CallOption) (*CatalogResponse, error) {
	return invoke[CatalogResponse](ctx, c.cc, "CreateCatalog", in, opts)
}

func (c *FundraiserClient) GetCatalog(ctx context.Context, in *GetCatalogRequest, opts ...grpc.CallOption) (*CatalogResponse, error) {
	return invoke[CatalogResponse](ctx, c.cc, "GetCatalog", in, opts)
}

func (c *FundraiserClient) ListCatalogs(ctx context.Context, in *ListCatalogsRequest, opts ...grpc.CallOption) (*ListCatalogsResponse, error) {
	return invoke[ListCatalogsResponse](ctx, c.cc, "ListCatalogs", in, opts)
}

func (c *FundraiserClient) UpdateCatalogItems(ctx context.Context, in *UpdateCatalogItemsRequest, opts ...grpc.CallOption) (*VersionResponse, error) {
	return invoke[VersionResponse](ctx, c.cc, "UpdateCatalogItems", in, opts)
}

func (c *FundraiserClient) DeleteCatalog(ctx context.Context, in *DeleteCatalogRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteCatalog", in, opts)
}

func (c *FundraiserClient) CreateCampaign(ctx context.Context, in *CreateCampaignRequest, opts ...grpc.CallOption) (*CampaignResponse, error) {
	return invoke[CampaignResponse](ctx, c.cc, "CreateCampaign", in, opts)
}

func (c *FundraiserClient) ListCampaigns(ctx context.Context, in *ListCampaignsRequest, opts ...grpc.CallOption) (*ListCampaignsResponse, error) {
	return invoke[ListCampaignsResponse](ctx, c.cc, "ListCampaigns", in, opts)
}

func (c *FundraiserClient) CreateOrder(ctx context.Context, in *CreateOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, "CreateOrder", in, opts)
}

func (c *FundraiserClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderResponse, error) {
	return invoke[OrderResponse](ctx, c.cc, "GetOrder", in, opts)
}

func (c *FundraiserClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c.cc, "ListOrders", in, opts)
}

func (c *FundraiserClient) DeleteOrder(ctx context.Context, in *DeleteOrderRequest, opts ...grpc.CallOption) (*Empty, error) {
	return invoke[Empty](ctx, c.cc, "DeleteOrder", in, opts)
}

func (c *FundraiserClient) ExportProfile(ctx context.Context, in *ExportProfileRequest, opts ...grpc.CallOption) (*ExportProfileResponse, error) {
	return invoke[ExportProfileResponse](ctx, c.cc, "ExportProfile", in, opts)
}
