package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	pb "github.com/and161185/scoutfund/api/fundraiser/v1"
)

type command struct {
	usage string
	run   func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error)
}

// commands maps subcommand names to their RPC. Output is printed as JSON.
var commands = map[string]command{
	"whoami": {"", func(ctx context.Context, cl *pb.FundraiserClient, _ []string) (any, error) {
		return cl.WhoAmI(ctx, &pb.WhoAmIRequest{})
	}},

	// profiles
	"profiles": {"", func(ctx context.Context, cl *pb.FundraiserClient, _ []string) (any, error) {
		return cl.ListProfiles(ctx, &pb.ListProfilesRequest{})
	}},
	"profile": {"-id <profile>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.GetProfileRequest
		fs := newFlagSet("profile")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.GetProfile(ctx, &req)
	}},
	"profile-create": {"-name <display name>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.CreateProfileRequest
		fs := newFlagSet("profile-create")
		fs.StringVar(&req.DisplayName, "name", "", "display name")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.CreateProfile(ctx, &req)
	}},
	"profile-rename": {"-id <profile> -base <ver> -name <display name>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.RenameProfileRequest
		fs := newFlagSet("profile-rename")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		fs.Int64Var(&req.BaseVer, "base", 0, "expected version")
		fs.StringVar(&req.DisplayName, "name", "", "display name")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.RenameProfile(ctx, &req)
	}},
	"profile-delete": {"-id <profile>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.DeleteProfileCascadeRequest
		fs := newFlagSet("profile-delete")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.DeleteProfileCascade(ctx, &req)
	}},
	"transfer": {"-id <profile> -to <account>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.TransferOwnershipRequest
		fs := newFlagSet("transfer")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		fs.StringVar(&req.NewOwnerID, "to", "", "new owner account id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.TransferOwnership(ctx, &req)
	}},
	"export": {"-id <profile>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.ExportProfileRequest
		fs := newFlagSet("export")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.ExportProfile(ctx, &req)
	}},

	// sharing
	"share": {"-id <profile> -email <recipient> [-perms read,write]", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.CreateDirectShareRequest
		fs := newFlagSet("share")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		fs.StringVar(&req.RecipientEmail, "email", "", "recipient email")
		perms := fs.String("perms", "read", "comma-separated permissions")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		req.Permissions = splitList(*perms)
		return cl.CreateDirectShare(ctx, &req)
	}},
	"shares": {"-id <profile>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.ListSharesRequest
		fs := newFlagSet("shares")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.ListShares(ctx, &req)
	}},
	"unshare": {"-id <profile> -account <account>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.RevokeShareRequest
		fs := newFlagSet("unshare")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		fs.StringVar(&req.AccountID, "account", "", "grantee account id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.RevokeShare(ctx, &req)
	}},
	"invite": {"-id <profile> [-perms read,write] [-ttl 168h]", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.CreateInviteCodeRequest
		fs := newFlagSet("invite")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		perms := fs.String("perms", "read", "comma-separated permissions")
		ttl := fs.Duration("ttl", 0, "invite lifetime (server default when zero)")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		req.Permissions = splitList(*perms)
		req.TTLSeconds = int64(ttl.Seconds())
		return cl.CreateInviteCode(ctx, &req)
	}},
	"invites": {"-id <profile>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.ListInvitesRequest
		fs := newFlagSet("invites")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.ListInvites(ctx, &req)
	}},
	"invite-revoke": {"-id <invite>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.RevokeInviteRequest
		fs := newFlagSet("invite-revoke")
		fs.StringVar(&req.InviteID, "id", "", "invite id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.RevokeInvite(ctx, &req)
	}},
	"redeem": {"-code <code>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.RedeemInviteRequest
		fs := newFlagSet("redeem")
		fs.StringVar(&req.Code, "code", "", "invite code")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.RedeemInvite(ctx, &req)
	}},

	// catalogs
	"catalogs": {"", func(ctx context.Context, cl *pb.FundraiserClient, _ []string) (any, error) {
		return cl.ListCatalogs(ctx, &pb.ListCatalogsRequest{})
	}},
	"catalog": {"-id <catalog>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.GetCatalogRequest
		fs := newFlagSet("catalog")
		fs.StringVar(&req.CatalogID, "id", "", "catalog id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.GetCatalog(ctx, &req)
	}},
	"catalog-create": {"-name <name> -file <items.json|-> [-admin] [-public]", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.CreateCatalogRequest
		fs := newFlagSet("catalog-create")
		fs.StringVar(&req.Name, "name", "", "catalog name")
		fs.BoolVar(&req.Admin, "admin", false, "shared admin catalog")
		fs.BoolVar(&req.Public, "public", false, "visible to everyone")
		file := fs.String("file", "", "line items JSON file, - for stdin")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		items, err := readLineItems(*file)
		if err != nil {
			return nil, err
		}
		req.LineItems = items
		return cl.CreateCatalog(ctx, &req)
	}},
	"catalog-items": {"-id <catalog> -base <ver> -file <items.json|->", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.UpdateCatalogItemsRequest
		fs := newFlagSet("catalog-items")
		fs.StringVar(&req.CatalogID, "id", "", "catalog id")
		fs.Int64Var(&req.BaseVer, "base", 0, "expected version")
		file := fs.String("file", "", "line items JSON file, - for stdin")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		items, err := readLineItems(*file)
		if err != nil {
			return nil, err
		}
		req.LineItems = items
		return cl.UpdateCatalogItems(ctx, &req)
	}},
	"catalog-delete": {"-id <catalog> -base <ver>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.DeleteCatalogRequest
		fs := newFlagSet("catalog-delete")
		fs.StringVar(&req.CatalogID, "id", "", "catalog id")
		fs.Int64Var(&req.BaseVer, "base", 0, "expected version")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.DeleteCatalog(ctx, &req)
	}},

	// campaigns
	"campaign-create": {"-id <profile> -catalog <catalog> -name <name> -from YYYY-MM-DD -to YYYY-MM-DD [-origin code]", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.CreateCampaignRequest
		fs := newFlagSet("campaign-create")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		fs.StringVar(&req.CatalogID, "catalog", "", "catalog id")
		fs.StringVar(&req.Name, "name", "", "campaign name")
		fs.StringVar(&req.StartsOn, "from", "", "first day")
		fs.StringVar(&req.EndsOn, "to", "", "last day")
		fs.StringVar(&req.OriginCode, "origin", "", "invite code the campaign came from")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.CreateCampaign(ctx, &req)
	}},
	"campaigns": {"-id <profile> [-limit n]", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.ListCampaignsRequest
		fs := newFlagSet("campaigns")
		fs.StringVar(&req.ProfileID, "id", "", "profile id")
		fs.IntVar(&req.Limit, "limit", 0, "page size")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.ListCampaigns(ctx, &req)
	}},

	// orders
	"order": {"-campaign <campaign> -buyer <name> [-email e] [-phone p] [-address a] -line ITEM=QTY...", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.CreateOrderRequest
		var lines lineFlags
		fs := newFlagSet("order")
		fs.StringVar(&req.CampaignID, "campaign", "", "campaign id")
		fs.StringVar(&req.Buyer.Name, "buyer", "", "buyer name")
		fs.StringVar(&req.Buyer.Email, "email", "", "buyer email")
		fs.StringVar(&req.Buyer.Phone, "phone", "", "buyer phone")
		fs.StringVar(&req.Buyer.Address, "address", "", "buyer address")
		fs.Var(&lines, "line", "ITEM=QTY, repeatable")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		req.Lines = lines
		return cl.CreateOrder(ctx, &req)
	}},
	"order-get": {"-id <order>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.GetOrderRequest
		fs := newFlagSet("order-get")
		fs.StringVar(&req.OrderID, "id", "", "order id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.GetOrder(ctx, &req)
	}},
	"orders": {"-campaign <campaign> [-limit n]", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.ListOrdersRequest
		fs := newFlagSet("orders")
		fs.StringVar(&req.CampaignID, "campaign", "", "campaign id")
		fs.IntVar(&req.Limit, "limit", 0, "page size")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.ListOrders(ctx, &req)
	}},
	"order-delete": {"-id <order>", func(ctx context.Context, cl *pb.FundraiserClient, args []string) (any, error) {
		var req pb.DeleteOrderRequest
		fs := newFlagSet("order-delete")
		fs.StringVar(&req.OrderID, "id", "", "order id")
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		return cl.DeleteOrder(ctx, &req)
	}},
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// lineFlags collects repeated -line ITEM=QTY values.
type lineFlags []pb.OrderLineInput

func (l *lineFlags) String() string {
	parts := make([]string, 0, len(*l))
	for _, in := range *l {
		parts = append(parts, fmt.Sprintf("%s=%d", in.ItemID, in.Quantity))
	}
	return strings.Join(parts, ",")
}

func (l *lineFlags) Set(v string) error {
	item, qty, ok := strings.Cut(v, "=")
	item = strings.TrimSpace(item)
	if !ok || item == "" {
		return fmt.Errorf("line %q: want ITEM=QTY", v)
	}
	n, err := strconv.Atoi(strings.TrimSpace(qty))
	if err != nil {
		return fmt.Errorf("line %q: %w", v, err)
	}
	*l = append(*l, pb.OrderLineInput{ItemID: item, Quantity: n})
	return nil
}

// readLineItems loads a JSON array of {"id","label","price"} objects.
func readLineItems(path string) ([]pb.LineItem, error) {
	if path == "" {
		return nil, errors.New("-file is required")
	}
	b, err := readAll(path)
	if err != nil {
		return nil, err
	}
	var items []pb.LineItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("line items: %w", err)
	}
	return items, nil
}
