package fundraiserv1

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestCodec_Registered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	require.NotNil(t, c)
	require.Equal(t, CodecName, c.Name())
}

func TestCodec_Structs(t *testing.T) {
	var c Codec
	in := &CreateOrderRequest{
		CampaignID: "6f1cbe8e-b2e7-4a3b-9f6e-2a2c0f2f9c11",
		Buyer:      Buyer{Name: "Pat"},
		Lines:      []OrderLineInput{{ItemID: "L1", Quantity: 2}},
	}
	b, err := c.Marshal(in)
	require.NoError(t, err)
	require.Contains(t, string(b), `"campaign_id"`)

	var out CreateOrderRequest
	require.NoError(t, c.Unmarshal(b, &out))
	require.Equal(t, *in, out)

	err = c.Unmarshal([]byte(`{"campaign_id":"x","bogus":1}`), &out)
	require.Error(t, err)

	var empty WhoAmIRequest
	require.NoError(t, c.Unmarshal(nil, &empty))
}

func TestCodec_DecimalAsString(t *testing.T) {
	var c Codec
	b, err := c.Marshal(&LineItem{ID: "L2", Label: "Kettle corn", Price: decimal.RequireFromString("15.50")})
	require.NoError(t, err)
	require.Contains(t, string(b), `"price":"15.5"`)
}

func TestCodec_ProtoMessages(t *testing.T) {
	var c Codec
	b, err := c.Marshal(wrapperspb.String("hello"))
	require.NoError(t, err)
	require.JSONEq(t, `"hello"`, string(b))

	var out wrapperspb.StringValue
	require.NoError(t, c.Unmarshal(b, &out))
	require.Equal(t, "hello", out.GetValue())
}

func TestFullMethod(t *testing.T) {
	require.Equal(t, "/scoutfund.v1.Fundraiser/RedeemInvite", FullMethod("RedeemInvite"))
	require.Len(t, ServiceDesc.Methods, 26)
}
