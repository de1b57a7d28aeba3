package scval_test

import (
	"math"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stellar/go/strkey"
	"github.com/stellar/go/xdr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starfund-labs/starfund/core/pkg/scval"
)

func testContractID(t *testing.T) string {
	t.Helper()
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}
	id, err := strkey.Encode(strkey.VersionByteContract, raw)
	require.NoError(t, err)
	return id
}

func TestI128RoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 10_000_000, -10_000_000, math.MaxInt64, math.MinInt64} {
		v := scval.I128(n)
		require.NotNil(t, v.I128)
		got, err := scval.Int64FromI128(*v.I128)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	}
}

func TestInt64FromI128Overflow(t *testing.T) {
	_, err := scval.Int64FromI128(xdr.Int128Parts{Hi: 1, Lo: 0})
	assert.Error(t, err)

	_, err = scval.Int64FromI128(xdr.Int128Parts{Hi: -2, Lo: math.MaxUint64})
	assert.Error(t, err)
}

func TestAddressRoundTrip(t *testing.T) {
	account := keypair.MustRandom().Address()
	v, err := scval.Address(account)
	require.NoError(t, err)
	require.NotNil(t, v.Address)
	got, err := scval.AddressString(*v.Address)
	require.NoError(t, err)
	assert.Equal(t, account, got)

	contract := testContractID(t)
	v, err = scval.Address(contract)
	require.NoError(t, err)
	got, err = scval.AddressString(*v.Address)
	require.NoError(t, err)
	assert.Equal(t, contract, got)
}

func TestAddressRejectsGarbage(t *testing.T) {
	_, err := scval.Address("not-an-address")
	assert.Error(t, err)
}

func TestBase64RoundTrip(t *testing.T) {
	v, err := scval.Map(
		[]string{"title", "target", "claimed"},
		[]xdr.ScVal{scval.String("school"), scval.I128(50_0000000), scval.Bool(false)},
	)
	require.NoError(t, err)

	encoded, err := scval.EncodeBase64(v)
	require.NoError(t, err)

	decoded, err := scval.DecodeBase64(encoded)
	require.NoError(t, err)

	native, ok := scval.ToNative(decoded).(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "school", native["title"])
	assert.Equal(t, int64(50_0000000), native["target"])
	assert.Equal(t, false, native["claimed"])
}

func TestToNativeScalars(t *testing.T) {
	assert.Equal(t, uint32(7), scval.ToNative(scval.U32(7)))
	assert.Equal(t, uint64(9), scval.ToNative(scval.U64(9)))
	assert.Equal(t, "donate", scval.ToNative(scval.Symbol("donate")))
	assert.Equal(t, true, scval.ToNative(scval.Bool(true)))
}

func TestDecodeBase64Garbage(t *testing.T) {
	_, err := scval.DecodeBase64("!!!not-base64!!!")
	assert.Error(t, err)
}
