package batch

import (
	"errors"
	"math/big"
	"testing"

	"chain_reader/internal/domain/entity"
	"chain_reader/internal/infrastructure/abicodec"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	multicall3 = "0xcA11bde05977b3631167028862bE2a173976CA11"
	usdc       = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	mkr        = "0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2"
	alice      = "0x28C6c06298d514Db089934071355E5743bf21d60"
	bob        = "0x21a31Ee1afC51d94C2eFcCAa2092aD1028285549"
)

func word(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func str(t *testing.T, s string) []byte {
	t.Helper()
	typ, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	out, err := abi.Arguments{{Type: typ}}.Pack(s)
	require.NoError(t, err)
	return out
}

func TestBuilderOrderAndDedup(t *testing.T) {
	b, err := NewBuilder(multicall3)
	require.NoError(t, err)

	require.NoError(t, b.AddTokenInfo(usdc))
	require.NoError(t, b.AddTokenInfo(usdc))
	require.NoError(t, b.AddBalance(usdc, alice))
	require.NoError(t, b.AddBalance(usdc, alice))
	require.NoError(t, b.AddBalance(usdc, bob))
	require.NoError(t, b.AddNativeBalance(alice))
	require.NoError(t, b.AddCall("supply", usdc, "totalSupply()(uint256)"))

	batch := b.Build()
	require.Equal(t, 7, batch.Len())
	kinds := make([]entity.CallKind, batch.Len())
	for i, c := range batch.Calls {
		kinds[i] = c.Tag.Kind
	}
	assert.Equal(t, []entity.CallKind{
		entity.CallKindName, entity.CallKindSymbol, entity.CallKindDecimals,
		entity.CallKindBalance, entity.CallKindBalance,
		entity.CallKindNativeBalance, entity.CallKindCustom,
	}, kinds)

	assert.Equal(t, common.HexToAddress(multicall3), batch.Calls[5].Target)
	assert.Equal(t, "supply", batch.Calls[6].Tag.RequestID)
	assert.Equal(t, common.HexToAddress(bob), batch.Calls[4].Tag.Holder)
}

func TestBuilderRejectsInvalidInput(t *testing.T) {
	_, err := NewBuilder("0xnope")
	assert.Error(t, err)

	b, err := NewBuilder(multicall3)
	require.NoError(t, err)

	var encErr *entity.EncodingError
	assert.True(t, errors.As(b.AddTokenInfo("0x12"), &encErr))
	assert.True(t, errors.As(b.AddBalance(usdc, "bob"), &encErr))
	assert.True(t, errors.As(b.AddCall("x", usdc, "f(uint8)", 300), &encErr))
	assert.Equal(t, 0, b.Len())
}

func TestChunkKeepsOrder(t *testing.T) {
	b, err := NewBuilder(multicall3)
	require.NoError(t, err)
	for _, holder := range []string{alice, bob} {
		require.NoError(t, b.AddBalance(usdc, holder))
		require.NoError(t, b.AddBalance(mkr, holder))
	}
	batch := b.Build()

	chunks := batch.Chunk(3)
	require.Len(t, chunks, 2)
	assert.Equal(t, 3, chunks[0].Len())
	assert.Equal(t, 1, chunks[1].Len())

	var joined []entity.CallDescriptor
	for _, c := range chunks {
		joined = append(joined, c.Calls...)
	}
	assert.Equal(t, batch.Calls, joined)
}

func TestAssembleTokensAndBalances(t *testing.T) {
	b, err := NewBuilder(multicall3)
	require.NoError(t, err)
	require.NoError(t, b.AddTokenInfo(usdc))
	require.NoError(t, b.AddTokenInfo(mkr))
	require.NoError(t, b.AddBalance(usdc, alice))
	require.NoError(t, b.AddBalance(mkr, alice))
	require.NoError(t, b.AddNativeBalance(alice))
	require.NoError(t, b.AddCall("supply", usdc, "totalSupply()(uint256)"))
	batch := b.Build()

	var mkrSymbol [32]byte
	copy(mkrSymbol[:], "MKR")

	results := []entity.CallResult{
		{Success: true, ReturnData: str(t, "USD Coin")},
		{Success: true, ReturnData: str(t, "USDC")},
		{Success: true, ReturnData: word(6)},
		{Success: false},                           // mkr name
		{Success: true, ReturnData: mkrSymbol[:]}, // legacy bytes32 symbol
		{Success: true, ReturnData: word(18)},
		{Success: true, ReturnData: word(1500000)},
		{Success: false, ReturnData: []byte{0xde, 0xad}},
		{Success: true, ReturnData: word(1000000000000000000)},
		{Success: true, ReturnData: word(42)},
	}

	decoded, err := abicodec.DecodeAll(batch.Calls, results)
	require.NoError(t, err)

	out, err := Assemble(batch, decoded, Native{ChainID: 1, Symbol: "ETH", Decimals: 18})
	require.NoError(t, err)

	require.Len(t, out.Tokens, 2)
	assert.Equal(t, "USD Coin", out.Tokens[0].Name)
	assert.Equal(t, "USDC", out.Tokens[0].Symbol)
	assert.Equal(t, uint8(6), out.Tokens[0].Decimals)
	assert.True(t, out.Tokens[0].DecimalsKnown)
	assert.Equal(t, "MKR", out.Tokens[1].Symbol)
	assert.Empty(t, out.Tokens[1].Name)
	assert.Len(t, out.Tokens[1].Errors, 1)

	require.Len(t, out.Balances, 3)
	assert.Equal(t, "1.5", out.Balances[0].FormattedBalance)
	assert.Equal(t, "USDC", out.Balances[0].TokenSymbol)
	assert.Equal(t, &entity.Amount{Raw: "1500000", Scale: 6}, out.Balances[0].Amount)
	assert.True(t, out.Balances[0].DecimalsKnown)
	assert.False(t, out.Balances[0].Failed)

	assert.True(t, out.Balances[1].Failed)
	assert.Equal(t, "call reverted", out.Balances[1].FailureReason)
	assert.Equal(t, "0xdead", out.Balances[1].RawReturnData)
	assert.Nil(t, out.Balances[1].Amount)

	assert.True(t, out.Balances[2].Native)
	assert.Equal(t, "ETH", out.Balances[2].TokenSymbol)
	assert.Equal(t, "1", out.Balances[2].FormattedBalance)

	require.Len(t, out.Calls, 1)
	assert.Equal(t, entity.DecodeOK, out.Calls[0].Status)
	assert.Equal(t, []string{"42"}, out.Calls[0].Values)
}

func TestAssembleUnknownDecimalsIsVisible(t *testing.T) {
	b, err := NewBuilder(multicall3)
	require.NoError(t, err)
	require.NoError(t, b.AddTokenInfo(usdc))
	require.NoError(t, b.AddBalance(usdc, alice))
	batch := b.Build()

	results := []entity.CallResult{
		{Success: true, ReturnData: str(t, "USD Coin")},
		{Success: true, ReturnData: str(t, "USDC")},
		{Success: false}, // decimals reverted
		{Success: true, ReturnData: word(1500000)},
	}
	decoded, err := abicodec.DecodeAll(batch.Calls, results)
	require.NoError(t, err)

	out, err := Assemble(batch, decoded, Native{ChainID: 1, Symbol: "ETH", Decimals: 18})
	require.NoError(t, err)

	require.Len(t, out.Tokens, 1)
	assert.False(t, out.Tokens[0].DecimalsKnown)

	require.Len(t, out.Balances, 1)
	rec := out.Balances[0]
	assert.True(t, rec.Failed)
	assert.False(t, rec.DecimalsKnown)
	assert.Equal(t, "decimals unknown: call reverted", rec.FailureReason)
	assert.Empty(t, rec.FormattedBalance)
	assert.Equal(t, &entity.Amount{Raw: "1500000", Scale: 0}, rec.Amount)
	assert.Equal(t, "USDC", rec.TokenSymbol)
}

func TestAssembleBalanceWithoutTokenInfo(t *testing.T) {
	b, err := NewBuilder(multicall3)
	require.NoError(t, err)
	require.NoError(t, b.AddBalance(usdc, alice))
	batch := b.Build()

	decoded, err := abicodec.DecodeAll(batch.Calls, []entity.CallResult{{Success: true, ReturnData: word(7)}})
	require.NoError(t, err)
	out, err := Assemble(batch, decoded, Native{})
	require.NoError(t, err)

	require.Len(t, out.Balances, 1)
	assert.True(t, out.Balances[0].Failed)
	assert.Equal(t, "decimals unknown: token info not requested", out.Balances[0].FailureReason)
	assert.Equal(t, "7", out.Balances[0].Amount.Raw)
}

func TestAssembleLengthMismatch(t *testing.T) {
	b, err := NewBuilder(multicall3)
	require.NoError(t, err)
	require.NoError(t, b.AddBalance(usdc, alice))

	_, err = Assemble(b.Build(), nil, Native{})
	assert.Error(t, err)
}
