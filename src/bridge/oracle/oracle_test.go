package oracle

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/bridge/registry"
	"github.com/MMN3003/stablebridge/src/config"
	"github.com/MMN3003/stablebridge/src/logger"
)

type fakeChainClient struct {
	tokenBalances  map[domain.Chain]*big.Int
	nativeBalances map[domain.Chain]*big.Int
	failing        map[domain.Chain]bool
}

var _ domain.ChainClient = (*fakeChainClient)(nil)

func (f *fakeChainClient) TokenBalance(_ context.Context, chain domain.Chain, _, _ string) (*big.Int, error) {
	if f.failing[chain] {
		return nil, errors.New("rpc down")
	}
	if b, ok := f.tokenBalances[chain]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChainClient) NativeBalance(_ context.Context, chain domain.Chain, _ string) (*big.Int, error) {
	if f.failing[chain] {
		return nil, errors.New("rpc down")
	}
	if b, ok := f.nativeBalances[chain]; ok {
		return b, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChainClient) Allowance(context.Context, domain.Chain, string, string, string) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeChainClient) Approve(context.Context, *domain.Signer, domain.Chain, string, string, *big.Int) (*domain.TxReceipt, error) {
	return &domain.TxReceipt{Status: 1}, nil
}

func (f *fakeChainClient) Execute(context.Context, *domain.Signer, domain.Call) (*domain.TxReceipt, error) {
	return &domain.TxReceipt{Status: 1}, nil
}

func testRegistry() *registry.Registry {
	return registry.New(&config.Config{
		RPC: config.RPCConfig{
			Ethereum: "http://localhost:8545",
			Arbitrum: "http://localhost:8546",
			BSC:      "http://localhost:8551",
		},
	})
}

const testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"

func TestStablecoinBalanceUsesChainPrecision(t *testing.T) {
	fake := &fakeChainClient{tokenBalances: map[domain.Chain]*big.Int{
		domain.ChainEthereum: big.NewInt(2_500_000), // 6 decimals
	}}
	bsc, _ := new(big.Int).SetString("2500000000000000000", 10) // 18 decimals
	fake.tokenBalances[domain.ChainBSC] = bsc

	o := New(testRegistry(), fake, logger.New("test"))

	got, err := o.StablecoinBalance(context.Background(), domain.ChainEthereum, testAddress)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("2.5")), "got %s", got)

	got, err = o.StablecoinBalance(context.Background(), domain.ChainBSC, testAddress)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("2.5")), "got %s", got)
}

func TestStablecoinBalanceUnsupportedChain(t *testing.T) {
	o := New(testRegistry(), &fakeChainClient{}, logger.New("test"))

	_, err := o.StablecoinBalance(context.Background(), domain.ChainPolygon, testAddress)
	assert.ErrorIs(t, err, domain.ErrUnsupportedChain)

	// Solana is registered but has no EVM balance surface.
	_, err = o.StablecoinBalance(context.Background(), domain.ChainSolana, testAddress)
	assert.ErrorIs(t, err, domain.ErrUnsupportedChain)
}

func TestNativeBalance(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	fake := &fakeChainClient{nativeBalances: map[domain.Chain]*big.Int{
		domain.ChainArbitrum: wei,
	}}
	o := New(testRegistry(), fake, logger.New("test"))

	got, err := o.NativeBalance(context.Background(), domain.ChainArbitrum, testAddress)
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("1.5")), "got %s", got)
}

func TestAllStablecoinBalancesDegradesPerChain(t *testing.T) {
	fake := &fakeChainClient{
		tokenBalances: map[domain.Chain]*big.Int{
			domain.ChainEthereum: big.NewInt(1_000_000),
		},
		failing: map[domain.Chain]bool{domain.ChainArbitrum: true},
	}
	o := New(testRegistry(), fake, logger.New("test"))

	out := o.AllStablecoinBalances(context.Background(), testAddress)

	require.Len(t, out, 3, "every EVM chain reports, failures included")
	assert.True(t, out[domain.ChainEthereum].Equal(decimal.NewFromInt(1)))
	assert.True(t, out[domain.ChainArbitrum].IsZero(), "failing chain degrades to zero")
	assert.True(t, out[domain.ChainBSC].IsZero())

	_, ok := out[domain.ChainSolana]
	assert.False(t, ok, "chains without an RPC surface stay out of the aggregate")
}
