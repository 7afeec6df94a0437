package evmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MMN3003/stablebridge/src/bridge/domain"
	"github.com/MMN3003/stablebridge/src/bridge/registry"
	"github.com/MMN3003/stablebridge/src/config"
	"github.com/MMN3003/stablebridge/src/logger"
)

// rpcNode fakes the JSON-RPC surface Execute touches: gas price, gas
// estimation, nonce, broadcast and receipt lookup.
type rpcNode struct {
	mu sync.Mutex

	estimateErr string // when set, eth_estimateGas fails with this message
	gasEstimate string // hex result otherwise

	broadcastFailures int // first N broadcasts fail with broadcastErr
	broadcastErr      string

	attempts   int
	broadcasts []*types.Transaction
}

func (n *rpcNode) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		n.mu.Lock()
		defer n.mu.Unlock()

		var result any
		var rpcErr map[string]any
		switch req.Method {
		case "eth_gasPrice":
			result = "0xa" // 10 wei
		case "eth_estimateGas":
			if n.estimateErr != "" {
				rpcErr = map[string]any{"code": -32000, "message": n.estimateErr}
			} else {
				result = n.gasEstimate
			}
		case "eth_getTransactionCount":
			result = "0x7"
		case "eth_sendRawTransaction":
			n.attempts++
			if n.attempts <= n.broadcastFailures {
				rpcErr = map[string]any{"code": -32000, "message": n.broadcastErr}
				break
			}
			var raw string
			require.NoError(t, json.Unmarshal(req.Params[0], &raw))
			tx := new(types.Transaction)
			require.NoError(t, tx.UnmarshalBinary(hexutil.MustDecode(raw)))
			n.broadcasts = append(n.broadcasts, tx)
			result = tx.Hash().Hex()
		case "eth_getTransactionReceipt":
			result = map[string]any{
				"type":              "0x0",
				"status":            "0x1",
				"cumulativeGasUsed": "0x5208",
				"gasUsed":           "0x5208",
				"logsBloom":         "0x" + strings.Repeat("0", 512),
				"logs":              []any{},
				"transactionHash":   "0x" + strings.Repeat("11", 32),
				"blockHash":         "0x" + strings.Repeat("22", 32),
				"blockNumber":       "0x1",
				"transactionIndex":  "0x0",
				"effectiveGasPrice": "0xf",
			}
		default:
			t.Errorf("unexpected rpc method %s", req.Method)
			rpcErr = map[string]any{"code": -32601, "message": "method not found"}
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}
}

func newExecuteFixture(t *testing.T, node *rpcNode) (*Registry, *domain.Signer) {
	t.Helper()

	srv := httptest.NewServer(node.handler(t))
	t.Cleanup(srv.Close)

	reg := registry.New(&config.Config{
		RPC: config.RPCConfig{Ethereum: srv.URL},
	})
	clients, err := NewRegistry(context.Background(), reg, logger.New("test"))
	require.NoError(t, err)
	t.Cleanup(clients.Close)

	signer, err := domain.NewSignerFromHex("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	return clients, signer
}

func executeCall() domain.Call {
	return domain.Call{
		Chain: domain.ChainEthereum,
		To:    "0xBd3fa81B58Ba92a82136038B25aDec7066af3155",
		Data:  []byte{0x01, 0x02},
	}
}

func TestExecuteFallsBackWhenEstimationFails(t *testing.T) {
	node := &rpcNode{estimateErr: "execution reverted"}
	clients, signer := newExecuteFixture(t, node)

	receipt, err := clients.Execute(context.Background(), signer, executeCall())
	require.NoError(t, err, "estimation failure must not abort the broadcast")
	assert.EqualValues(t, 1, receipt.Status)
	assert.NotEmpty(t, receipt.TxHash)

	require.Len(t, node.broadcasts, 1)
	tx := node.broadcasts[0]
	assert.EqualValues(t, fallbackGasLimit, tx.Gas())
	assert.EqualValues(t, 15, tx.GasPrice().Int64(), "suggested 10 boosted by 1.5")
	assert.EqualValues(t, 7, tx.Nonce())
	assert.Equal(t, 1, node.attempts)
}

func TestExecuteAppliesEstimateMargin(t *testing.T) {
	node := &rpcNode{gasEstimate: "0x186a0"} // 100000
	clients, signer := newExecuteFixture(t, node)

	_, err := clients.Execute(context.Background(), signer, executeCall())
	require.NoError(t, err)

	require.Len(t, node.broadcasts, 1)
	assert.EqualValues(t, 120000, node.broadcasts[0].Gas(), "estimate plus 20 percent margin")
}

func TestExecuteHonoursExplicitGasLimit(t *testing.T) {
	// estimateErr set as a tripwire: the limit is given, so estimation
	// must not be consulted at all.
	node := &rpcNode{estimateErr: "must not be called"}
	clients, signer := newExecuteFixture(t, node)

	call := executeCall()
	call.GasLimit = 42000
	_, err := clients.Execute(context.Background(), signer, call)
	require.NoError(t, err)

	require.Len(t, node.broadcasts, 1)
	assert.EqualValues(t, 42000, node.broadcasts[0].Gas())
}

func TestExecuteRetriesTransientBroadcastFailures(t *testing.T) {
	node := &rpcNode{
		gasEstimate:       "0x186a0",
		broadcastFailures: 2,
		broadcastErr:      "connection reset by peer",
	}
	clients, signer := newExecuteFixture(t, node)

	receipt, err := clients.Execute(context.Background(), signer, executeCall())
	require.NoError(t, err, "two transient failures fit in the attempt budget")
	assert.EqualValues(t, 1, receipt.Status)
	assert.Equal(t, 3, node.attempts)
	assert.Len(t, node.broadcasts, 1)
}

func TestExecuteDoesNotRetryNonceConflicts(t *testing.T) {
	node := &rpcNode{
		gasEstimate:       "0x186a0",
		broadcastFailures: 10,
		broadcastErr:      "nonce too low",
	}
	clients, signer := newExecuteFixture(t, node)

	_, err := clients.Execute(context.Background(), signer, executeCall())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBroadcastFailed)
	assert.Equal(t, 1, node.attempts, "nonce conflicts must fail fast")
}

func TestIsTransientBroadcastErr(t *testing.T) {
	transient := []string{
		"connection reset by peer",
		"i/o timeout",
		"502 bad gateway",
	}
	for _, msg := range transient {
		assert.True(t, isTransientBroadcastErr(errors.New(msg)), msg)
	}

	fatal := []string{
		"nonce too low",
		"already known",
		"replacement transaction underpriced",
		"Nonce Too Low", // case-insensitive
	}
	for _, msg := range fatal {
		assert.False(t, isTransientBroadcastErr(errors.New(msg)), msg)
	}
}

func TestConvertReceipt(t *testing.T) {
	raw := &types.Receipt{
		TxHash: common.HexToHash("0x01"),
		Status: types.ReceiptStatusSuccessful,
		Logs: []*types.Log{
			{
				Address: common.HexToAddress("0xBd3fa81B58Ba92a82136038B25aDec7066af3155"),
				Topics:  []common.Hash{common.HexToHash("0xaa"), common.HexToHash("0xbb")},
				Data:    []byte{0x01, 0x02},
			},
		},
	}

	got := convertReceipt(raw)

	assert.Equal(t, raw.TxHash.Hex(), got.TxHash)
	assert.EqualValues(t, 1, got.Status)
	require.Len(t, got.Logs, 1)
	assert.Equal(t, "0xBd3fa81B58Ba92a82136038B25aDec7066af3155", got.Logs[0].Address)
	assert.Equal(t, []string{common.HexToHash("0xaa").Hex(), common.HexToHash("0xbb").Hex()}, got.Logs[0].Topics)
	assert.Equal(t, []byte{0x01, 0x02}, got.Logs[0].Data)
}
