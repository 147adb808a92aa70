package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"chain_reader/internal/domain/entity"
	"chain_reader/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultAggregatorAddress is the Multicall3 deployment shared by most EVM networks.
const DefaultAggregatorAddress = "0xcA11bde05977b3631167028862bE2a173976CA11"

// Multicall3 minimal part: tryAggregate and getEthBalance
const multicall3ABI = `[{"inputs":[{"internalType":"bool","name":"requireSuccess","type":"bool"},{"components":[{"internalType":"address","name":"target","type":"address"},{"internalType":"bytes","name":"callData","type":"bytes"}],"internalType":"struct Multicall3.Call[]","name":"calls","type":"tuple[]"}],"name":"tryAggregate","outputs":[{"components":[{"internalType":"bool","name":"success","type":"bool"},{"internalType":"bytes","name":"returnData","type":"bytes"}],"internalType":"struct Multicall3.Result[]","name":"returnData","type":"tuple[]"}],"stateMutability":"payable","type":"function"},{"inputs":[{"internalType":"address","name":"addr","type":"address"}],"name":"getEthBalance","outputs":[{"internalType":"uint256","name":"balance","type":"uint256"}],"stateMutability":"view","type":"function"}]`

var (
	parsedMulticallABI  abi.ABI
	parsedMulticallOnce sync.Once
)

// MulticallABI returns the parsed aggregator ABI.
func MulticallABI() abi.ABI {
	parsedMulticallOnce.Do(func() {
		var err error
		parsedMulticallABI, err = abi.JSON(strings.NewReader(multicall3ABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse multicall ABI: %v", err))
		}
	})
	return parsedMulticallABI
}

type multicallCall struct {
	Target   common.Address
	CallData []byte
}

type multicallResult struct {
	Success    bool
	ReturnData []byte
}

// ContractCaller is the part of ethclient.Client the aggregator needs.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Options tune an AggregatorClient.
type Options struct {
	ConnectionTimeout time.Duration
	RPCCallTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	// VerifyChainID checks the remote chain ID once when the client is created.
	VerifyChainID bool
}

// AggregatorClient executes batches of read calls through one tryAggregate eth_call.
type AggregatorClient struct {
	caller     ContractCaller
	netDef     entity.NetworkDefinition
	aggregator common.Address
	limiter    *rate.Limiter
	opts       Options
	logger     *zap.Logger
	metrics    *metrics.Metrics

	chainMu       sync.Mutex
	verifiedChain *big.Int
}

// NewAggregatorClient wraps an existing caller. The aggregator address comes from
// the network definition, or DefaultAggregatorAddress when it sets none.
func NewAggregatorClient(caller ContractCaller, netDef entity.NetworkDefinition, opts Options, logger *zap.Logger, m *metrics.Metrics) (*AggregatorClient, error) {
	aggregator := netDef.AggregatorAddress
	if aggregator == "" {
		aggregator = DefaultAggregatorAddress
	}
	if !common.IsHexAddress(aggregator) {
		return nil, fmt.Errorf("invalid aggregator address %q for network %s", aggregator, netDef.Name)
	}
	limiter, err := newLimiter(netDef)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RPCCallTimeout <= 0 {
		opts.RPCCallTimeout = 15 * time.Second
	}

	MulticallABI()
	return &AggregatorClient{
		caller:     caller,
		netDef:     netDef,
		aggregator: common.HexToAddress(aggregator),
		limiter:    limiter,
		opts:       opts,
		logger:     logger.Named("aggregator").With(zap.String("network", netDef.Identifier)),
		metrics:    m,
	}, nil
}

// Dial connects to the network's primary RPC URL, then each fallback in order.
func Dial(ctx context.Context, netDef entity.NetworkDefinition, opts Options, logger *zap.Logger, m *metrics.Metrics) (*AggregatorClient, error) {
	if opts.ConnectionTimeout <= 0 {
		opts.ConnectionTimeout = 10 * time.Second
	}
	rpcURLs := append([]string{netDef.PrimaryRPCURL}, netDef.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		if rpcURL == "" {
			continue
		}
		dialCtx, cancel := context.WithTimeout(ctx, opts.ConnectionTimeout)
		ethClient, err := ethclient.DialContext(dialCtx, rpcURL)
		cancel()
		if err != nil {
			lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
			continue
		}

		c, err := NewAggregatorClient(ethClient, netDef, opts, logger, m)
		if err != nil {
			ethClient.Close()
			return nil, err
		}
		if opts.VerifyChainID {
			if _, err := c.VerifyChainID(ctx); err != nil {
				ethClient.Close()
				lastErr = err
				continue
			}
		}
		return c, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no RPC URL configured")
	}
	return nil, &entity.NetworkError{Network: netDef.Name, Op: "dial", Err: lastErr}
}

func newLimiter(netDef entity.NetworkDefinition) (*rate.Limiter, error) {
	if netDef.LimiterPeriod == "" {
		return rate.NewLimiter(rate.Inf, 1), nil
	}
	period, err := time.ParseDuration(netDef.LimiterPeriod)
	if err != nil || period <= 0 {
		return nil, fmt.Errorf("invalid limiterPeriod %q for network %s", netDef.LimiterPeriod, netDef.Name)
	}
	burst := netDef.LimiterBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Every(period), burst), nil
}

// Network returns the network definition the client serves.
func (c *AggregatorClient) Network() entity.NetworkDefinition {
	return c.netDef
}

// Address returns the aggregator contract address.
func (c *AggregatorClient) Address() common.Address {
	return c.aggregator
}

// VerifyChainID asks the RPC for its chain ID and compares it with the definition.
// A successful result is cached for the life of the client.
func (c *AggregatorClient) VerifyChainID(ctx context.Context) (uint64, error) {
	c.chainMu.Lock()
	defer c.chainMu.Unlock()
	if c.verifiedChain != nil {
		return c.verifiedChain.Uint64(), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, c.opts.RPCCallTimeout)
	defer cancel()
	id, err := c.caller.ChainID(callCtx)
	if err != nil {
		return 0, &entity.NetworkError{Network: c.netDef.Name, Op: "eth_chainId", Err: err}
	}
	if c.netDef.ChainID != 0 && id.Uint64() != c.netDef.ChainID {
		return 0, &entity.NetworkError{
			Network: c.netDef.Name,
			Op:      "eth_chainId",
			Err:     fmt.Errorf("chain ID mismatch: expected %d, got %s", c.netDef.ChainID, id),
		}
	}
	c.verifiedChain = id
	return id.Uint64(), nil
}

// Aggregate submits calls as one tryAggregate(false, calls) and returns one result per call, in order.
// Transport failures are retried; a malformed response fails the whole batch immediately.
func (c *AggregatorClient) Aggregate(ctx context.Context, calls []entity.CallDescriptor) ([]entity.CallResult, error) {
	if len(calls) == 0 {
		return []entity.CallResult{}, nil
	}

	packed := make([]multicallCall, len(calls))
	for i, call := range calls {
		packed[i] = multicallCall{Target: call.Target, CallData: call.CallData}
	}
	data, err := MulticallABI().Pack("tryAggregate", false, packed)
	if err != nil {
		return nil, &entity.NetworkError{Network: c.netDef.Name, Op: "tryAggregate", Err: fmt.Errorf("pack: %w", err)}
	}

	msg := ethereum.CallMsg{To: &c.aggregator, Data: data}
	start := time.Now()

	var raw []byte
	err = withRetry(ctx, c.opts.MaxRetries, c.opts.RetryDelay, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		callCtx, cancel := context.WithTimeout(ctx, c.opts.RPCCallTimeout)
		defer cancel()

		var callErr error
		raw, callErr = c.caller.CallContract(callCtx, msg, nil)
		if callErr != nil {
			c.logger.Warn("aggregate call failed", zap.Int("calls", len(calls)), zap.Error(callErr))
		}
		return callErr
	})
	if err != nil {
		c.metrics.ObserveAggregate(c.netDef.Identifier, "transport_error", time.Since(start))
		return nil, &entity.NetworkError{Network: c.netDef.Name, Op: "eth_call", Err: err}
	}

	var results []multicallResult
	if err := MulticallABI().UnpackIntoInterface(&results, "tryAggregate", raw); err != nil {
		c.metrics.ObserveAggregate(c.netDef.Identifier, "malformed", time.Since(start))
		return nil, &entity.NetworkError{Network: c.netDef.Name, Op: "tryAggregate", Err: fmt.Errorf("unpack response: %w", err)}
	}
	if len(results) != len(calls) {
		c.metrics.ObserveAggregate(c.netDef.Identifier, "malformed", time.Since(start))
		return nil, &entity.NetworkError{
			Network: c.netDef.Name,
			Op:      "tryAggregate",
			Err:     fmt.Errorf("got %d results for %d calls", len(results), len(calls)),
		}
	}

	c.metrics.ObserveAggregate(c.netDef.Identifier, "ok", time.Since(start))
	c.logger.Debug("aggregate call completed", zap.Int("calls", len(calls)), zap.Duration("took", time.Since(start)))

	out := make([]entity.CallResult, len(results))
	for i, r := range results {
		out[i] = entity.CallResult{Success: r.Success, ReturnData: r.ReturnData}
	}
	return out, nil
}

// withRetry calls fn until it succeeds or maxRetries retries are spent, doubling the delay each time.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || ctx.Err() != nil {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
