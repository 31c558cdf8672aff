// Package yieldpool reads stake positions from the fixed-yield pool
// contract over JSON-RPC.
package yieldpool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/fixedyield/internal/domain"
)

// ClientConfig holds the chain endpoint and contract location.
type ClientConfig struct {
	RPCURL      string
	PoolAddress string
	CallTimeout time.Duration
}

// Client implements domain.PositionLedger against the pool contract.
type Client struct {
	caller  ethereum.ContractCaller
	pool    common.Address
	abi     abi.ABI
	timeout time.Duration
	closeFn func()
	logger  *slog.Logger
}

// Dial connects to the RPC endpoint in cfg and returns a Client.
func Dial(ctx context.Context, cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("yieldpool: dial %s: %w", cfg.RPCURL, err)
	}
	c, err := NewClient(ec, cfg.PoolAddress, cfg.CallTimeout, logger)
	if err != nil {
		ec.Close()
		return nil, err
	}
	c.closeFn = ec.Close
	return c, nil
}

// NewClient builds a Client over an existing contract caller.
func NewClient(caller ethereum.ContractCaller, poolAddress string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	if !common.IsHexAddress(poolAddress) {
		return nil, fmt.Errorf("yieldpool: invalid pool address %q", poolAddress)
	}
	parsed, err := abi.JSON(strings.NewReader(poolABI))
	if err != nil {
		return nil, fmt.Errorf("yieldpool: parse abi: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		caller:  caller,
		pool:    common.HexToAddress(poolAddress),
		abi:     parsed,
		timeout: timeout,
		closeFn: func() {},
		logger:  logger.With(slog.String("component", "yieldpool")),
	}, nil
}

// ActivePositions calls getActivePositions() at the latest block.
func (c *Client) ActivePositions(ctx context.Context) ([]domain.RawPosition, error) {
	data, err := c.abi.Pack(methodActivePositions)
	if err != nil {
		return nil, fmt.Errorf("yieldpool: pack %s: %w", methodActivePositions, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &c.pool, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("yieldpool: call %s: %w", methodActivePositions, err)
	}
	if len(out) == 0 {
		// No code at the address or the node returned nothing.
		return nil, fmt.Errorf("yieldpool: call %s: %w", methodActivePositions, domain.ErrNoLedgerData)
	}

	values, err := c.abi.Unpack(methodActivePositions, out)
	if err != nil {
		return nil, fmt.Errorf("yieldpool: unpack %s: %w", methodActivePositions, err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("yieldpool: unpack %s: got %d values", methodActivePositions, len(values))
	}

	tuples := *abi.ConvertType(values[0], new([]positionTuple)).(*[]positionTuple)

	positions := make([]domain.RawPosition, 0, len(tuples))
	for _, t := range tuples {
		positions = append(positions, domain.RawPosition{
			ID:              t.Id,
			PositionAddress: t.PositionAddress.Hex(),
			Amount:          t.Amount,
			LockDuration:    t.LockDuration,
			StartTime:       t.StartTime,
		})
	}

	c.logger.DebugContext(ctx, "fetched active positions",
		slog.Int("count", len(positions)),
		slog.String("pool", c.pool.Hex()),
	)
	return positions, nil
}

// Close releases the RPC connection when the client was created by Dial.
func (c *Client) Close() {
	c.closeFn()
}

// Compile-time interface check.
var _ domain.PositionLedger = (*Client)(nil)
