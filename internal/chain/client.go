// Package chain reads ERC20 token state over an EVM JSON-RPC endpoint.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// Client is a read-only view of one chain. The chain ID is fixed at dial time.
type Client struct {
	rpc     *rpc.Client
	eth     *ethclient.Client
	chainID *big.Int
}

// Dial connects to rpcURL and records the chain it serves.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	rc, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	eth := ethclient.NewClient(rc)

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		rc.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	return &Client{rpc: rc, eth: eth, chainID: chainID}, nil
}

func (c *Client) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

// ChainID returns the chain ID observed at dial time.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Head returns the current block number, so a set of reads can be pinned to it.
func (c *Client) Head(ctx context.Context) (*big.Int, error) {
	n, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("get head: %w", err)
	}
	return new(big.Int).SetUint64(n), nil
}

// call runs a read-only contract call at block, or latest when block is nil.
func (c *Client) call(ctx context.Context, to common.Address, data []byte, block *big.Int) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
}
