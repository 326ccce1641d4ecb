package alchemy

import (
	"aiwallet/aiwallet/utils/logging"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxTransfers = 20

var baseCategories = []string{"external", "erc20"}

// Networks where alchemy_getAssetTransfers serves the internal category.
var internalNetworks = map[string]bool{
	"eth-mainnet":     true,
	"polygon-mainnet": true,
}

// TransferCategories lists the transfer categories to query on network.
// Sends made by the wallet contract are internal transfers, so outgoing
// payments are only listed where the internal category is served.
func TransferCategories(network string) []string {
	cats := append([]string(nil), baseCategories...)
	if internalNetworks[network] {
		cats = append(cats, "internal")
	}
	return cats
}

// AssetTransfer is one entry of alchemy_getAssetTransfers.
type AssetTransfer struct {
	UniqueID string   `json:"uniqueId"`
	BlockNum string   `json:"blockNum"`
	Hash     string   `json:"hash"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Value    *float64 `json:"value"`
	Asset    string   `json:"asset"`
	Category string   `json:"category"`
	Metadata struct {
		BlockTimestamp string `json:"blockTimestamp"`
	} `json:"metadata"`
}

// Block decodes the hex block number, zero when malformed.
func (t AssetTransfer) Block() uint64 {
	n, err := hexutil.DecodeUint64(t.BlockNum)
	if err != nil {
		return 0
	}
	return n
}

type TokenBalance struct {
	ContractAddress string `json:"contractAddress"`
	TokenBalance    string `json:"tokenBalance"`
	Error           string `json:"error,omitempty"`
}

// TransferQuery mirrors the request object of alchemy_getAssetTransfers.
type TransferQuery struct {
	FromBlock    string   `json:"fromBlock"`
	ToBlock      string   `json:"toBlock"`
	FromAddress  string   `json:"fromAddress,omitempty"`
	ToAddress    string   `json:"toAddress,omitempty"`
	Category     []string `json:"category"`
	WithMetadata bool     `json:"withMetadata"`
	MaxCount     string   `json:"maxCount,omitempty"`
	Order        string   `json:"order,omitempty"`
}

type transfersResult struct {
	Transfers []AssetTransfer `json:"transfers"`
	PageKey   string          `json:"pageKey,omitempty"`
}

type tokenBalancesResult struct {
	Address       string         `json:"address"`
	TokenBalances []TokenBalance `json:"tokenBalances"`
}

// Activity is the combined chain view shown for a wallet.
type Activity struct {
	Transfers     []AssetTransfer `json:"transactions"`
	TokenBalances []TokenBalance  `json:"tokenBalances"`
	LatestBlock   uint64          `json:"latestBlock"`
}

// Client talks to the Alchemy enhanced JSON-RPC API.
type Client struct {
	rpc        *rpc.Client
	categories []string
}

// NewClient shares an existing connection; the caller closes it.
func NewClient(c *rpc.Client, network string) *Client {
	return &Client{rpc: c, categories: TransferCategories(network)}
}

func NewTransferQuery(maxCount int, categories []string) TransferQuery {
	if maxCount <= 0 {
		maxCount = DefaultMaxTransfers
	}
	return TransferQuery{
		FromBlock:    "0x0",
		ToBlock:      "latest",
		Category:     categories,
		WithMetadata: true,
		MaxCount:     hexutil.EncodeUint64(uint64(maxCount)),
		Order:        "desc",
	}
}

func (c *Client) AssetTransfers(ctx context.Context, q TransferQuery) ([]AssetTransfer, error) {
	var res transfersResult
	if err := c.rpc.CallContext(ctx, &res, "alchemy_getAssetTransfers", q); err != nil {
		return nil, fmt.Errorf("alchemy_getAssetTransfers: %w", err)
	}
	return res.Transfers, nil
}

// Transfers returns transfers sent from and received by address, newest first,
// without duplicates, capped at maxCount.
func (c *Client) Transfers(ctx context.Context, address string, maxCount int) ([]AssetTransfer, error) {
	defer logging.LogDuration(ctx, "alchemy_transfers")()

	sent, received := NewTransferQuery(maxCount, c.categories), NewTransferQuery(maxCount, c.categories)
	sent.FromAddress = address
	received.ToAddress = address

	var out, in []AssetTransfer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out, err = c.AssetTransfers(gctx, sent)
		return err
	})
	g.Go(func() (err error) {
		in, err = c.AssetTransfers(gctx, received)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergeTransfers(out, in, maxCount), nil
}

func mergeTransfers(a, b []AssetTransfer, maxCount int) []AssetTransfer {
	if maxCount <= 0 {
		maxCount = DefaultMaxTransfers
	}
	seen := make(map[string]bool, len(a)+len(b))
	merged := make([]AssetTransfer, 0, len(a)+len(b))
	for _, t := range append(append([]AssetTransfer{}, a...), b...) {
		key := t.UniqueID
		if key == "" {
			key = strings.ToLower(t.Hash) + ":" + t.Category
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, t)
	}
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Block() > merged[j].Block() })
	if len(merged) > maxCount {
		merged = merged[:maxCount]
	}
	return merged
}

func (c *Client) TokenBalances(ctx context.Context, address string) ([]TokenBalance, error) {
	var res tokenBalancesResult
	if err := c.rpc.CallContext(ctx, &res, "alchemy_getTokenBalances", address, "erc20"); err != nil {
		return nil, fmt.Errorf("alchemy_getTokenBalances: %w", err)
	}
	return res.TokenBalances, nil
}

func (c *Client) LatestBlock(ctx context.Context) (uint64, error) {
	var n hexutil.Uint64
	if err := c.rpc.CallContext(ctx, &n, "eth_blockNumber"); err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}
	return uint64(n), nil
}

// Activity loads transfers, token balances and the head block concurrently.
// Token balances are best effort; the other two are required.
func (c *Client) Activity(ctx context.Context, address string, maxCount int) (Activity, error) {
	var a Activity
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a.Transfers, err = c.Transfers(gctx, address, maxCount)
		return err
	})
	g.Go(func() error {
		balances, err := c.TokenBalances(gctx, address)
		if err != nil {
			logging.AppLogger.Warn("token balances unavailable", zap.String("address", address), zap.Error(err))
			return nil
		}
		a.TokenBalances = balances
		return nil
	})
	g.Go(func() (err error) {
		a.LatestBlock, err = c.LatestBlock(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Activity{}, err
	}
	if a.Transfers == nil {
		a.Transfers = []AssetTransfer{}
	}
	if a.TokenBalances == nil {
		a.TokenBalances = []TokenBalance{}
	}
	return a, nil
}
