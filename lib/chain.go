package lib

import (
	"context"
	"crypto/ecdsa"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

var ZERO = Bn(0, 0)
var ONE = Bn(1, 18)
var ADDRESS_ZERO = "0x0000000000000000000000000000000000000000"

// ErrLedgerUnavailable is returned when the ledger can't be reached on any
// configured endpoint. Callers must not treat it as "no payment found".
var ErrLedgerUnavailable = errors.New("ChainClient: ledger unavailable")

type BigInt big.Int

func (b *BigInt) Value() (driver.Value, error) {
	if b != nil {
		return (*big.Int)(b).String(), nil
	}
	return nil, nil
}

func (b *BigInt) Scan(value interface{}) error {
	if value == nil {
		b = nil
	}
	s := ""
	switch t := value.(type) {
	case []uint8:
		s = string(t)
	case string:
		s = t
	default:
		return fmt.Errorf("Could not scan type %T into BigInt", t)
	}
	f, _, err := big.ParseFloat(s, 10, 0, big.ToNearestEven)
	if err != nil {
		return fmt.Errorf("failed to parse bigint value: %v", value)
	}
	f.Int((*big.Int)(b))
	return nil
}

func (b *BigInt) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte(`"0"`), nil
	}
	return json.Marshal(b.String())
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	if _, ok := (*big.Int)(b).SetString(s, 10); !ok {
		return fmt.Errorf("failed to parse bigint %s", s)
	}
	return nil
}

func (b *BigInt) Eq(a *BigInt) bool {
	return (*big.Int)(b).Cmp((*big.Int)(a)) == 0
}

func (b *BigInt) Gt(a *BigInt) bool {
	return (*big.Int)(b).Cmp((*big.Int)(a)) == 1
}

func (b *BigInt) Gte(a *BigInt) bool {
	return (*big.Int)(b).Cmp((*big.Int)(a)) >= 0
}

func (b *BigInt) Lt(a *BigInt) bool {
	return (*big.Int)(b).Cmp((*big.Int)(a)) == -1
}

func (b *BigInt) Lte(a *BigInt) bool {
	cmp := (*big.Int)(b).Cmp((*big.Int)(a))
	return cmp == 0 || cmp == -1
}

func (b *BigInt) Add(a *BigInt) *BigInt {
	return (*BigInt)((&big.Int{}).Add((*big.Int)(b), (*big.Int)(a)))
}

func (b *BigInt) Sub(a *BigInt) *BigInt {
	return (*BigInt)((&big.Int{}).Sub((*big.Int)(b), (*big.Int)(a)))
}

func (b *BigInt) Mul(a *BigInt) *BigInt {
	return (*BigInt)((&big.Int{}).Mul((*big.Int)(b), (*big.Int)(a)))
}

func (b *BigInt) Div(a *BigInt) *BigInt {
	return (*BigInt)((&big.Int{}).Div((*big.Int)(b), (*big.Int)(a)))
}

func (b *BigInt) Std() *big.Int {
	return (*big.Int)(b)
}

func (b *BigInt) Float() float64 {
	return StringToFloat(b.String())
}

func (b *BigInt) String() string {
	return (*big.Int)(b).String()
}

func Bn(num int64, base int64) *BigInt {
	x := big.NewInt(0).Exp(big.NewInt(10), big.NewInt(base), nil)
	n := big.NewInt(num)
	return (*BigInt)(n.Mul(n, x))
}

func Bnf(num float64, base int64) *BigInt {
	x := big.NewInt(0).Exp(big.NewInt(10), big.NewInt(base), nil)
	n := big.NewInt(int64(num * 1000000000))
	n.Mul(n, x)
	n.Div(n, big.NewInt(1000000000))
	return (*BigInt)(n)
}

func Bns(s string) *BigInt {
	b := new(big.Int)
	_, ok := b.SetString(s, 10)
	if !ok {
		panic(fmt.Errorf("Bns: error parsing bigint: %s", s))
	}
	return (*BigInt)(b)
}

func Bnw(b *big.Int) *BigInt {
	return (*BigInt)(b)
}

// Transaction is the ledger's view of a transfer touching a watched address.
// Amount is the balance delta observed on that address across the containing
// block, never a number copied out of transaction metadata.
type Transaction struct {
	Ref    string    `json:"ref"`
	From   string    `json:"from"`
	To     string    `json:"to"`
	Amount *BigInt   `json:"amount"`
	Failed bool      `json:"failed"`
	Time   time.Time `json:"time"`
	Memo   string    `json:"memo"`
}

// ChainClient talks to the payment ledger over one or more RPC endpoints,
// rotating to the next endpoint when the current one errors.
type ChainClient struct {
	ChainID   *big.Int
	endpoints []string
	mu        sync.Mutex
	current   int
	client    *ethclient.Client
}

func NewChainClient() *ChainClient {
	c := &ChainClient{}
	c.ChainID = big.NewInt(EnvInt("CHAIN_ID", 42161))
	c.endpoints = []string{Env("RPC_URL", "https://arb1.arbitrum.io/rpc")}
	for _, url := range strings.Split(Env("RPC_URL_FALLBACKS", ""), ",") {
		if url = strings.TrimSpace(url); url != "" {
			c.endpoints = append(c.endpoints, url)
		}
	}
	client, err := ethclient.Dial(c.endpoints[0])
	Check(err)
	c.client = client
	return c
}

// withClient runs fn against the current endpoint, rotating through the
// alternates with a short backoff when it errors. Bounded to one pass over
// the endpoint list, then ErrLedgerUnavailable.
func (c *ChainClient) withClient(fn func(client *ethclient.Client) error) error {
	var lastErr error
	for i := 0; i < len(c.endpoints); i++ {
		c.mu.Lock()
		client := c.client
		c.mu.Unlock()
		err := fn(client)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
		lastErr = err
		c.rotate()
		time.Sleep(250 * time.Millisecond)
	}
	return fmt.Errorf("%w: %v", ErrLedgerUnavailable, lastErr)
}

func (c *ChainClient) rotate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = (c.current + 1) % len(c.endpoints)
	if client, err := ethclient.Dial(c.endpoints[c.current]); err == nil {
		c.client = client
	}
}

func (c *ChainClient) Balance(ctx context.Context, address string) (*BigInt, error) {
	var balance *big.Int
	err := c.withClient(func(client *ethclient.Client) error {
		var err error
		balance, err = client.BalanceAt(ctx, common.HexToAddress(address), nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return Bnw(balance), nil
}

// RecentTransactions scans the last LEDGER_SCAN_BLOCKS blocks, newest first,
// for transactions sent to the given address, computing each one's amount
// from the address's pre/post block balances.
func (c *ChainClient) RecentTransactions(ctx context.Context, address string, limit int) ([]*Transaction, error) {
	addr := common.HexToAddress(address)
	txs := []*Transaction{}
	err := c.withClient(func(client *ethclient.Client) error {
		head, err := client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		last := head.Number.Int64()
		first := last - EnvInt("LEDGER_SCAN_BLOCKS", 120)
		if first < 1 {
			first = 1
		}
		txs = txs[:0]
		for n := last; n >= first && len(txs) < limit; n-- {
			block, err := client.BlockByNumber(ctx, big.NewInt(n))
			if err != nil {
				return err
			}
			touching := []*types.Transaction{}
			for _, tx := range block.Transactions() {
				if tx.To() != nil && *tx.To() == addr {
					touching = append(touching, tx)
				}
			}
			if len(touching) == 0 {
				continue
			}
			pre, err := client.BalanceAt(ctx, addr, big.NewInt(n-1))
			if err != nil {
				return err
			}
			post, err := client.BalanceAt(ctx, addr, big.NewInt(n))
			if err != nil {
				return err
			}
			delta := new(big.Int).Sub(post, pre)
			values := make([]*big.Int, len(touching))
			failed := make([]bool, len(touching))
			for i, tx := range touching {
				receipt, err := client.TransactionReceipt(ctx, tx.Hash())
				if err != nil {
					return err
				}
				values[i] = tx.Value()
				failed[i] = receipt.Status != types.ReceiptStatusSuccessful
			}
			amounts := creditAmounts(delta, values, failed)
			for i, tx := range touching {
				from, _ := types.Sender(types.LatestSignerForChainID(c.ChainID), tx)
				txs = append(txs, &Transaction{
					Ref:    tx.Hash().Hex(),
					From:   from.Hex(),
					To:     addr.Hex(),
					Amount: Bnw(amounts[i]),
					Failed: failed[i],
					Time:   time.Unix(int64(block.Time()), 0).UTC(),
					Memo:   txMemo(tx.Data()),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}

// creditAmounts assigns each incoming transfer in a block the amount to
// credit it with. The address's balance delta over the block is
// authoritative: a lone successful transfer gets the full delta, multiple
// transfers get their stated value capped so the block's total credit never
// exceeds the delta. Failed transfers moved nothing and credit nothing.
func creditAmounts(delta *big.Int, values []*big.Int, failed []bool) []*big.Int {
	amounts := make([]*big.Int, len(values))
	succeeded := 0
	for _, f := range failed {
		if !f {
			succeeded++
		}
	}
	remaining := new(big.Int).Set(delta)
	for i, value := range values {
		if failed[i] {
			amounts[i] = new(big.Int)
			continue
		}
		if succeeded == 1 {
			amounts[i] = new(big.Int).Set(delta)
			continue
		}
		amount := new(big.Int).Set(value)
		if amount.Cmp(remaining) > 0 {
			amount.Set(remaining)
		}
		if amount.Sign() < 0 {
			amount.SetInt64(0)
		}
		remaining.Sub(remaining, amount)
		amounts[i] = amount
	}
	return amounts
}

func (c *ChainClient) Transaction(ctx context.Context, ref string) (*Transaction, error) {
	var result *Transaction
	err := c.withClient(func(client *ethclient.Client) error {
		hash := common.HexToHash(ref)
		tx, pending, err := client.TransactionByHash(ctx, hash)
		if err != nil {
			return err
		}
		if pending {
			result = nil
			return nil
		}
		receipt, err := client.TransactionReceipt(ctx, hash)
		if err != nil {
			return err
		}
		header, err := client.HeaderByNumber(ctx, receipt.BlockNumber)
		if err != nil {
			return err
		}
		to := ""
		if tx.To() != nil {
			to = tx.To().Hex()
		}
		from, _ := types.Sender(types.LatestSignerForChainID(c.ChainID), tx)
		result = &Transaction{
			Ref:    tx.Hash().Hex(),
			From:   from.Hex(),
			To:     to,
			Amount: Bnw(tx.Value()),
			Failed: receipt.Status != types.ReceiptStatusSuccessful,
			Time:   time.Unix(int64(header.Time), 0).UTC(),
			Memo:   txMemo(tx.Data()),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Transfer signs and submits a plain value transfer from the account behind
// the given key. Returns the transaction reference, the caller decides
// whether to wait on it with Confirm.
func (c *ChainClient) Transfer(ctx context.Context, key *ecdsa.PrivateKey, to string, amount *BigInt) (string, error) {
	ref := ""
	from := crypto.PubkeyToAddress(key.PublicKey)
	err := c.withClient(func(client *ethclient.Client) error {
		nonce, err := client.PendingNonceAt(ctx, from)
		if err != nil {
			return err
		}
		tip, err := client.SuggestGasTipCap(ctx)
		if err != nil {
			tip = big.NewInt(1)
		}
		head, err := client.HeaderByNumber(ctx, nil)
		if err != nil {
			return err
		}
		feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)
		toAddr := common.HexToAddress(to)
		data := &types.DynamicFeeTx{
			ChainID:   c.ChainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       21000,
			To:        &toAddr,
			Value:     amount.Std(),
		}
		tx, err := types.SignNewTx(key, types.LatestSignerForChainID(c.ChainID), data)
		if err != nil {
			return fmt.Errorf("ChainClient: signing transfer: %w", err)
		}
		if err := client.SendTransaction(ctx, tx); err != nil {
			return err
		}
		ref = tx.Hash().Hex()
		return nil
	})
	return ref, err
}

// Confirm polls for the transaction receipt until found or the timeout
// passes. Returns whether the transaction executed successfully.
func (c *ChainClient) Confirm(ctx context.Context, ref string, timeout time.Duration) (bool, error) {
	deadline := time.Now().Add(timeout)
	hash := common.HexToHash(ref)
	for time.Now().Before(deadline) {
		var receipt *types.Receipt
		err := c.withClient(func(client *ethclient.Client) error {
			var err error
			receipt, err = client.TransactionReceipt(ctx, hash)
			return err
		})
		if err == nil && receipt != nil {
			return receipt.Status == types.ReceiptStatusSuccessful, nil
		}
		if ctx.Err() != nil {
			return false, fmt.Errorf("%w: %v", ErrLedgerUnavailable, ctx.Err())
		}
		time.Sleep(2 * time.Second)
	}
	return false, fmt.Errorf("ChainClient: confirm %s: no receipt after %s", ref, timeout)
}

// txMemo interprets calldata as an optional correlator. Only short printable
// payloads qualify, anything else is contract input, not a memo.
func txMemo(data []byte) string {
	if len(data) == 0 || len(data) > 64 {
		return ""
	}
	for _, b := range data {
		if b < 32 || b > 126 {
			return ""
		}
	}
	return string(data)
}
