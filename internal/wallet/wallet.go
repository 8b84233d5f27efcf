// Package wallet signs and submits deployment transactions and batched calls
// for the configured chain.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const defaultReceiptInterval = 2 * time.Second

// Call is a single contract call within a batch.
type Call struct {
	To    common.Address
	Data  []byte
	Value *big.Int
}

// DeployResult describes a mined contract-creation transaction.
type DeployResult struct {
	Address     common.Address
	TxHash      common.Hash
	BlockNumber int64
	GasUsed     uint64
}

// CallReceipt is one per-call receipt from a batch status fetch.
type CallReceipt struct {
	TxHash      common.Hash
	BlockNumber int64
	GasUsed     uint64
	Status      uint64
}

// BatchResult is the decoded wallet_getCallsStatus response. A batch with
// Pending false and no receipts never landed on chain.
type BatchResult struct {
	ID       string
	Pending  bool
	Atomic   bool
	Receipts []CallReceipt
}

// EthWallet signs with a local private key and talks to a single RPC endpoint.
type EthWallet struct {
	client  *ethclient.Client
	rpc     *rpc.Client
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
	logger  *slog.Logger

	receiptInterval time.Duration

	// Serializes nonce assignment across concurrent deploys.
	mu sync.Mutex
}

// New dials the RPC endpoint and derives the signer address from the key.
func New(ctx context.Context, rpcURL, privateKeyHex string, logger *slog.Logger) (*EthWallet, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dialing rpc: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}

	client := ethclient.NewClient(rpcClient)
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chain id: %w", err)
	}

	return &EthWallet{
		client:          client,
		rpc:             rpcClient,
		key:             key,
		address:         crypto.PubkeyToAddress(key.PublicKey),
		chainID:         chainID,
		logger:          logger,
		receiptInterval: defaultReceiptInterval,
	}, nil
}

// Address returns the signer address.
func (w *EthWallet) Address() common.Address {
	return w.address
}

// ChainID returns the chain id reported by the endpoint at dial time.
func (w *EthWallet) ChainID() *big.Int {
	return new(big.Int).Set(w.chainID)
}

// Close releases the underlying RPC connection.
func (w *EthWallet) Close() {
	w.rpc.Close()
}

// Deploy submits a contract-creation transaction carrying the bytecode with
// encoded constructor arguments appended, then waits for the receipt.
func (w *EthWallet) Deploy(ctx context.Context, bytecode, constructorArgs []byte) (*DeployResult, error) {
	data := make([]byte, 0, len(bytecode)+len(constructorArgs))
	data = append(data, bytecode...)
	data = append(data, constructorArgs...)

	w.mu.Lock()
	signedTx, err := w.signCreationTx(ctx, data)
	w.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := w.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("sending transaction: %w", err)
	}
	w.logger.Info("deployment transaction sent", "tx", signedTx.Hash().Hex())

	receipt, err := w.WaitReceipt(ctx, signedTx.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, fmt.Errorf("deployment transaction %s reverted", signedTx.Hash().Hex())
	}

	return &DeployResult{
		Address:     receipt.ContractAddress,
		TxHash:      signedTx.Hash(),
		BlockNumber: receipt.BlockNumber.Int64(),
		GasUsed:     receipt.GasUsed,
	}, nil
}

func (w *EthWallet) signCreationTx(ctx context.Context, data []byte) (*types.Transaction, error) {
	nonce, err := w.client.PendingNonceAt(ctx, w.address)
	if err != nil {
		return nil, fmt.Errorf("fetching nonce: %w", err)
	}

	gasPrice, err := w.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching gas price: %w", err)
	}

	gasLimit, err := w.client.EstimateGas(ctx, ethereum.CallMsg{
		From: w.address,
		Data: data,
	})
	if err != nil {
		return nil, fmt.Errorf("estimating gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(w.chainID), w.key)
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	return signedTx, nil
}

// WaitReceipt polls for the transaction receipt until the context ends.
func (w *EthWallet) WaitReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(w.receiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("fetching receipt: %w", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// CodeAt returns the runtime bytecode at the address.
func (w *EthWallet) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	return w.client.CodeAt(ctx, address, nil)
}

type sendCallsCall struct {
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
}

type sendCallsParams struct {
	Version        string          `json:"version"`
	ChainID        hexutil.Big     `json:"chainId"`
	From           common.Address  `json:"from"`
	AtomicRequired bool            `json:"atomicRequired"`
	Calls          []sendCallsCall `json:"calls"`
}

// SendBatch submits the calls as one atomic batch via wallet_sendCalls and
// returns the batch identifier. Call order is the execution order.
func (w *EthWallet) SendBatch(ctx context.Context, calls []Call) (string, error) {
	if len(calls) == 0 {
		return "", fmt.Errorf("empty batch")
	}

	params := sendCallsParams{
		Version:        "2.0.0",
		ChainID:        hexutil.Big(*w.chainID),
		From:           w.address,
		AtomicRequired: true,
		Calls:          make([]sendCallsCall, 0, len(calls)),
	}
	for _, c := range calls {
		to := c.To
		sc := sendCallsCall{To: &to, Data: c.Data}
		if c.Value != nil && c.Value.Sign() > 0 {
			sc.Value = (*hexutil.Big)(c.Value)
		}
		params.Calls = append(params.Calls, sc)
	}

	// Older wallets answer with a bare id string, current ones with an
	// object carrying the id.
	var raw json.RawMessage
	if err := w.rpc.CallContext(ctx, &raw, "wallet_sendCalls", params); err != nil {
		return "", fmt.Errorf("sending batch: %w", err)
	}

	var envelope struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.ID != "" {
		return envelope.ID, nil
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil && id != "" {
		return id, nil
	}
	return "", fmt.Errorf("parsing batch id from %s", raw)
}

type callsStatusResponse struct {
	ID       string          `json:"id"`
	Status   json.RawMessage `json:"status"`
	Atomic   bool            `json:"atomic"`
	Receipts []struct {
		TransactionHash common.Hash    `json:"transactionHash"`
		BlockNumber     hexutil.Uint64 `json:"blockNumber"`
		GasUsed         hexutil.Uint64 `json:"gasUsed"`
		Status          hexutil.Uint64 `json:"status"`
	} `json:"receipts"`
}

// BatchStatus fetches the current receipt set for a batch id.
func (w *EthWallet) BatchStatus(ctx context.Context, batchID string) (*BatchResult, error) {
	var resp callsStatusResponse
	if err := w.rpc.CallContext(ctx, &resp, "wallet_getCallsStatus", batchID); err != nil {
		return nil, fmt.Errorf("fetching batch status: %w", err)
	}

	result := &BatchResult{
		ID:      batchID,
		Pending: isPendingStatus(resp.Status),
		Atomic:  resp.Atomic,
	}
	for _, r := range resp.Receipts {
		result.Receipts = append(result.Receipts, CallReceipt{
			TxHash:      r.TransactionHash,
			BlockNumber: int64(r.BlockNumber),
			GasUsed:     uint64(r.GasUsed),
			Status:      uint64(r.Status),
		})
	}
	return result, nil
}

// isPendingStatus handles both status encodings in the wild: a numeric code
// where 100 means pending, and the older PENDING string.
func isPendingStatus(raw json.RawMessage) bool {
	var code int
	if err := json.Unmarshal(raw, &code); err == nil {
		return code == 100
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.EqualFold(s, "PENDING")
	}
	return false
}
