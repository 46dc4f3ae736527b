package chain

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus is the normalized chain status of a transaction.
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusConfirmed TxStatus = "confirmed"
	StatusFailed    TxStatus = "failed"
)

// NormalizeStatus folds the RPC's status vocabulary into the three states
// verification cares about. Anything unrecognised is treated as pending.
func NormalizeStatus(raw string) TxStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "confirmed":
		return StatusConfirmed
	case "failed", "rejected", "dropped":
		return StatusFailed
	default:
		return StatusPending
	}
}

// Transaction is a read-only view of an on-chain transfer.
type Transaction struct {
	Hash      string
	From      string
	To        string
	Amount    decimal.Decimal
	AmountRaw string
	Nonce     uint64
	Message   string
	Epoch     uint64
	Timestamp time.Time
	Status    TxStatus
}

func (t *Transaction) IsConfirmed() bool { return t.Status == StatusConfirmed }
func (t *Transaction) IsFailed() bool    { return t.Status == StatusFailed }

// Balance is an address balance in display units plus the raw integer string.
type Balance struct {
	Balance    decimal.Decimal
	BalanceRaw string
}

// wire shapes returned by the RPC.
type rpcTransaction struct {
	ParsedTx struct {
		From      string  `json:"from"`
		To        string  `json:"to"`
		Amount    string  `json:"amount"`
		AmountRaw string  `json:"amount_raw"`
		Nonce     uint64  `json:"nonce"`
		OU        string  `json:"ou"`
		Timestamp float64 `json:"timestamp"`
		Message   string  `json:"message"`
	} `json:"parsed_tx"`
	Status string `json:"status"`
	Epoch  uint64 `json:"epoch"`
	TxHash string `json:"tx_hash"`
	Data   string `json:"data"`
	Source string `json:"source"`
}

type rpcBalance struct {
	Balance    string `json:"balance"`
	BalanceRaw string `json:"balance_raw"`
}

type rpcTransactionList struct {
	Transactions []rpcTransaction `json:"transactions"`
}

func (r *rpcTransaction) toTransaction(fallbackHash string) (*Transaction, error) {
	amount := decimal.Zero
	if s := strings.TrimSpace(r.ParsedTx.Amount); s != "" {
		a, err := decimal.NewFromString(s)
		if err != nil {
			return nil, err
		}
		amount = a
	}
	hash := r.TxHash
	if hash == "" {
		hash = fallbackHash
	}
	return &Transaction{
		Hash:      hash,
		From:      r.ParsedTx.From,
		To:        r.ParsedTx.To,
		Amount:    amount,
		AmountRaw: r.ParsedTx.AmountRaw,
		Nonce:     r.ParsedTx.Nonce,
		Message:   r.ParsedTx.Message,
		Epoch:     r.Epoch,
		Timestamp: unixFloat(r.ParsedTx.Timestamp),
		Status:    NormalizeStatus(r.Status),
	}, nil
}

func unixFloat(ts float64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}
