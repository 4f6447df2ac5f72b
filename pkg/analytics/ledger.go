// Package analytics reconstructs token holder balances from raw Transfer
// event logs and derives volume and fee figures from chain data.
//
// Balance reconstruction folds only the transfers seen inside the queried
// block window. The resulting ledger is a relative reconstruction, not an
// authoritative on-chain balance: holders whose tokens moved before the
// window are invisible, and a holder who only sent within the window shows a
// negative delta. This is a known approximation carried over deliberately.
package analytics

import (
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/vitalspace/somnia-mcp/pkg/logs"
)

// TransferTopic is the keccak256 hash of Transfer(address,address,uint256)
const TransferTopic = "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

// ZeroAddress is the canonical all-zero address. A Transfer from it is a
// mint and must not debit any balance.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// NormalizeAddress canonicalizes an address for case-insensitive comparison:
// lowercase, 0x-prefixed.
func NormalizeAddress(addr string) string {
	addr = strings.ToLower(addr)
	if !strings.HasPrefix(addr, "0x") {
		addr = "0x" + addr
	}
	return addr
}

// IsZeroAddress reports whether addr is the all-zero address, ignoring case
func IsZeroAddress(addr string) bool {
	return NormalizeAddress(addr) == ZeroAddress
}

// TransferEvent is the decoded view of an ERC20 Transfer log
type TransferEvent struct {
	From  string
	To    string
	Value *big.Int
}

// DecodeTransfer decodes an ERC20 Transfer event from raw topics and data.
// Topics[1] and topics[2] are 32-byte words left-padded with zeros; the
// address is their last 20 bytes. The value is the unsigned 256-bit integer
// in the last 32 bytes of the data payload.
func DecodeTransfer(log *logs.Log) (*TransferEvent, error) {
	if len(log.Topics) < 3 {
		return nil, fmt.Errorf("transfer log has %d topics, need 3", len(log.Topics))
	}

	from, err := topicToAddress(log.Topics[1])
	if err != nil {
		return nil, fmt.Errorf("invalid from topic: %w", err)
	}
	to, err := topicToAddress(log.Topics[2])
	if err != nil {
		return nil, fmt.Errorf("invalid to topic: %w", err)
	}

	value, err := dataToValue(log.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid transfer data: %w", err)
	}

	return &TransferEvent{From: from, To: to, Value: value}, nil
}

// topicToAddress strips the 12-byte left padding from a 32-byte topic word
func topicToAddress(topic string) (string, error) {
	hex := strings.TrimPrefix(strings.ToLower(topic), "0x")
	if len(hex) != 64 {
		return "", fmt.Errorf("topic is %d hex chars, want 64", len(hex))
	}
	return "0x" + hex[24:], nil
}

// dataToValue parses the unsigned 256-bit integer in the last 32 bytes of
// the data payload
func dataToValue(data string) (*big.Int, error) {
	hex := strings.TrimPrefix(data, "0x")
	if len(hex) < 64 {
		return nil, fmt.Errorf("data is %d hex chars, want at least 64", len(hex))
	}
	value, ok := new(big.Int).SetString(hex[len(hex)-64:], 16)
	if !ok {
		return nil, fmt.Errorf("data is not valid hex")
	}
	return value, nil
}

// Ledger maps canonical addresses to signed balance deltas accumulated from
// in-range transfers. It is request-scoped: each call owns its ledger
// exclusively and discards it with the response.
type Ledger struct {
	deltas map[string]*big.Int
	order  []string
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{
		deltas: make(map[string]*big.Int),
	}
}

func (l *Ledger) entry(addr string) *big.Int {
	addr = NormalizeAddress(addr)
	d, ok := l.deltas[addr]
	if !ok {
		d = new(big.Int)
		l.deltas[addr] = d
		l.order = append(l.order, addr)
	}
	return d
}

// Credit adds value to an address's delta
func (l *Ledger) Credit(addr string, value *big.Int) {
	d := l.entry(addr)
	d.Add(d, value)
}

// Debit subtracts value from an address's delta
func (l *Ledger) Debit(addr string, value *big.Int) {
	d := l.entry(addr)
	d.Sub(d, value)
}

// Delta returns the signed delta for an address, zero if never seen
func (l *Ledger) Delta(addr string) *big.Int {
	if d, ok := l.deltas[NormalizeAddress(addr)]; ok {
		return new(big.Int).Set(d)
	}
	return new(big.Int)
}

// Len returns the number of tracked addresses
func (l *Ledger) Len() int {
	return len(l.deltas)
}

// LedgerEntry is one address and its delta
type LedgerEntry struct {
	Address string
	Balance *big.Int
}

// PositiveEntries returns entries with delta > 0, in first-seen order.
// This is the holder set eligible for ranking.
func (l *Ledger) PositiveEntries() []LedgerEntry {
	entries := make([]LedgerEntry, 0, len(l.order))
	for _, addr := range l.order {
		d := l.deltas[addr]
		if d.Sign() > 0 {
			entries = append(entries, LedgerEntry{
				Address: addr,
				Balance: new(big.Int).Set(d),
			})
		}
	}
	return entries
}

// AggregateResult carries the folded ledger plus partial-completion
// accounting for malformed logs
type AggregateResult struct {
	Ledger        *Ledger
	TransferCount int
	TotalValue    *big.Int
	SkippedLogs   int
	Warnings      []string
}

// AggregateTransfers folds a sequence of Transfer logs into a balance
// ledger. A mint (from == zero address) credits the recipient without
// debiting anything. Malformed logs are skipped individually with a warning
// and never abort the fold. Because every step is a commutative addition the
// result is identical regardless of input order.
func AggregateTransfers(logSeq []logs.Log, logger *zap.Logger) *AggregateResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	result := &AggregateResult{
		Ledger:     NewLedger(),
		TotalValue: new(big.Int),
	}

	for i := range logSeq {
		ev, err := DecodeTransfer(&logSeq[i])
		if err != nil {
			result.SkippedLogs++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("skipped log %d (tx %s): %v", logSeq[i].LogIndex, logSeq[i].TransactionHash, err))
			logger.Warn("skipping malformed transfer log",
				zap.String("tx_hash", logSeq[i].TransactionHash),
				zap.Uint("log_index", logSeq[i].LogIndex),
				zap.Error(err))
			continue
		}

		if !IsZeroAddress(ev.From) {
			result.Ledger.Debit(ev.From, ev.Value)
		}
		result.Ledger.Credit(ev.To, ev.Value)
		result.TransferCount++
		result.TotalValue.Add(result.TotalValue, ev.Value)
		transfersDecoded.Inc()
	}

	return result
}
