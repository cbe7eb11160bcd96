// Package txbuilder constructs, balances and signs transactions spending
// arbitrary unspent outputs on BTC-family networks.
package txbuilder

import "errors"

// Build errors. Each validation failure carries the offending address,
// outpoint or index so the caller can render an actionable message.
var (
	ErrNoInputsSelected         = errors.New("no inputs selected")
	ErrNoOutputsOrChange        = errors.New("transaction needs at least one output or a change address")
	ErrUnsupportedOutputAddress = errors.New("unsupported output address")
	ErrUnsupportedInputAddress  = errors.New("unsupported input address")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrNoValueRemaining         = errors.New("no value remaining after fee")
	ErrMissingDerivationPath    = errors.New("missing derivation path for input")
	ErrMissingPrevTx            = errors.New("missing previous transaction for legacy input")
	ErrOutputsExceedInputs      = errors.New("outputs exceed inputs")
)

// Utxo is an unspent output selected for spending. Values are integers in
// the smallest unit; no monetary amount in this package is ever a float.
type Utxo struct {
	TxID    string `json:"txid"`
	Vout    uint32 `json:"vout"`
	Value   uint64 `json:"value"`
	Address string `json:"address"`

	// Path is the UTXO's own derivation path when the supplier knows it
	// (e.g. a server-side indexer); otherwise the builder resolves the
	// path through the address lookup table.
	Path string `json:"path,omitempty"`

	// RawTx is the hex of the full previous transaction. Required only for
	// P2PKH inputs, whose legacy signature hash covers the spent output's
	// script from within that transaction.
	RawTx string `json:"raw_tx,omitempty"`

	Confirmations int64 `json:"confirmations,omitempty"`
}

// Output is a requested transaction output.
type Output struct {
	Address string `json:"address"`
	Value   uint64 `json:"value"`
}

// Result is a fully signed transaction with its cost breakdown.
type Result struct {
	Raw   []byte `json:"-"`
	Hex   string `json:"hex"`
	TxID  string `json:"txid"`
	Fee   uint64 `json:"fee"`
	VSize int    `json:"vsize"` // from the actual serialized transaction

	TotalIn  uint64 `json:"total_in"`
	TotalOut uint64 `json:"total_out"`

	// Change is the synthesized change output, nil when none was added.
	Change *Output `json:"change,omitempty"`

	// Outputs is the full output list in final order (requested, then
	// change).
	Outputs []Output `json:"outputs"`

	// EffectiveFeeRate is Fee/VSize. It deviates from the requested rate
	// by the size-estimation error, typically a few percent; it exists for
	// reporting only and takes no part in any monetary computation.
	EffectiveFeeRate float64 `json:"effective_fee_rate"`
}
