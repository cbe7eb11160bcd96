package wallet

import (
	"fmt"

	"github.com/Klingon-tech/klingwallet/internal/chain"
	"github.com/Klingon-tech/klingwallet/internal/log"
)

// Discovery bounds. The cap and iteration limit keep a pathological or
// corrupt history from growing the derivation set without bound; hitting
// either is reported to the caller instead of failing.
const (
	// DefaultGapLimit is the standard HD wallet gap limit.
	DefaultGapLimit = 20

	// discoveryInitialBatch is the smallest first-iteration batch size.
	discoveryInitialBatch = 100

	// discoveryMaxIterations bounds the expansion loop.
	discoveryMaxIterations = 15

	// discoveryAddressCap bounds addresses derived per chain.
	discoveryAddressCap = 10000
)

// HistoryAddress is one address appearing in a transaction, with an
// optional ownership hint from an external indexer. The hint, when present,
// wins over local address-set membership: the indexer may know about
// addresses beyond the locally derived window.
type HistoryAddress struct {
	Address string `json:"address"`
	Value   uint64 `json:"value"`
	IsMine  *bool  `json:"is_mine,omitempty"`
}

// HistoryTx is one transaction in the wallet's history.
type HistoryTx struct {
	TxID          string           `json:"txid"`
	Inputs        []HistoryAddress `json:"inputs"`
	Outputs       []HistoryAddress `json:"outputs"`
	Confirmations int64            `json:"confirmations,omitempty"`
	BlockTime     int64            `json:"block_time,omitempty"`
}

// DiscoveryResult is the converged (or best-effort) address set for a
// wallet. Converged is false when the iteration or address cap was reached
// before the gap condition held; the set is then the largest one derived.
type DiscoveryResult struct {
	Symbol     string   `json:"symbol"`
	Segwit     *Account `json:"segwit,omitempty"`
	Legacy     *Account `json:"legacy"`
	Converged  bool     `json:"converged"`
	Iterations int      `json:"iterations"`
}

// IsOwnAddress reports whether an address belongs to the wallet, preferring
// an external ownership hint over membership in the derived address set.
func IsOwnAddress(address string, hint *bool, derived map[string]struct{}) bool {
	if hint != nil {
		return *hint
	}
	_, ok := derived[address]
	return ok
}

// discoveryChain is one derivation chain being expanded: an account node
// plus role, with the addresses derived so far.
type discoveryChain struct {
	account   *Account // metadata holder; Receive/Change unused here
	acctNode  *HDKey
	params    *chain.Params
	purpose   uint32
	format    chain.AddressFormat
	role      ChainRole
	addresses []DerivedAddress
	maxUsed   int // highest index seen in history, -1 if none
}

// extend derives addresses up to size on this chain.
func (c *discoveryChain) extend(size uint32) error {
	from := uint32(len(c.addresses))
	if from >= size {
		return nil
	}
	more, err := deriveChainAddresses(c.acctNode, c.params, c.purpose, c.format, c.role, from, size)
	if err != nil {
		return err
	}
	c.addresses = append(c.addresses, more...)
	return nil
}

// required returns the minimum safe address count for this chain:
// gapLimit unused addresses past the highest used index.
func (c *discoveryChain) required(gapLimit uint32) uint32 {
	if c.maxUsed < 0 {
		return 0
	}
	return uint32(c.maxUsed) + gapLimit + 1
}

// Discover determines how many receive and change addresses must be derived
// per chain so that no address used in history lies within gapLimit of the
// highest derived index. It expands the derivation window iteratively,
// doubling until the gap condition holds, then re-derives the exact
// per-chain counts. The result is deterministic for a given (mnemonic,
// history) pair, and never shrinks when history grows.
func Discover(mnemonic string, history []HistoryTx, gapLimit, minAddresses uint32, symbol string) (*DiscoveryResult, error) {
	defer log.Benchmark("address discovery")()

	params, ok := chain.Get(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, symbol)
	}
	master, err := NewMasterFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	chains, accounts, err := discoveryChains(master, params)
	if err != nil {
		return nil, err
	}

	batch := minAddresses
	if batch < discoveryInitialBatch {
		batch = discoveryInitialBatch
	}
	if batch > discoveryAddressCap {
		batch = discoveryAddressCap
	}

	converged := false
	iterations := 0
	for ; iterations < discoveryMaxIterations; iterations++ {
		for _, c := range chains {
			if err := c.extend(batch); err != nil {
				return nil, err
			}
		}

		scanHistory(history, chains)

		target := minAddresses
		for _, c := range chains {
			if r := c.required(gapLimit); r > target {
				target = r
			}
		}
		if batch >= target {
			converged = true
			iterations++
			break
		}
		if batch >= discoveryAddressCap {
			break // cannot expand further
		}
		next := batch * 2
		if next < target {
			next = target
		}
		if next > discoveryAddressCap {
			next = discoveryAddressCap
		}
		batch = next
	}

	// Final set: exact per-chain counts, not the uniform batch size, so an
	// untouched chain stays at minAddresses. Capped when non-convergent.
	for _, c := range chains {
		count := c.required(gapLimit)
		if count < minAddresses {
			count = minAddresses
		}
		if count > discoveryAddressCap {
			count = discoveryAddressCap
		}
		if err := c.extend(count); err != nil {
			return nil, err
		}
		final := c.addresses[:count:count]
		if c.role == RoleChange {
			c.account.Change = final
		} else {
			c.account.Receive = final
		}
	}

	log.Discovery.Info().
		Str("network", params.Symbol).
		Int("transactions", len(history)).
		Int("iterations", iterations).
		Bool("converged", converged).
		Msg("discovery finished")

	res := &DiscoveryResult{
		Symbol:     params.Symbol,
		Legacy:     accounts[len(accounts)-1],
		Converged:  converged,
		Iterations: iterations,
	}
	if params.SupportsSegwit() {
		res.Segwit = accounts[0]
	}
	return res, nil
}

// discoveryChains prepares the two-to-four chains discovery iterates over:
// receive and change for the segwit account (when supported) and for the
// legacy account.
func discoveryChains(master *HDKey, params *chain.Params) ([]*discoveryChain, []*Account, error) {
	var chains []*discoveryChain
	var accounts []*Account

	purposes := []uint32{chain.PurposeLegacy}
	if params.SupportsSegwit() {
		purposes = []uint32{chain.PurposeSegwit, chain.PurposeLegacy}
	}

	for _, purpose := range purposes {
		path := params.AccountPath(purpose, 0)
		acctNode, err := master.DerivePath(path)
		if err != nil {
			return nil, nil, err
		}

		format := chain.FormatP2PKH
		version := params.LegacyHDVersion
		if purpose == chain.PurposeSegwit {
			format = chain.FormatP2WPKH
			version = *params.SegwitHDVersion
		}
		xpub, err := SerializeExtendedKey(acctNode, version)
		if err != nil {
			return nil, nil, err
		}

		acct := &Account{Path: path, ExtendedKey: xpub, Format: format}
		accounts = append(accounts, acct)
		for _, role := range []ChainRole{RoleReceive, RoleChange} {
			chains = append(chains, &discoveryChain{
				account:  acct,
				acctNode: acctNode,
				params:   params,
				purpose:  purpose,
				format:   format,
				role:     role,
				maxUsed:  -1,
			})
		}
	}
	return chains, accounts, nil
}

// scanHistory updates each chain's highest used index from the transaction
// history, honoring external ownership hints.
func scanHistory(history []HistoryTx, chains []*discoveryChain) {
	// Index all currently derived addresses.
	type position struct {
		chain int
		index int
	}
	index := make(map[string]position)
	derived := make(map[string]struct{})
	for ci, c := range chains {
		for ai, a := range c.addresses {
			index[a.Address] = position{chain: ci, index: ai}
			derived[a.Address] = struct{}{}
		}
	}

	mark := func(entries []HistoryAddress) {
		for _, e := range entries {
			if !IsOwnAddress(e.Address, e.IsMine, derived) {
				continue
			}
			// A hinted address outside the derived window has no known
			// index and cannot move the gap.
			pos, ok := index[e.Address]
			if !ok {
				continue
			}
			if pos.index > chains[pos.chain].maxUsed {
				chains[pos.chain].maxUsed = pos.index
			}
		}
	}
	for _, tx := range history {
		mark(tx.Inputs)
		mark(tx.Outputs)
	}
}
