// Package chain defines per-network parameters for the supported
// UTXO chains. All values are hardcoded here - no external configuration.
package chain

import (
	"fmt"
	"sort"
	"strings"
)

// AddressFormat identifies the script type an address encodes.
type AddressFormat string

const (
	// FormatP2WPKH is a native segwit pay-to-witness-pubkey-hash address.
	FormatP2WPKH AddressFormat = "p2wpkh"

	// FormatP2PKH is a legacy pay-to-pubkey-hash address.
	FormatP2PKH AddressFormat = "p2pkh"
)

// BIP32 purpose constants for the two account types we derive.
const (
	PurposeSegwit = 84 // BIP-84, native segwit accounts
	PurposeLegacy = 44 // BIP-44, legacy accounts
)

// Params contains all wallet-relevant parameters for one network.
// Instances are immutable after registration.
type Params struct {
	Symbol   string // BTC, LTC, DOGE, DASH
	Name     string // Bitcoin, Litecoin, ...
	Testnet  bool
	CoinType uint32 // BIP-44 coin type (testnets use 1)

	// Address encoding.
	PubKeyHashID byte   // base58check version for P2PKH addresses
	Bech32HRP    string // bech32 prefix; empty means no segwit support
	WIF          byte   // WIF private key version

	// Extended public key version bytes for serialization.
	// SegwitHDVersion is nil for networks without segwit support.
	SegwitHDVersion *[4]byte // zpub-class prefix bytes
	LegacyHDVersion [4]byte  // xpub-class prefix bytes

	// Human-readable extended key prefixes, used for detection and labeling
	// only. SegwitPrefix is empty when SegwitHDVersion is nil.
	SegwitPrefix string // "zpub", "Mtub", ...
	LegacyPrefix string // "xpub", "Ltub", "dgub", ...
}

// SupportsSegwit reports whether the network has native segwit addresses.
func (p *Params) SupportsSegwit() bool {
	return p.Bech32HRP != ""
}

// AccountPath returns the hardened account derivation path for the given
// purpose, e.g. "m/84'/0'/0'".
func (p *Params) AccountPath(purpose, account uint32) string {
	return fmt.Sprintf("m/%d'/%d'/%d'", purpose, p.CoinType, account)
}

// AddressPath returns the full derivation path of a single address,
// e.g. "m/84'/0'/0'/0/5". change is 0 for receive, 1 for change.
func (p *Params) AddressPath(purpose, account, change, index uint32) string {
	return fmt.Sprintf("m/%d'/%d'/%d'/%d/%d", purpose, p.CoinType, account, change, index)
}

// registry holds all registered networks keyed by upper-case symbol.
var registry = make(map[string]*Params)

// Register adds a network to the registry. It panics on duplicate symbols
// or inconsistent segwit parameters; registration happens only from init()
// with hardcoded values, so a panic is a programming error, not a runtime
// condition.
func Register(p *Params) {
	key := strings.ToUpper(p.Symbol)
	if _, dup := registry[key]; dup {
		panic(fmt.Sprintf("chain: duplicate registration of %s", key))
	}
	// A bech32 prefix and segwit HD version bytes come as a pair.
	if (p.Bech32HRP != "") != (p.SegwitHDVersion != nil) {
		panic(fmt.Sprintf("chain: %s: bech32 HRP and segwit HD version must both be set or both be absent", key))
	}
	if (p.SegwitPrefix != "") != (p.SegwitHDVersion != nil) {
		panic(fmt.Sprintf("chain: %s: segwit display prefix and segwit HD version must both be set or both be absent", key))
	}
	registry[key] = p
}

// Get looks up a network by symbol (case-insensitive).
func Get(symbol string) (*Params, bool) {
	p, ok := registry[strings.ToUpper(symbol)]
	return p, ok
}

// Symbols returns all registered network symbols, sorted.
func Symbols() []string {
	out := make([]string, 0, len(registry))
	for s := range registry {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// All returns all registered networks in symbol order.
func All() []*Params {
	syms := Symbols()
	out := make([]*Params, 0, len(syms))
	for _, s := range syms {
		out = append(out, registry[s])
	}
	return out
}
