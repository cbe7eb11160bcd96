package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingwallet/internal/chain"
	"github.com/Klingon-tech/klingwallet/internal/log"
)

// ErrUnsupportedNetwork is returned when a network symbol is not registered.
var ErrUnsupportedNetwork = errors.New("unsupported network")

// ChainRole distinguishes the receive chain (0) from the change chain (1).
type ChainRole string

const (
	RoleReceive ChainRole = "receive"
	RoleChange  ChainRole = "change"
)

// chainIndex returns the BIP-44 chain index for the role.
func (r ChainRole) chainIndex() uint32 {
	if r == RoleChange {
		return 1
	}
	return 0
}

// DerivedAddress is a single derived address with its provenance.
type DerivedAddress struct {
	Address   string              `json:"address"`
	Path      string              `json:"path"`
	PublicKey string              `json:"public_key"` // compressed, hex
	Role      ChainRole           `json:"role"`
	Format    chain.AddressFormat `json:"format"`
	Index     uint32              `json:"index"`
}

// Account is one derived account: its extended public key plus receive and
// change address lists.
type Account struct {
	Path        string              `json:"path"`
	ExtendedKey string              `json:"extended_key"`
	Format      chain.AddressFormat `json:"format"`
	Receive     []DerivedAddress    `json:"receive"`
	Change      []DerivedAddress    `json:"change"`
}

// Derivation is the aggregate result of deriving a wallet from a mnemonic.
// Segwit is nil for networks without segwit support.
type Derivation struct {
	Symbol string   `json:"symbol"`
	Segwit *Account `json:"segwit,omitempty"`
	Legacy *Account `json:"legacy"`
}

// Counts holds explicit receive and change address counts.
type Counts struct {
	Receive uint32
	Change  uint32
}

// DefaultCounts derives both counts from a single requested count:
// receive = n, change = max(2, n/2). The asymmetry is a UI convenience
// kept for output compatibility with earlier wallet tooling; callers who
// care should pass explicit Counts instead.
func DefaultCounts(n uint32) Counts {
	change := n / 2
	if change < 2 {
		change = 2
	}
	return Counts{Receive: n, Change: change}
}

// DeriveWallet derives receive and change addresses for every account type
// the network supports: a BIP-84 segwit account when the network has segwit,
// and a BIP-44 legacy account always.
func DeriveWallet(mnemonic string, counts Counts, symbol string) (*Derivation, error) {
	params, ok := chain.Get(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, symbol)
	}
	master, err := NewMasterFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	d := &Derivation{Symbol: params.Symbol}
	if params.SupportsSegwit() {
		segwit, err := deriveAccount(master, params, chain.PurposeSegwit, counts)
		if err != nil {
			return nil, err
		}
		d.Segwit = segwit
	}
	legacy, err := deriveAccount(master, params, chain.PurposeLegacy, counts)
	if err != nil {
		return nil, err
	}
	d.Legacy = legacy

	log.Wallet.Debug().
		Str("network", params.Symbol).
		Uint32("receive", counts.Receive).
		Uint32("change", counts.Change).
		Bool("segwit", d.Segwit != nil).
		Msg("derived wallet")
	return d, nil
}

// deriveAccount derives the hardened account node at m/purpose'/coin'/0',
// serializes its extended public key with the network's version bytes and
// derives the requested receive/change addresses.
func deriveAccount(master *HDKey, params *chain.Params, purpose uint32, counts Counts) (*Account, error) {
	path := params.AccountPath(purpose, 0)
	acct, err := master.DerivePath(path)
	if err != nil {
		return nil, err
	}

	format := chain.FormatP2PKH
	version := params.LegacyHDVersion
	if purpose == chain.PurposeSegwit {
		format = chain.FormatP2WPKH
		version = *params.SegwitHDVersion
	}

	xpub, err := SerializeExtendedKey(acct, version)
	if err != nil {
		return nil, err
	}

	receive, err := deriveChainAddresses(acct, params, purpose, format, RoleReceive, 0, counts.Receive)
	if err != nil {
		return nil, err
	}
	change, err := deriveChainAddresses(acct, params, purpose, format, RoleChange, 0, counts.Change)
	if err != nil {
		return nil, err
	}

	return &Account{
		Path:        path,
		ExtendedKey: xpub,
		Format:      format,
		Receive:     receive,
		Change:      change,
	}, nil
}

// deriveChainAddresses derives addresses [from, count) on one chain of an
// account node. from is nonzero only when extending an existing batch.
func deriveChainAddresses(acct *HDKey, params *chain.Params, purpose uint32, format chain.AddressFormat, role ChainRole, from, count uint32) ([]DerivedAddress, error) {
	chainNode, err := acct.Derive(role.chainIndex())
	if err != nil {
		return nil, err
	}

	out := make([]DerivedAddress, 0, count-from)
	for i := from; i < count; i++ {
		child, err := chainNode.Derive(i)
		if err != nil {
			return nil, err
		}
		addr, pub, err := encodeAddress(child, params, format)
		if err != nil {
			return nil, err
		}
		out = append(out, DerivedAddress{
			Address:   addr,
			Path:      params.AddressPath(purpose, 0, role.chainIndex(), i),
			PublicKey: hex.EncodeToString(pub),
			Role:      role,
			Format:    format,
			Index:     i,
		})
	}
	return out, nil
}

// encodeAddress hashes the node's public key and encodes it in the given
// format for the network.
func encodeAddress(node *HDKey, params *chain.Params, format chain.AddressFormat) (string, []byte, error) {
	pub, err := node.PublicKeyBytes()
	if err != nil {
		return "", nil, err
	}
	hash := Hash160(pub)

	var addr string
	switch format {
	case chain.FormatP2WPKH:
		addr, err = EncodeP2WPKH(hash, params.Bech32HRP)
	case chain.FormatP2PKH:
		addr, err = EncodeP2PKH(hash, params.PubKeyHashID)
	default:
		err = fmt.Errorf("unknown address format %q", format)
	}
	if err != nil {
		return "", nil, err
	}
	return addr, pub, nil
}

// ExtendedKeyDerivation is the watch-only result of deriving addresses from
// a standalone extended public key.
type ExtendedKeyDerivation struct {
	Symbol  string              `json:"symbol"`
	Format  chain.AddressFormat `json:"format"`
	Testnet bool                `json:"testnet"`
	Receive []DerivedAddress    `json:"receive"`
	Change  []DerivedAddress    `json:"change"`
}

// DeriveFromExtendedKey derives receive and change addresses from an
// account-level extended public key, without any secret material. The
// network and address format are auto-detected from the key's prefix; a
// non-empty symbol overrides the detected network (the format still follows
// the prefix). Only non-hardened derivation is possible from a public key;
// account-level hardening happened before the key was exported.
func DeriveFromExtendedKey(extendedKey string, counts Counts, symbol string) (*ExtendedKeyDerivation, error) {
	detected, err := DetectPrefix(extendedKey)
	if err != nil {
		return nil, err
	}
	params := detected.Params
	if symbol != "" {
		p, ok := chain.Get(symbol)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, symbol)
		}
		params = p
	}
	if detected.Format == chain.FormatP2WPKH && !params.SupportsSegwit() {
		return nil, fmt.Errorf("%w: %s has no segwit support for a %s key", ErrUnsupportedNetwork, params.Symbol, extendedKey[:4])
	}

	// Normalize the version prefix so the generic parser accepts any
	// network-specific form (zpub, Ltub, dgub, ...).
	standardized, err := Standardize(extendedKey)
	if err != nil {
		return nil, err
	}
	node, err := NewFromExtendedKey(standardized)
	if err != nil {
		return nil, err
	}
	// An accidentally supplied private key is reduced to its public part;
	// this API is watch-only by contract.
	if node.IsPrivate() {
		node, err = node.Neuter()
		if err != nil {
			return nil, err
		}
	}

	purpose := uint32(chain.PurposeLegacy)
	if detected.Format == chain.FormatP2WPKH {
		purpose = chain.PurposeSegwit
	}

	receive, err := deriveChainAddresses(node, params, purpose, detected.Format, RoleReceive, 0, counts.Receive)
	if err != nil {
		return nil, err
	}
	change, err := deriveChainAddresses(node, params, purpose, detected.Format, RoleChange, 0, counts.Change)
	if err != nil {
		return nil, err
	}

	log.Wallet.Debug().
		Str("network", params.Symbol).
		Str("format", string(detected.Format)).
		Uint32("receive", counts.Receive).
		Uint32("change", counts.Change).
		Msg("derived watch-only addresses")

	return &ExtendedKeyDerivation{
		Symbol:  params.Symbol,
		Format:  detected.Format,
		Testnet: detected.Testnet,
		Receive: receive,
		Change:  change,
	}, nil
}

// AddressPaths flattens derivation results into an address -> path lookup
// table, the shape the transaction builder consumes.
func AddressPaths(accounts ...*Account) map[string]string {
	m := make(map[string]string)
	for _, acct := range accounts {
		if acct == nil {
			continue
		}
		for _, a := range acct.Receive {
			m[a.Address] = a.Path
		}
		for _, a := range acct.Change {
			m[a.Address] = a.Path
		}
	}
	return m
}
