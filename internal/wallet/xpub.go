package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"

	"github.com/Klingon-tech/klingwallet/internal/chain"
)

// ErrUnknownPrefix is returned when an extended key's leading characters
// match no registered network prefix.
var ErrUnknownPrefix = errors.New("unknown extended key prefix")

// standardHDVersion is the BIP-32 mainnet public version (xpub). Keys with
// network-specific version bytes are normalized to it before generic parsing.
var standardHDVersion = [4]byte{0x04, 0x88, 0xb2, 0x1e}

// SerializeExtendedKey serializes the node's public part as a base58check
// extended key with the supplied 4-byte version prefix. The standard BIP-32
// layout (version, depth, parent fingerprint, child number, chain code, key)
// is unchanged; only the version bytes vary per network and account type.
func SerializeExtendedKey(k *HDKey, version [4]byte) (string, error) {
	pub, err := k.key.Neuter()
	if err != nil {
		return "", fmt.Errorf("neuter: %w", err)
	}
	reversioned, err := pub.CloneWithVersion(version[:])
	if err != nil {
		return "", fmt.Errorf("set version: %w", err)
	}
	return reversioned.String(), nil
}

// Reversion rewrites the 4-byte version prefix of a serialized extended key
// and re-encodes it. This converts between a network's display form (zpub,
// Mtub, dgub, ...) and the standard xpub form; the key material is untouched.
func Reversion(serialized string, version [4]byte) (string, error) {
	key, err := hdkeychain.NewKeyFromString(serialized)
	if err != nil {
		return "", fmt.Errorf("parse extended key: %w", err)
	}
	reversioned, err := key.CloneWithVersion(version[:])
	if err != nil {
		return "", fmt.Errorf("set version: %w", err)
	}
	return reversioned.String(), nil
}

// Standardize normalizes an extended key with any registered network prefix
// to the standard xpub form, so a generic BIP-32 parser can consume it.
func Standardize(serialized string) (string, error) {
	return Reversion(serialized, standardHDVersion)
}

// DetectedKey describes the network and account type an extended key's
// prefix belongs to.
type DetectedKey struct {
	Params  *chain.Params
	Format  chain.AddressFormat
	Testnet bool
}

// DetectPrefix matches an extended key's leading characters against the
// registered network prefixes (xpub, zpub, tpub, vpub, Ltub, Mtub, dgub,
// drkp, ...), so externally supplied keys can be explored without the
// caller naming the network.
func DetectPrefix(serialized string) (DetectedKey, error) {
	for _, p := range chain.All() {
		if p.SegwitPrefix != "" && strings.HasPrefix(serialized, p.SegwitPrefix) {
			return DetectedKey{Params: p, Format: chain.FormatP2WPKH, Testnet: p.Testnet}, nil
		}
		if strings.HasPrefix(serialized, p.LegacyPrefix) {
			return DetectedKey{Params: p, Format: chain.FormatP2PKH, Testnet: p.Testnet}, nil
		}
	}
	prefix := serialized
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return DetectedKey{}, fmt.Errorf("%w: %q", ErrUnknownPrefix, prefix)
}
