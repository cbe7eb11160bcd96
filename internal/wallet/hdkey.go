package wallet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Derivation errors.
var (
	// ErrDerivation is returned when a child key cannot be produced.
	// This is cryptographically near-impossible for random seeds but must
	// be handled: BIP-32 defines invalid child keys for ~1 in 2^127 indices.
	ErrDerivation = errors.New("key derivation failed")

	// ErrPublicDerivationOnly is returned when a hardened derivation step
	// is attempted on a key that holds no private material.
	ErrPublicDerivationOnly = errors.New("hardened derivation requires a private key")

	// ErrInvalidPath is returned for malformed derivation path strings.
	ErrInvalidPath = errors.New("invalid derivation path")
)

// HardenedKeyStart marks the first hardened child index.
const HardenedKeyStart = hdkeychain.HardenedKeyStart

// HDKey is an immutable node in a BIP-32 key tree. A node holds either a
// private key (and can derive hardened children) or only a public key
// (non-hardened derivation only). Every derivation returns a new node.
type HDKey struct {
	key *hdkeychain.ExtendedKey
}

// NewMasterFromMnemonic derives the BIP-32 master node from a BIP-39
// mnemonic with an empty passphrase.
func NewMasterFromMnemonic(mnemonic string) (*HDKey, error) {
	seed, err := SeedFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	// The chaincfg params only seed the serialization version bytes, which
	// xpub serialization overrides per network anyway.
	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("%w: master: %v", ErrDerivation, err)
	}
	return &HDKey{key: master}, nil
}

// NewFromExtendedKey parses a base58check-serialized extended key.
// Keys with network-specific version bytes (zpub, Ltub, dgub, ...) should be
// normalized with Reversion first; parsing itself accepts any version.
func NewFromExtendedKey(serialized string) (*HDKey, error) {
	key, err := hdkeychain.NewKeyFromString(serialized)
	if err != nil {
		return nil, fmt.Errorf("parse extended key: %w", err)
	}
	return &HDKey{key: key}, nil
}

// Derive derives the child at index. Indices at or above HardenedKeyStart
// are hardened and require a private parent.
func (k *HDKey) Derive(index uint32) (*HDKey, error) {
	child, err := k.key.Derive(index)
	if err != nil {
		if errors.Is(err, hdkeychain.ErrDeriveHardFromPublic) {
			return nil, fmt.Errorf("%w: child %d", ErrPublicDerivationOnly, index-HardenedKeyStart)
		}
		return nil, fmt.Errorf("%w: child %d: %v", ErrDerivation, index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives along a path string such as "m/84'/0'/0'/0/5".
func (k *HDKey) DerivePath(path string) (*HDKey, error) {
	steps, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	current := k
	for _, idx := range steps {
		child, err := current.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", path, err)
		}
		current = child
	}
	return current, nil
}

// ParsePath parses a derivation path of the form "m/84'/0'/0'/0/5" into
// child indices. An apostrophe (or trailing "h") marks a hardened step.
func ParsePath(path string) ([]uint32, error) {
	s := strings.TrimSpace(path)
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	parts := strings.Split(s, "/")
	if parts[0] != "m" && parts[0] != "M" {
		return nil, fmt.Errorf("%w: %q must start with m/", ErrInvalidPath, path)
	}

	steps := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		if part == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, path)
		}
		hardened := false
		if strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h") || strings.HasSuffix(part, "H") {
			hardened = true
			part = part[:len(part)-1]
		}
		idx, err := strconv.ParseUint(part, 10, 32)
		if err != nil || idx >= uint64(HardenedKeyStart) {
			return nil, fmt.Errorf("%w: segment %q in %q", ErrInvalidPath, part, path)
		}
		step := uint32(idx)
		if hardened {
			step += HardenedKeyStart
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// PublicKeyBytes returns the compressed 33-byte public key.
func (k *HDKey) PublicKeyBytes() ([]byte, error) {
	pub, err := k.key.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("%w: public key: %v", ErrDerivation, err)
	}
	return pub.SerializeCompressed(), nil
}

// PrivateKey returns the node's secp256k1 private key, or
// ErrPublicDerivationOnly for a public-only node. The returned type is
// identical to btcec/v2's PrivateKey, which aliases it.
func (k *HDKey) PrivateKey() (*secp256k1.PrivateKey, error) {
	if !k.key.IsPrivate() {
		return nil, ErrPublicDerivationOnly
	}
	priv, err := k.key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %v", ErrDerivation, err)
	}
	return priv, nil
}

// Fingerprint returns the first 4 bytes of hash160 of the node's public
// key, the BIP-32 key identifier used to label signing metadata.
func (k *HDKey) Fingerprint() ([4]byte, error) {
	pub, err := k.PublicKeyBytes()
	if err != nil {
		return [4]byte{}, err
	}
	var fp [4]byte
	copy(fp[:], btcutil.Hash160(pub)[:4])
	return fp, nil
}

// Neuter returns a public-only copy of the node (for watch-only use).
func (k *HDKey) Neuter() (*HDKey, error) {
	pub, err := k.key.Neuter()
	if err != nil {
		return nil, fmt.Errorf("neuter: %w", err)
	}
	return &HDKey{key: pub}, nil
}

// IsPrivate returns true if this node contains a private key.
func (k *HDKey) IsPrivate() bool {
	return k.key.IsPrivate()
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.key.Depth()
}
