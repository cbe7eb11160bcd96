package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/Klingon-tech/klingwallet/internal/chain"
)

// Hash160 returns RIPEMD160(SHA256(b)), the public key hash committed to by
// both P2PKH and P2WPKH outputs.
func Hash160(b []byte) []byte {
	return btcutil.Hash160(b)
}

// EncodeP2WPKH encodes a 20-byte public key hash as a native segwit
// (witness version 0) bech32 address with the given human-readable prefix.
func EncodeP2WPKH(hash []byte, hrp string) (string, error) {
	if len(hash) != 20 {
		return "", fmt.Errorf("p2wpkh hash must be 20 bytes, got %d", len(hash))
	}
	if hrp == "" {
		return "", fmt.Errorf("network has no bech32 prefix")
	}
	conv, err := bech32.ConvertBits(hash, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	// Witness version 0 precedes the 5-bit regrouped program.
	return bech32.Encode(hrp, append([]byte{0}, conv...))
}

// EncodeP2PKH encodes a 20-byte public key hash as a base58check legacy
// address with the given version byte.
func EncodeP2PKH(hash []byte, version byte) (string, error) {
	if len(hash) != 20 {
		return "", fmt.Errorf("p2pkh hash must be 20 bytes, got %d", len(hash))
	}
	return base58.CheckEncode(hash, version), nil
}

// DecodedAddress is the result of classifying an address string.
type DecodedAddress struct {
	Format chain.AddressFormat
	Hash   []byte // 20-byte public key hash
}

// DecodeAddress classifies an address for the given network and extracts its
// public key hash. The second return value is false when the address is not
// recognized as P2WPKH or P2PKH for this network; that is a normal outcome
// used to classify externally supplied addresses, not an error.
//
// Bech32 addresses are accepted in all-lowercase or all-uppercase form
// (mixed case is invalid per BIP-173); base58check is case-sensitive.
func DecodeAddress(address string, params *chain.Params) (DecodedAddress, bool) {
	if params.SupportsSegwit() {
		if dec, ok := decodeBech32(address, params.Bech32HRP); ok {
			return dec, true
		}
	}
	hash, version, err := base58.CheckDecode(address)
	if err == nil && version == params.PubKeyHashID && len(hash) == 20 {
		return DecodedAddress{Format: chain.FormatP2PKH, Hash: hash}, true
	}
	return DecodedAddress{}, false
}

// DetectAddressFormat reports the script type of an address on the given
// network, or false if unrecognized.
func DetectAddressFormat(address string, params *chain.Params) (chain.AddressFormat, bool) {
	dec, ok := DecodeAddress(address, params)
	if !ok {
		return "", false
	}
	return dec.Format, true
}

func decodeBech32(address, hrp string) (DecodedAddress, bool) {
	// bech32.Decode rejects mixed case and lowercases all-uppercase input.
	gotHRP, data, err := bech32.Decode(address)
	if err != nil || gotHRP != hrp || len(data) == 0 {
		return DecodedAddress{}, false
	}
	// Only witness version 0 with a 20-byte program is a P2WPKH address.
	if data[0] != 0 {
		return DecodedAddress{}, false
	}
	program, err := bech32.ConvertBits(data[1:], 5, 8, false)
	if err != nil || len(program) != 20 {
		return DecodedAddress{}, false
	}
	return DecodedAddress{Format: chain.FormatP2WPKH, Hash: program}, true
}
