package wallet

import (
	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/Klingon-tech/klingwallet/internal/chain"
)

// ExportWIF serializes the node's private key in wallet import format for
// the given network: base58check over the network's WIF version byte, the
// 32-byte key and a trailing 0x01 compressed-pubkey marker. All addresses
// here derive from compressed keys, so the marker is always present.
func ExportWIF(k *HDKey, params *chain.Params) (string, error) {
	priv, err := k.PrivateKey()
	if err != nil {
		return "", err
	}
	payload := append(priv.Serialize(), 0x01)
	wif := base58.CheckEncode(payload, params.WIF)
	zero(payload)
	return wif, nil
}
