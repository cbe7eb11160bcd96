package wallet

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/Klingon-tech/klingwallet/internal/chain"
)

func mustParams(t *testing.T, symbol string) *chain.Params {
	t.Helper()
	p, ok := chain.Get(symbol)
	if !ok {
		t.Fatalf("network %q not registered", symbol)
	}
	return p
}

func TestEncodeP2WPKH_KnownVector(t *testing.T) {
	// hash160 of the BIP-84 test vector pubkey at m/84'/0'/0'/0/0.
	hash, _ := hex.DecodeString("c0cebcb6f2879056c771344e99a39ab18cc8498b")

	addr, err := EncodeP2WPKH(hash, "bc")
	if err != nil {
		t.Fatalf("EncodeP2WPKH() error: %v", err)
	}
	if addr != "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu" {
		t.Errorf("address = %s, want bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu", addr)
	}
}

func TestEncodeP2WPKH_BadInput(t *testing.T) {
	if _, err := EncodeP2WPKH(make([]byte, 19), "bc"); err == nil {
		t.Error("19-byte hash should fail")
	}
	if _, err := EncodeP2WPKH(make([]byte, 20), ""); err == nil {
		t.Error("empty prefix should fail")
	}
}

func TestEncodeP2PKH_BadInput(t *testing.T) {
	if _, err := EncodeP2PKH(make([]byte, 21), 0x00); err == nil {
		t.Error("21-byte hash should fail")
	}
}

func TestAddressRoundTrip(t *testing.T) {
	hash, _ := hex.DecodeString("751e76e8199196d454941c45d1b3a323f1433bd6")

	tests := []struct {
		name   string
		symbol string
		format chain.AddressFormat
	}{
		{"BTC segwit", "BTC", chain.FormatP2WPKH},
		{"BTC legacy", "BTC", chain.FormatP2PKH},
		{"testnet segwit", "TBTC", chain.FormatP2WPKH},
		{"testnet legacy", "TBTC", chain.FormatP2PKH},
		{"LTC segwit", "LTC", chain.FormatP2WPKH},
		{"LTC legacy", "LTC", chain.FormatP2PKH},
		{"DOGE legacy", "DOGE", chain.FormatP2PKH},
		{"DASH legacy", "DASH", chain.FormatP2PKH},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := mustParams(t, tt.symbol)

			var addr string
			var err error
			if tt.format == chain.FormatP2WPKH {
				addr, err = EncodeP2WPKH(hash, params.Bech32HRP)
			} else {
				addr, err = EncodeP2PKH(hash, params.PubKeyHashID)
			}
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			dec, ok := DecodeAddress(addr, params)
			if !ok {
				t.Fatalf("DecodeAddress(%q) did not recognize own encoding", addr)
			}
			if dec.Format != tt.format {
				t.Errorf("format = %s, want %s", dec.Format, tt.format)
			}
			if !bytes.Equal(dec.Hash, hash) {
				t.Errorf("hash = %x, want %x", dec.Hash, hash)
			}
		})
	}
}

func TestDecodeAddress_ForeignAndMalformed(t *testing.T) {
	btc := mustParams(t, "BTC")
	ltc := mustParams(t, "LTC")
	doge := mustParams(t, "DOGE")

	tests := []struct {
		name    string
		address string
		params  *chain.Params
	}{
		{"litecoin address on bitcoin", "ltc1qw508d6qejxtdg4y5r3zarvary0c5xw7kgmn4n9", btc},
		{"bitcoin address on litecoin", "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu", ltc},
		{"bech32 on non-segwit network", "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu", doge},
		{"empty string", "", btc},
		{"garbage", "not-an-address", btc},
		{"truncated bech32", "bc1qcr8te4", btc},
		{"bad base58 checksum", "1LqBGSKuX5yYUonjxT5qGfpUsXKYYWeabB", btc},
		{"mixed case bech32", "bc1QCR8te4kr609gcawutmrza0j4xv80jy8z306fyu", btc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := DecodeAddress(tt.address, tt.params); ok {
				t.Errorf("DecodeAddress(%q) = recognized, want unrecognized", tt.address)
			}
		})
	}
}

func TestDecodeAddress_UppercaseBech32(t *testing.T) {
	btc := mustParams(t, "BTC")
	dec, ok := DecodeAddress("BC1QCR8TE4KR609GCAWUTMRZA0J4XV80JY8Z306FYU", btc)
	if !ok {
		t.Fatal("all-uppercase bech32 should be accepted")
	}
	if dec.Format != chain.FormatP2WPKH {
		t.Errorf("format = %s, want %s", dec.Format, chain.FormatP2WPKH)
	}
}

func TestDetectAddressFormat(t *testing.T) {
	btc := mustParams(t, "BTC")

	format, ok := DetectAddressFormat("bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu", btc)
	if !ok || format != chain.FormatP2WPKH {
		t.Errorf("segwit address: format = %s, ok = %v", format, ok)
	}

	format, ok = DetectAddressFormat("1LqBGSKuX5yYUonjxT5qGfpUsXKYYWeabA", btc)
	if !ok || format != chain.FormatP2PKH {
		t.Errorf("legacy address: format = %s, ok = %v", format, ok)
	}
}
