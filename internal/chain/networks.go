package chain

// Extended key version bytes. The 4-byte prefix determines the leading
// characters of the base58check serialization (xpub, zpub, Ltub, ...).
var (
	verXpub = [4]byte{0x04, 0x88, 0xb2, 0x1e} // xpub
	verZpub = [4]byte{0x04, 0xb2, 0x47, 0x46} // zpub
	verTpub = [4]byte{0x04, 0x35, 0x87, 0xcf} // tpub
	verVpub = [4]byte{0x04, 0x5f, 0x1c, 0xf6} // vpub
	verLtub = [4]byte{0x01, 0x9d, 0xa4, 0x62} // Ltub
	verMtub = [4]byte{0x01, 0xb2, 0x6e, 0xf6} // Mtub
	verDgub = [4]byte{0x02, 0xfa, 0xca, 0xfd} // dgub
	verDrkp = [4]byte{0x02, 0xfe, 0x52, 0xcc} // drkp
)

func init() {
	// Bitcoin mainnet.
	Register(&Params{
		Symbol:   "BTC",
		Name:     "Bitcoin",
		CoinType: 0,

		PubKeyHashID: 0x00, // 1...
		Bech32HRP:    "bc",
		WIF:          0x80,

		SegwitHDVersion: &verZpub,
		LegacyHDVersion: verXpub,
		SegwitPrefix:    "zpub",
		LegacyPrefix:    "xpub",
	})

	// Bitcoin testnet3. Registered mainly so externally supplied tpub/vpub
	// keys can be detected and explored.
	Register(&Params{
		Symbol:   "TBTC",
		Name:     "Bitcoin Testnet",
		Testnet:  true,
		CoinType: 1,

		PubKeyHashID: 0x6f, // m or n...
		Bech32HRP:    "tb",
		WIF:          0xef,

		SegwitHDVersion: &verVpub,
		LegacyHDVersion: verTpub,
		SegwitPrefix:    "vpub",
		LegacyPrefix:    "tpub",
	})

	// Litecoin.
	Register(&Params{
		Symbol:   "LTC",
		Name:     "Litecoin",
		CoinType: 2,

		PubKeyHashID: 0x30, // L...
		Bech32HRP:    "ltc",
		WIF:          0xb0,

		SegwitHDVersion: &verMtub,
		LegacyHDVersion: verLtub,
		SegwitPrefix:    "Mtub",
		LegacyPrefix:    "Ltub",
	})

	// Dogecoin. No segwit.
	Register(&Params{
		Symbol:   "DOGE",
		Name:     "Dogecoin",
		CoinType: 3,

		PubKeyHashID: 0x1e, // D...
		WIF:          0x9e,

		LegacyHDVersion: verDgub,
		LegacyPrefix:    "dgub",
	})

	// Dash. No segwit.
	Register(&Params{
		Symbol:   "DASH",
		Name:     "Dash",
		CoinType: 5,

		PubKeyHashID: 0x4c, // X...
		WIF:          0xcc,

		LegacyHDVersion: verDrkp,
		LegacyPrefix:    "drkp",
	})
}
