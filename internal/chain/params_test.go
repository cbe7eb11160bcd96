package chain

import "testing"

func TestGet(t *testing.T) {
	tests := []struct {
		symbol   string
		found    bool
		coinType uint32
		segwit   bool
	}{
		{"BTC", true, 0, true},
		{"btc", true, 0, true}, // case-insensitive
		{"TBTC", true, 1, true},
		{"LTC", true, 2, true},
		{"DOGE", true, 3, false},
		{"DASH", true, 5, false},
		{"XMR", false, 0, false},
		{"", false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			p, ok := Get(tt.symbol)
			if ok != tt.found {
				t.Fatalf("Get(%q) found = %v, want %v", tt.symbol, ok, tt.found)
			}
			if !ok {
				return
			}
			if p.CoinType != tt.coinType {
				t.Errorf("coin type = %d, want %d", p.CoinType, tt.coinType)
			}
			if p.SupportsSegwit() != tt.segwit {
				t.Errorf("SupportsSegwit() = %v, want %v", p.SupportsSegwit(), tt.segwit)
			}
		})
	}
}

func TestSegwitParameterPairing(t *testing.T) {
	// The registration invariant: a bech32 HRP, segwit HD version bytes and
	// a segwit display prefix are all present or all absent.
	for _, p := range All() {
		hasHRP := p.Bech32HRP != ""
		hasVer := p.SegwitHDVersion != nil
		hasPrefix := p.SegwitPrefix != ""
		if hasHRP != hasVer || hasVer != hasPrefix {
			t.Errorf("%s: inconsistent segwit parameters (hrp=%v version=%v prefix=%v)",
				p.Symbol, hasHRP, hasVer, hasPrefix)
		}
	}
}

func TestAddressPath(t *testing.T) {
	btc, _ := Get("BTC")
	if got := btc.AddressPath(PurposeSegwit, 0, 0, 5); got != "m/84'/0'/0'/0/5" {
		t.Errorf("AddressPath = %q, want m/84'/0'/0'/0/5", got)
	}
	doge, _ := Get("DOGE")
	if got := doge.AccountPath(PurposeLegacy, 0); got != "m/44'/3'/0'" {
		t.Errorf("AccountPath = %q, want m/44'/3'/0'", got)
	}
}

func TestUniqueLegacyVersions(t *testing.T) {
	seen := make(map[[4]byte]string)
	for _, p := range All() {
		if prev, dup := seen[p.LegacyHDVersion]; dup {
			t.Errorf("legacy HD version of %s collides with %s", p.Symbol, prev)
		}
		seen[p.LegacyHDVersion] = p.Symbol
	}
}
