package wallet

import (
	"errors"
	"testing"
)

// testMnemonic is the standard BIP-39 reference phrase used throughout the
// derivation tests so results can be checked against published vectors.
const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func testMaster(t *testing.T) *HDKey {
	t.Helper()
	master, err := NewMasterFromMnemonic(testMnemonic)
	if err != nil {
		t.Fatalf("NewMasterFromMnemonic() error: %v", err)
	}
	return master
}

func TestNewMasterFromMnemonic(t *testing.T) {
	master := testMaster(t)

	if !master.IsPrivate() {
		t.Error("master key should be private")
	}
	if master.Depth() != 0 {
		t.Errorf("master key depth = %d, want 0", master.Depth())
	}

	pub, err := master.PublicKeyBytes()
	if err != nil {
		t.Fatalf("PublicKeyBytes() error: %v", err)
	}
	if len(pub) != 33 {
		t.Errorf("public key length = %d, want 33 (compressed)", len(pub))
	}
}

func TestNewMasterFromMnemonic_Invalid(t *testing.T) {
	_, err := NewMasterFromMnemonic("twelve bogus words that will never pass the checksum test here ok")
	if !errors.Is(err, ErrInvalidMnemonic) {
		t.Errorf("expected ErrInvalidMnemonic, got: %v", err)
	}
}

func TestParsePath(t *testing.T) {
	h := uint32(HardenedKeyStart)
	tests := []struct {
		name    string
		path    string
		want    []uint32
		wantErr bool
	}{
		{
			name: "segwit account path",
			path: "m/84'/0'/0'",
			want: []uint32{84 + h, 0 + h, 0 + h},
		},
		{
			name: "full address path",
			path: "m/84'/0'/0'/0/5",
			want: []uint32{84 + h, 0 + h, 0 + h, 0, 5},
		},
		{
			name: "h suffix for hardened",
			path: "m/44h/2h/0h/1/0",
			want: []uint32{44 + h, 2 + h, 0 + h, 1, 0},
		},
		{
			name: "uppercase H suffix",
			path: "m/44H/0H/0H",
			want: []uint32{44 + h, 0 + h, 0 + h},
		},
		{
			name: "master only",
			path: "m",
			want: []uint32{},
		},
		{name: "empty", path: "", wantErr: true},
		{name: "missing m prefix", path: "84'/0'/0'", wantErr: true},
		{name: "empty segment", path: "m//0", wantErr: true},
		{name: "non-numeric segment", path: "m/84'/abc", wantErr: true},
		{name: "index too large", path: "m/2147483648", wantErr: true},
		{name: "negative index", path: "m/-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.path)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPath) {
					t.Fatalf("expected ErrInvalidPath, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePath(%q) error: %v", tt.path, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("steps = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("step[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDerivePath_Deterministic(t *testing.T) {
	master := testMaster(t)

	k1, err := master.DerivePath("m/84'/0'/0'/0/0")
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}
	k2, err := master.DerivePath("m/84'/0'/0'/0/0")
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}

	p1, _ := k1.PublicKeyBytes()
	p2, _ := k2.PublicKeyBytes()
	if string(p1) != string(p2) {
		t.Error("same path derived different keys")
	}
	if k1.Depth() != 5 {
		t.Errorf("depth = %d, want 5", k1.Depth())
	}
}

func TestDerivePath_SiblingsDiffer(t *testing.T) {
	master := testMaster(t)

	k0, err := master.DerivePath("m/84'/0'/0'/0/0")
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}
	k1, err := master.DerivePath("m/84'/0'/0'/0/1")
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}

	p0, _ := k0.PublicKeyBytes()
	p1, _ := k1.PublicKeyBytes()
	if string(p0) == string(p1) {
		t.Error("sibling indices derived identical keys")
	}
}

func TestDerive_HardenedFromPublic(t *testing.T) {
	master := testMaster(t)
	pub, err := master.Neuter()
	if err != nil {
		t.Fatalf("Neuter() error: %v", err)
	}
	if pub.IsPrivate() {
		t.Fatal("neutered key should not be private")
	}

	_, err = pub.Derive(HardenedKeyStart)
	if !errors.Is(err, ErrPublicDerivationOnly) {
		t.Errorf("expected ErrPublicDerivationOnly, got: %v", err)
	}
}

func TestDerive_NonHardenedFromPublic(t *testing.T) {
	master := testMaster(t)
	account, err := master.DerivePath("m/84'/0'/0'")
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}

	accountPub, err := account.Neuter()
	if err != nil {
		t.Fatalf("Neuter() error: %v", err)
	}

	// Non-hardened children of the private and public account keys must
	// carry identical public keys.
	fromPriv, err := account.DerivePath("m/0/7")
	if err != nil {
		t.Fatalf("derive from private account: %v", err)
	}
	fromPub, err := accountPub.DerivePath("m/0/7")
	if err != nil {
		t.Fatalf("derive from public account: %v", err)
	}

	p1, _ := fromPriv.PublicKeyBytes()
	p2, _ := fromPub.PublicKeyBytes()
	if string(p1) != string(p2) {
		t.Error("public derivation diverged from private derivation")
	}
}

func TestPrivateKey_PublicOnly(t *testing.T) {
	master := testMaster(t)
	pub, err := master.Neuter()
	if err != nil {
		t.Fatalf("Neuter() error: %v", err)
	}

	_, err = pub.PrivateKey()
	if !errors.Is(err, ErrPublicDerivationOnly) {
		t.Errorf("expected ErrPublicDerivationOnly, got: %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	master := testMaster(t)

	fp, err := master.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() error: %v", err)
	}

	// Fingerprint is derived from the public key, so the neutered key
	// yields the same value.
	pub, _ := master.Neuter()
	fpPub, err := pub.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint() on public key error: %v", err)
	}
	if fp != fpPub {
		t.Errorf("fingerprint mismatch: private %x, public %x", fp, fpPub)
	}
}
