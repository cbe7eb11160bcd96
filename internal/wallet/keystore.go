package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// keystoreFile is the on-disk JSON format for a stored wallet. Only the
// sealed mnemonic is persisted; addresses and indexes are rederived on
// demand, so the file never goes stale.
type keystoreFile struct {
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	SealedMnemonic []byte    `json:"sealed_mnemonic"`
}

const keystoreVersion = 1

// Keystore stores passphrase-sealed mnemonics on disk, one file per named
// wallet.
type Keystore struct {
	dir string
}

// NewKeystore opens (creating if needed) a keystore directory.
func NewKeystore(dir string) (*Keystore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{dir: dir}, nil
}

func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.dir, name+".wallet")
}

// Store validates and seals a mnemonic under the passphrase and writes it
// as a new named wallet. Overwriting an existing wallet is refused.
func (ks *Keystore) Store(name, mnemonic string, passphrase []byte, params KDFParams) error {
	if !ValidateMnemonic(mnemonic) {
		return ErrInvalidMnemonic
	}
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("wallet %q already exists", name)
	}

	sealed, err := Seal([]byte(mnemonic), passphrase, params)
	if err != nil {
		return fmt.Errorf("seal mnemonic: %w", err)
	}

	kf := keystoreFile{
		Version:        keystoreVersion,
		CreatedAt:      time.Now().UTC(),
		SealedMnemonic: sealed,
	}
	data, err := json.MarshalIndent(&kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

// Load unseals and returns the mnemonic of a named wallet.
func (ks *Keystore) Load(name string, passphrase []byte) (string, error) {
	data, err := os.ReadFile(ks.walletPath(name))
	if err != nil {
		return "", fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return "", fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return "", fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}

	mnemonic, err := Open(kf.SealedMnemonic, passphrase)
	if err != nil {
		return "", fmt.Errorf("unseal wallet %q: %w", name, err)
	}
	return string(mnemonic), nil
}

// List returns the names of all stored wallets.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.dir)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes a stored wallet.
func (ks *Keystore) Delete(name string) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("wallet %q not found", name)
	}
	return os.Remove(path)
}
