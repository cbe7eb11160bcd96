// klingwallet is a command-line front end for the wallet core: address
// derivation, watch-only xpub exploration, gap-limit discovery and offline
// transaction building. It performs no network I/O; UTXO sets and
// transaction histories are supplied as JSON files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Klingon-tech/klingwallet/config"
	"github.com/Klingon-tech/klingwallet/internal/chain"
	"github.com/Klingon-tech/klingwallet/internal/log"
	"github.com/Klingon-tech/klingwallet/internal/txbuilder"
	"github.com/Klingon-tech/klingwallet/internal/wallet"
)

var cfg *config.Config

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	// Global flags appearing before the subcommand.
	configPath := config.DefaultFilePath()
	logLevel := ""
	logJSON := false
	args := os.Args[1:]
	for len(args) > 0 {
		switch {
		case args[0] == "--config" && len(args) > 1:
			configPath = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--config="):
			configPath = args[0][len("--config="):]
			args = args[1:]
		case args[0] == "--log-level" && len(args) > 1:
			logLevel = args[1]
			args = args[2:]
		case strings.HasPrefix(args[0], "--log-level="):
			logLevel = args[0][len("--log-level="):]
			args = args[1:]
		case args[0] == "--log-json":
			logJSON = true
			args = args[1:]
		default:
			goto dispatch
		}
	}

dispatch:
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		fatal("%v", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logJSON {
		cfg.Log.JSON = true
	}
	log.Init(cfg.Log.Level, cfg.Log.JSON)

	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cmd := args[0]
	cmdArgs := args[1:]
	switch cmd {
	case "derive":
		cmdDerive(cmdArgs)
	case "xpub":
		cmdXpub(cmdArgs)
	case "discover":
		cmdDiscover(cmdArgs)
	case "send":
		cmdSend(cmdArgs)
	case "wif":
		cmdWif(cmdArgs)
	case "store":
		cmdStore(cmdArgs)
	case "wallets":
		cmdWallets()
	case "networks":
		cmdNetworks()
	case "help", "-h", "--help":
		usage()
	default:
		fatal("unknown command %q", cmd)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: klingwallet [--config FILE] [--log-level LEVEL] [--log-json] COMMAND [flags]

Commands:
  derive    Derive receive/change addresses from a mnemonic
  xpub      List watch-only addresses from an extended public key
  discover  Run gap-limit address discovery over a history file
  send      Build and sign a transaction from a UTXO file (offline)
  wif       Export the private key at a derivation path in WIF
  store     Seal a mnemonic into the keystore under a wallet name
  wallets   List stored wallets
  networks  List supported networks

Run 'klingwallet COMMAND -h' for command flags.
`)
}

func cmdDerive(args []string) {
	fs := flag.NewFlagSet("derive", flag.ExitOnError)
	network := fs.String("network", cfg.Network, "network symbol")
	count := fs.Uint("count", 20, "receive address count (change defaults to max(2, count/2))")
	receive := fs.Uint("receive", 0, "explicit receive address count")
	change := fs.Uint("change", 0, "explicit change address count")
	generate := fs.Bool("generate", false, "generate a fresh 24-word mnemonic instead of prompting")
	walletName := fs.String("wallet", "", "load the mnemonic from this stored wallet")
	fs.Parse(args)

	counts := wallet.DefaultCounts(uint32(*count))
	if *receive > 0 || *change > 0 {
		counts = wallet.Counts{Receive: uint32(*receive), Change: uint32(*change)}
	}

	var mnemonic string
	if *generate {
		m, err := wallet.GenerateMnemonic()
		if err != nil {
			fatal("generate mnemonic: %v", err)
		}
		mnemonic = m
		// The one place a mnemonic is ever printed: the user has to be
		// able to back up a freshly generated one.
		fmt.Fprintf(os.Stderr, "Mnemonic (write this down):\n  %s\n\n", mnemonic)
	} else {
		mnemonic = obtainMnemonic(*walletName)
	}

	derivation, err := wallet.DeriveWallet(mnemonic, counts, *network)
	if err != nil {
		fatal("derive: %v", err)
	}
	printJSON(derivation)
}

func cmdXpub(args []string) {
	fs := flag.NewFlagSet("xpub", flag.ExitOnError)
	network := fs.String("network", "", "network symbol (default: auto-detect from prefix)")
	count := fs.Uint("count", 20, "receive address count (change defaults to max(2, count/2))")
	convert := fs.String("convert", "", "reversion the key to this prefix (e.g. xpub, zpub) and print it")
	fs.Parse(args)
	if fs.NArg() != 1 {
		fatal("usage: klingwallet xpub [flags] EXTENDED-KEY")
	}
	key := fs.Arg(0)

	if *convert != "" {
		version, ok := versionForPrefix(*convert)
		if !ok {
			fatal("unknown target prefix %q", *convert)
		}
		converted, err := wallet.Reversion(key, version)
		if err != nil {
			fatal("convert: %v", err)
		}
		fmt.Println(converted)
		return
	}

	res, err := wallet.DeriveFromExtendedKey(key, wallet.DefaultCounts(uint32(*count)), *network)
	if err != nil {
		fatal("xpub: %v", err)
	}
	printJSON(res)
}

// versionForPrefix resolves a display prefix (xpub, zpub, Ltub, ...) to its
// version bytes through the network registry.
func versionForPrefix(prefix string) ([4]byte, bool) {
	for _, p := range chain.All() {
		if p.SegwitPrefix == prefix && p.SegwitHDVersion != nil {
			return *p.SegwitHDVersion, true
		}
		if p.LegacyPrefix == prefix {
			return p.LegacyHDVersion, true
		}
	}
	return [4]byte{}, false
}

func cmdDiscover(args []string) {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	network := fs.String("network", cfg.Network, "network symbol")
	gap := fs.Uint("gap", uint(cfg.GapLimit), "gap limit")
	min := fs.Uint("min", uint(cfg.MinAddresses), "minimum addresses per chain")
	historyFile := fs.String("history", "", "JSON file with transaction history")
	walletName := fs.String("wallet", "", "load the mnemonic from this stored wallet")
	fs.Parse(args)

	var history []wallet.HistoryTx
	if *historyFile != "" {
		readJSONFile(*historyFile, &history)
	}

	mnemonic := obtainMnemonic(*walletName)
	res, err := wallet.Discover(mnemonic, history, uint32(*gap), uint32(*min), *network)
	if err != nil {
		fatal("discover: %v", err)
	}
	if !res.Converged {
		fmt.Fprintln(os.Stderr, "Warning: discovery did not converge; the address set may be incomplete")
	}
	printJSON(res)
}

func cmdSend(args []string) {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	network := fs.String("network", cfg.Network, "network symbol")
	to := fs.String("to", "", "outputs as ADDR:AMOUNT[,ADDR:AMOUNT...] (amounts in smallest unit)")
	changeAddr := fs.String("change", "", "change address")
	feeRate := fs.Uint64("fee-rate", cfg.FeeRate, "fee rate in smallest unit per vbyte")
	utxoFile := fs.String("utxos", "", "JSON file with spendable UTXOs (each with its derivation path)")
	selectCoins := fs.Bool("select", true, "coin-select from the UTXO file instead of spending all of it")
	walletName := fs.String("wallet", "", "load the mnemonic from this stored wallet")
	fs.Parse(args)

	if *utxoFile == "" {
		fatal("--utxos is required")
	}
	var utxos []txbuilder.Utxo
	readJSONFile(*utxoFile, &utxos)

	outputs, err := parseOutputs(*to)
	if err != nil {
		fatal("parse --to: %v", err)
	}

	if *selectCoins && len(outputs) > 0 {
		var sum uint64
		for _, o := range outputs {
			sum += o.Value
		}
		// Rough fee headroom for selection; Build computes the real fee
		// from the selected inputs.
		target := sum + *feeRate*txbuilder.RoughVBytesPerSpend(len(outputs)+1)
		sel, err := txbuilder.SelectCoins(utxos, target)
		if err != nil {
			fatal("coin selection: %v", err)
		}
		utxos = sel.Inputs
	}

	mnemonic := obtainMnemonic(*walletName)
	res, err := txbuilder.Build(mnemonic, utxos, outputs, nil, *changeAddr, *feeRate, *network)
	if err != nil {
		fatal("build: %v", err)
	}
	printJSON(res)
	fmt.Fprintf(os.Stderr, "Signed but NOT broadcast. Submit the hex with your node or explorer.\n")
}

func cmdWif(args []string) {
	fs := flag.NewFlagSet("wif", flag.ExitOnError)
	network := fs.String("network", cfg.Network, "network symbol")
	path := fs.String("path", "", "derivation path, e.g. m/84'/0'/0'/0/0")
	walletName := fs.String("wallet", "", "load the mnemonic from this stored wallet")
	fs.Parse(args)

	if *path == "" {
		fatal("--path is required")
	}
	params, ok := chain.Get(*network)
	if !ok {
		fatal("unknown network %q", *network)
	}

	mnemonic := obtainMnemonic(*walletName)
	master, err := wallet.NewMasterFromMnemonic(mnemonic)
	if err != nil {
		fatal("wif: %v", err)
	}
	node, err := master.DerivePath(*path)
	if err != nil {
		fatal("wif: %v", err)
	}
	wif, err := wallet.ExportWIF(node, params)
	if err != nil {
		fatal("wif: %v", err)
	}
	fmt.Println(wif)
}

func cmdStore(args []string) {
	fs := flag.NewFlagSet("store", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		fatal("usage: klingwallet store WALLET-NAME")
	}
	name := fs.Arg(0)

	ks, err := wallet.NewKeystore(cfg.KeystoreDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}

	mnemonic := readSecret("Mnemonic: ")
	passphrase := readSecret("Passphrase: ")
	if confirm := readSecret("Confirm passphrase: "); confirm != passphrase {
		fatal("passphrases do not match")
	}

	if err := ks.Store(name, mnemonic, []byte(passphrase), wallet.DefaultKDFParams()); err != nil {
		fatal("store: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Stored wallet %q in %s\n", name, cfg.KeystoreDir)
}

func cmdWallets() {
	ks, err := wallet.NewKeystore(cfg.KeystoreDir)
	if err != nil {
		fatal("open keystore: %v", err)
	}
	names, err := ks.List()
	if err != nil {
		fatal("list wallets: %v", err)
	}
	for _, name := range names {
		fmt.Println(name)
	}
}

func cmdNetworks() {
	type netInfo struct {
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
		Segwit bool   `json:"segwit"`
		Xpub   string `json:"xpub_prefix"`
		Zpub   string `json:"zpub_prefix,omitempty"`
	}
	var out []netInfo
	for _, p := range chain.All() {
		out = append(out, netInfo{
			Symbol: p.Symbol,
			Name:   p.Name,
			Segwit: p.SupportsSegwit(),
			Xpub:   p.LegacyPrefix,
			Zpub:   p.SegwitPrefix,
		})
	}
	printJSON(out)
}

// parseOutputs parses "addr:amount,addr:amount" into outputs.
func parseOutputs(s string) ([]txbuilder.Output, error) {
	if s == "" {
		return nil, nil
	}
	var outputs []txbuilder.Output
	for _, part := range strings.Split(s, ",") {
		idx := strings.LastIndex(part, ":")
		if idx < 1 {
			return nil, fmt.Errorf("%q is not ADDR:AMOUNT", part)
		}
		amount, err := strconv.ParseUint(part[idx+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("amount in %q: %w", part, err)
		}
		outputs = append(outputs, txbuilder.Output{Address: part[:idx], Value: amount})
	}
	return outputs, nil
}

// ── Input helpers ───────────────────────────────────────────────────────

// obtainMnemonic resolves the mnemonic for a signing command: from the
// named stored wallet when given, from the KLINGWALLET_MNEMONIC environment
// variable when set (for scripting; protecting it is the caller's problem),
// otherwise by prompting with terminal echo disabled.
func obtainMnemonic(walletName string) string {
	if walletName != "" {
		ks, err := wallet.NewKeystore(cfg.KeystoreDir)
		if err != nil {
			fatal("open keystore: %v", err)
		}
		passphrase := readSecret(fmt.Sprintf("Passphrase for %q: ", walletName))
		mnemonic, err := ks.Load(walletName, []byte(passphrase))
		if err != nil {
			fatal("load wallet: %v", err)
		}
		return mnemonic
	}
	if m := os.Getenv("KLINGWALLET_MNEMONIC"); m != "" {
		return m
	}
	return readSecret("Mnemonic: ")
}

func readSecret(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		fatal("read input: %v", err)
	}
	return strings.TrimSpace(string(b))
}

func readJSONFile(path string, v interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		fatal("read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		fatal("parse %s: %v", path, err)
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode output: %v", err)
	}
}

// ── Error helper ────────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
