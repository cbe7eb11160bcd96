package txbuilder

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/Klingon-tech/klingwallet/internal/chain"
	"github.com/Klingon-tech/klingwallet/internal/log"
	"github.com/Klingon-tech/klingwallet/internal/wallet"
)

// classifiedInput is a UTXO with its decoded address and resolved script.
type classifiedInput struct {
	utxo       Utxo
	format     chain.AddressFormat
	pubKeyHash []byte
	prevScript []byte // scriptPubKey of the spent output
	outpoint   wire.OutPoint
}

// classifiedOutput is a requested output with its decoded address.
type classifiedOutput struct {
	output Output
	format chain.AddressFormat
	script []byte
}

// Build assembles and signs a transaction spending the given UTXOs.
//
// The fee is computed from an estimated virtual size (see EstimateVSize);
// change is whatever input value remains above the requested outputs and
// that fee. Signing keys are derived per input from the mnemonic along the
// input's derivation path, taken from the UTXO itself when present and from
// addrPaths otherwise. Signatures use RFC 6979 deterministic nonces, so two
// calls with identical arguments produce byte-identical transactions.
//
// changeAddress may be empty when outputs are non-empty; any remainder then
// implicitly raises the fee.
func Build(mnemonic string, utxos []Utxo, outputs []Output, addrPaths map[string]string, changeAddress string, feeRate uint64, symbol string) (*Result, error) {
	params, ok := chain.Get(symbol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", wallet.ErrUnsupportedNetwork, symbol)
	}
	if len(utxos) == 0 {
		return nil, ErrNoInputsSelected
	}
	if len(outputs) == 0 && changeAddress == "" {
		return nil, ErrNoOutputsOrChange
	}

	inputs, totalIn, err := classifyInputs(utxos, params)
	if err != nil {
		return nil, err
	}
	outs, sumRequested, err := classifyOutputs(outputs, params)
	if err != nil {
		return nil, err
	}

	var changeOut *classifiedOutput
	var changeFormat chain.AddressFormat
	if changeAddress != "" {
		dec, ok := wallet.DecodeAddress(changeAddress, params)
		if !ok {
			return nil, fmt.Errorf("%w: change address %q", ErrUnsupportedOutputAddress, changeAddress)
		}
		script, err := payToScript(dec)
		if err != nil {
			return nil, err
		}
		changeOut = &classifiedOutput{
			output: Output{Address: changeAddress},
			format: dec.Format,
			script: script,
		}
		changeFormat = dec.Format
	}

	// Fee from the pre-signing size estimate. The circular dependency
	// between size, fee and change is cut here: the estimate is fixed
	// before signing and the true size is reported afterwards.
	inFormats := make([]chain.AddressFormat, len(inputs))
	for i, in := range inputs {
		inFormats[i] = in.format
	}
	outFormats := make([]chain.AddressFormat, len(outs))
	for i, o := range outs {
		outFormats[i] = o.format
	}
	estVSize := EstimateVSize(inFormats, outFormats, changeFormat)
	fee := uint64(estVSize) * feeRate

	if totalIn < sumRequested+fee || sumRequested+fee < sumRequested {
		return nil, fmt.Errorf("%w: have %d, need %d + fee %d", ErrInsufficientFunds, totalIn, sumRequested, fee)
	}
	changeValue := totalIn - sumRequested - fee

	switch {
	case changeValue > 0 && changeOut != nil:
		changeOut.output.Value = changeValue
	case changeValue == 0 && len(outs) == 0:
		// A transaction whose only output would be zero-valued change is
		// meaningless; sweeping requires a positive remainder.
		return nil, fmt.Errorf("%w: inputs %d cover only the fee %d", ErrNoValueRemaining, totalIn, fee)
	default:
		// Either there are requested outputs and no remainder, or no
		// change address was supplied: the remainder, if any, goes to fee.
		if changeValue > 0 {
			fee += changeValue
			changeValue = 0
		}
		changeOut = nil
	}

	tx := assemble(inputs, outs, changeOut)

	if err := signInputs(tx, mnemonic, inputs, addrPaths); err != nil {
		return nil, err
	}

	return finalize(tx, inputs, outs, changeOut, totalIn, fee, feeRate, params)
}

// classifyInputs decodes every UTXO's address and resolves the script of
// the spent output. P2PKH inputs must carry the full previous transaction.
func classifyInputs(utxos []Utxo, params *chain.Params) ([]classifiedInput, uint64, error) {
	inputs := make([]classifiedInput, 0, len(utxos))
	var totalIn uint64
	for _, u := range utxos {
		dec, ok := wallet.DecodeAddress(u.Address, params)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s:%d address %q", ErrUnsupportedInputAddress, u.TxID, u.Vout, u.Address)
		}

		txid, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid txid %q: %w", u.TxID, err)
		}

		var prevScript []byte
		switch dec.Format {
		case chain.FormatP2WPKH:
			prevScript, err = payToScript(dec)
			if err != nil {
				return nil, 0, err
			}
		case chain.FormatP2PKH:
			// The legacy signature hash covers the spent output's script
			// from within the referenced transaction, so the full previous
			// transaction is required.
			prevScript, err = prevOutputScript(u, txid)
			if err != nil {
				return nil, 0, err
			}
		}

		inputs = append(inputs, classifiedInput{
			utxo:       u,
			format:     dec.Format,
			pubKeyHash: dec.Hash,
			prevScript: prevScript,
			outpoint:   *wire.NewOutPoint(txid, u.Vout),
		})
		totalIn += u.Value
	}
	return inputs, totalIn, nil
}

// prevOutputScript extracts the spent output's script from the UTXO's raw
// previous transaction, verifying the hex against the claimed txid, vout
// and value.
func prevOutputScript(u Utxo, txid *chainhash.Hash) ([]byte, error) {
	if u.RawTx == "" {
		return nil, fmt.Errorf("%w: %s:%d", ErrMissingPrevTx, u.TxID, u.Vout)
	}
	raw, err := hex.DecodeString(u.RawTx)
	if err != nil {
		return nil, fmt.Errorf("%s:%d: invalid previous transaction hex: %w", u.TxID, u.Vout, err)
	}
	var prevTx wire.MsgTx
	if err := prevTx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%s:%d: decode previous transaction: %w", u.TxID, u.Vout, err)
	}
	if got := prevTx.TxHash(); got != *txid {
		return nil, fmt.Errorf("%s:%d: previous transaction hex hashes to %s", u.TxID, u.Vout, got)
	}
	if int(u.Vout) >= len(prevTx.TxOut) {
		return nil, fmt.Errorf("%s:%d: previous transaction has only %d outputs", u.TxID, u.Vout, len(prevTx.TxOut))
	}
	out := prevTx.TxOut[u.Vout]
	if out.Value != int64(u.Value) {
		return nil, fmt.Errorf("%s:%d: previous output value %d does not match UTXO value %d", u.TxID, u.Vout, out.Value, u.Value)
	}
	return out.PkScript, nil
}

// classifyOutputs decodes every requested output address and builds its
// scriptPubKey. Only P2WPKH and P2PKH outputs can be emitted.
func classifyOutputs(outputs []Output, params *chain.Params) ([]classifiedOutput, uint64, error) {
	outs := make([]classifiedOutput, 0, len(outputs))
	var sum uint64
	for _, o := range outputs {
		dec, ok := wallet.DecodeAddress(o.Address, params)
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedOutputAddress, o.Address)
		}
		script, err := payToScript(dec)
		if err != nil {
			return nil, 0, err
		}
		outs = append(outs, classifiedOutput{output: o, format: dec.Format, script: script})
		sum += o.Value
	}
	return outs, sum, nil
}

// payToScript builds the scriptPubKey paying to a decoded address.
func payToScript(dec wallet.DecodedAddress) ([]byte, error) {
	b := txscript.NewScriptBuilder()
	switch dec.Format {
	case chain.FormatP2WPKH:
		b.AddOp(txscript.OP_0).AddData(dec.Hash)
	case chain.FormatP2PKH:
		b.AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).
			AddData(dec.Hash).
			AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG)
	default:
		return nil, fmt.Errorf("%w: format %q", ErrUnsupportedOutputAddress, dec.Format)
	}
	return b.Script()
}

// assemble builds the unsigned transaction: all inputs, requested outputs
// in order, then the change output if any.
func assemble(inputs []classifiedInput, outs []classifiedOutput, changeOut *classifiedOutput) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	for _, in := range inputs {
		txIn := wire.NewTxIn(&in.outpoint, nil, nil)
		txIn.Sequence = wire.MaxTxInSequenceNum - 2 // opt in to RBF
		tx.AddTxIn(txIn)
	}
	for _, o := range outs {
		tx.AddTxOut(wire.NewTxOut(int64(o.output.Value), o.script))
	}
	if changeOut != nil {
		tx.AddTxOut(wire.NewTxOut(int64(changeOut.output.Value), changeOut.script))
	}
	return tx
}

// signInputs derives each input's key from the mnemonic and signs it:
// BIP-143 witness data for P2WPKH, a scriptSig for P2PKH. The derivation
// path comes from the UTXO itself when present, falling back to the
// address lookup table.
func signInputs(tx *wire.MsgTx, mnemonic string, inputs []classifiedInput, addrPaths map[string]string) error {
	master, err := wallet.NewMasterFromMnemonic(mnemonic)
	if err != nil {
		return err
	}

	prevOuts := make(map[wire.OutPoint]*wire.TxOut, len(inputs))
	for _, in := range inputs {
		prevOuts[in.outpoint] = wire.NewTxOut(int64(in.utxo.Value), in.prevScript)
	}
	sigHashes := txscript.NewTxSigHashes(tx, txscript.NewMultiPrevOutFetcher(prevOuts))

	for i, in := range inputs {
		path := in.utxo.Path
		if path == "" {
			path = addrPaths[in.utxo.Address]
		}
		if path == "" {
			return fmt.Errorf("%w: %s:%d address %q", ErrMissingDerivationPath, in.utxo.TxID, in.utxo.Vout, in.utxo.Address)
		}
		node, err := master.DerivePath(path)
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		priv, err := node.PrivateKey()
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		pub, err := node.PublicKeyBytes()
		if err != nil {
			return fmt.Errorf("input %d: %w", i, err)
		}
		if !bytes.Equal(wallet.Hash160(pub), in.pubKeyHash) {
			return fmt.Errorf("input %d: key at %s does not control address %q", i, path, in.utxo.Address)
		}

		switch in.format {
		case chain.FormatP2WPKH:
			witness, err := txscript.WitnessSignature(tx, sigHashes, i, int64(in.utxo.Value), in.prevScript, txscript.SigHashAll, priv, true)
			if err != nil {
				return fmt.Errorf("input %d: witness signature: %w", i, err)
			}
			tx.TxIn[i].Witness = witness
		case chain.FormatP2PKH:
			sigScript, err := txscript.SignatureScript(tx, i, in.prevScript, txscript.SigHashAll, priv, true)
			if err != nil {
				return fmt.Errorf("input %d: signature script: %w", i, err)
			}
			tx.TxIn[i].SignatureScript = sigScript
		}
	}
	return nil
}

// finalize serializes the signed transaction and reports its cost.
func finalize(tx *wire.MsgTx, inputs []classifiedInput, outs []classifiedOutput, changeOut *classifiedOutput, totalIn, fee, feeRate uint64, params *chain.Params) (*Result, error) {
	var totalOut uint64
	finalOutputs := make([]Output, 0, len(outs)+1)
	for _, o := range outs {
		totalOut += o.output.Value
		finalOutputs = append(finalOutputs, o.output)
	}
	var change *Output
	if changeOut != nil {
		totalOut += changeOut.output.Value
		finalOutputs = append(finalOutputs, changeOut.output)
		c := changeOut.output
		change = &c
	}

	// The change arithmetic above guarantees this algebraically; check the
	// literal sums anyway rather than trust the arithmetic.
	if totalOut > totalIn {
		return nil, fmt.Errorf("%w: out %d > in %d", ErrOutputsExceedInputs, totalOut, totalIn)
	}
	if totalOut+fee != totalIn {
		return nil, fmt.Errorf("%w: out %d + fee %d != in %d", ErrOutputsExceedInputs, totalOut, fee, totalIn)
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("serialize transaction: %w", err)
	}
	raw := buf.Bytes()

	// Actual virtual size from the signed serialization, not the estimate.
	stripped := tx.SerializeSizeStripped()
	weight := stripped*3 + tx.SerializeSize()
	vsize := (weight + 3) / 4

	res := &Result{
		Raw:              raw,
		Hex:              hex.EncodeToString(raw),
		TxID:             tx.TxHash().String(),
		Fee:              fee,
		VSize:            vsize,
		TotalIn:          totalIn,
		TotalOut:         totalOut,
		Change:           change,
		Outputs:          finalOutputs,
		EffectiveFeeRate: float64(fee) / float64(vsize),
	}

	log.TxBuilder.Info().
		Str("network", params.Symbol).
		Str("txid", res.TxID).
		Int("inputs", len(inputs)).
		Int("outputs", len(finalOutputs)).
		Uint64("fee", fee).
		Uint64("requested_rate", feeRate).
		Int("vsize", vsize).
		Msg("built transaction")
	return res, nil
}
