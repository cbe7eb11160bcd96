package txbuilder

import "github.com/Klingon-tech/klingwallet/internal/chain"

// Virtual size weights per input/output type, in vbytes. These are the
// usual fixed approximations: a signed transaction's true size depends on
// signature length (71 or 72 bytes) and is not known before signing, so the
// fee is computed from this estimate and the effective rate ends up within
// a few percent of the requested one.
const (
	overheadVBytes = 10

	inputVBytesP2WPKH = 68
	inputVBytesP2PKH  = 148

	outputVBytesP2WPKH = 31
	outputVBytesP2PKH  = 34
)

func inputVBytes(format chain.AddressFormat) int {
	if format == chain.FormatP2WPKH {
		return inputVBytesP2WPKH
	}
	return inputVBytesP2PKH
}

func outputVBytes(format chain.AddressFormat) int {
	if format == chain.FormatP2WPKH {
		return outputVBytesP2WPKH
	}
	return outputVBytesP2PKH
}

// RoughVBytesPerSpend is a pessimistic one-input size guess used to pad coin
// selection targets before the real input set is known. It assumes legacy
// input weight so selection never comes up short on a mixed wallet.
func RoughVBytesPerSpend(outputs int) uint64 {
	return uint64(overheadVBytes + inputVBytesP2PKH + outputs*outputVBytesP2PKH)
}

// EstimateVSize approximates the virtual size of a transaction before it is
// built. changeFormat is empty when no change output may be added.
func EstimateVSize(inputs, outputs []chain.AddressFormat, changeFormat chain.AddressFormat) int {
	size := overheadVBytes
	for _, f := range inputs {
		size += inputVBytes(f)
	}
	for _, f := range outputs {
		size += outputVBytes(f)
	}
	if changeFormat != "" {
		size += outputVBytes(changeFormat)
	}
	return size
}
