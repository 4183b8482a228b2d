package model

import (
	"bytes"
	"math/bits"

	"github.com/bitnames/bitnames/errors"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// Transaction spends Inputs and creates Outputs. Its wire form is the canonical CBOR
// encoding and its id is the double SHA256 of that encoding.
type Transaction struct {
	_       struct{} `cbor:",toarray"`
	Inputs  []OutPoint
	Outputs []Output
}

// NewTransactionFromBytes decodes a transaction. Bytes that are not the canonical
// encoding of the decoded value are rejected, so that a transaction has exactly one id.
func NewTransactionFromBytes(txBytes []byte) (*Transaction, error) {
	if len(txBytes) == 0 {
		return nil, errors.NewTxMalformedError("empty transaction")
	}

	tx := &Transaction{}

	if err := decMode.Unmarshal(txBytes, tx); err != nil {
		return nil, errors.NewTxMalformedError("failed to decode transaction", err)
	}

	canonical, err := encMode.Marshal(tx)
	if err != nil {
		return nil, errors.NewTxMalformedError("failed to encode transaction", err)
	}

	if !bytes.Equal(canonical, txBytes) {
		return nil, errors.NewTxMalformedError("transaction is not canonically encoded")
	}

	return tx, nil
}

// Bytes returns the canonical encoding.
func (tx *Transaction) Bytes() []byte {
	b, err := encMode.Marshal(tx)
	if err != nil {
		// only reachable with a broken encoder configuration
		panic(err)
	}

	return b
}

func (tx *Transaction) TxID() chainhash.Hash {
	return chainhash.DoubleHashH(tx.Bytes())
}

// CheckStructure runs the context free checks: at least one input and one output, no
// input spent twice, no value on BitName outputs and no BitName key registered twice.
func (tx *Transaction) CheckStructure() error {
	if len(tx.Inputs) == 0 {
		return errors.NewTxMalformedError("transaction has no inputs")
	}

	if len(tx.Outputs) == 0 {
		return errors.NewTxMalformedError("transaction has no outputs")
	}

	seen := make(map[OutPoint]struct{}, len(tx.Inputs))

	for _, input := range tx.Inputs {
		if _, ok := seen[input]; ok {
			return errors.NewTxMalformedError("input %s is spent more than once", input)
		}

		seen[input] = struct{}{}
	}

	keys := make(map[chainhash.Hash]struct{})

	for i, output := range tx.Outputs {
		if output.BitName == nil {
			continue
		}

		if output.Value != 0 {
			return errors.NewTxMalformedError("bitname output %d carries value %d", i, output.Value)
		}

		if _, ok := keys[output.BitName.Key]; ok {
			return errors.NewTxMalformedError("bitname key %s is registered more than once", output.BitName.Key)
		}

		keys[output.BitName.Key] = struct{}{}
	}

	return nil
}

// BitNames returns the registrations made by the transaction.
func (tx *Transaction) BitNames() []BitName {
	var names []BitName

	for _, output := range tx.Outputs {
		if output.BitName != nil {
			names = append(names, *output.BitName)
		}
	}

	return names
}

// OutputValue sums the output values. ok is false if the sum overflows.
func (tx *Transaction) OutputValue() (total uint64, ok bool) {
	for _, output := range tx.Outputs {
		var carry uint64

		total, carry = bits.Add64(total, output.Value, 0)
		if carry != 0 {
			return 0, false
		}
	}

	return total, true
}

// Fee returns the value of the spent outputs minus the value of the created outputs.
func (tx *Transaction) Fee(spent []Output) (uint64, error) {
	var (
		inputValue uint64
		carry      uint64
	)

	for _, output := range spent {
		inputValue, carry = bits.Add64(inputValue, output.Value, 0)
		if carry != 0 {
			return 0, errors.NewTxMalformedError("input value overflows")
		}
	}

	outputValue, ok := tx.OutputValue()
	if !ok {
		return 0, errors.NewTxNegativeFeeError("output value overflows")
	}

	if outputValue > inputValue {
		return 0, errors.NewTxNegativeFeeError("outputs (%d) exceed inputs (%d)", outputValue, inputValue)
	}

	return inputValue - outputValue, nil
}
