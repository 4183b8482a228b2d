package errors

import (
	"fmt"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// UtxoSpentErrData identifies the output that was already spent and the transaction that spent it.
type UtxoSpentErrData struct {
	TxID           chainhash.Hash
	Vout           uint32
	SpendingTxHash chainhash.Hash
}

type utxoSpentJSON struct {
	TxID         string `json:"txid"`
	Vout         uint32 `json:"vout"`
	SpendingTxID string `json:"spendingTxId"`
}

func (e *UtxoSpentErrData) MarshalJSON() ([]byte, error) {
	return json.Marshal(utxoSpentJSON{
		TxID:         e.TxID.String(),
		Vout:         e.Vout,
		SpendingTxID: e.SpendingTxHash.String(),
	})
}

func (e *UtxoSpentErrData) UnmarshalJSON(b []byte) error {
	var v utxoSpentJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	txID, err := chainhash.NewHashFromStr(v.TxID)
	if err != nil {
		return err
	}

	spendingTxID, err := chainhash.NewHashFromStr(v.SpendingTxID)
	if err != nil {
		return err
	}

	e.TxID = *txID
	e.Vout = v.Vout
	e.SpendingTxHash = *spendingTxID

	return nil
}

func (e *UtxoSpentErrData) Error() string {
	return fmt.Sprintf("utxo %s:%d already spent by %s", e.TxID, e.Vout, e.SpendingTxHash)
}

func (e *UtxoSpentErrData) EncodeErrorData() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return []byte{}
	}

	return data
}

func (e *UtxoSpentErrData) GetData(key string) interface{} {
	switch key {
	case "txid":
		return e.TxID
	case "vout":
		return e.Vout
	case "spendingTxId":
		return e.SpendingTxHash
	}

	return nil
}

func (e *UtxoSpentErrData) SetData(string, interface{}) {}

// NewUtxoSpentError returns an ERR_UTXO_SPENT error carrying the spent outpoint and its spender.
func NewUtxoSpentError(txID chainhash.Hash, vout uint32, spendingTxID chainhash.Hash, err error) *Error {
	data := &UtxoSpentErrData{
		TxID:           txID,
		Vout:           vout,
		SpendingTxHash: spendingTxID,
	}

	if err != nil {
		return NewWithData(ERR_UTXO_SPENT, data.Error(), data, err)
	}

	return NewWithData(ERR_UTXO_SPENT, data.Error(), data)
}
