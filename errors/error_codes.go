package errors

import "strconv"

// ERR is the numeric error code carried by every *Error and across gRPC boundaries.
type ERR int32

const (
	ERR_UNKNOWN          ERR = 0
	ERR_INVALID_ARGUMENT ERR = 1
	ERR_NOT_FOUND        ERR = 2
	ERR_PROCESSING       ERR = 3
	ERR_CONFIGURATION    ERR = 4
	ERR_CONTEXT_CANCELED ERR = 5
	ERR_ERROR            ERR = 6
	ERR_DECODE           ERR = 7

	// transactions
	ERR_TX_NOT_FOUND              ERR = 10
	ERR_TX_INVALID                ERR = 11
	ERR_TX_MALFORMED              ERR = 12
	ERR_TX_UNKNOWN_OR_SPENT_INPUT ERR = 13
	ERR_TX_NEGATIVE_FEE           ERR = 14
	ERR_TX_ALREADY_EXISTS         ERR = 15
	ERR_UTXO_SPENT                ERR = 16
	ERR_KEY_ALREADY_EXISTS        ERR = 17
	ERR_BLOCK_INVALID             ERR = 18

	// blind merged mining
	ERR_BMM_INSUFFICIENT_AMOUNT ERR = 30
	ERR_BMM_ATTEMPT_IN_PROGRESS ERR = 31
	ERR_BMM_ERROR               ERR = 32

	// services and storage
	ERR_SERVICE_UNAVAILABLE      ERR = 50
	ERR_SERVICE_ERROR            ERR = 51
	ERR_STORAGE_UNAVAILABLE      ERR = 52
	ERR_STORAGE_ERROR            ERR = 53
	ERR_NETWORK_ERROR            ERR = 54
	ERR_NETWORK_TIMEOUT          ERR = 55
	ERR_NETWORK_INVALID_RESPONSE ERR = 56
	ERR_THRESHOLD_EXCEEDED       ERR = 57
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	2:  "NOT_FOUND",
	3:  "PROCESSING",
	4:  "CONFIGURATION",
	5:  "CONTEXT_CANCELED",
	6:  "ERROR",
	7:  "DECODE",
	10: "TX_NOT_FOUND",
	11: "TX_INVALID",
	12: "TX_MALFORMED",
	13: "TX_UNKNOWN_OR_SPENT_INPUT",
	14: "TX_NEGATIVE_FEE",
	15: "TX_ALREADY_EXISTS",
	16: "UTXO_SPENT",
	17: "KEY_ALREADY_EXISTS",
	18: "BLOCK_INVALID",
	30: "BMM_INSUFFICIENT_AMOUNT",
	31: "BMM_ATTEMPT_IN_PROGRESS",
	32: "BMM_ERROR",
	50: "SERVICE_UNAVAILABLE",
	51: "SERVICE_ERROR",
	52: "STORAGE_UNAVAILABLE",
	53: "STORAGE_ERROR",
	54: "NETWORK_ERROR",
	55: "NETWORK_TIMEOUT",
	56: "NETWORK_INVALID_RESPONSE",
	57: "THRESHOLD_EXCEEDED",
}

var ERR_value = func() map[string]int32 {
	m := make(map[string]int32, len(ERR_name))
	for k, v := range ERR_name {
		m[v] = k
	}

	return m
}()

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return strconv.Itoa(int(x))
}

// Enum returns a pointer to a copy of the code, mirroring generated enum helpers.
func (x ERR) Enum() *ERR {
	p := new(ERR)
	*p = x

	return p
}
