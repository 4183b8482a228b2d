package errors

var (
	ErrUnknown                = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument        = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrNotFound               = New(ERR_NOT_FOUND, "not found")
	ErrProcessing             = New(ERR_PROCESSING, "error processing")
	ErrConfiguration          = New(ERR_CONFIGURATION, "configuration error")
	ErrContextCanceled        = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrError                  = New(ERR_ERROR, "generic error")
	ErrDecode                 = New(ERR_DECODE, "decode error")
	ErrTxNotFound             = New(ERR_TX_NOT_FOUND, "tx not found")
	ErrTxInvalid              = New(ERR_TX_INVALID, "tx invalid")
	ErrTxMalformed            = New(ERR_TX_MALFORMED, "malformed transaction")
	ErrTxUnknownOrSpentInput  = New(ERR_TX_UNKNOWN_OR_SPENT_INPUT, "unknown or spent input")
	ErrTxNegativeFee          = New(ERR_TX_NEGATIVE_FEE, "negative fee")
	ErrTxAlreadyExists        = New(ERR_TX_ALREADY_EXISTS, "tx already exists")
	ErrUtxoSpent              = New(ERR_UTXO_SPENT, "utxo already spent")
	ErrKeyAlreadyExists       = New(ERR_KEY_ALREADY_EXISTS, "bitname key already exists")
	ErrBlockInvalid           = New(ERR_BLOCK_INVALID, "block invalid")
	ErrBmmInsufficientAmount  = New(ERR_BMM_INSUFFICIENT_AMOUNT, "bmm amount below minimum")
	ErrBmmAttemptInProgress   = New(ERR_BMM_ATTEMPT_IN_PROGRESS, "bmm attempt already in progress")
	ErrBmm                    = New(ERR_BMM_ERROR, "bmm error")
	ErrServiceUnavailable     = New(ERR_SERVICE_UNAVAILABLE, "service unavailable")
	ErrServiceError           = New(ERR_SERVICE_ERROR, "service error")
	ErrStorageUnavailable     = New(ERR_STORAGE_UNAVAILABLE, "storage unavailable")
	ErrStorageError           = New(ERR_STORAGE_ERROR, "storage error")
	ErrNetwork                = New(ERR_NETWORK_ERROR, "network error")
	ErrNetworkTimeout         = New(ERR_NETWORK_TIMEOUT, "network timeout")
	ErrNetworkInvalidResponse = New(ERR_NETWORK_INVALID_RESPONSE, "invalid network response")
	ErrThresholdExceeded      = New(ERR_THRESHOLD_EXCEEDED, "threshold exceeded")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewNotFoundError(message string, params ...interface{}) error {
	return New(ERR_NOT_FOUND, message, params...)
}
func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}
func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}
func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}
func NewError(message string, params ...interface{}) error {
	return New(ERR_ERROR, message, params...)
}
func NewDecodeError(message string, params ...interface{}) error {
	return New(ERR_DECODE, message, params...)
}
func NewTxNotFoundError(message string, params ...interface{}) error {
	return New(ERR_TX_NOT_FOUND, message, params...)
}
func NewTxInvalidError(message string, params ...interface{}) error {
	return New(ERR_TX_INVALID, message, params...)
}
func NewTxMalformedError(message string, params ...interface{}) error {
	return New(ERR_TX_MALFORMED, message, params...)
}
func NewTxUnknownOrSpentInputError(message string, params ...interface{}) error {
	return New(ERR_TX_UNKNOWN_OR_SPENT_INPUT, message, params...)
}
func NewTxNegativeFeeError(message string, params ...interface{}) error {
	return New(ERR_TX_NEGATIVE_FEE, message, params...)
}
func NewTxAlreadyExistsError(message string, params ...interface{}) error {
	return New(ERR_TX_ALREADY_EXISTS, message, params...)
}
func NewKeyAlreadyExistsError(message string, params ...interface{}) error {
	return New(ERR_KEY_ALREADY_EXISTS, message, params...)
}
func NewBlockInvalidError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_INVALID, message, params...)
}
func NewBmmInsufficientAmountError(message string, params ...interface{}) error {
	return New(ERR_BMM_INSUFFICIENT_AMOUNT, message, params...)
}
func NewBmmAttemptInProgressError(message string, params ...interface{}) error {
	return New(ERR_BMM_ATTEMPT_IN_PROGRESS, message, params...)
}
func NewBmmError(message string, params ...interface{}) error {
	return New(ERR_BMM_ERROR, message, params...)
}
func NewServiceUnavailableError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_UNAVAILABLE, message, params...)
}
func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}
func NewStorageUnavailableError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_UNAVAILABLE, message, params...)
}
func NewStorageError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_ERROR, message, params...)
}
func NewNetworkError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_ERROR, message, params...)
}
func NewNetworkTimeoutError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_TIMEOUT, message, params...)
}
func NewNetworkInvalidResponseError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_INVALID_RESPONSE, message, params...)
}
func NewThresholdExceededError(message string, params ...interface{}) error {
	return New(ERR_THRESHOLD_EXCEEDED, message, params...)
}
