// Package errors provides the node wide error type. Every error carries an ERR code that
// survives a round trip over gRPC, so callers on either side of the gateway can match on
// codes with Is and As.
package errors

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type Error struct {
	code       ERR
	message    string
	wrappedErr error
	data       ErrDataI
}

type Interface interface {
	Error() string
	Is(target error) bool
	As(target interface{}) bool
	Unwrap() error

	Code() ERR
	Message() string
	WrappedErr() error
	Data() ErrDataI
}

func (e *Error) Error() string {
	// Error() can be called on wrapped errors, which can be nil, for example predefined errors
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s (%d): %s", e.code, e.code, e.message)

	if e.data != nil {
		msg += ", data:" + e.data.Error()
	}

	if e.wrappedErr != nil {
		msg += " -> " + e.wrappedErr.Error()
	}

	return msg
}

// Is reports whether error codes match, walking the wrapped chain.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}

	targetError, ok := target.(*Error)
	if !ok {
		if target == nil {
			return false
		}

		return strings.Contains(e.Error(), target.Error())
	}

	if e.code == targetError.code {
		return true
	}

	if e.wrappedErr == nil {
		return false
	}

	if ue, ok := e.wrappedErr.(*Error); ok {
		return ue.Is(target)
	}

	return false
}

func (e *Error) As(target interface{}) bool {
	if e == nil {
		return false
	}

	if targetErr, ok := target.(**Error); ok {
		*targetErr = e
		return true
	}

	// check if Data matches the target type
	if e.data != nil {
		if data, ok := e.data.(error); ok && errors.As(data, target) {
			return true
		}
	}

	if e.wrappedErr != nil {
		if reflect.ValueOf(e.wrappedErr).Kind() == reflect.Ptr && reflect.ValueOf(e.wrappedErr).IsNil() {
			return false
		}

		return errors.As(e.wrappedErr, target)
	}

	return false
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Code() ERR {
	if e == nil {
		return ERR_UNKNOWN
	}

	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}

	return e.message
}

func (e *Error) WrappedErr() error {
	if e == nil {
		return nil
	}

	return e.wrappedErr
}

func (e *Error) Data() ErrDataI {
	if e == nil {
		return nil
	}

	return e.data
}

func (e *Error) SetData(key string, value interface{}) {
	if e.data == nil {
		e.data = &ErrData{}
	}

	var data *ErrData
	if errors.As(e.data, &data) {
		data.SetData(key, value)
	}
}

func (e *Error) GetData(key string) interface{} {
	if e.data == nil {
		return nil
	}

	return e.data.GetData(key)
}

// New creates an error with the given code. The message is a format string; if the last
// param is an error it is wrapped instead of being formatted.
func New(code ERR, message string, params ...interface{}) *Error {
	var wErr error

	if len(params) > 0 {
		lastParam := params[len(params)-1]

		switch err := lastParam.(type) {
		case *Error:
			wErr = err
			params = params[:len(params)-1]
		case error:
			wErr = err
			params = params[:len(params)-1]
		}
	}

	if len(params) > 0 {
		message = fmt.Sprintf(message, params...)
	}

	if _, ok := ERR_name[int32(code)]; !ok {
		return &Error{
			code:       code,
			message:    "invalid error code",
			wrappedErr: wErr,
		}
	}

	return &Error{
		code:       code,
		message:    message,
		wrappedErr: wErr,
	}
}

// NewWithData creates an error that carries structured data alongside the message.
func NewWithData(code ERR, message string, data ErrDataI, params ...interface{}) *Error {
	e := New(code, message, params...)
	e.data = data

	return e
}

// WrapGRPC converts an error into a gRPC status error. Each *Error in the chain is attached
// to the status as a detail so that UnwrapGRPC can rebuild it on the other side.
// NOTE: grpc generated handlers expect an untyped nil, which is why this returns error.
func WrapGRPC(err error) error {
	if err == nil {
		return nil
	}

	castedErr, ok := err.(*Error)
	if !ok {
		if _, isStatus := status.FromError(err); isStatus {
			return err
		}

		castedErr = New(ERR_ERROR, err.Error())
	}

	if castedErr.wrappedErr != nil {
		if _, ok := castedErr.wrappedErr.(interface{ GRPCStatus() *status.Status }); ok {
			return castedErr.wrappedErr
		}
	}

	details := make([]protoadapt.MessageV1, 0, 2)

	var current error = castedErr

	for current != nil {
		var (
			code    ERR
			message string
			data    []byte
			next    error
		)

		if tErr, ok := current.(*Error); ok {
			code = tErr.code
			message = tErr.message
			next = tErr.wrappedErr

			if tErr.data != nil {
				data = tErr.data.EncodeErrorData()
			}
		} else {
			code = ERR_ERROR
			message = current.Error()
		}

		detail, pbErr := encodeDetail(code, message, data)
		if pbErr != nil {
			return New(ERR_ERROR, "error serializing error details", err)
		}

		details = append(details, detail)
		current = next
	}

	st := status.New(ErrorCodeToGRPCCode(castedErr.code), castedErr.message)

	st, detailsErr := st.WithDetails(details...)
	if detailsErr != nil {
		return New(ERR_ERROR, "error adding details to the error's gRPC status", err)
	}

	return st.Err()
}

func encodeDetail(code ERR, message string, data []byte) (*structpb.Struct, error) {
	fields := map[string]interface{}{
		"code":    float64(code),
		"message": message,
	}

	if len(data) > 0 {
		fields["data"] = string(data)
	}

	return structpb.NewStruct(fields)
}

func decodeDetail(detail interface{}) (*Error, bool) {
	var s *structpb.Struct

	switch d := detail.(type) {
	case *structpb.Struct:
		s = d
	case *anypb.Any:
		s = &structpb.Struct{}
		if err := d.UnmarshalTo(s); err != nil {
			return nil, false
		}
	default:
		return nil, false
	}

	fields := s.GetFields()

	codeValue, ok := fields["code"]
	if !ok {
		return nil, false
	}

	code := ERR(int32(codeValue.GetNumberValue()))
	e := &Error{
		code:    code,
		message: fields["message"].GetStringValue(),
	}

	if dataValue, ok := fields["data"]; ok {
		if data, err := GetErrorData(code, []byte(dataValue.GetStringValue())); err == nil {
			e.data = data
		}
	}

	return e, true
}

// UnwrapGRPC rebuilds the *Error chain from a gRPC status error.
func UnwrapGRPC(err error) *Error {
	if err == nil {
		return nil
	}

	if tErr, ok := err.(*Error); ok {
		return tErr
	}

	st, ok := status.FromError(err)
	if !ok {
		return &Error{
			code:       ERR_ERROR,
			message:    "error unwrapping gRPC details",
			wrappedErr: err,
		}
	}

	details := st.Details()
	if len(details) == 0 {
		return &Error{
			code:    grpcCodeToErrorCode(st.Code()),
			message: st.Message(),
		}
	}

	var prevErr, currErr *Error

	for i := len(details) - 1; i >= 0; i-- {
		e, ok := decodeDetail(details[i])
		if !ok {
			continue
		}

		if prevErr != nil {
			e.wrappedErr = prevErr
		}

		currErr = e
		prevErr = e
	}

	if currErr == nil {
		return &Error{
			code:    grpcCodeToErrorCode(st.Code()),
			message: st.Message(),
		}
	}

	return currErr
}

// ErrorCodeToGRPCCode maps application error codes to gRPC status codes.
func ErrorCodeToGRPCCode(code ERR) codes.Code {
	switch code {
	case ERR_UNKNOWN:
		return codes.Unknown
	case ERR_INVALID_ARGUMENT, ERR_DECODE, ERR_TX_MALFORMED, ERR_BMM_INSUFFICIENT_AMOUNT:
		return codes.InvalidArgument
	case ERR_NOT_FOUND, ERR_TX_NOT_FOUND:
		return codes.NotFound
	case ERR_TX_ALREADY_EXISTS, ERR_KEY_ALREADY_EXISTS, ERR_UTXO_SPENT:
		return codes.AlreadyExists
	case ERR_BMM_ATTEMPT_IN_PROGRESS:
		return codes.FailedPrecondition
	case ERR_CONTEXT_CANCELED:
		return codes.Canceled
	case ERR_SERVICE_UNAVAILABLE, ERR_STORAGE_UNAVAILABLE:
		return codes.Unavailable
	case ERR_NETWORK_TIMEOUT:
		return codes.DeadlineExceeded
	case ERR_THRESHOLD_EXCEEDED:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

func grpcCodeToErrorCode(code codes.Code) ERR {
	switch code {
	case codes.InvalidArgument:
		return ERR_INVALID_ARGUMENT
	case codes.NotFound:
		return ERR_NOT_FOUND
	case codes.Canceled:
		return ERR_CONTEXT_CANCELED
	case codes.Unavailable:
		return ERR_SERVICE_UNAVAILABLE
	case codes.DeadlineExceeded:
		return ERR_NETWORK_TIMEOUT
	case codes.ResourceExhausted:
		return ERR_THRESHOLD_EXCEEDED
	default:
		return ERR_ERROR
	}
}

func Join(errs ...error) error {
	var messages []string

	for _, err := range errs {
		if err != nil {
			messages = append(messages, err.Error())
		}
	}

	if len(messages) == 0 {
		return nil
	}

	return errors.New(strings.Join(messages, ", "))
}

func Is(err, target error) bool {
	if isGRPCWrappedError(err) {
		err = UnwrapGRPC(err)
	}

	return errors.Is(err, target)
}

func AsData(err error, target interface{}) bool {
	if isGRPCWrappedError(err) {
		err = UnwrapGRPC(err)
	}

	if castedErr, ok := err.(*Error); ok {
		if castedErr.data != nil && errors.As(castedErr.data, target) {
			return true
		}

		if castedErr.wrappedErr != nil {
			return AsData(castedErr.wrappedErr, target)
		}
	}

	return false
}

func As(err error, target any) bool {
	if isGRPCWrappedError(err) {
		err = UnwrapGRPC(err)
	}

	return errors.As(err, target)
}

func isGRPCWrappedError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(*Error); ok {
		return false
	}

	_, ok := err.(interface{ GRPCStatus() *status.Status })

	return ok
}
