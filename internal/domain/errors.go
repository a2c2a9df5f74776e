// Package domain contains core business entities.
package domain

import (
	"errors"
	"fmt"
)

// Client-side errors, detected before or around network I/O.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrProtocolFraming    = errors.New("protocol framing error")
	ErrTimeout            = errors.New("timeout waiting for response")
	ErrUnexpectedResponse = errors.New("unexpected response")
	ErrBusy               = errors.New("another request is in flight")
	ErrClientClosed       = errors.New("client is closed")
)

// Device-returned Modbus exception conditions.
var (
	ErrIllegalFunction        = errors.New("modbus: illegal function")
	ErrIllegalDataAddress     = errors.New("modbus: illegal data address")
	ErrIllegalDataValue       = errors.New("modbus: illegal data value")
	ErrSlaveDeviceFailure     = errors.New("modbus: slave device failure")
	ErrAcknowledge            = errors.New("modbus: acknowledge - long operation in progress")
	ErrSlaveDeviceBusy        = errors.New("modbus: slave device busy")
	ErrMemoryParityError      = errors.New("modbus: memory parity error")
	ErrGatewayPathUnavailable = errors.New("modbus: gateway path unavailable")
	ErrGatewayTargetFailed    = errors.New("modbus: gateway target device failed to respond")
	ErrUnknownException       = errors.New("modbus: unknown exception")
)

// DeviceError is a Modbus exception response mapped to a domain error.
// It unwraps to one of the exception sentinels above so callers can use
// errors.Is, and keeps the raw exception code for diagnostics.
type DeviceError struct {
	Kind error
	Code byte
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("%v (exception code %d)", e.Kind, e.Code)
}

// Unwrap returns the exception sentinel for errors.Is matching.
func (e *DeviceError) Unwrap() error {
	return e.Kind
}

// ExceptionError converts a device-returned exception code to a DeviceError.
// Codes outside the standard set map to ErrUnknownException but still carry
// the raw code.
func ExceptionError(code byte) error {
	kind := ErrUnknownException
	switch code {
	case 0x01:
		kind = ErrIllegalFunction
	case 0x02:
		kind = ErrIllegalDataAddress
	case 0x03:
		kind = ErrIllegalDataValue
	case 0x04:
		kind = ErrSlaveDeviceFailure
	case 0x05:
		kind = ErrAcknowledge
	case 0x06:
		kind = ErrSlaveDeviceBusy
	case 0x08:
		kind = ErrMemoryParityError
	case 0x0A:
		kind = ErrGatewayPathUnavailable
	case 0x0B:
		kind = ErrGatewayTargetFailed
	}
	return &DeviceError{Kind: kind, Code: code}
}

// IsDeviceError reports whether err originated as a device exception
// response, and returns the typed error if so.
func IsDeviceError(err error) (*DeviceError, bool) {
	var de *DeviceError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
