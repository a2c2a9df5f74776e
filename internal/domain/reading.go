package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Quality indicates the reliability of a reading.
type Quality string

const (
	QualityGood          Quality = "good"
	QualityBad           Quality = "bad"
	QualityNotConnected  Quality = "not_connected"
	QualityDeviceFailure Quality = "device_failure"
	QualityTimeout       Quality = "timeout"
)

// QualityForError maps a read error to a Quality value.
func QualityForError(err error) Quality {
	switch {
	case err == nil:
		return QualityGood
	case isTimeoutErr(err):
		return QualityTimeout
	case isConnErr(err):
		return QualityNotConnected
	default:
		if _, ok := IsDeviceError(err); ok {
			return QualityDeviceFailure
		}
		return QualityBad
	}
}

func isTimeoutErr(err error) bool { return errors.Is(err, ErrTimeout) }
func isConnErr(err error) bool    { return errors.Is(err, ErrConnectionFailed) }

// Reading is a single polled value from a device register or coil.
type Reading struct {
	// Endpoint identifies the source device.
	Endpoint string `json:"endpoint"`

	// Class is the register class that was read.
	Class string `json:"class"`

	// Address is the 0-based register/coil address.
	Address uint16 `json:"address"`

	// Value is a uint16 for registers or a bool for coil-type reads.
	// Nil when Quality is not good.
	Value interface{} `json:"v"`

	// Quality indicates whether the read succeeded.
	Quality Quality `json:"q"`

	// Timestamp is when the value was read from the device.
	Timestamp time.Time `json:"-"`
}

// payload is the compact wire format for MQTT publishing.
// Short field names keep the per-point overhead small.
type payload struct {
	Value     interface{} `json:"v"`
	Quality   Quality     `json:"q"`
	Timestamp int64       `json:"ts"`
}

// ToJSON serializes the reading to its compact publish payload.
func (r *Reading) ToJSON() ([]byte, error) {
	return json.Marshal(payload{
		Value:     r.Value,
		Quality:   r.Quality,
		Timestamp: r.Timestamp.UnixMilli(),
	})
}
