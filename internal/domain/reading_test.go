package domain

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func TestQualityForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Quality
	}{
		{"nil", nil, QualityGood},
		{"timeout", ErrTimeout, QualityTimeout},
		{"wrapped timeout", fmt.Errorf("op: %w", ErrTimeout), QualityTimeout},
		{"connection failed", ErrConnectionFailed, QualityNotConnected},
		{"device exception", ExceptionError(0x04), QualityDeviceFailure},
		{"framing", ErrProtocolFraming, QualityBad},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QualityForError(tt.err); got != tt.want {
				t.Errorf("QualityForError(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestReadingToJSON(t *testing.T) {
	r := &Reading{
		Endpoint:  "10.0.0.5:502 (unit 1)",
		Class:     "holding",
		Address:   100,
		Value:     uint16(1500),
		Quality:   QualityGood,
		Timestamp: time.UnixMilli(1700000000000),
	}

	data, err := r.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var got struct {
		Value     float64 `json:"v"`
		Quality   string  `json:"q"`
		Timestamp int64   `json:"ts"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Value != 1500 {
		t.Errorf("v = %v, want 1500", got.Value)
	}
	if got.Quality != "good" {
		t.Errorf("q = %q, want good", got.Quality)
	}
	if got.Timestamp != 1700000000000 {
		t.Errorf("ts = %d", got.Timestamp)
	}
}
