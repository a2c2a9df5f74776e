package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/nexus-edge/modbuscli/internal/domain"
	"github.com/nexus-edge/modbuscli/internal/protocol"
	"github.com/rs/zerolog"
)

// readRequest reads one complete request ADU from the server side.
func readRequest(conn net.Conn) (txid uint16, unitID uint8, pdu []byte, err error) {
	header := make([]byte, protocol.MBAPHeaderLength)
	if _, err = io.ReadFull(conn, header); err != nil {
		return
	}
	txid = binary.BigEndian.Uint16(header[0:2])
	unitID = header[6]
	pdu = make([]byte, binary.BigEndian.Uint16(header[4:6])-1)
	_, err = io.ReadFull(conn, pdu)
	return
}

func respond(conn net.Conn, txid uint16, unitID uint8, pdu []byte) {
	frame, err := protocol.PackFrame(txid, unitID, pdu)
	if err != nil {
		return
	}
	conn.Write(frame)
}

func newTestManager(t *testing.T, addr string, cfg Config) *TransactionManager {
	t.Helper()
	conn := NewConn(testEndpoint(t, addr), time.Second, zerolog.Nop(), nil)
	t.Cleanup(func() { conn.Close() })
	return NewTransactionManager(conn, 1, cfg, zerolog.Nop())
}

func TestExecuteRoundTrip(t *testing.T) {
	request := []byte{0x03, 0x00, 0x64, 0x00, 0x01}
	response := []byte{0x03, 0x02, 0x12, 0x34}

	addr := serve(t, func(conn net.Conn) {
		txid, unitID, pdu, err := readRequest(conn)
		if err != nil || !bytes.Equal(pdu, request) {
			return
		}
		respond(conn, txid, unitID, response)
	})

	tm := newTestManager(t, addr, Config{Timeout: time.Second})
	got, err := tm.Execute(context.Background(), request)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !bytes.Equal(got, response) {
		t.Errorf("Execute() = % X, want % X", got, response)
	}
}

func TestExecuteDiscardsMismatchedFrames(t *testing.T) {
	request := []byte{0x03, 0x00, 0x00, 0x00, 0x01}
	response := []byte{0x03, 0x02, 0x00, 0x2A}

	addr := serve(t, func(conn net.Conn) {
		txid, unitID, _, err := readRequest(conn)
		if err != nil {
			return
		}
		// A stale frame with the wrong transaction ID, then one with
		// the wrong unit ID, then the real response.
		respond(conn, txid+100, unitID, []byte{0x03, 0x02, 0xDE, 0xAD})
		respond(conn, txid, unitID+1, []byte{0x03, 0x02, 0xDE, 0xAD})
		respond(conn, txid, unitID, response)
	})

	tm := newTestManager(t, addr, Config{Timeout: time.Second})
	got, err := tm.Execute(context.Background(), request)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !bytes.Equal(got, response) {
		t.Errorf("Execute() = % X, want % X", got, response)
	}
}

func TestExecuteTimeoutClosesConnection(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		// Swallow the request and never answer.
		readRequest(conn)
		time.Sleep(time.Second)
	})

	conn := NewConn(testEndpoint(t, addr), time.Second, zerolog.Nop(), nil)
	t.Cleanup(func() { conn.Close() })
	tm := NewTransactionManager(conn, 1, Config{Timeout: 50 * time.Millisecond}, zerolog.Nop())

	_, err := tm.Execute(context.Background(), []byte{0x03, 0x00, 0x00, 0x00, 0x01})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
	if conn.Connected() {
		t.Error("connection still open after timeout")
	}
}

func TestExecuteContextCancellation(t *testing.T) {
	addr := serve(t, func(conn net.Conn) {
		readRequest(conn)
		time.Sleep(time.Second)
	})

	tm := newTestManager(t, addr, Config{Timeout: 10 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := tm.Execute(ctx, []byte{0x03, 0x00, 0x00, 0x00, 0x01})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("Execute() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("cancellation took %v, expected prompt abort", elapsed)
	}
}

func TestExecuteNonBlockingBusy(t *testing.T) {
	release := make(chan struct{})
	addr := serve(t, func(conn net.Conn) {
		txid, unitID, _, err := readRequest(conn)
		if err != nil {
			return
		}
		<-release
		respond(conn, txid, unitID, []byte{0x03, 0x02, 0x00, 0x01})
	})

	tm := newTestManager(t, addr, Config{Timeout: 5 * time.Second, NonBlocking: true})

	firstDone := make(chan error, 1)
	go func() {
		_, err := tm.Execute(context.Background(), []byte{0x03, 0x00, 0x00, 0x00, 0x01})
		firstDone <- err
	}()

	// Wait for the first request to claim the in-flight slot.
	time.Sleep(100 * time.Millisecond)

	if _, err := tm.Execute(context.Background(), []byte{0x03, 0x00, 0x00, 0x00, 0x01}); !errors.Is(err, domain.ErrBusy) {
		t.Errorf("contended Execute() error = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Errorf("first Execute() error = %v", err)
	}
}

func TestNextTransactionIDWraps(t *testing.T) {
	tm := &TransactionManager{}
	tm.nextID.Store(0xFFFE)

	if got := tm.NextTransactionID(); got != 0xFFFF {
		t.Fatalf("NextTransactionID() = %d, want 65535", got)
	}
	if got := tm.NextTransactionID(); got != 0 {
		t.Fatalf("NextTransactionID() after wrap = %d, want 0", got)
	}
	if got := tm.NextTransactionID(); got != 1 {
		t.Fatalf("NextTransactionID() = %d, want 1", got)
	}
}
