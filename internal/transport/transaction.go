package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexus-edge/modbuscli/internal/domain"
	"github.com/nexus-edge/modbuscli/internal/metrics"
	"github.com/nexus-edge/modbuscli/internal/protocol"
	"github.com/rs/zerolog"
)

// DefaultTimeout is the response deadline applied when none is configured.
const DefaultTimeout = 3 * time.Second

// TransactionManager serializes requests on one connection: it assigns
// wrapping transaction IDs, enforces a single in-flight request, and
// correlates response frames to the outstanding request.
//
// The default policy blocks callers until the slot frees up; with
// NonBlocking set, a contended call fails fast with domain.ErrBusy.
type TransactionManager struct {
	conn        *Conn
	unitID      uint8
	timeout     time.Duration
	nonBlocking bool
	logger      zerolog.Logger
	metrics     *metrics.Registry // nil disables instrumentation

	mu     sync.Mutex // single-slot request discipline
	nextID atomic.Uint32
}

// Config holds transaction manager settings.
type Config struct {
	// Timeout is the per-request response deadline. Defaults to 3s.
	Timeout time.Duration

	// NonBlocking makes contended requests fail with ErrBusy instead
	// of queueing on the in-flight slot.
	NonBlocking bool

	// Metrics optionally instruments timeouts and discarded frames.
	Metrics *metrics.Registry
}

// NewTransactionManager creates a manager bound to conn and unit ID.
func NewTransactionManager(conn *Conn, unitID uint8, cfg Config, logger zerolog.Logger) *TransactionManager {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &TransactionManager{
		conn:        conn,
		unitID:      unitID,
		timeout:     cfg.Timeout,
		nonBlocking: cfg.NonBlocking,
		logger:      logger.With().Str("component", "transaction").Logger(),
		metrics:     cfg.Metrics,
	}
}

// NextTransactionID returns the next identifier, wrapping at 65535.
// Monotonic assignment keeps IDs unique among requests that could be
// confused on one connection.
func (t *TransactionManager) NextTransactionID() uint16 {
	return uint16(t.nextID.Add(1))
}

// Execute sends one request PDU and returns the matching response PDU.
//
// The request-response exchange holds the in-flight slot for its whole
// lifetime: connect if needed, write the framed request, then read
// frames until one carries the request's transaction ID or the deadline
// expires. Mismatched frames are logged and discarded. On timeout,
// cancellation or socket failure the connection is closed, since a late
// straggler on a reused socket could be misattributed to a future
// request.
func (t *TransactionManager) Execute(ctx context.Context, pdu []byte) ([]byte, error) {
	if t.nonBlocking {
		if !t.mu.TryLock() {
			return nil, domain.ErrBusy
		}
	} else {
		t.mu.Lock()
	}
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	if err := t.conn.Connect(ctx); err != nil {
		return nil, err
	}

	txid := t.NextTransactionID()
	frame, err := protocol.PackFrame(txid, t.unitID, pdu)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(t.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	// Expire the socket deadline if the caller cancels mid-wait.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			t.conn.Abort()
		case <-watchDone:
		}
	}()

	if err := t.conn.WriteFrame(frame, deadline); err != nil {
		t.fail()
		return nil, t.finishErr(t.ctxError(ctx, err))
	}

	for {
		header, respPDU, err := t.conn.ReadFrame(deadline)
		if err != nil {
			t.fail()
			if errors.Is(err, domain.ErrProtocolFraming) {
				return nil, err
			}
			return nil, t.finishErr(t.ctxError(ctx, err))
		}

		if header.TransactionID != txid {
			t.logger.Warn().
				Uint16("expected", txid).
				Uint16("received", header.TransactionID).
				Msg("Discarding frame with mismatched transaction ID")
			t.discarded()
			continue
		}
		if header.UnitID != t.unitID {
			t.logger.Warn().
				Uint8("expected", t.unitID).
				Uint8("received", header.UnitID).
				Msg("Discarding frame with mismatched unit ID")
			t.discarded()
			continue
		}
		return respPDU, nil
	}
}

// fail tears the connection down so the next operation reconnects.
func (t *TransactionManager) fail() {
	_ = t.conn.Close()
}

func (t *TransactionManager) discarded() {
	if t.metrics != nil {
		t.metrics.FramesDiscarded.Inc()
	}
}

func (t *TransactionManager) finishErr(err error) error {
	if t.metrics != nil && errors.Is(err, domain.ErrTimeout) {
		t.metrics.Timeouts.Inc()
	}
	return err
}

// ctxError attributes a failure to the caller's cancellation when the
// context expired, so an aborted read reports Timeout rather than a
// spurious connection error.
func (t *TransactionManager) ctxError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, ctxErr)
	}
	return err
}
