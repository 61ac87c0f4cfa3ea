// Package receiver implements the receiver side state machine: accept
// in-order DATA frames, write payloads to the output sink, and emit
// cumulative ACKs, independent of which sender discipline is talking to
// it (Stop-and-Wait and Go-Back-N both speak the same receiver).
package receiver

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"rftp/pkg/endpoint"
	"rftp/pkg/frame"
	"rftp/pkg/logx"
	"rftp/pkg/metrics"
	"rftp/proto/perrs"
)

// state is the receiver's two-state machine: RECEIVING until the FIN
// sequence has been delivered, then DONE.
type state int

const (
	receiving state = iota
	done
)

// Receiver drives the loop described in spec §4.3. housekeepingTimeout
// bounds each individual Recv call so the loop stays responsive to
// Endpoint.Close(); it is not part of the reliability protocol.
type Receiver struct {
	ep  *endpoint.Endpoint
	out io.Writer
	log *log.Logger

	housekeepingTimeout time.Duration
	bufSize             int

	expected uint32
	sawFIN   bool
	state    state

	run *metrics.Run
}

// Option configures a Receiver at construction.
type Option func(*Receiver)

// WithHousekeepingTimeout overrides the per-Recv timeout (default 1s).
// This is a responsiveness knob only — it has no bearing on sender-side
// retransmission timing.
func WithHousekeepingTimeout(d time.Duration) Option {
	return func(r *Receiver) { r.housekeepingTimeout = d }
}

// New builds a Receiver that reads DATA frames off ep, writing accepted
// payloads to out. segmentSize sizes the receive buffer.
func New(ep *endpoint.Endpoint, out io.Writer, segmentSize int, opts ...Option) *Receiver {
	r := &Receiver{
		ep:                  ep,
		out:                 out,
		log:                 logx.For("receiver"),
		housekeepingTimeout: time.Second,
		bufSize:             endpoint.RecvBufferSize(segmentSize),
		run:                 metrics.NewRun(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Metrics returns the run accumulating this receiver's counters.
func (r *Receiver) Metrics() *metrics.Run { return r.run }

// Run loops until the FIN frame has been accepted, flushing the output
// sink before returning. ctx-less: cancellation is via ep.Close(), which
// surfaces as a fatal transport error from the next Recv.
func (r *Receiver) Run() error {
	for r.state != done {
		if err := r.step(); err != nil {
			return err
		}
	}
	if flusher, ok := r.out.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

// step processes exactly one inbound datagram, per spec §4.3.
func (r *Receiver) step() error {
	raw, addr, err := r.ep.Recv(r.bufSize, r.housekeepingTimeout)
	if err != nil {
		if err == perrs.ErrTimeout {
			return nil
		}
		return err
	}

	f, err := frame.Decode(raw)
	if err != nil {
		// Malformed: a corrupted datagram might have been anything.
		// We cannot know what to ACK, so we discard silently and let
		// the sender's retransmission cover the loss.
		r.log.Debug("discarding malformed datagram", "from", addr, "err", err)
		return nil
	}

	if f.Kind != frame.KindData {
		r.log.Debug("discarding non-DATA frame", "kind", f.Kind, "from", addr)
		return nil
	}

	r.acceptIfExpected(f)
	r.run.PacketsSent.Add(1)

	ackFrame := frame.ACK(r.expected)
	if err := r.ep.SendTo(ackFrame.Encode(), addr); err != nil {
		return err
	}

	if r.sawFIN && f.Seq < r.expected {
		r.state = done
		r.run.Finish()
	}
	return nil
}

func (r *Receiver) acceptIfExpected(f frame.Frame) {
	if f.Seq != r.expected {
		// Duplicate or out-of-order: no write, but the caller below
		// still ACKs with the unchanged `expected`, per the cumulative
		// ACK invariant.
		r.log.Debug("discarding out-of-sequence data", "seq", f.Seq, "expected", r.expected)
		return
	}

	if len(f.Payload) > 0 {
		if _, err := r.out.Write(f.Payload); err != nil {
			// The output sink is a caller-owned resource; a write
			// failure there has no protocol-level recovery, but we
			// still must not crash the FSM loop over it. Log and
			// keep `expected` from advancing so the sender retries.
			r.log.Error("writing payload failed", "seq", f.Seq, "err", err)
			return
		}
	}

	r.run.BytesSent.Add(int64(len(f.Payload)))
	r.expected++
	if f.FIN() {
		r.sawFIN = true
	}
}
