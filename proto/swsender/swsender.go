// Package swsender implements the Stop-and-Wait sender state machine:
// one frame outstanding at a time, retransmitted on timeout or on any
// inbound datagram other than the matching ACK, advancing only on
// ack == seq+1.
package swsender

import (
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"rftp/pkg/endpoint"
	"rftp/pkg/frame"
	"rftp/pkg/logx"
	"rftp/pkg/metrics"
	"rftp/proto/perrs"
)

// Sender drives the loop described in spec §4.4 over a connected
// endpoint (one fixed peer). window=1 is the Stop-and-Wait discipline's
// defining property; there is no buffering of more than one unacked
// frame.
type Sender struct {
	ep          *endpoint.Endpoint
	in          io.Reader
	segmentSize int
	timeout     time.Duration
	log         *log.Logger
	run         *metrics.Run
}

// Option configures a Sender at construction.
type Option func(*Sender)

// WithRun attaches an externally-owned metrics.Run, e.g. one already
// registered with a Prometheus collector, instead of letting New
// allocate a fresh one.
func WithRun(run *metrics.Run) Option {
	return func(s *Sender) { s.run = run }
}

// New builds a Sender that reads segments from in and transmits them
// over ep (already connected to its peer via endpoint.Dial) until the
// FIN segment is acknowledged.
func New(ep *endpoint.Endpoint, in io.Reader, segmentSize int, timeout time.Duration, opts ...Option) *Sender {
	s := &Sender{
		ep:          ep,
		in:          in,
		segmentSize: segmentSize,
		timeout:     timeout,
		log:         logx.For("sw-sender"),
		run:         metrics.NewRun(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the run accumulating this sender's counters.
func (s *Sender) Metrics() *metrics.Run { return s.run }

// Run segments the input and drives each segment through the
// send/await/retransmit loop until the FIN segment's ACK arrives.
func (s *Sender) Run() error {
	buf := make([]byte, s.segmentSize)
	var seq uint32

	for {
		n, readErr := io.ReadFull(s.in, buf)
		switch readErr {
		case nil:
			// A full segment, not yet known to be the last one.
			payload := append([]byte(nil), buf[:n]...)
			if err := s.sendSegment(seq, payload, false); err != nil {
				return err
			}
			seq++
		case io.ErrUnexpectedEOF:
			// A short final segment: this carries FIN.
			payload := append([]byte(nil), buf[:n]...)
			if err := s.sendSegment(seq, payload, true); err != nil {
				return err
			}
			return s.finish()
		case io.EOF:
			// Input length was an exact multiple of segmentSize (or
			// empty): FIN is a synthetic empty final segment.
			if err := s.sendSegment(seq, nil, true); err != nil {
				return err
			}
			return s.finish()
		default:
			return readErr
		}
	}
}

func (s *Sender) finish() error {
	s.run.Finish()
	return nil
}

// sendSegment drives one frame through steps (a)-(c) of spec §4.4 until
// its matching ACK (ack == seq+1) is observed.
func (s *Sender) sendSegment(seq uint32, payload []byte, fin bool) error {
	f := frame.Data(seq, payload, fin)
	encoded := f.Encode()

	for {
		if err := s.ep.Send(encoded); err != nil {
			return err
		}
		s.run.PacketsSent.Add(1)
		s.run.BytesSent.Add(int64(len(payload)))

		raw, _, err := s.ep.Recv(endpoint.RecvBufferSize(0), s.timeout)
		if err != nil {
			if !errors.Is(err, perrs.ErrTimeout) {
				return err
			}
			s.run.Timeouts.Add(1)
			s.run.Retransmits.Add(1)
			s.log.Debug("timed out awaiting ack, retransmitting", "seq", seq)
			continue
		}

		ack, err := frame.Decode(raw)
		if err != nil {
			s.run.Retransmits.Add(1)
			s.log.Debug("discarding malformed datagram while awaiting ack", "seq", seq, "err", err)
			continue
		}
		if ack.Kind != frame.KindACK {
			s.run.Retransmits.Add(1)
			s.log.Debug("discarding non-ACK frame while awaiting ack", "seq", seq, "kind", ack.Kind)
			continue
		}
		if ack.Ack == seq+1 {
			return nil
		}

		s.run.Retransmits.Add(1)
		s.log.Debug("stale or future ack, retransmitting", "seq", seq, "got_ack", ack.Ack)
	}
}
