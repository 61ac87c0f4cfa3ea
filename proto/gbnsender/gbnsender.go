// Package gbnsender implements the Go-Back-N sender state machine: a
// sliding window of up to window_size unacknowledged frames, a single
// retransmission timer covering the oldest of them, and cumulative ACK
// processing that slides the window forward.
package gbnsender

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

// Sender drives the loop described in spec §4.5 over a connected
// endpoint. base and nextSeq bound the outstanding window
// [base, nextSeq); buffered holds each outstanding frame's encoded
// bytes so a timeout can retransmit all of them in order.
type Sender struct {
	ep         *endpoint.Endpoint
	in         io.Reader
	windowSize uint32
	segSize    int
	timeout    time.Duration
	log        *log.Logger
	run        *metrics.Run

	base     uint32
	nextSeq  uint32
	buffered map[uint32][]byte
	eofLoaded bool

	timerStart   time.Time
	timerRunning bool
}

// Option configures a Sender at construction.
type Option func(*Sender)

// WithRun attaches an externally-owned metrics.Run, e.g. one already
// registered with a Prometheus collector, instead of letting New
// allocate a fresh one.
func WithRun(run *metrics.Run) Option {
	return func(s *Sender) { s.run = run }
}

// New builds a Sender reading segments from in, transmitting over ep
// (already connected via endpoint.Dial) with up to windowSize frames
// outstanding at once.
func New(ep *endpoint.Endpoint, in io.Reader, windowSize uint32, segmentSize int, timeout time.Duration, opts ...Option) *Sender {
	if windowSize < 1 {
		windowSize = 1
	}
	s := &Sender{
		ep:         ep,
		in:         in,
		windowSize: windowSize,
		segSize:    segmentSize,
		timeout:    timeout,
		log:        logx.For("gbn-sender"),
		run:        metrics.NewRun(),
		buffered:   make(map[uint32][]byte),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Metrics returns the run accumulating this sender's counters.
func (s *Sender) Metrics() *metrics.Run { return s.run }

// Run executes the main loop of spec §4.5 until eofLoaded and the
// window has fully drained (base == nextSeq).
func (s *Sender) Run() error {
	for !(s.eofLoaded && s.base == s.nextSeq) {
		if err := s.fillWindow(); err != nil {
			return err
		}

		if s.eofLoaded && s.base == s.nextSeq {
			break
		}

		waitFor := s.timeout
		if s.timerRunning {
			if remaining := s.timeout - time.Since(s.timerStart); remaining > 0 {
				waitFor = remaining
			} else {
				waitFor = 0
			}
		}
		if waitFor <= 0 {
			waitFor = time.Nanosecond
		}

		raw, _, err := s.ep.Recv(endpoint.RecvBufferSize(0), waitFor)
		if err != nil {
			if !errors.Is(err, perrs.ErrTimeout) {
				return err
			}
			if err := s.onTimeout(); err != nil {
				return err
			}
			continue
		}
		s.onReceipt(raw)
	}

	s.run.Finish()
	return nil
}

// fillWindow implements step (1): read and transmit new segments while
// the window has room and the FIN segment hasn't been produced yet.
func (s *Sender) fillWindow() error {
	buf := make([]byte, s.segSize)

	for s.nextSeq < s.base+s.windowSize && !s.eofLoaded {
		n, readErr := io.ReadFull(s.in, buf)

		var payload []byte
		var fin bool

		switch readErr {
		case nil:
			payload = append([]byte(nil), buf[:n]...)
		case io.ErrUnexpectedEOF:
			payload = append([]byte(nil), buf[:n]...)
			fin = true
		case io.EOF:
			payload = nil
			fin = true
		default:
			return readErr
		}

		f := frame.Data(s.nextSeq, payload, fin)
		encoded := f.Encode()
		s.buffered[s.nextSeq] = encoded

		if err := s.ep.Send(encoded); err != nil {
			return err
		}
		s.run.PacketsSent.Add(1)
		s.run.BytesSent.Add(int64(len(payload)))

		if !s.timerRunning {
			s.timerStart = time.Now()
			s.timerRunning = true
		}

		s.nextSeq++
		if fin {
			s.eofLoaded = true
		}
	}
	return nil
}

// onTimeout implements step (3): retransmit every buffered frame in
// ascending order and restart the timer. A send failure is returned.
func (s *Sender) onTimeout() error {
	s.run.Timeouts.Add(1)
	s.log.Debug("retransmission timer fired", "base", s.base, "next_seq", s.nextSeq)

	for seq := s.base; seq < s.nextSeq; seq++ {
		encoded, ok := s.buffered[seq]
		if !ok {
			continue
		}
		if err := s.ep.Send(encoded); err != nil {
			s.log.Error("retransmit failed", "seq", seq, "err", err)
			return err
		}
		s.run.PacketsSent.Add(1)
		s.run.BytesSent.Add(int64(len(encoded) - frame.MinFrameSize))
		s.run.Retransmits.Add(1)
	}
	s.timerStart = time.Now()
	s.timerRunning = true
	return nil
}

// onReceipt implements step (4): parse the datagram, discard anything
// that isn't an ACK advancing base, and slide the window on success.
func (s *Sender) onReceipt(raw []byte) {
	f, err := frame.Decode(raw)
	if err != nil {
		s.log.Debug("discarding malformed datagram", "err", err)
		return
	}
	if f.Kind != frame.KindACK {
		s.log.Debug("discarding non-ACK frame", "kind", f.Kind)
		return
	}
	if f.Ack <= s.base {
		// Stale: already covered by the current base.
		return
	}

	for seq := s.base; seq < f.Ack; seq++ {
		delete(s.buffered, seq)
	}
	s.base = f.Ack

	if s.base == s.nextSeq {
		s.timerRunning = false
	} else {
		s.timerStart = time.Now()
		s.timerRunning = true
	}
}
