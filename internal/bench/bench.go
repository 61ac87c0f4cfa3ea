// Package bench runs an in-process sender/receiver pair over a real
// loopback endpoint and reports the transfer's metrics, for the CLI's
// bench subcommand and for load-testing the two sender disciplines
// without needing two separate processes.
package bench

import (
	"bytes"
	"fmt"
	"time"

	"rftp/pkg/endpoint"
	"rftp/pkg/metrics"
	"rftp/proto/gbnsender"
	"rftp/proto/receiver"
	"rftp/proto/swsender"
)

// Protocol selects which sender discipline a run exercises.
type Protocol string

const (
	StopAndWait Protocol = "sw"
	GoBackN     Protocol = "gbn"
)

// Options configures a single benchmark run.
type Options struct {
	Protocol    Protocol
	SizeBytes   int
	LossRate    float64
	DelayMs     int
	SegmentSize int
	WindowSize  uint32
	Timeout     time.Duration

	// LiveRun, if non-nil, is updated by the sender in real time instead
	// of an internally-allocated metrics.Run — e.g. one already wired to
	// a Prometheus collector being scraped while the run executes.
	LiveRun *metrics.Run
}

// Result is the summary reported at the end of a run (spec §6.3's six
// metrics, plus the payload size actually transferred).
type Result struct {
	BytesTransferred int
	metrics.Snapshot
}

// Run drives size_bytes worth of synthetic payload ('A' repeated, as
// the reference benchmark does) through a loopback sender/receiver
// pair under the given impairment, and reports the sender's metrics.
func Run(opts Options) (Result, error) {
	payload := bytes.Repeat([]byte{'A'}, opts.SizeBytes)
	impair := endpoint.NewImpairment(opts.LossRate, opts.DelayMs)

	recvEP, err := endpoint.Listen("127.0.0.1", 0, impair)
	if err != nil {
		return Result{}, fmt.Errorf("bench: bind receiver: %w", err)
	}

	out := &bytes.Buffer{}
	r := receiver.New(recvEP, out, opts.SegmentSize)

	recvDone := make(chan error, 1)
	go func() {
		defer recvEP.Close()
		recvDone <- r.Run()
	}()

	sendEP, err := endpoint.Dial("127.0.0.1", recvEP.LocalAddr().Port, endpoint.NewImpairment(opts.LossRate, opts.DelayMs))
	if err != nil {
		return Result{}, fmt.Errorf("bench: dial sender: %w", err)
	}
	defer sendEP.Close()

	in := bytes.NewReader(payload)

	var run *metrics.Run
	switch opts.Protocol {
	case StopAndWait:
		var senderOpts []swsender.Option
		if opts.LiveRun != nil {
			senderOpts = append(senderOpts, swsender.WithRun(opts.LiveRun))
		}
		s := swsender.New(sendEP, in, opts.SegmentSize, opts.Timeout, senderOpts...)
		if err := s.Run(); err != nil {
			return Result{}, fmt.Errorf("bench: sender: %w", err)
		}
		run = s.Metrics()
	case GoBackN:
		var senderOpts []gbnsender.Option
		if opts.LiveRun != nil {
			senderOpts = append(senderOpts, gbnsender.WithRun(opts.LiveRun))
		}
		s := gbnsender.New(sendEP, in, opts.WindowSize, opts.SegmentSize, opts.Timeout, senderOpts...)
		if err := s.Run(); err != nil {
			return Result{}, fmt.Errorf("bench: sender: %w", err)
		}
		run = s.Metrics()
	default:
		return Result{}, fmt.Errorf("bench: unknown protocol %q", opts.Protocol)
	}

	select {
	case err := <-recvDone:
		if err != nil {
			return Result{}, fmt.Errorf("bench: receiver: %w", err)
		}
	case <-time.After(10 * time.Second):
		return Result{}, fmt.Errorf("bench: receiver did not finish within 10s")
	}

	if out.Len() != opts.SizeBytes {
		return Result{}, fmt.Errorf("bench: expected %d bytes, receiver got %d", opts.SizeBytes, out.Len())
	}

	return Result{
		BytesTransferred: out.Len(),
		Snapshot:         run.Snapshot(),
	}, nil
}
