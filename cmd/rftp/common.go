package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rftp/pkg/metrics"
)

const (
	defaultSegmentSize = 512
	defaultTimeoutMs   = 250
	defaultWindowSize  = 8
)

// commonFlags are the options shared by every subcommand (spec §6.4).
type commonFlags struct {
	timeoutMs   int
	lossRate    float64
	delayMs     int
	segmentSize int
	json        bool
}

func addCommonFlags(cmd *cobra.Command, f *commonFlags) {
	cmd.Flags().IntVar(&f.timeoutMs, "timeout-ms", defaultTimeoutMs, "receive timeout in milliseconds")
	cmd.Flags().Float64Var(&f.lossRate, "loss-rate", 0, "simulated datagram loss probability, 0..1")
	cmd.Flags().IntVar(&f.delayMs, "delay-ms", 0, "simulated per-datagram delay in milliseconds")
	cmd.Flags().IntVar(&f.segmentSize, "segment-size", defaultSegmentSize, "payload bytes per segment")
	cmd.Flags().BoolVar(&f.json, "json", false, "emit the run summary as JSON")
}

func (f commonFlags) timeout() time.Duration {
	return time.Duration(f.timeoutMs) * time.Millisecond
}

// addVerifyFlag wires the --verify flag used by send/recv: when set,
// the CLI computes and prints a SHA-1 digest of the transferred bytes
// alongside the usual summary, so a caller can diff sender and
// receiver digests out of band. This is not part of the wire
// protocol — no hash travels in any frame.
func addVerifyFlag(cmd *cobra.Command, verify *bool) {
	cmd.Flags().BoolVar(verify, "verify", false, "print a SHA-1 digest of the transferred bytes")
}

// runSummary is the completion line printed by send/recv/bench, either
// as JSON or as a short human-readable sentence.
type runSummary struct {
	Role   string `json:"role"`
	Digest string `json:"digest,omitempty"`
	metrics.Snapshot
}

func printSummary(asJSON bool, s runSummary) {
	if asJSON {
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(string(b))
		return
	}
	fmt.Printf("%s: %d bytes in %.3fs (%.2f Mbps), %d timeouts, %d retransmits\n",
		s.Role, s.BytesSent, s.DurationS, s.ThroughputMbps, s.Timeouts, s.Retransmits)
	if s.Digest != "" {
		fmt.Printf("%s: sha1 %s\n", s.Role, s.Digest)
	}
}
