package main

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"rftp/pkg/endpoint"
	"rftp/pkg/logx"
	"rftp/pkg/metrics"
	"rftp/proto/gbnsender"
	"rftp/proto/swsender"
)

type sendFlags struct {
	commonFlags
	protocol   string
	windowSize int
	destHost   string
	destPort   int
	file       string
	verify     bool
}

func newSendCommand() *cobra.Command {
	f := &sendFlags{}
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a file to a listening receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(f)
		},
	}
	addCommonFlags(cmd, &f.commonFlags)
	addVerifyFlag(cmd, &f.verify)
	cmd.Flags().StringVar(&f.protocol, "protocol", "gbn", `sender discipline: "sw" or "gbn"`)
	cmd.Flags().IntVar(&f.windowSize, "window-size", defaultWindowSize, "GBN window size (ignored for sw)")
	cmd.Flags().StringVar(&f.destHost, "dest-host", "", "receiver host")
	cmd.Flags().IntVar(&f.destPort, "dest-port", 0, "receiver port")
	cmd.Flags().StringVar(&f.file, "file", "", "path of the file to send")
	cmd.MarkFlagRequired("dest-host")
	cmd.MarkFlagRequired("dest-port")
	cmd.MarkFlagRequired("file")
	return cmd
}

func runSend(f *sendFlags) error {
	runID := uuid.New()
	log := logx.For("send").With("run_id", runID.String())

	file, err := os.Open(f.file)
	if err != nil {
		return fmt.Errorf("open %s: %w", f.file, err)
	}
	defer file.Close()

	impair := endpoint.NewImpairment(f.lossRate, f.delayMs)
	ep, err := endpoint.Dial(f.destHost, f.destPort, impair)
	if err != nil {
		return err
	}
	defer ep.Close()

	var in io.Reader = file
	var hasher = sha1.New()
	if f.verify {
		in = io.TeeReader(file, hasher)
	}

	log.Info("starting transfer", "protocol", f.protocol, "dest", fmt.Sprintf("%s:%d", f.destHost, f.destPort))

	var run *metrics.Run
	switch f.protocol {
	case "sw":
		s := swsender.New(ep, in, f.segmentSize, f.timeout())
		if err := s.Run(); err != nil {
			return err
		}
		run = s.Metrics()
	case "gbn":
		s := gbnsender.New(ep, in, uint32(f.windowSize), f.segmentSize, f.timeout())
		if err := s.Run(); err != nil {
			return err
		}
		run = s.Metrics()
	default:
		return fmt.Errorf(`unknown protocol %q, want "sw" or "gbn"`, f.protocol)
	}

	var digest string
	if f.verify {
		digest = hex.EncodeToString(hasher.Sum(nil))
	}

	printSummary(f.json, runSummary{Role: "sender", Digest: digest, Snapshot: run.Snapshot()})
	return nil
}
