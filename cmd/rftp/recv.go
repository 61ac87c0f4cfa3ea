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
	"rftp/proto/receiver"
)

type recvFlags struct {
	commonFlags
	listenHost string
	listenPort int
	out        string
	verify     bool
}

func newRecvCommand() *cobra.Command {
	f := &recvFlags{}
	cmd := &cobra.Command{
		Use:   "recv",
		Short: "Receive a file from a sender",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecv(f)
		},
	}
	addCommonFlags(cmd, &f.commonFlags)
	addVerifyFlag(cmd, &f.verify)
	cmd.Flags().StringVar(&f.listenHost, "listen-host", "0.0.0.0", "address to bind")
	cmd.Flags().IntVar(&f.listenPort, "listen-port", 0, "port to bind")
	cmd.Flags().StringVar(&f.out, "out", "", "path to write the received file")
	cmd.MarkFlagRequired("listen-port")
	cmd.MarkFlagRequired("out")
	return cmd
}

func runRecv(f *recvFlags) error {
	runID := uuid.New()
	log := logx.For("recv").With("run_id", runID.String())

	impair := endpoint.NewImpairment(f.lossRate, f.delayMs)
	ep, err := endpoint.Listen(f.listenHost, f.listenPort, impair)
	if err != nil {
		return err
	}
	defer ep.Close()

	out, err := os.Create(f.out)
	if err != nil {
		return fmt.Errorf("create %s: %w", f.out, err)
	}
	defer out.Close()

	var sink io.Writer = out
	hasher := sha1.New()
	if f.verify {
		sink = io.MultiWriter(out, hasher)
	}

	log.Info("awaiting transfer", "bind", fmt.Sprintf("%s:%d", f.listenHost, ep.LocalAddr().Port))

	r := receiver.New(ep, sink, f.segmentSize, receiver.WithHousekeepingTimeout(f.timeout()))
	if err := r.Run(); err != nil {
		return err
	}

	var digest string
	if f.verify {
		digest = hex.EncodeToString(hasher.Sum(nil))
	}

	printSummary(f.json, runSummary{Role: "receiver", Digest: digest, Snapshot: r.Metrics().Snapshot()})
	return nil
}
