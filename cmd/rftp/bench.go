package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	ibench "rftp/internal/bench"
	"rftp/pkg/logx"
	"rftp/pkg/metrics"
)

type benchFlags struct {
	commonFlags
	protocol    string
	windowSize  int
	sizeBytes   int
	metricsAddr string
}

func newBenchCommand() *cobra.Command {
	f := &benchFlags{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark a sender discipline against a loopback receiver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(f)
		},
	}
	addCommonFlags(cmd, &f.commonFlags)
	cmd.Flags().StringVar(&f.protocol, "protocol", "gbn", `sender discipline: "sw" or "gbn"`)
	cmd.Flags().IntVar(&f.windowSize, "window-size", defaultWindowSize, "GBN window size (ignored for sw)")
	cmd.Flags().IntVar(&f.sizeBytes, "size-bytes", 5_000_000, "synthetic payload size in bytes")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "if set, serve live Prometheus metrics on this address while the run executes")
	return cmd
}

func runBench(f *benchFlags) error {
	log := logx.For("bench")

	opts := ibench.Options{
		Protocol:    ibench.Protocol(f.protocol),
		SizeBytes:   f.sizeBytes,
		LossRate:    f.lossRate,
		DelayMs:     f.delayMs,
		SegmentSize: f.segmentSize,
		WindowSize:  uint32(f.windowSize),
		Timeout:     f.timeout(),
	}

	if f.metricsAddr != "" {
		run := metrics.NewRun()
		opts.LiveRun = run

		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.NewCollector(run))
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: f.metricsAddr, Handler: mux}
		go func() {
			log.Info("serving metrics", "addr", f.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped", "err", err)
			}
		}()
		defer srv.Close()
	}

	res, err := ibench.Run(opts)
	if err != nil {
		return err
	}

	printSummary(f.json, runSummary{Role: "bench", Snapshot: res.Snapshot})
	fmt.Println()
	return nil
}
