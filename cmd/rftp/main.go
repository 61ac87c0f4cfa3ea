// Command rftp is the reliable-UDP-file-transfer CLI: send, recv, and
// bench subcommands wrapping the sw/gbn sender disciplines and the
// shared receiver FSM.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"rftp/pkg/logx"
)

const version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:          "rftp",
		Short:        "Reliable UDP file transfer (Stop-and-Wait + Go-Back-N)",
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			logx.SetLevel(log.DebugLevel)
		}
		logx.Banner("Reliable UDP File Transfer", version)
	}

	root.AddCommand(newSendCommand())
	root.AddCommand(newRecvCommand())
	root.AddCommand(newBenchCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
