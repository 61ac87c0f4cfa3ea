// Package logx is the small logging front-end used across rftp. It wraps
// charmbracelet/log the way the protocol package wraps its per-session
// state: one *log.Logger per role (sender, receiver, CLI subcommand), each
// derived with WithPrefix so a multi-session benchmark run can tell its
// peers apart in the log stream.
package logx

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

var root = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05",
})

// For derives a logger prefixed with the given component/role name, e.g.
// logx.For("gbn-sender"), logx.For("receiver 127.0.0.1:9000").
func For(prefix string) *log.Logger {
	return root.WithPrefix(prefix)
}

// SetLevel adjusts the root logger's minimum level; derived loggers share
// it.
func SetLevel(level log.Level) {
	root.SetLevel(level)
}

// Banner prints the startup banner for the CLI. Kept as a plain fmt
// print rather than a logged line — it's decoration, not a log record.
func Banner(title, version string) {
	const art = `
╔═══════════════════════════════════════════════════════════╗
║                                                             ║
║   ██████╗ ███████╗████████╗██████╗                         ║
║   ██╔══██╗██╔════╝╚══██╔══╝██╔══██╗                        ║
║   ██████╔╝█████╗     ██║   ██████╔╝                        ║
║   ██╔══██╗██╔══╝     ██║   ██╔═══╝                         ║
║   ██║  ██║██║        ██║   ██║                             ║
║   ╚═╝  ╚═╝╚═╝        ╚═╝   ╚═╝                             ║
║                                                             ║
║   %-57s ║
║   version %-48s ║
║                                                             ║
╚═══════════════════════════════════════════════════════════╝
`
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, art, title, version)
}
