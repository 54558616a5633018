// Package cli implements the guildpoints command line interface.
// `guildpoints serve` runs the daemon; the other commands are thin HTTP
// clients talking to a running daemon.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guildpoints",
	Short: "Points-and-inventory economy engine",
	Long: `guildpoints runs the community points economy: a task board that pays
point rewards on completion, an append-only ledger, and a shop where
points buy catalog items.

Start the daemon with 'guildpoints serve', then use the other commands
(or any HTTP client) against it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("addr", "http://127.0.0.1:8090", "Address of the guildpoints daemon")
	rootCmd.PersistentFlags().String("as", "", "Caller account id for authorized operations")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// defaultConfigPath returns the default config file location.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".guildpoints", "config.toml")
}
