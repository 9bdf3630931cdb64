package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dCrate/cmd/blob"
	"github.com/ValentinKolb/dCrate/cmd/serve"
	"github.com/ValentinKolb/dCrate/cmd/sql"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dcrate",
		Short: "failover-aware CrateDB client",
		Long: fmt.Sprintf(`dCrate (v%s)

A CrateDB client written in Go. Statements and blob operations are sent to one
node at a time and fail over to the other nodes of the cluster.`, Version),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dCrate",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dCrate v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(sql.SQLCommands)
	RootCmd.AddCommand(blob.BlobCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
