package sql

import (
	"github.com/ValentinKolb/dCrate/cmd/util"
	"github.com/ValentinKolb/dCrate/rpc/client"
	"github.com/spf13/cobra"
)

var (
	conn *client.Connection

	// SQLCommands represents the SQL command group
	SQLCommands = &cobra.Command{
		Use:                "sql",
		Short:              "Execute SQL statements on a CrateDB cluster",
		PersistentPreRunE:  setupConnection,
		PersistentPostRunE: closeConnection,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags to the SQL command
	util.SetupClientFlags(SQLCommands)

	// Add subcommands
	SQLCommands.AddCommand(execCmd)
	SQLCommands.AddCommand(bulkCmd)
	SQLCommands.AddCommand(perfTestCmd)
}

// setupConnection opens the connection used by all subcommands
func setupConnection(cmd *cobra.Command, _ []string) (err error) {
	conn, err = util.Connect(cmd)
	return err
}

func closeConnection(_ *cobra.Command, _ []string) error {
	return util.Finish(conn)
}
