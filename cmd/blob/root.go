package blob

import (
	"github.com/ValentinKolb/dCrate/cmd/util"
	"github.com/ValentinKolb/dCrate/rpc/client"
	"github.com/spf13/cobra"
)

var (
	conn *client.Connection

	// BlobCommands represents the blob command group
	BlobCommands = &cobra.Command{
		Use:                "blob",
		Short:              "Store and retrieve blobs in blob tables",
		PersistentPreRunE:  setupConnection,
		PersistentPostRunE: closeConnection,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags to the blob command
	util.SetupClientFlags(BlobCommands)

	// Add subcommands
	BlobCommands.AddCommand(putCmd)
	BlobCommands.AddCommand(getCmd)
	BlobCommands.AddCommand(hasCmd)
	BlobCommands.AddCommand(delCmd)
}

func setupConnection(cmd *cobra.Command, _ []string) (err error) {
	conn, err = util.Connect(cmd)
	return err
}

func closeConnection(_ *cobra.Command, _ []string) error {
	return util.Finish(conn)
}
