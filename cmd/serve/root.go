package serve

import (
	"strings"

	cmdUtil "github.com/ValentinKolb/dCrate/cmd/util"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/ValentinKolb/dCrate/rpc/serializer"
	"github.com/ValentinKolb/dCrate/rpc/server"
	"github.com/ValentinKolb/dCrate/rpc/transport/http"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start an in-memory CrateDB emulator node",
		Long:    `Start a node that emulates the HTTP endpoint of CrateDB (/_sql and /_blobs) in memory. It is meant for local testing of clients. The configuration can be set via command line flags or environment variables. The format of the environment variables is DCRATE_<flag> (e.g. DCRATE_BLOBS_DISABLED=true)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:4200", cmdUtil.WrapString("The address on which the API will listen"))

	key = "blobs-disabled"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Reject every blob request like a node without blob support"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.BlobsDisabled = viper.GetBool("blobs-disabled")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	// fail before the node starts listening
	_, err := common.ParseLogLevel(serveCmdConfig.LogLevel)
	return err
}

// run starts the emulator node
func run(_ *cobra.Command, _ []string) error {
	node := server.NewNode(
		*serveCmdConfig,
		http.NewHttpServerTransport(),
		serializer.NewJSONSerializer(),
	)

	return node.Serve()
}

// initConfig reads in serveCmdConfig file and ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dcrate")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
