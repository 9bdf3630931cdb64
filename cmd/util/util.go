package util

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ValentinKolb/dCrate/rpc/client"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// DefaultServer is used when no --servers flag or DCRATE_SERVERS is set
	DefaultServer = "localhost:4200"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the connection flags shared by all client command groups
func SetupClientFlags(cmd *cobra.Command) {
	key := "servers"
	cmd.PersistentFlags().String(key, DefaultServer, WrapString("The CrateDB nodes to connect to. Multiple nodes can be specified as a comma-separated list (host, host:port or http(s)://host:port)"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, int(common.DefaultTimeout/time.Second), WrapString("The retry budget of a single operation over all nodes (in seconds)"))

	key = "request-timeout"
	cmd.PersistentFlags().Int(key, int(common.DefaultRequestTimeout/time.Second), WrapString("The timeout of a single HTTP request (in seconds)"))

	key = "connect-timeout"
	cmd.PersistentFlags().Int(key, int(common.DefaultConnectTimeout/time.Second), WrapString("The timeout for establishing a connection (in seconds)"))

	key = "retry-interval"
	cmd.PersistentFlags().Int(key, int(common.DefaultRetryInterval/time.Second), WrapString("How long an unreachable node is skipped before it is tried again (in seconds)"))

	key = "pool-size"
	cmd.PersistentFlags().Int(key, common.DefaultPoolSizePerHost, WrapString("Maximum number of idle connections per node"))

	key = "insecure"
	cmd.PersistentFlags().Bool(key, false, WrapString("Skip TLS certificate verification"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "error", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "metrics"
	cmd.PersistentFlags().Bool(key, false, WrapString("Print the client metrics in prometheus format after the command finished"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("dcrate")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	poolSize := viper.GetInt("pool-size")
	return common.ClientConfig{
		Servers:            common.SplitServers(viper.GetString("servers")),
		Timeout:            time.Duration(viper.GetInt("timeout")) * time.Second,
		RequestTimeout:     time.Duration(viper.GetInt("request-timeout")) * time.Second,
		ConnectTimeout:     time.Duration(viper.GetInt("connect-timeout")) * time.Second,
		RetryInterval:      time.Duration(viper.GetInt("retry-interval")) * time.Second,
		PoolSizePerHost:    poolSize,
		TotalPoolSize:      poolSize * 4,
		InsecureSkipVerify: viper.GetBool("insecure"),
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// Connect binds the flags, initializes the loggers and opens a connection
func Connect(cmd *cobra.Command) (*client.Connection, error) {
	if err := BindCommandFlags(cmd); err != nil {
		return nil, err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return nil, err
	}
	return client.Connect(GetClientConfig())
}

// Finish closes the connection and prints the metrics if requested
func Finish(conn *client.Connection) error {
	if conn == nil {
		return nil
	}
	err := conn.Close()
	if viper.GetBool("metrics") {
		fmt.Println()
		metrics.WritePrometheus(os.Stdout, false)
	}
	return err
}

// ParseArgs parses a JSON array of statement parameters
func ParseArgs(raw string) ([]any, error) {
	if raw == "" {
		return nil, nil
	}
	var args []any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, errors.Wrap(err, "args must be a JSON array")
	}
	return args, nil
}

// ParseBulkArgs parses a JSON array of parameter arrays
func ParseBulkArgs(raw string) ([][]any, error) {
	var bulkArgs [][]any
	if err := json.Unmarshal([]byte(raw), &bulkArgs); err != nil {
		return nil, errors.Wrap(err, "bulk-args must be a JSON array of arrays")
	}
	return bulkArgs, nil
}

// FormatValue renders a decoded column value for terminal output
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

// PrintRows renders a result as table
func PrintRows(columns []common.Column, rows [][]any) error {
	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Name
	}

	data := pterm.TableData{header}
	for _, row := range rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = FormatValue(v)
		}
		data = append(data, line)
	}

	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
