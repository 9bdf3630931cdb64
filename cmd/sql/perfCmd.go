package sql

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/dCrate/cmd/util"
	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf [statement]",
		Short:   "Performance testing tool for CrateDB clusters",
		Long:    "Runs a statement concurrently and reports latency percentiles and throughput. Failovers and retries are part of the measured latency.",
		Args:    cobra.MaximumNArgs(1),
		PreRunE: processPerfConfig,
		RunE:    runPerf,
	}
	perfStatement  = "select 1"
	perfNumThreads = 10
	perfRequests   = 1000
	perfRate       = 0.0
)

func init() {
	// add flags
	key := "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent workers"))
	key = "requests"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Total number of statements to execute"))
	key = "rate"
	perfTestCmd.Flags().Float64(key, 0, util.WrapString("Maximum statements per second over all workers (0 = unlimited)"))
	key = "args"
	perfTestCmd.Flags().String(key, "", util.WrapString("Positional statement parameters as JSON array"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if len(args) == 1 {
		perfStatement = args[0]
	}
	perfNumThreads = viper.GetInt("threads")
	perfRequests = viper.GetInt("requests")
	perfRate = viper.GetFloat64("rate")

	if perfNumThreads < 1 {
		return errors.New("threads must be at least 1")
	}
	if perfRequests < 1 {
		return errors.New("requests must be at least 1")
	}
	return nil
}

// perfResult holds the measurements of a single run
type perfResult struct {
	latency  gometrics.Timer
	errors   gometrics.Counter
	duration time.Duration
}

func runPerf(cmd *cobra.Command, _ []string) error {
	params, err := util.ParseArgs(viper.GetString("args"))
	if err != nil {
		return err
	}

	config := util.GetClientConfig()
	pterm.Info.Println("Performance testing tool for CrateDB clusters")
	fmt.Println(config.String())
	fmt.Printf("Statement: %s\nThreads: %d\nRequests: %d\n\n", perfStatement, perfNumThreads, perfRequests)

	result, err := benchmark(cmd.Context(), params)
	if err != nil {
		return err
	}
	if err := printPerfResult(result); err != nil {
		return err
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		pterm.Info.Printfln("Exporting results to CSV: %s", csvPath)
		if err := writeResultsToCSV(csvPath, result, config); err != nil {
			return errors.Wrap(err, "failed to export results to CSV")
		}
	}

	return nil
}

// benchmark runs perfRequests statements on perfNumThreads workers
func benchmark(ctx context.Context, params []any) (*perfResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &perfResult{
		latency: gometrics.NewTimer(),
		errors:  gometrics.NewCounter(),
	}

	var limiter *rate.Limiter
	if perfRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(perfRate), 1)
	}

	var remaining atomic.Int64
	remaining.Store(int64(perfRequests))

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < perfNumThreads; i++ {
		g.Go(func() error {
			cursor, err := conn.Cursor()
			if err != nil {
				return err
			}
			defer cursor.Close()

			for remaining.Add(-1) >= 0 {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return err
					}
				}

				t := time.Now()
				err := cursor.Execute(ctx, perfStatement, params...)
				result.latency.UpdateSince(t)

				if err != nil {
					result.errors.Inc(1)
					// programming errors fail the same way on every request
					var pe *common.ProgrammingError
					if errors.As(err, &pe) {
						return err
					}
				}
			}
			return nil
		})
	}

	err := g.Wait()
	result.duration = time.Since(start)
	return result, err
}

// printPerfResult prints the latency distribution as table
func printPerfResult(result *perfResult) error {
	s := result.latency.Snapshot()
	ps := s.Percentiles([]float64{0.5, 0.9, 0.99})
	throughput := float64(s.Count()) / result.duration.Seconds()

	return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"Requests", "Errors", "Throughput", "Mean", "Min", "p50", "p90", "p99", "Max"},
		{
			strconv.FormatInt(s.Count(), 10),
			strconv.FormatInt(result.errors.Count(), 10),
			fmt.Sprintf("%.0f ops/sec", throughput),
			time.Duration(s.Mean()).String(),
			time.Duration(s.Min()).String(),
			time.Duration(ps[0]).String(),
			time.Duration(ps[1]).String(),
			time.Duration(ps[2]).String(),
			time.Duration(s.Max()).String(),
		},
	}).Render()
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, result *perfResult, config common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return errors.Wrap(err, "failed to create CSV file")
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Statement", "Requests", "Errors", "DurationSec", "OpsPerSec",
		"MeanNs", "MinNs", "P50Ns", "P90Ns", "P99Ns", "MaxNs",
		"Servers", "TimeoutSec", "Threads", "Rate",
	}
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "failed to write CSV header")
	}

	s := result.latency.Snapshot()
	ps := s.Percentiles([]float64{0.5, 0.9, 0.99})
	row := []string{
		perfStatement,
		strconv.FormatInt(s.Count(), 10),
		strconv.FormatInt(result.errors.Count(), 10),
		fmt.Sprintf("%.3f", result.duration.Seconds()),
		fmt.Sprintf("%.0f", float64(s.Count())/result.duration.Seconds()),
		fmt.Sprintf("%.0f", s.Mean()),
		strconv.FormatInt(s.Min(), 10),
		fmt.Sprintf("%.0f", ps[0]),
		fmt.Sprintf("%.0f", ps[1]),
		fmt.Sprintf("%.0f", ps[2]),
		strconv.FormatInt(s.Max(), 10),
		strings.Join(config.Servers, ";"),
		strconv.Itoa(int(config.WithDefaults().Timeout / time.Second)),
		strconv.Itoa(perfNumThreads),
		strconv.FormatFloat(perfRate, 'f', -1, 64),
	}

	return errors.Wrap(writer.Write(row), "failed to write CSV row")
}
