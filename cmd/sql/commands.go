package sql

import (
	"fmt"

	"github.com/ValentinKolb/dCrate/cmd/util"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	execCmd = &cobra.Command{
		Use:   "exec [statement]",
		Short: "Executes a statement and prints its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("args")
			params, err := util.ParseArgs(raw)
			if err != nil {
				return err
			}

			cursor, err := conn.Cursor()
			if err != nil {
				return err
			}
			defer cursor.Close()

			if err := cursor.Execute(cmd.Context(), args[0], params...); err != nil {
				return err
			}

			rows, err := cursor.FetchAll()
			if err != nil {
				return err
			}
			if len(cursor.Description()) > 0 {
				if err := util.PrintRows(cursor.Description(), rows); err != nil {
					return err
				}
			}

			pterm.Info.Printfln("%s (%.3f ms)", rowCount(cursor.RowCount()), cursor.Duration())
			return nil
		},
	}
	bulkCmd = &cobra.Command{
		Use:   "bulk [statement]",
		Short: "Executes a statement once per parameter set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("bulk-args")
			bulkArgs, err := util.ParseBulkArgs(raw)
			if err != nil {
				return err
			}

			cursor, err := conn.Cursor()
			if err != nil {
				return err
			}
			defer cursor.Close()

			results, err := cursor.ExecuteMany(cmd.Context(), args[0], bulkArgs)
			if err != nil {
				return err
			}

			items := make([]pterm.BulletListItem, len(results))
			for i, r := range results {
				text := fmt.Sprintf("#%d: %s", i, rowCount(r.RowCount))
				if r.Failed() {
					text = fmt.Sprintf("#%d: failed", i)
				}
				items[i] = pterm.BulletListItem{Level: 0, Text: text}
			}
			if err := pterm.DefaultBulletList.WithItems(items).Render(); err != nil {
				return err
			}

			pterm.Info.Printfln("%s in total", rowCount(cursor.RowCount()))
			return nil
		},
	}
)

func init() {
	execCmd.Flags().String("args", "", util.WrapString("Positional statement parameters as JSON array (e.g. '[1, \"foo\"]')"))
	bulkCmd.Flags().String("bulk-args", "[]", util.WrapString("Parameter sets as JSON array of arrays (e.g. '[[1], [2]]')"))
	_ = bulkCmd.MarkFlagRequired("bulk-args")
}

func rowCount(n int64) string {
	if n < 0 {
		return "unknown row count"
	}
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}
