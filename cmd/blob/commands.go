package blob

import (
	"fmt"
	"io"
	"os"

	"github.com/ValentinKolb/dCrate/cmd/util"
	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [container] [file]",
		Short: "Uploads a file (or stdin if file is -) and prints its digest",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := conn.BlobContainer(args[0])
			if err != nil {
				return err
			}

			var in io.Reader = os.Stdin
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return errors.Wrapf(err, "failed to open %s", args[1])
				}
				defer f.Close()
				in = f
			}

			d, err := container.Put(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Println(d)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [container] [digest]",
		Short: "Downloads a blob to stdout or to the file given by --output",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := conn.BlobContainer(args[0])
			if err != nil {
				return err
			}

			body, err := container.Get(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			defer body.Close()

			var out io.Writer = os.Stdout
			if path, _ := cmd.Flags().GetString("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return errors.Wrapf(err, "failed to create %s", path)
				}
				defer f.Close()
				out = f
			}

			n, err := io.Copy(out, body)
			if err != nil {
				return errors.Wrap(err, "download failed")
			}
			if out != os.Stdout {
				pterm.Success.Printfln("wrote %d bytes", n)
			}
			return nil
		},
	}
	hasCmd = &cobra.Command{
		Use:   "has [container] [digest]",
		Short: "Checks if a blob exists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := conn.BlobContainer(args[0])
			if err != nil {
				return err
			}
			ok, err := container.Exists(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if ok {
				pterm.Success.Println("blob exists")
			} else {
				pterm.Warning.Println("blob not found")
			}
			return nil
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [container] [digest]",
		Short: "Deletes a blob",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := conn.BlobContainer(args[0])
			if err != nil {
				return err
			}
			deleted, err := container.Delete(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			if deleted {
				pterm.Success.Println("deleted successfully")
			} else {
				pterm.Warning.Println("blob not found")
			}
			return nil
		},
	}
)

func init() {
	getCmd.Flags().StringP("output", "o", "", util.WrapString("Write the blob to this file instead of stdout"))
}
