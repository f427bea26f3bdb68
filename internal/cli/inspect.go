package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"kind4-archive/internal"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type inspectOptions struct {
	dbPath string
	prefix string
}

// NewInspectCommand dumps the keys of a Badger archive, decoded into their parts.
func NewInspectCommand(_ *RootOptions) *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List archived keys under a prefix",
		Long: `Open a Badger archive read-only and print every key under --prefix
with its sender, receiver, timestamp and the stored event id.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", "./data/kind4", "path to the Badger directory")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "npub1", "key prefix to scan")

	return cmd
}

func runInspect(opts *inspectOptions, out io.Writer) error {
	db, err := badger.Open(badger.DefaultOptions(opts.dbPath).
		WithReadOnly(true).
		WithLogger(nil))
	if err != nil {
		return fmt.Errorf("opening %s: %w", opts.dbPath, err)
	}
	defer func() { _ = db.Close() }()

	table := newTable(out, []string{"Key", "Sender", "Receiver", "Created at", "Event", "Size", "Detail"})

	rows := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(opts.prefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			row := internal.DefaultMapper(string(item.Key()))

			err := item.Value(func(value []byte) error {
				var stored struct {
					ID string `json:"id"`
				}
				eventID := "-"
				if json.Unmarshal(value, &stored) == nil && len(stored.ID) >= 8 {
					eventID = stored.ID[:8]
				}
				table.Append([]string{
					row.Key,
					row.Sender,
					row.Receiver,
					row.CreatedAt,
					eventID,
					strconv.Itoa(len(value)),
					row.Detail,
				})
				return nil
			})
			if err != nil {
				return err
			}
			rows++
		}
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	_, err = fmt.Fprintf(out, "%d key(s) under %q\n", rows, opts.prefix)
	return err
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
