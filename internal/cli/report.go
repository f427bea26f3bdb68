package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"kind4-archive/client"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

const defaultWindow = 7 * 24 * time.Hour

type reportOptions struct {
	addr     string
	sender   string
	receiver string
	window   time.Duration
}

// NewReportCommand prints how many messages a sender sent to each receiver over a window.
func NewReportCommand(_ *RootOptions) *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Count a sender's direct messages per receiver",
		Long: `Ask a running archive for the per-receiver counts of --sender over the
last --since window and print them as a report.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, time.Now())
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "http://localhost:8080", "archive base URL")
	cmd.Flags().StringVar(&opts.sender, "sender", "", "sender npub")
	cmd.Flags().StringVar(&opts.receiver, "receiver", "", "only count messages to this npub")
	cmd.Flags().DurationVar(&opts.window, "since", defaultWindow, "how far back to count")
	_ = cmd.MarkFlagRequired("sender")

	return cmd
}

func runReport(cmd *cobra.Command, opts *reportOptions, now time.Time) error {
	if opts.window <= 0 {
		return fmt.Errorf("--since must be positive, got %s", opts.window)
	}
	since := now.Add(-opts.window).UTC()
	sinceUnix := since.Unix()

	var receiver *string
	if opts.receiver != "" {
		receiver = &opts.receiver
	}

	archive := client.New(opts.addr)
	counts, err := archive.Counts(cmd.Context(), opts.sender, receiver, &sinceUnix)
	if err != nil {
		return err
	}

	return writeReport(cmd.OutOrStdout(), opts.sender, since, counts)
}

// writeReport renders counts as "nostr:<sender> has messaged the following users since <date>:"
// followed by one receiver per line, busiest first.
func writeReport(out io.Writer, sender string, since time.Time, counts map[string]int) error {
	header := fmt.Sprintf("nostr:%s has messaged the following users since %s:",
		sender, since.Format("2006-01-02 15:04:05 UTC"))
	if _, err := fmt.Fprintln(out, color.New(color.FgGreen, color.OpBold).Render(header)); err != nil {
		return err
	}
	if len(counts) == 0 {
		_, err := fmt.Fprintln(out, "no messages")
		return err
	}

	receivers := make([]string, 0, len(counts))
	for receiver := range counts {
		receivers = append(receivers, receiver)
	}
	sort.Slice(receivers, func(i, j int) bool {
		if counts[receivers[i]] != counts[receivers[j]] {
			return counts[receivers[i]] > counts[receivers[j]]
		}
		return receivers[i] < receivers[j]
	})

	table := newTable(out, []string{"Receiver", "Messages"})
	for _, receiver := range receivers {
		table.Append([]string{"nostr:" + receiver, strconv.Itoa(counts[receiver]) + " time(s)"})
	}
	table.Render()
	return nil
}
