package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vincentbai/visionui-beacon/internal/classify"
)

func auditCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <page.html>...",
		Short: "List the links and buttons of a page and the event each click reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILE\tELEMENT\tTEXT\tEVENT\tDETAIL")
			for _, path := range args {
				if err := auditFile(w, path); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
}

func auditFile(w *tabwriter.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	findings, err := classify.Audit(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	for _, fd := range findings {
		event, detail := "-", "-"
		if fd.Tracked {
			event, detail = string(fd.Result.Tag), oneLine(fd.Result.Detail)
		}
		target := fd.Element.Tag
		if fd.Element.Href != "" {
			target += " " + fd.Element.Href
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", path, target, truncate(oneLine(fd.Element.Text), 32), event, detail)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// oneLine folds whitespace for display; classification already ran on the raw text.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
