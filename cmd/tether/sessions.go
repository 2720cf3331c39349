package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dustin/go-humanize"
	"github.com/fwojciec/tether"
	bt "github.com/fwojciec/tether/bubbletea"
	tetherjson "github.com/fwojciec/tether/json"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// dirWidth bounds the working directory column when the output is not a terminal.
const dirWidth = 60

func listCmd(a *app) *cobra.Command {
	var (
		match  string
		idOnly bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored sessions, most recently active first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !doublestar.ValidatePattern(match) {
				return fmt.Errorf("invalid pattern %q: %w", match, tether.ErrValidation)
			}
			sums, err := tether.Summaries(cmd.Context(), a.store)
			if err != nil {
				return err
			}
			now := time.Now()
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			if !idOnly {
				fmt.Fprintln(tw, "ID\tLAST ACTIVE\tMESSAGES\tDIRECTORY")
			}
			width := columnWidth(a.stdout)
			for _, s := range sums {
				if ok, _ := doublestar.Match(match, s.ID); !ok {
					continue
				}
				if idOnly {
					fmt.Fprintln(tw, s.ID)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.ID, lastActive(s, now), s.MessageCount,
					runewidth.Truncate(s.WorkingDirectory, width, "…"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&match, "match", "m", "*", "only list session IDs matching this glob")
	cmd.Flags().BoolVarP(&idOnly, "quiet", "q", false, "print IDs only")
	return cmd
}

func lastActive(s tether.SessionSummary, now time.Time) string {
	if s.LastActivity.IsZero() {
		return "-"
	}
	return humanize.RelTime(s.LastActivity, now, "ago", "from now")
}

// columnWidth returns the room left for the directory column.
func columnWidth(w any) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return dirWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return dirWidth
	}
	return max(width-80, 20)
}

func showCmd(a *app) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Print a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := tether.ValidateSessionID(id); err != nil {
				return err
			}
			s, ok := a.store.Load(cmd.Context(), id)
			if !ok {
				return fmt.Errorf("session %s not found", id)
			}
			if raw {
				data, err := tetherjson.MarshalSession(s)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(a.stdout, "%s\n", data)
				return err
			}
			fmt.Fprintf(a.stdout, "session %s\n", s.ID)
			if s.WorkingDirectory != "" {
				fmt.Fprintf(a.stdout, "directory %s\n", s.WorkingDirectory)
			}
			fmt.Fprintf(a.stdout, "started %s, last active %s\n\n",
				s.StartTime.Local().Format(time.DateTime), s.LastActivity.Local().Format(time.DateTime))
			p := newPrinter(a.stdout)
			for _, msg := range s.History {
				p.print(msg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the stored JSON document")
	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID...",
		Short: "Delete stored sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, id := range args {
				removed, err := a.store.Delete(cmd.Context(), id)
				switch {
				case err != nil:
					errs = append(errs, fmt.Errorf("delete %s: %w", id, err))
				case removed:
					fmt.Fprintf(a.stdout, "deleted %s\n", id)
				default:
					fmt.Fprintf(a.stderr, "%s: no such session\n", id)
				}
			}
			return errors.Join(errs...)
		},
	}
}

func browseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse stored sessions in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := bt.NewBrowser(cmd.Context(), a.store, tether.DefaultTheme())
			if err := bt.Run(cmd.Context(), b); err != nil {
				return fmt.Errorf("TUI: %w", err)
			}
			return nil
		},
	}
}
