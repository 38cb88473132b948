package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/vilaca/branch-dashboard/internal/domain"
	"github.com/vilaca/branch-dashboard/internal/filter"
)

// listOptions mirrors the dashboard filter form.
type listOptions struct {
	search    string
	author    string
	from      string
	to        string
	status    string
	protected bool
}

func (o listOptions) values() url.Values {
	v := url.Values{}
	v.Set(filter.ParamSearch, o.search)
	v.Set(filter.ParamAuthor, o.author)
	v.Set(filter.ParamDateFrom, o.from)
	v.Set(filter.ParamDateTo, o.to)
	v.Set(filter.ParamStatus, o.status)
	if o.protected {
		v.Set(filter.ParamProtected, "1")
	}
	return v
}

func newListCmd(configPath *string) *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the filtered branch fixture as a table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			loc, err := cfg.Location()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			criteria, err := filter.ParseCriteria(opts.values())
			if err != nil {
				return err
			}

			// Diagnostics go to stderr so the table stays pipeable.
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			branches, err := loadBranches(cfg, loc, logger)
			if err != nil {
				return err
			}

			res := filter.NewEngine(loc).Evaluate(branches, criteria)
			renderTable(cmd.OutOrStdout(), res, loc)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.search, "search", "q", "", "case-insensitive match on branch name or commit message")
	f.StringVar(&opts.author, "author", "", "exact author name")
	f.StringVar(&opts.from, "from", "", "only commits after the start of this day (YYYY-MM-DD)")
	f.StringVar(&opts.to, "to", "", "only commits before the end of this day (YYYY-MM-DD)")
	f.StringVar(&opts.status, "status", "all", "all, success, failed or building")
	f.BoolVar(&opts.protected, "protected", false, "only protected branches")

	return cmd
}

func renderTable(w io.Writer, res filter.Result, loc *time.Location) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Branch", "Author", "Last Commit", "Status", "Ahead", "Behind", "Protected", "Build"})
	for _, b := range res.Branches {
		table.Append([]string{
			b.Name,
			b.Author,
			b.LastCommit.In(loc).Format("2006-01-02 15:04"),
			string(b.Status),
			strconv.Itoa(b.Ahead),
			strconv.Itoa(b.Behind),
			yesNo(b.Protected),
			buildColumn(b),
		})
	}
	table.Render()

	s := res.Summary
	fmt.Fprintf(w, "%d branches: %d success, %d failed, %d building, %d protected\n",
		s.Total, s.Success, s.Failed, s.Building, s.Protected)
}

func buildColumn(b domain.Branch) string {
	if b.BuildLinkActive() {
		return b.BuildURL
	}
	return "-"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
