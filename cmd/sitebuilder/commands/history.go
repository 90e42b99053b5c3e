package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/eventstore"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Build string `help:"Show a single build by ID"`
	Limit int    `short:"n" help:"Number of builds to list" default:"20"`
	JSON  bool   `help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if cfg.Build.HistoryDB == "" {
		return errors.NewError(errors.CategoryConfig, "build history is disabled; set build.history_db").
			UserAction().
			Build()
	}
	store, err := eventstore.NewSQLiteStore(cfg.Build.HistoryDB)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	keep := h.Limit
	if h.Build != "" {
		keep = 0
	}
	proj := eventstore.NewBuildHistoryProjection(store, keep)
	if err := proj.Rebuild(context.Background()); err != nil {
		return errors.WrapError(err, errors.CategoryEventStore, "failed to replay build history").Build()
	}

	var builds []*eventstore.BuildSummary
	if h.Build != "" {
		b, ok := proj.GetBuild(h.Build)
		if !ok {
			return errors.NewError(errors.CategoryNotFound, "build not found").
				WithContext("build_id", h.Build).
				Build()
		}
		builds = []*eventstore.BuildSummary{b}
	} else {
		builds = proj.GetHistory()
	}

	if h.JSON {
		enc := json.NewEncoder(g.out())
		enc.SetIndent("", "  ")
		return enc.Encode(builds)
	}
	return printHistory(g.out(), builds)
}

func printHistory(w io.Writer, builds []*eventstore.BuildSummary) error {
	if len(builds) == 0 {
		_, err := fmt.Fprintln(w, "No builds recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BUILD\tSTARTED\tSTATUS\tDURATION\tPOSTS\tPAGES\tREVISION\tERROR")
	for _, b := range builds {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			b.BuildID,
			b.StartedAt.Local().Format(time.DateTime),
			b.Status,
			b.Duration.Truncate(time.Millisecond),
			b.Posts,
			b.Pages,
			shortRevision(b.Revision),
			b.ErrorMessage,
		)
	}
	return tw.Flush()
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
