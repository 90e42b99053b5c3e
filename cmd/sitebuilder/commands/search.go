package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/search"
	"git.home.luguber.info/inful/sitebuilder/internal/site"
)

// SearchCmd implements the 'search' command.
type SearchCmd struct {
	Query []string `arg:"" help:"Search terms"`
	Limit int      `short:"n" help:"Maximum number of results" default:"10"`
}

func (s *SearchCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	data, err := loadPublishedIndex(cfg.OutputDirectory)
	if err != nil {
		return err
	}

	results := data.Search(strings.Join(s.Query, " "), s.Limit)
	out := g.out()
	if len(results) == 0 {
		_, _ = fmt.Fprintln(out, "No results")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "SCORE\tLINK\tTITLE")
	for _, r := range results {
		_, _ = fmt.Fprintf(tw, "%.2f\t%s\t%s\n", r.Score, r.Link, r.Title)
	}
	return tw.Flush()
}

// loadPublishedIndex reads the search asset named by the live build report.
func loadPublishedIndex(outputDir string) (*search.Data, error) {
	report, err := site.LoadReport(outputDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryNotFound, "no published build report").
			WithContext("output", outputDir).
			UserAction().
			Build()
	}
	if report.SearchIndex == "" {
		return nil, errors.NewError(errors.CategoryNotFound, "published site has no search index (features.search is off)").
			WithContext("output", outputDir).
			UserAction().
			Build()
	}
	return search.Load(filepath.Join(outputDir, filepath.FromSlash(strings.TrimPrefix(report.SearchIndex, "/"))))
}
