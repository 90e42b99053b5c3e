package site

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/linkverify"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

// maxLoggedFindings bounds per-finding log lines; the report keeps all of them.
const maxLoggedFindings = 20

// stageVerify scans the rendered pages for internal references that do not
// exist in the build root and counts manifest lookups that fell back to a
// logical path. Both are warnings, or fatal with build.strict_manifest.
func (b *Builder) stageVerify(ctx context.Context, bs *BuildState) error {
	findings, err := linkverify.New(strings.TrimSuffix(b.cfg.Site.URL, "/"), linkverify.WithManifest(bs.Manifest.Entries())).Verify(ctx, bs.Root)
	if err != nil {
		return stageFatal(StageVerify, err)
	}

	misses := bs.Manifest.Misses()
	r := bs.Report
	r.Findings = findings
	r.ManifestEntries = bs.Manifest.Len()
	r.ManifestMisses = misses
	for range misses {
		b.recorder.IncManifestMiss()
	}

	if len(findings) == 0 && misses == 0 {
		bs.log.Debug("Output verified", "manifest_entries", r.ManifestEntries)
		return nil
	}

	for i, f := range findings {
		if i == maxLoggedFindings {
			bs.log.Warn("Further unresolved references omitted", logfields.Count(len(findings)-i))
			break
		}
		bs.log.Warn("Unresolved reference", "page", f.Page, "url", f.URL, "reason", f.Reason)
	}

	eb := errors.NewError(errors.CategoryValidation,
		fmt.Sprintf("%d unresolved references and %d manifest misses in output", len(findings), misses)).
		WithContext("findings", len(findings)).
		WithContext("manifest_misses", misses)
	if b.cfg.Build.StrictManifest {
		return stageFatal(StageVerify, eb.Fatal().Build())
	}
	return stageWarning(StageVerify, eb.Warning().Build())
}
