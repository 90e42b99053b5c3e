package content

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Footer is a standalone page linked from every page's footer.
type Footer struct {
	Name        string // file base name; the page is written as /footers/<Name>.html
	DisplayName string
	Order       int
	Body        string
}

// DiscoverFooters reads every markdown file in dir. A missing dir yields no
// footers. Pages are ordered by their `order` attribute, then name.
func DiscoverFooters(dir string, parser FrontMatterParser) ([]Footer, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, discoveryError(err, "failed to read footer directory", dir)
	}

	var footers []Footer
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || isHidden(name) || !strings.EqualFold(filepath.Ext(name), ".md") {
			continue
		}
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, discoveryError(err, "failed to read footer", path)
		}
		doc, err := parser.Parse(raw)
		if err != nil {
			return nil, discoveryError(err, "failed to parse footer front matter", path)
		}
		base := strings.TrimSuffix(name, filepath.Ext(name))
		f := Footer{
			Name:        base,
			DisplayName: stringAttr(doc.Attributes["displayName"]),
			Order:       intAttr(doc.Attributes["order"]),
			Body:        doc.Body,
		}
		if f.DisplayName == "" {
			f.DisplayName = base
		}
		footers = append(footers, f)
	}
	sort.SliceStable(footers, func(i, j int) bool {
		if footers[i].Order != footers[j].Order {
			return footers[i].Order < footers[j].Order
		}
		return footers[i].Name < footers[j].Name
	})
	return footers, nil
}

func intAttr(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case uint64:
		return int(t)
	case float64:
		return int(t)
	default:
		return 0
	}
}
