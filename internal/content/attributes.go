package content

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

var knownFields = map[string]bool{
	"title":       true,
	"description": true,
	"keywords":    true,
	"category":    true,
	"date":        true,
	"image":       true,
}

// applyAttributes fills the front matter fields of rec. It returns the names
// of required fields that are missing or malformed.
func applyAttributes(rec *PostRecord, attrs map[string]any) []string {
	var bad []string

	rec.Title = stringAttr(attrs["title"])
	rec.Description = stringAttr(attrs["description"])
	rec.Image = stringAttr(attrs["image"])
	rec.Keywords = listAttr(attrs["keywords"])
	rec.Category = stringAttr(attrs["category"])

	for _, req := range []struct{ name, val string }{
		{"title", rec.Title},
		{"description", rec.Description},
		{"image", rec.Image},
	} {
		if req.val == "" {
			bad = append(bad, req.name)
		}
	}

	date, ok := dateAttr(attrs["date"])
	if !ok {
		bad = append(bad, "date")
	}
	rec.Date = date

	for k, v := range attrs {
		if knownFields[k] {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		rec.Extra[k] = v
	}
	return bad
}

func stringAttr(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// listAttr accepts "a, b" or a YAML sequence and renders "a, b".
func listAttr(v any) string {
	items, ok := v.([]any)
	if !ok {
		return stringAttr(v)
	}
	parts := make([]string, 0, len(items))
	for _, it := range items {
		if s := stringAttr(it); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

func dateAttr(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
