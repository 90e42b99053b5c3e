package render

import (
	"time"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	"git.home.luguber.info/inful/sitebuilder/internal/content"
)

const schemaContext = "https://schema.org/"

// JSON-LD documents embedded in each page's head. Values are marshalled by
// html/template inside the ld+json script element.

func websiteID(s Site) string { return s.URL + "/#website" }

func isPartOfSite(s Site) map[string]any {
	return map[string]any{"@type": "WebSite", "@id": websiteID(s)}
}

// HomeData describes the homepage and the website itself.
func HomeData(s Site, description string) map[string]any {
	return map[string]any{
		"@context": schemaContext,
		"@graph": []any{
			map[string]any{
				"@type":       "WebPage",
				"url":         s.URL,
				"name":        s.Name,
				"description": description,
				"isPartOf":    isPartOfSite(s),
			},
			map[string]any{
				"@type":       "WebSite",
				"@id":         websiteID(s),
				"url":         s.URL,
				"name":        s.Name,
				"description": description,
			},
		},
	}
}

// ListingData describes a post type listing page.
func ListingData(s Site, pt config.PostType) map[string]any {
	return GenericPageData(s, pt.DisplayName, "/"+pt.Directory+"/")
}

// GenericPageData describes a page one level below the homepage.
func GenericPageData(s Site, name, relativeURL string) map[string]any {
	return map[string]any{
		"@context": schemaContext,
		"@graph": []any{
			map[string]any{
				"@type":    "WebPage",
				"url":      s.URL + relativeURL,
				"name":     name,
				"isPartOf": isPartOfSite(s),
			},
			breadcrumbs(s, crumb{name, relativeURL}),
		},
	}
}

// PostData describes a post as a Recipe, BlogPosting or Article depending on
// its post type's category.
func PostData(s Site, p content.PostRecord, category string) map[string]any {
	parent := "/" + p.PostType + "/"
	entity := map[string]any{
		"name":        p.Title,
		"image":       s.URL + p.ImageHashPath,
		"description": p.Description,
		"keywords":    p.Keywords,
		"isPartOf": []any{
			map[string]any{"@type": "WebPage", "@id": s.URL + parent},
			isPartOfSite(s),
		},
	}
	switch category {
	case config.CategoryRecipe:
		entity["@type"] = "Recipe"
		entity["datePublished"] = p.Date.UTC().Format(time.DateOnly)
	case config.CategoryBlogPosting:
		entity["@type"] = "BlogPosting"
		entity["headline"] = p.Title
		entity["datePublished"] = p.Date.UTC().Format(time.RFC3339)
	default:
		entity["@type"] = "Article"
		entity["datePublished"] = p.Date.UTC().Format(time.RFC3339)
	}

	return map[string]any{
		"@context": schemaContext,
		"@graph": []any{
			entity,
			breadcrumbs(s, crumb{p.PostTypeDisplayName, parent}, crumb{p.Title, p.Link}),
		},
	}
}

type crumb struct {
	name string
	path string
}

// breadcrumbs always starts at the homepage.
func breadcrumbs(s Site, trail ...crumb) map[string]any {
	items := []any{listItem(1, s.Name, s.URL)}
	for i, c := range trail {
		items = append(items, listItem(i+2, c.name, s.URL+c.path))
	}
	return map[string]any{
		"@type":           "BreadcrumbList",
		"itemListElement": items,
	}
}

func listItem(position int, name, item string) map[string]any {
	return map[string]any{
		"@type":    "ListItem",
		"position": position,
		"name":     name,
		"item":     item,
	}
}
