// Package search builds the site's inverted search index and the result
// store the client uses to render result cards.
package search

import (
	"sort"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/content"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// Field names an indexed post field.
type Field string

const (
	FieldTitle       Field = "title"
	FieldKeywords    Field = "keywords"
	FieldCategory    Field = "category"
	FieldDescription Field = "description"
	FieldBody        Field = "body"
)

// Boosts weights term frequencies per field when scoring.
var Boosts = map[Field]float64{
	FieldTitle:       10,
	FieldKeywords:    5,
	FieldCategory:    3,
	FieldDescription: 2,
	FieldBody:        1,
}

// Postings maps a post link to per-field term frequencies.
type Postings map[string]map[Field]int

// Index maps a normalized term to its postings.
type Index map[string]Postings

// StoreEntry is what a result card needs.
type StoreEntry struct {
	Link          string `json:"link"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ImageHashPath string `json:"imageHashPath"`
}

// Data is the serialized search asset.
type Data struct {
	Index Index                 `json:"index"`
	Store map[string]StoreEntry `json:"store"`
}

// Builder turns post records into search Data.
type Builder struct{}

// NewBuilder returns a Builder.
func NewBuilder() *Builder { return &Builder{} }

// Build indexes every post. Each post's body must be available from bodies.
func (b *Builder) Build(posts []content.PostRecord, bodies content.BodyLookup) (*Data, error) {
	data := &Data{Index: make(Index), Store: make(map[string]StoreEntry, len(posts))}
	for _, p := range posts {
		body, ok := bodies.Body(p.Link)
		if !ok {
			return nil, errors.SearchError("post body not available for indexing").
				WithContext("post", p.Link).
				Build()
		}

		fields := map[Field]string{
			FieldTitle:       p.Title,
			FieldKeywords:    strings.TrimSpace(p.Keywords + " " + p.PostType),
			FieldCategory:    p.Category,
			FieldDescription: p.Description,
			FieldBody:        Clean(body),
		}
		for field, text := range fields {
			for _, term := range Tokenize(Normalize(text)) {
				data.add(term, p.Link, field)
			}
		}

		data.Store[p.Link] = StoreEntry{
			Link:          p.Link,
			Title:         p.Title,
			Description:   p.Description,
			ImageHashPath: p.ImageHashPath,
		}
	}
	return data, nil
}

func (d *Data) add(term, link string, field Field) {
	postings, ok := d.Index[term]
	if !ok {
		postings = make(Postings)
		d.Index[term] = postings
	}
	tf, ok := postings[link]
	if !ok {
		tf = make(map[Field]int)
		postings[link] = tf
	}
	tf[field]++
}

// Result is one ranked search hit.
type Result struct {
	StoreEntry
	Score float64
}

// prefixWeight discounts terms that only match a query token as a prefix.
const prefixWeight = 0.5

// Search ranks posts matching every query token, exactly or as a prefix.
// Ties are ordered by link. limit <= 0 returns all matches.
func (d *Data) Search(query string, limit int) []Result {
	tokens := Tokenize(Normalize(query))
	if len(tokens) == 0 {
		return nil
	}

	terms := make([]string, 0, len(d.Index))
	for t := range d.Index {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	var scores map[string]float64
	for _, tok := range tokens {
		tokScores := make(map[string]float64)
		// terms is sorted, so prefix matches are contiguous from tok.
		for i := sort.SearchStrings(terms, tok); i < len(terms) && strings.HasPrefix(terms[i], tok); i++ {
			weight := 1.0
			if terms[i] != tok {
				weight = prefixWeight
			}
			for link, tf := range d.Index[terms[i]] {
				for field, n := range tf {
					tokScores[link] += weight * Boosts[field] * float64(n)
				}
			}
		}
		if scores == nil {
			scores = tokScores
			continue
		}
		for link := range scores {
			s, ok := tokScores[link]
			if !ok {
				delete(scores, link)
				continue
			}
			scores[link] += s
		}
	}

	results := make([]Result, 0, len(scores))
	for link, score := range scores {
		results = append(results, Result{StoreEntry: d.Store[link], Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Link < results[j].Link
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
