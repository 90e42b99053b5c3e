package render

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	searchIcon = `<svg width="20" height="20" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><circle cx="11" cy="11" r="8"></circle><line x1="16.65" y1="16.65" x2="23" y2="23"></line></svg>`
	upArrow    = `<svg width="24" height="24" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2.5" stroke-linecap="round" stroke-linejoin="round"><line x1="12" y1="19" x2="12" y2="5"></line><polyline points="5 12 12 5 19 12"></polyline></svg>`
	downArrow  = `<svg width="24" height="24" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2.5" stroke-linecap="round" stroke-linejoin="round"><line x1="12" y1="5" x2="12" y2="19"></line><polyline points="19 12 12 19 5 12"></polyline></svg>`
)

// Paragraph placeholders authors put on their own line in post markdown.
var placeholders = strings.NewReplacer(
	"<p>{recipeboxstart}</p>", `<div id="recipe" class="recipe-box">`,
	"<p>{recipeboxend}</p>", "</div>",
	"<p>{lightstyleboxstart}</p>", `<div class="light-style-box">`,
	"<p>{lightstyleboxend}</p>", "</div>",
	"<p>{darkstyleboxstart}</p>", `<div class="dark-style-box">`,
	"<p>{darkstyleboxend}</p>", "</div>",
	"{jumptorecipebox}", `<button class="jump-to-recipe flex-centre" type="button">`+downArrow+` Jump to recipe</button>`,
)

// FormatPostHTML post-processes a converted post body:
//   - box placeholders become styled containers
//   - relative image sources ("./x.jpg") point into the post folder and are
//     resolved to their hashed paths
//   - the first image loads with high priority, the rest lazily
//   - tables are wrapped for horizontal scrolling
//   - task list checkboxes become interactive and labelled
func FormatPostHTML(fragment, postType, postDir string, resolve func(string) string) (string, error) {
	folder := "/" + postType + "/" + postDir + "/"
	fragment = placeholders.Replace(fragment)

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("parse post html: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	f := &formatter{folder: folder, resolve: resolve}
	f.walk(body)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", fmt.Errorf("render post html: %w", err)
		}
	}
	return buf.String(), nil
}

type formatter struct {
	folder     string
	resolve    func(string) string
	images     int
	checkboxes int
}

func (f *formatter) walk(n *html.Node) {
	// Collect first; wrapping tables and labels mutates the sibling list.
	var children []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	for _, c := range children {
		if c.Type == html.ElementNode {
			switch c.DataAtom {
			case atom.Img:
				f.image(c)
			case atom.Table:
				wrapTable(c)
			case atom.Li:
				f.checkbox(c)
			}
		}
		f.walk(c)
	}
}

func (f *formatter) image(n *html.Node) {
	if src, ok := getAttr(n, "src"); ok {
		if rest, found := strings.CutPrefix(src, "./"); found {
			src = f.folder + rest
		}
		if strings.HasPrefix(src, "/") && f.resolve != nil {
			src = f.resolve(src)
		}
		setAttr(n, "src", src)
	}

	f.images++
	if f.images == 1 {
		setAttr(n, "fetchpriority", "high")
	} else {
		setAttr(n, "loading", "lazy")
	}
	setAttr(n, "class", "content-image")
}

func wrapTable(n *html.Node) {
	if p := n.Parent; p != nil && p.DataAtom == atom.Div && hasClass(p, "table-wrapper") {
		return
	}
	wrapper := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "class", Val: "table-wrapper"}},
	}
	n.Parent.InsertBefore(wrapper, n)
	n.Parent.RemoveChild(n)
	wrapper.AppendChild(n)
}

// checkbox turns <li><input disabled type=checkbox> text</li> into a
// clickable item whose text is a label for the box.
func (f *formatter) checkbox(li *html.Node) {
	input := li.FirstChild
	if input == nil || input.DataAtom != atom.Input {
		return
	}
	if t, _ := getAttr(input, "type"); t != "checkbox" {
		return
	}

	f.checkboxes++
	id := fmt.Sprintf("checkbox-%d", f.checkboxes)
	removeAttr(input, "disabled")
	setAttr(input, "id", id)
	setAttr(li, "class", "ingredient-item-checkbox")

	label := &html.Node{
		Type:     html.ElementNode,
		Data:     "label",
		DataAtom: atom.Label,
		Attr:     []html.Attribute{{Key: "for", Val: id}},
	}
	// Everything up to a nested list belongs to the label.
	for c := input.NextSibling; c != nil; {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Ul || c.DataAtom == atom.Ol) {
			break
		}
		next := c.NextSibling
		li.RemoveChild(c)
		label.AppendChild(c)
		c = next
	}
	if first := label.FirstChild; first != nil && first.Type == html.TextNode {
		first.Data = strings.TrimLeft(first.Data, " \t")
	}

	space := &html.Node{Type: html.TextNode, Data: " "}
	li.InsertBefore(space, input.NextSibling)
	li.InsertBefore(label, space.NextSibling)
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

func hasClass(n *html.Node, class string) bool {
	v, _ := getAttr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}
