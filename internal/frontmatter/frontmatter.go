// Package frontmatter splits `---` delimited YAML front matter from markdown
// bodies and decodes it into an attribute map.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/inful/mdfp"
	"gopkg.in/yaml.v3"
)

// Document is a parsed markdown file.
type Document struct {
	Attributes map[string]any
	Body       string
	// Raw is the undecoded front matter block, used for content fingerprints.
	Raw string
}

// Parser implements content.FrontMatterParser with YAML front matter.
type Parser struct{}

// Parse splits raw into front matter and body and decodes the attributes.
// A document without front matter yields empty attributes and the full body.
func (Parser) Parse(raw []byte) (Document, error) {
	fm, body, _, err := Split(raw)
	if err != nil {
		return Document{}, err
	}
	attrs, err := ParseYAML(fm)
	if err != nil {
		return Document{}, fmt.Errorf("decode front matter: %w", err)
	}
	return Document{Attributes: attrs, Body: string(body), Raw: string(fm)}, nil
}

// Fingerprint returns the mdfp content fingerprint of a document. A single
// trailing newline on the front matter block is ignored.
func Fingerprint(doc Document) string {
	return mdfp.CalculateFingerprintFromParts(strings.TrimSuffix(doc.Raw, "\n"), doc.Body)
}

// Split separates YAML frontmatter (`---` delimited) from the Markdown body.
//
// If the document does not start with a YAML frontmatter delimiter, had is false
// and body is the full input.
func Split(content []byte) (frontmatter []byte, body []byte, had bool, err error) {
	nl := detectNewline(content)
	open := []byte("---" + nl)
	if !bytes.HasPrefix(content, open) {
		return nil, content, false, nil
	}

	start := len(open)
	if bytes.HasPrefix(content[start:], open) {
		return []byte{}, content[start+len(open):], true, nil
	}

	closeSeq := []byte(nl + "---" + nl)
	idx := bytes.Index(content[start:], closeSeq)
	if idx < 0 {
		// A closing delimiter on the final line has no trailing newline.
		if bytes.HasSuffix(content, []byte(nl+"---")) {
			end := len(content) - len("---")
			return content[start:end], []byte{}, true, nil
		}
		return nil, nil, false, ErrMissingClosingDelimiter
	}

	end := start + idx + len(nl)
	bodyStart := start + idx + len(closeSeq)
	return content[start:end], content[bodyStart:], true, nil
}

// ParseYAML parses raw YAML frontmatter (without --- delimiters) into a map.
func ParseYAML(frontmatter []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(frontmatter)) == 0 {
		return map[string]any{}, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(frontmatter, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// ErrMissingClosingDelimiter indicates the document started with a YAML
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

func detectNewline(content []byte) string {
	if i := bytes.IndexByte(content, '\n'); i > 0 && content[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}
