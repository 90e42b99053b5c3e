package search

import (
	"encoding/json"
	"os"
	"path"
	"strings"

	"git.home.luguber.info/inful/sitebuilder/internal/assets"
	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// LogicalPath is the manifest key of the search asset.
const LogicalPath = "/search-data.json"

// Placeholder in the client search script, replaced with the hashed asset path.
const Placeholder = "#SEARCH_INDEX_PLACEHOLDER"

// Write serializes data and writes it content-hashed into outRoot. It returns
// the site-relative hashed path.
func Write(w *assets.Writer, outRoot string, data *Data) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", errors.WrapError(err, errors.CategorySearch, "failed to encode search index").Build()
	}
	ext := path.Ext(LogicalPath)
	base := strings.TrimSuffix(path.Base(LogicalPath), ext)
	name, err := w.WriteBytes(outRoot, base, ext, b)
	if err != nil {
		return "", errors.WrapError(err, errors.CategorySearch, "failed to write search index").Build()
	}
	return "/" + name, nil
}

// Load reads a search asset written by Write.
func Load(file string) (*Data, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var d Data
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, errors.WrapError(err, errors.CategorySearch, "failed to decode search index").
			WithContext("path", file).
			Build()
	}
	return &d, nil
}

// InjectPath replaces the search placeholder in a client script.
func InjectPath(script, hashedPath string) string {
	return strings.ReplaceAll(script, Placeholder, hashedPath)
}
