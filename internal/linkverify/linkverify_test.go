package linkverify

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, body string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
}

func TestExtractLinks(t *testing.T) {
	doc := `<html><head>
<link rel="stylesheet" href="/css/main.abc.css">
<link rel="canonical" href="https://example.com/recipes/">
<script src="/js/navbar.abc.js"></script>
</head><body>
<a href="https://other.org/x">out</a>
<a href="#top">top</a>
<img src="./photo.jpg" alt="p">
</body></html>`
	links, err := ExtractLinks(strings.NewReader(doc), "https://example.com")
	require.NoError(t, err)
	require.Len(t, links, 6)

	require.True(t, links[0].IsAsset())
	require.True(t, links[1].IsInternal)
	require.False(t, links[1].IsAsset())
	require.False(t, links[3].IsInternal)
	require.False(t, ShouldVerifyLink(links[3]))
	require.False(t, ShouldVerifyLink(links[4]))
	require.True(t, ShouldVerifyLink(links[5]))
}

func TestVerifyFindsMissingAndUnhashedReferences(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "css/main.abc.css", "body{}")
	writeFile(t, root, "recipes/index.html", `<a href="/recipes/pie">pie</a><a href="/recipes/gone">gone</a>`)
	writeFile(t, root, "recipes/pie/pie.html", `<link rel="stylesheet" href="/css/main.abc.css">
<img src="/recipes/pie/photo.jpg"><img src="/recipes/pie/missing.abc.jpg"><a href="/">home</a>`)
	writeFile(t, root, "recipes/pie/photo.jpg", "jpg")
	writeFile(t, root, "index.html", `<a href="/recipes/">all</a>`)

	v := New("https://example.com", WithManifest(map[string]string{
		"/recipes/pie/photo.jpg": "/recipes/pie/photo.abc.jpg",
	}))
	findings, err := v.Verify(t.Context(), root)
	require.NoError(t, err)

	require.Equal(t, []Finding{
		{Page: "/recipes/index.html", URL: "/recipes/gone", Tag: "a", Reason: ReasonMissing},
		{Page: "/recipes/pie/pie.html", URL: "/recipes/pie/missing.abc.jpg", Tag: "img", Reason: ReasonMissing},
		{Page: "/recipes/pie/pie.html", URL: "/recipes/pie/photo.jpg", Tag: "img", Reason: ReasonUnhashed},
	}, findings)
}

func TestVerifyRelativeLinks(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "blog/a/a.html", `<img src="img.png"><img src="../b/other.png">`)
	writeFile(t, root, "blog/a/img.png", "png")

	findings, err := New("").Verify(t.Context(), root)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.Equal(t, "../b/other.png", findings[0].URL)
}
