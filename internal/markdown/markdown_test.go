package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConverter_ToHTML_GFM(t *testing.T) {
	c := NewConverter()
	out, err := c.ToHTML("| a | b |\n|---|---|\n| 1 | 2 |\n\n- [ ] flour\n- [x] water\n")
	require.NoError(t, err)
	require.Contains(t, out, "<table>")
	require.Contains(t, out, `<input disabled="" type="checkbox">`)
	require.Contains(t, out, `<input checked="" disabled="" type="checkbox">`)
}

func TestConverter_ToHTML_RelativeImage(t *testing.T) {
	out, err := NewConverter().ToHTML("![Loaf](./bread.jpg)\n")
	require.NoError(t, err)
	require.Contains(t, out, `<img src="./bread.jpg" alt="Loaf">`)
}

func TestLocalImages(t *testing.T) {
	body := []byte("![a](./one.jpg) ![b](https://x.test/b.png) ![c](two.png) ![d](/images/site.png)\n")
	require.Equal(t, []string{"./one.jpg", "two.png"}, LocalImages(body))
}
