package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []Link
	}{
		{
			name: "inline",
			body: "Serve with [custard](../custard/).",
			want: []Link{{Kind: LinkKindInline, Destination: "../custard/"}},
		},
		{
			name: "image",
			body: "![Crust](./crust.jpg)",
			want: []Link{{Kind: LinkKindImage, Destination: "./crust.jpg"}},
		},
		{
			name: "autolink",
			body: "Flour from <https://mill.example/rye>",
			want: []Link{{Kind: LinkKindAuto, Destination: "https://mill.example/rye"}},
		},
		{
			name: "reference usage and definition",
			body: "Try the [glaze][g].\n\n[g]: ../glaze/\n",
			want: []Link{
				{Kind: LinkKindInline, Destination: "../glaze/"},
				{Kind: LinkKindReference, Destination: "../glaze/"},
			},
		},
		{
			name: "code is skipped",
			body: "`![x](./inline.jpg)`\n\n```\n![y](./fenced.jpg)\n```\n\n![Pie](./pie.jpg)\n",
			want: []Link{{Kind: LinkKindImage, Destination: "./pie.jpg"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ExtractLinks([]byte(tt.body)))
		})
	}
}

func TestExtractLinks_Empty(t *testing.T) {
	require.Empty(t, ExtractLinks(nil))
}
