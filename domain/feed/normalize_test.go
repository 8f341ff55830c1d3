package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeForDedup(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text lowercased and trimmed",
			in:   "  Fed Holds Rates Steady  ",
			want: "fed holds rates steady",
		},
		{
			name: "source attribution stripped",
			in:   "Source: reuters.com Fed holds rates steady",
			want: "fed holds rates steady",
		},
		{
			name: "via handle stripped",
			in:   "via @marketwatch: Fed holds rates steady",
			want: "fed holds rates steady",
		},
		{
			name: "breaking prefix stripped",
			in:   "BREAKING: Fed holds rates steady",
			want: "fed holds rates steady",
		},
		{
			name: "stacked prefixes stripped repeatedly",
			in:   "BREAKING: via @newsbot: Fed holds rates steady",
			want: "fed holds rates steady",
		},
		{
			name: "update prefix stripped",
			in:   "UPDATE: markets rally",
			want: "markets rally",
		},
		{
			name: "markdown bullets stripped",
			in:   "> - Fed holds rates steady",
			want: "fed holds rates steady",
		},
		{
			name: "whitespace collapsed",
			in:   "fed  holds\trates\n\nsteady",
			want: "fed holds rates steady",
		},
		{
			name: "empty input",
			in:   "   ",
			want: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeForDedup(tc.in))
		})
	}
}

func TestNormalizeForDedup_DistinctContentStaysDistinct(t *testing.T) {
	a := NormalizeForDedup("Fed holds rates steady")
	b := NormalizeForDedup("Fed cuts rates by 25bps")
	assert.NotEqual(t, a, b)
}
