package listing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/movie-harvester/internal/movie"
)

const samplePage = `<html><body>
<table class="wikitable"><caption>Highest-grossing films</caption>
<tr><th>Rank</th><th>Title</th><th>Gross</th><th>x</th></tr>
<tr><td>1</td><td>Ignored</td><td>$1</td><td>y</td></tr>
</table>
<table class="wikitable sortable">
<tr><th>Month</th><th>Day</th><th>Title</th><th>Studio</th><th>Cast and crew</th><th>Ref</th></tr>
<tr><td>JANUARY</td><td>5</td><td><i>Night Swim</i></td><td>Universal</td><td>Bryce McGuire (director); Wyatt Russell</td><td>[1]</td></tr>
<tr><td>12</td><td><i>Mean   Girls</i></td><td>Paramount</td><td>Arturo Perez Jr. (director)</td><td>[2]</td></tr>
<tr><td><i>The Beekeeper</i></td><td>Amazon MGM</td><td>David Ayer (director); Jason Statham</td><td>[3]</td></tr>
<tr><td colspan="2">stray</td></tr>
<tr><td>FEBRUARY</td><td>2</td><td><i>Argylle</i></td><td>Universal</td><td>Matthew Vaughn (director)</td><td>[4]</td></tr>
</table>
<table class="other"><tr><td>a</td><td>b</td><td>c</td><td>d</td></tr></table>
</body></html>`

func TestParseCarriesMonthAndDayForward(t *testing.T) {
	t.Parallel()

	entries, err := Parse(strings.NewReader(samplePage), 2024)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, movie.ListingEntry{
		Title:         "Night Swim",
		ReleaseWindow: "5, JANUARY",
		Studio:        "Universal",
		CreditsText:   "Bryce McGuire (director); Wyatt Russell",
		ReleaseDate:   "2024-01-05",
	}, entries[0])

	assert.Equal(t, "Mean Girls", entries[1].Title)
	assert.Equal(t, "12, JANUARY", entries[1].ReleaseWindow)
	assert.Equal(t, "2024-01-12", entries[1].ReleaseDate)

	assert.Equal(t, "The Beekeeper", entries[2].Title)
	assert.Equal(t, "12, JANUARY", entries[2].ReleaseWindow)
	assert.Equal(t, "Amazon MGM", entries[2].Studio)

	assert.Equal(t, "Argylle", entries[3].Title)
	assert.Equal(t, "2024-02-02", entries[3].ReleaseDate)
}

func TestParseRowsBeforeAnyMonth(t *testing.T) {
	t.Parallel()

	page := `<table class="wikitable"><tr><th>h</th></tr>
<tr><td>Orphan</td><td>Studio</td><td>Cast</td><td>ref</td></tr></table>`
	entries, err := Parse(strings.NewReader(page), 2024)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].ReleaseWindow)
	assert.Empty(t, entries[0].ReleaseDate)
}

func TestConvertReleaseWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		window string
		year   int
		want   string
		ok     bool
	}{
		{"12, JULY", 2024, "2024-07-12", true},
		{"1, january", 2023, "2023-01-01", true},
		{" 29, February ", 2024, "2024-02-29", true},
		{"29, February", 2023, "", false},
		{"July 12", 2024, "", false},
		{"", 2024, "", false},
		{"12, Smarch", 2024, "", false},
	}
	for _, tt := range tests {
		got, ok := ConvertReleaseWindow(tt.window, tt.year)
		assert.Equal(t, tt.ok, ok, tt.window)
		assert.Equal(t, tt.want, got, tt.window)
	}
}
