package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheOneAtFault/auction-monitor/internal/observability"
)

const baseURL = "https://live.aucor.com"

func newTestEngine() *Engine {
	return NewEngine(baseURL, observability.NewNop())
}

// filler pads pages past the template-page text threshold without tripping
// any placeholder phrase.
const filler = `<p>Upcoming auctions across heavy machinery, vehicles, household goods and
industrial equipment. Register interest and follow the catalogue for closing dates.</p>`

func TestExtract_TemplatePage_NoResultsPhrase(t *testing.T) {
	html := `<html><body>
		<p>No lots found for this search. Please broaden your criteria and try again later,
		or browse the full catalogue of upcoming auctions on the homepage instead.</p>
	</body></html>`

	candidates := newTestEngine().Extract(html, baseURL+"/lots?search=bicycle", 10)
	assert.Empty(t, candidates)
}

func TestExtract_TemplatePage_TooLittleText(t *testing.T) {
	html := `<html><body><div>Loading...</div></body></html>`

	candidates := newTestEngine().Extract(html, baseURL+"/lots?search=watch", 10)
	assert.Empty(t, candidates)
}

func TestExtract_TemplatePage_ScriptTextDoesNotCount(t *testing.T) {
	// A JS shell page: lots of script, no visible content.
	html := `<html><body><div>Loading</div><script>` + strings.Repeat("var x = 1;", 50) + `</script></body></html>`

	candidates := newTestEngine().Extract(html, baseURL, 10)
	assert.Empty(t, candidates)
}

func TestExtract_StructuredSelectors(t *testing.T) {
	html := `<html><body>` + filler + `
		<div class="lot-item">
			<h3>Vintage road bicycle frame</h3>
			<a href="/lots/101">View</a>
			<span class="price-current">R 1,500</span>
		</div>
		<div class="lot-item">
			<h3>Kitchen appliance bundle</h3>
			<a href="/lots/102">View</a>
		</div>
	</body></html>`

	candidates := newTestEngine().Extract(html, baseURL, 10)
	require.Len(t, candidates, 2)

	assert.Equal(t, "Vintage road bicycle frame", candidates[0].Title)
	assert.Equal(t, baseURL+"/lots/101", candidates[0].URL)
	assert.Equal(t, "R 1,500", candidates[0].Price)
	assert.NotEmpty(t, candidates[0].Description)

	assert.Equal(t, "Kitchen appliance bundle", candidates[1].Title)
	assert.Empty(t, candidates[1].Price)
}

func TestExtract_StructuredSkipsSyntheticAndVoidLinks(t *testing.T) {
	html := `<html><body>` + filler + `
		<div class="lot-item"><h3>Mock listing placeholder</h3><a href="/lots/1">View</a></div>
		<div class="lot-item"><h3>Broken anchor lot</h3><a href="javascript:void(0)">View</a></div>
		<div class="lot-item"><h3>Antique writing desk</h3><a href="/lots/2">View</a></div>
	</body></html>`

	candidates := newTestEngine().Extract(html, baseURL, 10)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Antique writing desk", candidates[0].Title)
}

func TestExtract_LinkFallback(t *testing.T) {
	html := `<html><body>` + filler + `
		<a href="/lots/201">Antique oak dining table</a>
		<a href="/lots/202">Browse</a>
		<a href="/about">Company history and background</a>
		<a href="/lots/203">Login</a>
		<a href="javascript:void(0)">Industrial generator spares</a>
		<a href="/lots/204">Industrial diesel generator</a>
	</body></html>`

	candidates := newTestEngine().Extract(html, baseURL, 10)
	require.Len(t, candidates, 2)
	assert.Equal(t, "Antique oak dining table", candidates[0].Title)
	assert.Equal(t, baseURL+"/lots/201", candidates[0].URL)
	assert.Equal(t, "Industrial diesel generator", candidates[1].Title)
}

func TestExtract_BlocklistIsExactMatchNotSubstring(t *testing.T) {
	// "browse" is blocklisted as an exact phrase; a title merely containing
	// the word must survive.
	html := `<html><body>` + filler + `
		<a href="/lots/301">Browse-worthy antique bookshelf</a>
	</body></html>`

	candidates := newTestEngine().Extract(html, baseURL, 10)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Browse-worthy antique bookshelf", candidates[0].Title)
}

func TestExtract_URLResolution(t *testing.T) {
	html := `<html><body>` + filler + `
		<a href="/lots/401">Garden furniture setting, eight chairs</a>
		<a href="en/lots/402">Woodworking lathe and accessories</a>
		<a href="https://other.example.com/lots/403">Absolute link lathe spares</a>
	</body></html>`

	candidates := newTestEngine().Extract(html, baseURL, 10)
	require.Len(t, candidates, 3)
	assert.Equal(t, baseURL+"/lots/401", candidates[0].URL)
	assert.Equal(t, baseURL+"/en/lots/402", candidates[1].URL)
	assert.Equal(t, "https://other.example.com/lots/403", candidates[2].URL)
}

func TestExtract_ResultLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>" + filler)
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, `<a href="/lots/%d">Reclaimed timber lot number %d</a>`, 500+i, i)
	}
	b.WriteString("</body></html>")

	candidates := newTestEngine().Extract(b.String(), baseURL, 10)
	assert.Len(t, candidates, 10)
}

func TestExtract_UnparseableMarkupYieldsNothing(t *testing.T) {
	candidates := newTestEngine().Extract("", baseURL, 10)
	assert.Empty(t, candidates)
}
