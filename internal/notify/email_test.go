package notify

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheOneAtFault/auction-monitor/internal/storage"
)

func renderHTML(t *testing.T, item storage.AuctionItem, term string) string {
	t.Helper()
	var buf bytes.Buffer
	err := htmlBody.Execute(&buf, struct {
		Item storage.AuctionItem
		Term string
	}{item, term})
	require.NoError(t, err)
	return buf.String()
}

func TestTextBody_AllFields(t *testing.T) {
	item := storage.AuctionItem{
		Title:       "Vintage Omega Wristwatch",
		URL:         "https://live.aucor.com/lots/1",
		Description: "Mechanical movement, running condition",
		Price:       "R 2,500",
		EndTime:     "2026-09-15 18:00",
	}

	body := textBody(item, "omega")

	assert.Contains(t, body, "We found a match for your search term: omega")
	assert.Contains(t, body, "Title: Vintage Omega Wristwatch")
	assert.Contains(t, body, "Description: Mechanical movement, running condition")
	assert.Contains(t, body, "Current Price: R 2,500")
	assert.Contains(t, body, "End Time: 2026-09-15 18:00")
	assert.Contains(t, body, "View auction: https://live.aucor.com/lots/1")
}

func TestTextBody_OmitsEmptyFields(t *testing.T) {
	item := storage.AuctionItem{
		Title: "Bare listing",
		URL:   "https://live.aucor.com/lots/2",
	}

	body := textBody(item, "listing")

	assert.NotContains(t, body, "Description:")
	assert.NotContains(t, body, "Current Price:")
	assert.NotContains(t, body, "End Time:")
}

func TestHTMLBody_ConditionalSections(t *testing.T) {
	full := storage.AuctionItem{
		Title:       "Diesel generator",
		URL:         "https://live.aucor.com/lots/3",
		Description: "20kVA standby unit",
		Price:       "R 40,000",
		EndTime:     "2026-09-20 12:00",
		ImageURL:    "https://live.aucor.com/img/3.jpg",
	}

	html := renderHTML(t, full, "generator")
	assert.Contains(t, html, "Diesel generator")
	assert.Contains(t, html, `src="https://live.aucor.com/img/3.jpg"`)
	assert.Contains(t, html, "20kVA standby unit")
	assert.Contains(t, html, "R 40,000")
	assert.Contains(t, html, `href="https://live.aucor.com/lots/3"`)
	assert.Contains(t, html, "search term: <strong>generator</strong>")

	bare := storage.AuctionItem{Title: "Bare listing", URL: "https://live.aucor.com/lots/4"}
	html = renderHTML(t, bare, "listing")
	assert.NotContains(t, html, "<img")
	assert.NotContains(t, html, "Description:")
	assert.NotContains(t, html, "Current Price:")
	assert.NotContains(t, html, "End Time:")
}

func TestHTMLBody_EscapesMarkup(t *testing.T) {
	item := storage.AuctionItem{
		Title: `Chairs <b>"lot"</b> & tables`,
		URL:   "https://live.aucor.com/lots/5",
	}

	html := renderHTML(t, item, "chairs")
	assert.NotContains(t, html, "<b>\"lot\"</b>")
	assert.True(t, strings.Contains(html, "&lt;b&gt;"))
}
