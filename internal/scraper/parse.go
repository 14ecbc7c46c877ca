package scraper

import (
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pfrederiksen/high-lakes/internal/lake"
)

// ErrNoCountySelect is returned when the search page has no county select element
var ErrNoCountySelect = errors.New("county select element not found")

// parseCountyIDs extracts the non-empty option values of the county select
func parseCountyIDs(doc *goquery.Document) ([]string, error) {
	sel := doc.Find(`select[name="county[]"]`).First()
	if sel.Length() == 0 {
		return nil, ErrNoCountySelect
	}

	seen := make(map[string]bool)
	ids := make([]string, 0)
	sel.Find("option").Each(func(i int, opt *goquery.Selection) {
		value, _ := opt.Attr("value")
		value = strings.TrimSpace(value)
		if value == "" || seen[value] {
			return
		}
		seen[value] = true
		ids = append(ids, value)
	})

	return ids, nil
}

// parseLakes extracts the lakes of one results page and whether a next page exists
func parseLakes(doc *goquery.Document, pageURL string) ([]*lake.Lake, bool) {
	lakes := make([]*lake.Lake, 0)

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return lakes, false
	}

	base, _ := url.Parse(pageURL)

	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() == 0 {
			return
		}

		var name, href string
		if link := cols.Eq(0).Find("a").First(); link.Length() > 0 {
			name = strings.TrimSpace(link.Text())
			href, _ = link.Attr("href")
		}

		lat := strings.TrimSpace(cols.Eq(4).Find("span.latlon-lat").Text())
		lon := strings.TrimSpace(cols.Eq(4).Find("span.latlon-lon").Text())

		lakes = append(lakes, lake.NewLake(
			name,
			absoluteURL(base, href),
			cellText(cols, 1),
			cellText(cols, 2),
			cellText(cols, 3),
			lat,
			lon,
		))
	})

	hasNext := doc.Find("li.pager__item--next").Length() > 0
	return lakes, hasNext
}

// parsePlants extracts the recent plants table of a lake page
func parsePlants(doc *goquery.Document) []*lake.Plant {
	plants := make([]*lake.Plant, 0)

	table := plantsTable(doc)
	if table == nil {
		return plants
	}

	headers := make([]string, 0)
	table.Find("thead th").Each(func(i int, th *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(th.Text()))
	})

	table.Find("tbody tr").Each(func(i int, row *goquery.Selection) {
		// Placeholder row shown until the table is rendered client-side
		if row.Find("div.st-loading").Length() > 0 {
			return
		}
		cols := row.Find("td")
		if cols.Length() == 0 {
			return
		}

		p := &lake.Plant{Source: lake.SourceLakePage}
		cols.Each(func(j int, td *goquery.Selection) {
			if j < len(headers) {
				setPlantField(p, headers[j], strings.TrimSpace(td.Text()))
			}
		})
		plants = append(plants, p)
	})

	return plants
}

// plantsTable finds the table captioned with PlantsCaption, or nil
func plantsTable(doc *goquery.Document) *goquery.Selection {
	var table *goquery.Selection
	doc.Find("caption").EachWithBreak(func(i int, caption *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(caption.Text()), PlantsCaption) {
			table = caption.Parent()
			return false
		}
		return true
	})
	return table
}

// plantsLoading reports whether the plants table still shows its client-side placeholder
func plantsLoading(doc *goquery.Document) bool {
	table := plantsTable(doc)
	return table != nil && table.Find("tbody div.st-loading").Length() > 0
}

// setPlantField assigns a cell to the plant field its header names
func setPlantField(p *lake.Plant, header, value string) {
	h := strings.ToLower(header)
	switch {
	case strings.Contains(h, "date"):
		p.Date = value
	case strings.Contains(h, "species"):
		p.Species = value
	case strings.Contains(h, "pound"):
		p.FishPerPound = value
	case strings.Contains(h, "number"), strings.Contains(h, "released"), strings.Contains(h, "count"):
		p.Number = value
	case strings.Contains(h, "hatchery"), strings.Contains(h, "facility"):
		p.Hatchery = value
	}
}

// cellText returns the trimmed text of column i, or "" when the row is short
func cellText(cols *goquery.Selection, i int) string {
	if i >= cols.Length() {
		return ""
	}
	return strings.TrimSpace(cols.Eq(i).Text())
}

// absoluteURL resolves href against the page it was found on
func absoluteURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
