package htmlutil

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Row is one table body row keyed by normalized column header.
type Row map[string]string

// Get returns the first non-empty cell among the given headers.
func (r Row) Get(headers ...string) string {
	for _, h := range headers {
		if v := r[h]; v != "" {
			return v
		}
	}
	return ""
}

// TableRows returns the body rows of every table matching selector. Headers
// come from the table's <thead>, or from its first row when there is none.
// Tables without headers are skipped.
func TableRows(doc *goquery.Document, selector string) []Row {
	var out []Row
	doc.Find(selector).Each(func(_ int, table *goquery.Selection) {
		out = append(out, tableRows(table)...)
	})
	return out
}

func tableRows(table *goquery.Selection) []Row {
	rows := table.Find("tr")
	if rows.Length() < 2 {
		return nil
	}

	headerRow := table.Find("thead tr").First()
	body := table.Find("tbody tr")
	if headerRow.Length() == 0 {
		headerRow = rows.First()
		body = rows.Slice(1, rows.Length())
	} else if body.Length() == 0 {
		body = rows.Not("thead tr")
	}

	var headers []string
	headerRow.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		headers = append(headers, normalizeHeader(cell.Text()))
	})
	if len(headers) == 0 {
		return nil
	}

	var out []Row
	body.Each(func(_ int, tr *goquery.Selection) {
		row := make(Row, len(headers))
		tr.Find("td, th").Each(func(i int, cell *goquery.Selection) {
			if i < len(headers) && headers[i] != "" {
				row[headers[i]] = collapseSpace(cell.Text())
			}
		})
		if len(row) > 0 {
			out = append(out, row)
		}
	})
	return out
}

var dollarRe = regexp.MustCompile(`\$\s*([\d,]*\.?\d+)`)

// ParsePriceDollars reads the first dollar amount in s, such as "$3 / MTok"
// or "$0.003 / 1K tokens", as a price per million tokens. Amounts quoted per
// thousand tokens are scaled up; anything else is taken as per million.
func ParsePriceDollars(s string) (float64, bool) {
	m := dollarRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}

	lower := strings.ToLower(s)
	if strings.Contains(lower, "1k") || strings.Contains(lower, "thousand") {
		val *= 1000
	}
	return val, true
}

var tokenCountRe = regexp.MustCompile(`(?i)^\s*([\d,]*\.?\d+)\s*([kmb])?`)

// ParseTokenCount parses counts such as "200K", "1M", "1,048,576" or
// "128k tokens". It returns (0, false) when no number leads the string.
func ParseTokenCount(s string) (int, bool) {
	m := tokenCountRe.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	val, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(m[2]) {
	case "k":
		val *= 1_000
	case "m":
		val *= 1_000_000
	case "b":
		val *= 1_000_000_000
	}
	return int(val), true
}

// normalizeHeader lowercases a header and drops footnote markers such as
// "Output*" or "Input¹".
func normalizeHeader(s string) string {
	s = strings.ToLower(collapseSpace(s))
	return strings.TrimRight(s, "*†¹²³ ")
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
