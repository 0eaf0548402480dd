package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/panchang-io/festivals-api/internal/festival"
)

// walkMonthTables iterates the document's tables in source order,
// resolving each table's month from the first whitespace token of its
// header cell. Tables without a resolvable header are skipped. When
// target is non-empty only the matching table is visited, and scanning
// stops once it has been handled. Returns the number of tables
// scanned, which callers use to verify the early exit.
func walkMonthTables(doc *goquery.Document, target string, visit func(month string, table *goquery.Selection)) int {
	scanned := 0
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		scanned++

		header := table.Find("thead th").First()
		if header.Length() == 0 {
			return true
		}
		fields := strings.Fields(header.Text())
		if len(fields) == 0 {
			return true
		}
		month := fields[0]

		if target != "" && month != target {
			return true
		}

		visit(month, table)
		return target == "" || month != target
	})
	return scanned
}

// extractByMonth walks the calendar tables and collects every row that
// parses as a festival: at least two cells, non-empty date and name
// text, and a date cell splitting into date plus weekday tokens.
// Malformed rows are skipped, never fatal. Months whose tables yield
// no records contribute no group.
func extractByMonth(doc *goquery.Document, target string) *festival.Grouping {
	grouped := festival.NewGrouping()
	walkMonthTables(doc, target, func(month string, table *goquery.Selection) {
		var records []festival.Record
		table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			dateText := strings.TrimSpace(cells.Eq(0).Text())
			nameText := strings.TrimSpace(cells.Eq(1).Text())
			if dateText == "" || nameText == "" {
				return
			}
			parts := strings.Fields(dateText)
			if len(parts) < 2 {
				return
			}
			records = append(records, festival.Record{
				Date: parts[0],
				Day:  parts[1],
				Name: nameText,
			})
		})
		if len(records) > 0 {
			grouped.Set(month, records)
		}
	})
	return grouped
}

// classifyByReligion walks the same tables as extractByMonth but
// buckets entries by the inline color styling of bold and link
// elements inside the name cell. All categories are pre-seeded so the
// result always contains the full set. A single row may contribute to
// several categories when it holds differently styled elements; colors
// outside the known table are ignored. Records carry the table's month
// only when no target month is given.
func classifyByReligion(doc *goquery.Document, target string) *festival.Grouping {
	grouped := festival.NewGrouping()
	grouped.Seed(festival.Categories()...)
	includeMonth := target == ""

	walkMonthTables(doc, target, func(month string, table *goquery.Selection) {
		table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			dateText := strings.TrimSpace(cells.Eq(0).Text())
			if dateText == "" {
				return
			}
			parts := strings.Fields(dateText)
			if len(parts) < 2 {
				return
			}

			cells.Eq(1).Find("b, a").Each(func(_ int, styled *goquery.Selection) {
				style, ok := styled.Attr("style")
				if !ok {
					return
				}
				color, ok := styleColor(style)
				if !ok {
					return
				}
				category, ok := festival.CategoryForColor(color)
				if !ok {
					return
				}
				record := festival.Record{
					Date: parts[0],
					Day:  parts[1],
					Name: strings.TrimSpace(styled.Text()),
				}
				if includeMonth {
					record.Month = month
				}
				grouped.Append(category, record)
			})
		})
	})
	return grouped
}

// styleColor extracts the value of the color property from an inline
// style attribute. Declarations are separated by semicolons; the first
// color declaration with a non-empty value wins. Property matching is
// case-insensitive and surrounding whitespace is trimmed. Reports
// false when the style carries no usable color.
func styleColor(style string) (string, bool) {
	for _, decl := range strings.Split(style, ";") {
		property, value, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(property), "color") {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		return value, true
	}
	return "", false
}
