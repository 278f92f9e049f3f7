package listing

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/movie-harvester/internal/movie"
)

// Parse extracts entries from every table.wikitable that has no caption.
// The first row of each table is a header. Rows with 6 cells are
// month, day, title, studio, credits; 5 cells drop the month; 4 cells drop
// month and day. Other rows are ignored. year is used to convert each
// release window to an ISO date.
func Parse(r io.Reader, year int) ([]movie.ListingEntry, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	var entries []movie.ListingEntry
	doc.Find("table.wikitable").Each(func(_ int, table *goquery.Selection) {
		if table.Find("caption").Length() > 0 {
			return
		}
		var month, day string
		table.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
			cells := row.ChildrenFiltered("td, th")
			text := func(i int) string { return cellText(cells.Eq(i)) }

			var title, studio, credits string
			switch cells.Length() {
			case 6:
				month, day = text(0), text(1)
				title, studio, credits = text(2), text(3), text(4)
			case 5:
				day = text(0)
				title, studio, credits = text(1), text(2), text(3)
			case 4:
				title, studio, credits = text(0), text(1), text(2)
			default:
				return
			}
			window := releaseWindow(day, month)
			date, _ := ConvertReleaseWindow(window, year)
			entries = append(entries, movie.ListingEntry{
				Title:         title,
				ReleaseWindow: window,
				Studio:        studio,
				CreditsText:   credits,
				ReleaseDate:   date,
			})
		})
	})
	return entries, nil
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func releaseWindow(day, month string) string {
	if day == "" && month == "" {
		return ""
	}
	return day + ", " + month
}

// ConvertReleaseWindow turns "12, JULY" into "<year>-07-12". Month names
// match case-insensitively. ok is false when the window does not parse.
func ConvertReleaseWindow(window string, year int) (string, bool) {
	parts := strings.Split(strings.TrimSpace(window), ", ")
	if len(parts) != 2 {
		return "", false
	}
	t, err := time.Parse("2 January 2006", parts[0]+" "+parts[1]+" "+strconv.Itoa(year))
	if err != nil {
		return "", false
	}
	return t.Format(time.DateOnly), true
}
