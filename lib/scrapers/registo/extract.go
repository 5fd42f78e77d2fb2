package registo

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"neptun/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// The booking site renders everything server-side and offers no stable
// markup contract, so every extractor here has a primary structural
// pattern and, where feasible, a cruder fallback that recovers partial
// data. The tier that fired is logged so markup drift shows up in the
// logs instead of as silently wrong results.

type ResourceSelection struct {
	SubscriptionID string
	ResourceID     string
}

type Constraints struct {
	// weekday numbers as the calendar widget counts them, Sunday=0
	DisabledWeekdays map[int]bool
	// ISO dates (2006-01-02) explicitly excluded by the widget
	BlackoutDates map[string]bool
	// zero when the widget config carried no validity end date
	MaxDate time.Time
}

type Slot struct {
	// "HH:MM-HH:MM"
	TimeRange string
	Spots     int
	// opaque server token, passed back verbatim to book the slot
	IntervalID string
}

type Appointment struct {
	Cells []string
	// stable token taken from the row's delete link, empty if absent
	DeleteID string
}

func hiddenFieldRegexes(name string) [2]*regexp.Regexp {
	// attribute order is not guaranteed, match both
	return [2]*regexp.Regexp{
		regexp.MustCompile(fmt.Sprintf(`name="%s"[^>]*value="([^"]*)"`, name)),
		regexp.MustCompile(fmt.Sprintf(`value="([^"]*)"[^>]*name="%s"`, name)),
	}
}

var subscriptionFieldRegexes = hiddenFieldRegexes("subscription")
var resourceFieldRegexes = hiddenFieldRegexes("resource")

func matchHiddenField(html string, regexes [2]*regexp.Regexp) string {
	for _, re := range regexes {
		groups := re.FindStringSubmatch(html)
		if len(groups) == 2 && groups[1] != "" {
			return groups[1]
		}
	}
	return ""
}

// ExtractResourceSelection pulls the subscription and resource ids out
// of the wizard's step-2 response. Returning ok=false means the page is
// not a valid step-2 response, which is how an invalid or expired
// subscription code presents itself. It is not an error.
func ExtractResourceSelection(html string) (ResourceSelection, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		sel := ResourceSelection{
			SubscriptionID: doc.Find("input[name=subscription]").AttrOr("value", ""),
			ResourceID:     doc.Find("input[name=resource]").AttrOr("value", ""),
		}
		if sel.SubscriptionID != "" && sel.ResourceID != "" {
			return sel, true
		}
	}

	sel := ResourceSelection{
		SubscriptionID: matchHiddenField(html, subscriptionFieldRegexes),
		ResourceID:     matchHiddenField(html, resourceFieldRegexes),
	}
	if sel.SubscriptionID == "" || sel.ResourceID == "" {
		return ResourceSelection{}, false
	}
	slog.Debug("resource selection extracted via fallback tier")
	return sel, true
}

var disabledDaysRegex = regexp.MustCompile(`(?i)disabled(?:week)?days\D*?([0-6](?:\s*,\s*[0-6])*)`)
var blackoutDateRegex = regexp.MustCompile(`(?:==|!=)\s*['"](\d{4}-\d{2}-\d{2})['"]`)
var maxDateRegex = regexp.MustCompile(`(?i)(?:maxdate|enddate)\s*[:=]\s*['"](\d{4}-\d{2}-\d{2})['"]`)

// ExtractConstraints reads the calendar-widget configuration embedded
// in the step-3 response. The three facts are unrelated and each one is
// optional; a page missing one still yields the others.
func ExtractConstraints(html string) Constraints {
	c := Constraints{
		DisabledWeekdays: map[int]bool{},
		BlackoutDates:    map[string]bool{},
	}

	if groups := disabledDaysRegex.FindStringSubmatch(html); len(groups) == 2 {
		for _, d := range strings.Split(groups[1], ",") {
			day, err := strconv.Atoi(strings.TrimSpace(d))
			if err == nil {
				c.DisabledWeekdays[day] = true
			}
		}
	}

	for _, groups := range blackoutDateRegex.FindAllStringSubmatch(html, -1) {
		c.BlackoutDates[groups[1]] = true
	}

	if groups := maxDateRegex.FindStringSubmatch(html); len(groups) == 2 {
		maxDate, err := time.Parse("2006-01-02", groups[1])
		if err == nil {
			c.MaxDate = maxDate
		} else {
			slog.Warn("calendar widget carries an unparseable max date", "raw", groups[1])
		}
	}

	return c
}

var timeRangeRegex = regexp.MustCompile(`\b(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})\b`)
var spotsRegex = regexp.MustCompile(`(?i)(?:locuri disponibile|spots available|available)\s*:?\s*(\d+)`)

func normalizeTimeRange(start, end string) string {
	if len(start) == 4 {
		start = "0" + start
	}
	if len(end) == 4 {
		end = "0" + end
	}
	return start + "-" + end
}

// ExtractSlots returns the bookable intervals of a step-4 response in
// document order.
//
// Primary tier: each slot is a block holding a heading, a time range,
// a spot count and a hidden interval field, in that order. Fallback
// tier: when the primary matches nothing, the three token kinds are
// collected independently across the whole document and zipped
// positionally up to the shortest list. The zip assumes the scans stay
// aligned, which markup drift can break; that risk is accepted and the
// tier choice is logged to keep it diagnosable.
func ExtractSlots(html string) []Slot {
	var slots []Slot

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		doc.Find("input[name=interval]").Each(func(_ int, input *goquery.Selection) {
			block := input.Parent()
			if block.Find("h1,h2,h3,h4,h5,h6").Length() == 0 || len(block.Nodes) == 0 {
				return
			}
			text := htmlutil.GetText(block.Nodes[0])

			timeGroups := timeRangeRegex.FindStringSubmatch(text)
			spotGroups := spotsRegex.FindStringSubmatch(text)
			id := input.AttrOr("value", "")
			if len(timeGroups) != 3 || len(spotGroups) != 2 || id == "" {
				return
			}
			spots, err := strconv.Atoi(spotGroups[1])
			if err != nil {
				return
			}

			slots = append(slots, Slot{
				TimeRange:  normalizeTimeRange(timeGroups[1], timeGroups[2]),
				Spots:      spots,
				IntervalID: id,
			})
		})
	}
	if len(slots) > 0 {
		slog.Debug("slot extraction", "tier", "primary", "count", len(slots))
		return slots
	}

	times := timeRangeRegex.FindAllStringSubmatch(html, -1)
	counts := spotsRegex.FindAllStringSubmatch(html, -1)
	var ids []string
	for _, re := range hiddenFieldRegexes("interval") {
		for _, groups := range re.FindAllStringSubmatch(html, -1) {
			ids = append(ids, groups[1])
		}
		if len(ids) > 0 {
			break
		}
	}

	n := len(times)
	if len(counts) < n {
		n = len(counts)
	}
	if len(ids) < n {
		n = len(ids)
	}
	for i := 0; i < n; i++ {
		spots, err := strconv.Atoi(counts[i][1])
		if err != nil {
			continue
		}
		slots = append(slots, Slot{
			TimeRange:  normalizeTimeRange(times[i][1], times[i][2]),
			Spots:      spots,
			IntervalID: ids[i],
		})
	}
	if len(slots) > 0 {
		slog.Debug("slot extraction", "tier", "fallback", "count", len(slots))
	}
	return slots
}

var deleteLinkRegex = regexp.MustCompile(`appointment/delete/([^/"'?\s]+)`)

// ExtractAppointmentRows parses the appointments table. Rows with fewer
// than 5 cells are treated as non-data rows (headers, spacers) and
// skipped silently.
func ExtractAppointmentRows(html string) []Appointment {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var rows []Appointment
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		var texts []string
		cells.Each(func(_ int, cell *goquery.Selection) {
			fragment, err := cell.Html()
			if err != nil {
				texts = append(texts, strings.TrimSpace(cell.Text()))
				return
			}
			texts = append(texts, htmlutil.CellText(fragment))
		})

		deleteID := ""
		row.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			groups := deleteLinkRegex.FindStringSubmatch(a.AttrOr("href", ""))
			if len(groups) == 2 {
				deleteID = groups[1]
				return false
			}
			return true
		})

		rows = append(rows, Appointment{Cells: texts, DeleteID: deleteID})
	})
	return rows
}
