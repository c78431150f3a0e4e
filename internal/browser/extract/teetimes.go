package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

// SlotSelector matches the widgets booking sites commonly use for a single tee-time slot.
const SlotSelector = `.tee-time-slot, .tee-time, .teetime, .TeeTimeSearch-results-item, ` +
	`.time-slot, [data-tee-time], [data-teetime-id]`

const (
	priceSelector = `.price, .tee-time-price, [class*="price"], [data-price]`
	timeSelector  = `.time-display, .tee-time-time, .time`
	countSelector = `.player-count, .players, .spots, [data-available], [data-players]`
)

var (
	timePattern  = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*([ap])\.?\s*m\b\.?|\b(\d{1,2}):(\d{2})\b`)
	countPattern = regexp.MustCompile(`(?i)(\d+)\s*(?:spots?|players?|golfers?|slots?|openings?)\b`)
	pricePattern = regexp.MustCompile(`[$€£]\s?\d+(?:[.,]\d{2})?`)

	timeAttrs  = []string{"data-time", "data-tee-time", "data-teetime"}
	priceAttrs = []string{"data-price", "data-rate"}
	countAttrs = []string{"data-available", "data-players", "data-spots", "data-available-spots"}
	dateAttrs  = []string{"data-date", "data-tee-date"}

	// stampLayouts are the full timestamps sites put in time attributes. They
	// are tried before the loose clock pattern, which would read the seconds
	// of "08:00:00" as a time of day.
	stampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04"}
)

// referenceDay anchors parsed clock times so only the time of day affects ordering.
var referenceDay = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Criteria narrows extracted slots. Date is optional and compared only against slots
// that carry an explicit date attribute.
type Criteria struct {
	Date    string
	Players int
}

type candidate struct {
	record  schemas.TeeTimeRecord
	minutes int
}

// TeeTimes parses an HTML snapshot for tee-time slots. Records with no recognizable
// time are dropped, as are records whose known availability is below c.Players or
// whose explicit date differs from c.Date. Unknown availability never excludes a
// record. The result is ordered by time of day and is stable for identical input.
func TeeTimes(html, pageURL string, c Criteria) ([]schemas.TeeTimeRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page snapshot: %w", err)
	}
	base, _ := url.Parse(pageURL)
	wantDate, hasDate := parseDate(c.Date)

	var found []candidate
	doc.Find(SlotSelector).Each(func(_ int, s *goquery.Selection) {
		// Only the outermost slot widget counts; nested matches are parts of it.
		if s.ParentsFiltered(SlotSelector).Length() > 0 {
			return
		}

		timeText, minutes, ok := slotTime(s)
		if !ok {
			return
		}

		if hasDate {
			if slotDate, ok := slotDate(s); ok && !slotDate.Equal(wantDate) {
				return
			}
		}

		rec := schemas.TeeTimeRecord{
			Time:       timeText,
			Price:      slotPrice(s),
			BookingURL: slotLink(s, base),
		}
		if n, ok := slotCount(s); ok {
			if c.Players > 0 && n < c.Players {
				return
			}
			rec.AvailableSpots = &n
		}
		found = append(found, candidate{record: rec, minutes: minutes})
	})

	sort.SliceStable(found, func(i, j int) bool { return found[i].minutes < found[j].minutes })

	records := make([]schemas.TeeTimeRecord, 0, len(found))
	for _, f := range found {
		records = append(records, f.record)
	}
	return records, nil
}

// ParseClock returns the minutes past midnight for a loose clock token such as
// "8:05 AM", "8:05pm" or "14:30".
func ParseClock(token string) (int, bool) {
	m := timePattern.FindStringSubmatch(token)
	if m == nil {
		return 0, false
	}
	var hour, minute int
	var meridiem string
	if m[1] != "" {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		meridiem = strings.ToLower(m[3])
	} else {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
	}
	if minute > 59 {
		return 0, false
	}
	switch meridiem {
	case "a", "p":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		hour %= 12
		if meridiem == "p" {
			hour += 12
		}
	default:
		if hour > 23 {
			return 0, false
		}
	}
	t := referenceDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	return int(t.Sub(referenceDay).Minutes()), true
}

// parseStamp parses a full date-time attribute value. The clock is kept as
// written; the offset is not applied.
func parseStamp(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range stampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func slotTime(s *goquery.Selection) (string, int, bool) {
	for _, src := range []string{CollapseSpace(s.Find(timeSelector).First().Text()), CollapseSpace(s.Text())} {
		if token, minutes, ok := clockToken(src); ok {
			return token, minutes, true
		}
	}
	attr := firstAttr(s, timeAttrs)
	if stamp, ok := parseStamp(attr); ok {
		return stamp.Format("3:04 PM"), stamp.Hour()*60 + stamp.Minute(), true
	}
	return clockToken(attr)
}

func clockToken(src string) (string, int, bool) {
	token := timePattern.FindString(src)
	if token == "" {
		return "", 0, false
	}
	minutes, ok := ParseClock(token)
	if !ok {
		return "", 0, false
	}
	return strings.TrimSpace(token), minutes, true
}

func slotPrice(s *goquery.Selection) string {
	if el := s.Find(priceSelector).First(); el.Length() > 0 {
		if text := CollapseSpace(el.Text()); text != "" {
			if m := pricePattern.FindString(text); m != "" {
				return m
			}
			return text
		}
		if v, ok := el.Attr("data-price"); ok && v != "" {
			return strings.TrimSpace(v)
		}
	}
	return firstAttr(s, priceAttrs)
}

func slotCount(s *goquery.Selection) (int, bool) {
	texts := []string{CollapseSpace(s.Find(countSelector).First().Text()), CollapseSpace(s.Text())}
	for _, text := range texts {
		if m := countPattern.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return n, true
			}
		}
	}
	if v := firstAttr(s, countAttrs); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n, true
		}
	}
	if el := s.Find("[data-available], [data-players]").First(); el.Length() > 0 {
		if v := firstAttr(el, countAttrs); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func slotLink(s *goquery.Selection, base *url.URL) string {
	href, ok := s.Attr("href")
	if !ok || goquery.NodeName(s) != "a" {
		href, ok = s.Find("a[href]").First().Attr("href")
	}
	if !ok {
		href, ok = s.Attr("data-booking-url")
	}
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		return base.ResolveReference(ref).String()
	}
	return ref.String()
}

func firstAttr(s *goquery.Selection, names []string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// slotDate is the slot's explicit date: a date attribute, or the date part of
// a full timestamp in a time attribute.
func slotDate(s *goquery.Selection) (time.Time, bool) {
	if d, ok := parseDate(firstAttr(s, dateAttrs)); ok {
		return d, true
	}
	if stamp, ok := parseStamp(firstAttr(s, timeAttrs)); ok {
		y, m, d := stamp.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", "01/02/2006", "1/2/2006", "Jan 2, 2006", "January 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
