package parser

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/en"
)

// dateKind records which parts of a date an expression pins down.
type dateKind int

const (
	kindClock    dateKind = 1 << iota // time of day only
	kindWeekday                       // a day of the week
	kindCalendar                      // day and month
	kindRelative                      // anchored on now: tomorrow, in 2 days
)

type dateRule struct {
	rule rules.Rule
	kind dateKind
}

// layout is a fixed date format tried before natural language matching.
type layout struct {
	format   string
	yearless bool
	clock    bool
}

var structuredLayouts = []layout{
	{"2006-01-02 15:04", false, true},
	{"2006-01-02T15:04", false, true},
	{"2006-01-02", false, false},
	{"2/1/2006 15:04", false, true},
	{"2/1/2006", false, false},
	{"2-1-2006 15:04", false, true},
	{"2-1-2006", false, false},
	{"2 January 2006 15:04", false, true},
	{"2 January 2006", false, false},
	{"2 Jan 2006 15:04", false, true},
	{"2 Jan 2006", false, false},
	{"2 January 15:04", true, true},
	{"2 January", true, false},
	{"2 Jan 15:04", true, true},
	{"2 Jan", true, false},
	{"2/1 15:04", true, true},
	{"2/1", true, false},
}

// fillerWords may surround a date expression without changing it.
var fillerWords = map[string]bool{
	"at": true, "on": true, "by": true, "the": true, "of": true,
	"pada": true, "hari": true, "tanggal": true, "tgl": true,
	"sebelum": true, "ini": true, "nanti": true,
}

// dateResolver wraps the natural language matcher and applies a future
// bias to ambiguous results.
type dateResolver struct {
	w     *when.Parser
	rules []dateRule
}

func newDateResolver() *dateResolver {
	r := &dateResolver{
		w: when.New(nil),
		rules: []dateRule{
			{en.Weekday(rules.Override), kindWeekday},
			{en.CasualDate(rules.Override), kindRelative},
			{en.CasualTime(rules.Override), kindClock},
			{en.Hour(rules.Override), kindClock},
			{en.HourMinute(rules.Override), kindClock},
			{en.Deadline(rules.Override), kindRelative},
			{en.PastTime(rules.Override), kindRelative},
			{en.ExactMonthDate(rules.Override), kindCalendar},
		},
	}
	for _, dr := range r.rules {
		r.w.Add(dr.rule)
	}
	return r
}

// resolve returns the instant text refers to relative to ref. Every word of
// text must be part of the date; anything left over makes it unparseable.
func (r *dateResolver) resolve(text string, ref time.Time) (time.Time, bool) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return time.Time{}, false
	}
	if t, ok := parseStructured(text, ref); ok {
		return t, true
	}

	norm := normalizeIndonesian(text)
	if t, ok := parseStructured(norm, ref); ok {
		return t, true
	}

	kinds, left, ok := r.cover(norm)
	if !ok {
		return time.Time{}, false
	}
	res, err := r.w.Parse(norm, ref)
	if err != nil || res == nil || res.Index != left {
		return time.Time{}, false
	}
	return preferFuture(res.Time, ref, kinds), true
}

// cover runs every rule over text and reports the kinds that matched and
// where the first match starts. It fails when no rule matches, when words
// outside the matches are not filler, or when the matches are too far apart
// to be read as one expression.
func (r *dateResolver) cover(text string) (dateKind, int, bool) {
	type span struct{ left, right int }
	var (
		kinds dateKind
		spans []span
	)
	covered := make([]bool, len(text))
	for _, dr := range r.rules {
		m := dr.rule.Find(text)
		if m == nil || m.Left < 0 || m.Right <= m.Left {
			continue
		}
		kinds |= dr.kind
		spans = append(spans, span{m.Left, m.Right})
		for i := m.Left; i < m.Right; i++ {
			covered[i] = true
		}
	}
	if len(spans) == 0 {
		return 0, 0, false
	}

	rest := []byte(text)
	for i := range rest {
		if covered[i] {
			rest[i] = ' '
		}
	}
	words := strings.FieldsFunc(string(rest), func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '\''
	})
	for _, w := range words {
		if !fillerWords[w] {
			return 0, 0, false
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].left < spans[j].left })
	end := spans[0].right
	for _, s := range spans[1:] {
		if s.left > end+maxMatchGap {
			return 0, 0, false
		}
		end = max(end, s.right)
	}
	return kinds, spans[0].left, true
}

// maxMatchGap mirrors the matcher's default clustering distance.
const maxMatchGap = 5

// parseStructured accepts numeric and spelled-out calendar dates. A date
// without a year means the next occurrence of that day.
func parseStructured(text string, ref time.Time) (time.Time, bool) {
	loc := ref.Location()
	for _, l := range structuredLayouts {
		t, err := time.ParseInLocation(l.format, text, loc)
		if err != nil {
			continue
		}
		if !l.yearless {
			return t, true
		}

		t = time.Date(ref.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
		passed := t.Before(ref)
		if !l.clock {
			passed = !t.AddDate(0, 0, 1).After(ref)
		}
		if passed {
			t = t.AddDate(1, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}

// preferFuture moves a past result forward when the input left part of the
// date open: "10pm" said at 23:00 means tomorrow, "friday" means the coming
// one, "25 december" means the next one. Relative expressions such as
// "today 9am" are kept as given.
func preferFuture(t, ref time.Time, kinds dateKind) time.Time {
	if !t.Before(ref) || kinds&kindRelative != 0 {
		return t
	}

	years, weeks, days := 0, 0, 1
	switch {
	case kinds&kindCalendar != 0:
		years, days = 1, 0
	case kinds&kindWeekday != 0:
		weeks, days = 1, 0
	}
	for t.Before(ref) {
		t = t.AddDate(years, 0, 7*weeks+days)
	}
	return t
}

var (
	reDurationLagi  = regexp.MustCompile(`\b(\d+)\s+(hari|minggu|jam|menit|bulan)\s+lagi\b`)
	reDurationDalam = regexp.MustCompile(`\bdalam\s+(\d+)\s+(hari|minggu|jam|menit|bulan)\b`)
	reClockWord     = regexp.MustCompile(`\b(?:jam|pukul|pkl\.?)\s*(\d{1,2})(?:[:.](\d{2}))?(?:\s*(pagi|siang|sore|malam))?\b`)
	reClockPeriod   = regexp.MustCompile(`\b(\d{1,2})(?:[:.](\d{2}))?\s*(pagi|siang|sore|malam)\b`)
	rePeriodWord    = regexp.MustCompile(`\b(pagi|siang|sore|malam)\b`)
	reNextWeekday   = regexp.MustCompile(`\b(senin|selasa|rabu|kamis|jum'?at|sabtu|ahad)\s+depan\b`)
)

var durationUnits = map[string]string{
	"hari":   "days",
	"minggu": "weeks",
	"jam":    "hours",
	"menit":  "minutes",
	"bulan":  "months",
}

var indonesianWords = map[string]string{
	"minggu depan": "in 1 week",
	"malam ini":    "tonight",
	"nanti malam":  "tonight",
	"hari ini":     "today",
	"sekarang":     "now",
	"besok":        "tomorrow",
	"lusa":         "in 2 days",

	"senin":  "monday",
	"selasa": "tuesday",
	"rabu":   "wednesday",
	"kamis":  "thursday",
	"jumat":  "friday",
	"jum'at": "friday",
	"sabtu":  "saturday",
	"minggu": "sunday",
	"ahad":   "sunday",

	"januari":  "january",
	"februari": "february",
	"maret":    "march",
	"mei":      "may",
	"juni":     "june",
	"juli":     "july",
	"agustus":  "august",
	"oktober":  "october",
	"desember": "december",
	"agu":      "aug",
	"agt":      "aug",
	"okt":      "oct",
	"des":      "dec",

	"pagi":  "morning",
	"siang": "noon",
	"sore":  "afternoon",
	"malam": "evening",
}

var reIndonesianWords = wordsPattern(indonesianWords)

func wordsPattern(words map[string]string) *regexp.Regexp {
	keys := make([]string, 0, len(words))
	for k := range words {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	for i, k := range keys {
		keys[i] = regexp.QuoteMeta(k)
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(keys, "|") + `)\b`)
}

// normalizeIndonesian rewrites Indonesian date words into the English forms
// the matcher understands: "besok jam 10 malam" becomes "tomorrow 22:00".
func normalizeIndonesian(text string) string {
	text = strings.ToLower(text)

	duration := func(m []string) string {
		return "in " + m[1] + " " + durationUnits[m[2]]
	}
	text = replaceSubmatch(reDurationLagi, text, duration)
	text = replaceSubmatch(reDurationDalam, text, duration)

	period := rePeriodWord.FindString(text)
	clocks := 0
	clock := func(m []string) string {
		p := m[3]
		if p == "" {
			p = period
		}
		s, ok := clock24(m[1], m[2], p)
		if !ok {
			return m[0]
		}
		clocks++
		return s
	}
	text = replaceSubmatch(reClockWord, text, clock)
	text = replaceSubmatch(reClockPeriod, text, clock)
	if clocks > 0 {
		text = rePeriodWord.ReplaceAllString(text, "")
	}

	text = reNextWeekday.ReplaceAllString(text, "next $1")
	text = reIndonesianWords.ReplaceAllStringFunc(text, func(w string) string {
		return indonesianWords[w]
	})
	return strings.Join(strings.Fields(text), " ")
}

func replaceSubmatch(re *regexp.Regexp, text string, fn func([]string) string) string {
	return re.ReplaceAllStringFunc(text, func(s string) string {
		return fn(re.FindStringSubmatch(s))
	})
}

// clock24 converts an Indonesian hour with an optional part of the day
// ("10 malam", "3 sore") into "HH:MM".
func clock24(hour, minute, period string) (string, bool) {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return "", false
	}
	m := 0
	if minute != "" {
		if m, err = strconv.Atoi(minute); err != nil {
			return "", false
		}
	}
	if h > 23 || m > 59 {
		return "", false
	}

	switch period {
	case "pagi":
		if h == 12 {
			h = 0
		}
	case "siang":
		if h >= 1 && h <= 5 {
			h += 12
		}
	case "sore":
		if h < 12 {
			h += 12
		}
	case "malam":
		switch {
		case h == 12:
			h = 0
		case h >= 5 && h < 12:
			h += 12
		}
	}
	return fmt.Sprintf("%02d:%02d", h, m), true
}
