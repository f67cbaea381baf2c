// Package prefs normalizes heterogeneous scheduling preferences and folds them
// into resolved group constraints. Normalization never fails: unrecognized
// weekday tokens and malformed window specifications are dropped rather than
// reported, so callers always receive a usable (possibly empty) result.
package prefs

import (
	"strings"
	"time"
)

// CanonicalWeekdays lists the seven canonical codes in Monday-first order.
var CanonicalWeekdays = []time.Weekday{
	time.Monday,
	time.Tuesday,
	time.Wednesday,
	time.Thursday,
	time.Friday,
	time.Saturday,
	time.Sunday,
}

// weekdayAliases maps lowercased spellings to canonical weekdays. Besides the
// English names and abbreviations it covers the German, French, Spanish and
// Japanese spellings the upstream clients are known to send.
var weekdayAliases = map[string]time.Weekday{
	"monday": time.Monday, "mon": time.Monday, "mo": time.Monday,
	"montag": time.Monday, "lundi": time.Monday, "lunes": time.Monday,
	"月": time.Monday, "月曜日": time.Monday,

	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday, "tu": time.Tuesday,
	"dienstag": time.Tuesday, "mardi": time.Tuesday, "martes": time.Tuesday,
	"火": time.Tuesday, "火曜日": time.Tuesday,

	"wednesday": time.Wednesday, "wed": time.Wednesday, "we": time.Wednesday,
	"mittwoch": time.Wednesday, "mercredi": time.Wednesday, "miercoles": time.Wednesday, "miércoles": time.Wednesday,
	"水": time.Wednesday, "水曜日": time.Wednesday,

	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "th": time.Thursday,
	"donnerstag": time.Thursday, "jeudi": time.Thursday, "jueves": time.Thursday,
	"木": time.Thursday, "木曜日": time.Thursday,

	"friday": time.Friday, "fri": time.Friday, "fr": time.Friday,
	"freitag": time.Friday, "vendredi": time.Friday, "viernes": time.Friday,
	"金": time.Friday, "金曜日": time.Friday,

	"saturday": time.Saturday, "sat": time.Saturday, "sa": time.Saturday,
	"samstag": time.Saturday, "samedi": time.Saturday, "sabado": time.Saturday, "sábado": time.Saturday,
	"土": time.Saturday, "土曜日": time.Saturday,

	"sunday": time.Sunday, "sun": time.Sunday, "su": time.Sunday,
	"sonntag": time.Sunday, "dimanche": time.Sunday, "domingo": time.Sunday,
	"日": time.Sunday, "日曜日": time.Sunday,
}

// ParseWeekday maps an arbitrary weekday spelling to its canonical code.
func ParseWeekday(token string) (time.Weekday, bool) {
	day, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(token))]
	return day, ok
}

// ParseWeekdays normalizes a list of spellings into a deduplicated,
// Monday-first ordered weekday set. Unrecognized tokens are dropped.
func ParseWeekdays(tokens []string) []time.Weekday {
	if len(tokens) == 0 {
		return nil
	}
	seen := make(map[time.Weekday]struct{}, len(tokens))
	for _, token := range tokens {
		if day, ok := ParseWeekday(token); ok {
			seen[day] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]time.Weekday, 0, len(seen))
	for _, day := range CanonicalWeekdays {
		if _, ok := seen[day]; ok {
			out = append(out, day)
		}
	}
	return out
}

// WeekdayCode returns the canonical three-letter lowercase code for a weekday.
func WeekdayCode(day time.Weekday) string {
	switch day {
	case time.Monday:
		return "mon"
	case time.Tuesday:
		return "tue"
	case time.Wednesday:
		return "wed"
	case time.Thursday:
		return "thu"
	case time.Friday:
		return "fri"
	case time.Saturday:
		return "sat"
	default:
		return "sun"
	}
}

// IsWeekend reports whether the day counts as a weekend-type day. Friday
// through Sunday share the relaxed weekend scheduling profile; Monday through
// Thursday are the strict weekday profile.
func IsWeekend(day time.Weekday) bool {
	return day == time.Friday || day == time.Saturday || day == time.Sunday
}
