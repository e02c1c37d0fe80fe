// internal/render/moment.go
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const defaultMomentLayout = "YYYY-MM-DDTHH:mm:ssZ"

// momentValue is the date value produced by moment(...) inside expressions.
type momentValue struct {
	t      time.Time
	valid  bool
	locale string
}

var inputLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// newMoment builds a date in loc from an optional argument: nothing (now), a
// date string, epoch milliseconds, a time.Time or another moment.
func newMoment(args []interface{}, loc *time.Location, now time.Time) momentValue {
	if len(args) == 0 {
		return momentValue{t: now.In(loc), valid: true, locale: "en"}
	}
	switch v := args[0].(type) {
	case momentValue:
		v.t = v.t.In(loc)
		return v
	case time.Time:
		return momentValue{t: v.In(loc), valid: true, locale: "en"}
	case *time.Time:
		if v != nil {
			return momentValue{t: v.In(loc), valid: true, locale: "en"}
		}
	case string:
		if t, ok := parseMomentString(v, loc); ok {
			return momentValue{t: t, valid: true, locale: "en"}
		}
	default:
		if ms, ok := toNumber(v); ok && v != nil {
			if _, isBool := v.(bool); !isBool {
				return momentValue{t: time.UnixMilli(int64(ms)).In(loc), valid: true, locale: "en"}
			}
		}
	}
	return momentValue{locale: "en"}
}

func parseMomentString(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), true
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (m momentValue) String() string {
	if !m.valid {
		return "Invalid date"
	}
	return m.format(defaultMomentLayout)
}

func (m momentValue) call(name string, args []interface{}) (interface{}, error) {
	switch name {
	case "format":
		layout := defaultMomentLayout
		if len(args) > 0 && args[0] != nil {
			layout = stringify(args[0])
		}
		if !m.valid {
			return "Invalid date", nil
		}
		return m.format(layout), nil
	case "tz":
		if len(args) == 0 {
			return m.t.Location().String(), nil
		}
		loc, err := time.LoadLocation(stringify(args[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrEvaluation, stringify(args[0]))
		}
		m.t = m.t.In(loc)
		return m, nil
	case "utc":
		m.t = m.t.UTC()
		return m, nil
	case "locale":
		if len(args) == 0 {
			return m.locale, nil
		}
		m.locale = strings.ToLower(stringify(args[0]))
		return m, nil
	case "add", "subtract":
		if len(args) < 2 {
			return nil, fmt.Errorf("%w: %s expects an amount and a unit", ErrEvaluation, name)
		}
		n, ok := toNumber(args[0])
		if !ok {
			return nil, fmt.Errorf("%w: %s amount is not a number", ErrEvaluation, name)
		}
		if name == "subtract" {
			n = -n
		}
		shifted, err := shift(m.t, int(n), stringify(args[1]))
		if err != nil {
			return nil, err
		}
		m.t = shifted
		return m, nil
	case "startOf":
		if len(args) == 0 {
			return nil, fmt.Errorf("%w: startOf expects a unit", ErrEvaluation)
		}
		m.t = startOf(m.t, stringify(args[0]))
		return m, nil
	case "toISOString":
		return m.t.UTC().Format("2006-01-02T15:04:05.000Z"), nil
	case "valueOf":
		return float64(m.t.UnixMilli()), nil
	case "unix":
		return float64(m.t.Unix()), nil
	case "isValid":
		return m.valid, nil
	}
	return nil, fmt.Errorf("%w: moment has no method %q", ErrEvaluation, name)
}

func shift(t time.Time, n int, unit string) (time.Time, error) {
	switch unit {
	case "y", "year", "years":
		return t.AddDate(n, 0, 0), nil
	case "M", "month", "months":
		return t.AddDate(0, n, 0), nil
	case "w", "week", "weeks":
		return t.AddDate(0, 0, 7*n), nil
	case "d", "day", "days":
		return t.AddDate(0, 0, n), nil
	case "h", "hour", "hours":
		return t.Add(time.Duration(n) * time.Hour), nil
	case "m", "minute", "minutes":
		return t.Add(time.Duration(n) * time.Minute), nil
	case "s", "second", "seconds":
		return t.Add(time.Duration(n) * time.Second), nil
	}
	return t, fmt.Errorf("%w: unknown time unit %q", ErrEvaluation, unit)
}

func startOf(t time.Time, unit string) time.Time {
	y, mo, d := t.Date()
	switch unit {
	case "year", "y":
		return time.Date(y, 1, 1, 0, 0, 0, 0, t.Location())
	case "month", "M":
		return time.Date(y, mo, 1, 0, 0, 0, 0, t.Location())
	case "day", "d":
		return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
	case "hour", "h":
		return time.Date(y, mo, d, t.Hour(), 0, 0, 0, t.Location())
	}
	return t
}

type localeNames struct {
	months         [12]string
	monthsGenitive [12]string
	monthsShort    [12]string
	weekdays       [7]string
	weekdaysShort  [7]string
}

var locales = map[string]localeNames{
	"en": {
		months:        [12]string{"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
		monthsShort:   [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		weekdays:      [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		weekdaysShort: [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
	},
	"ru": {
		months:         [12]string{"январь", "февраль", "март", "апрель", "май", "июнь", "июль", "август", "сентябрь", "октябрь", "ноябрь", "декабрь"},
		monthsGenitive: [12]string{"января", "февраля", "марта", "апреля", "мая", "июня", "июля", "августа", "сентября", "октября", "ноября", "декабря"},
		monthsShort:    [12]string{"янв.", "февр.", "мар.", "апр.", "мая", "июня", "июля", "авг.", "сент.", "окт.", "нояб.", "дек."},
		weekdays:       [7]string{"воскресенье", "понедельник", "вторник", "среда", "четверг", "пятница", "суббота"},
		weekdaysShort:  [7]string{"вс", "пн", "вт", "ср", "чт", "пт", "сб"},
	},
	"hy-am": {
		months:         [12]string{"հունվար", "փետրվար", "մարտ", "ապրիլ", "մայիս", "հունիս", "հուլիս", "օգոստոս", "սեպտեմբեր", "հոկտեմբեր", "նոյեմբեր", "դեկտեմբեր"},
		monthsGenitive: [12]string{"հունվարի", "փետրվարի", "մարտի", "ապրիլի", "մայիսի", "հունիսի", "հուլիսի", "օգոստոսի", "սեպտեմբերի", "հոկտեմբերի", "նոյեմբերի", "դեկտեմբերի"},
		monthsShort:    [12]string{"հնվ", "փտր", "մրտ", "ապր", "մյս", "հնս", "հլս", "օգս", "սպտ", "հկտ", "նմբ", "դկտ"},
		weekdays:       [7]string{"կիրակի", "երկուշաբթի", "երեքշաբթի", "չորեքշաբթի", "հինգշաբթի", "ուրբաթ", "շաբաթ"},
		weekdaysShort:  [7]string{"կրկ", "երկ", "երք", "չրք", "հնգ", "ուրբ", "շբթ"},
	},
}

func localeFor(name string) localeNames {
	if l, ok := locales[name]; ok {
		return l
	}
	if name == "hy" {
		return locales["hy-am"]
	}
	if i := strings.IndexAny(name, "-_"); i > 0 {
		if l, ok := locales[name[:i]]; ok {
			return l
		}
	}
	return locales["en"]
}

// format tokens, longest first within each family
var formatTokens = []string{
	"YYYY", "YY",
	"MMMM", "MMM", "MM", "M",
	"Do", "DD", "D",
	"dddd", "ddd",
	"HH", "H", "hh", "h",
	"mm", "m", "ss", "s",
	"A", "a", "ZZ", "Z", "X", "x",
}

func (m momentValue) format(layout string) string {
	names := localeFor(m.locale)
	genitive := strings.Contains(layout, "D") && names.monthsGenitive[0] != ""
	t := m.t

	var b strings.Builder
	for i := 0; i < len(layout); {
		if layout[i] == '[' {
			end := strings.IndexByte(layout[i:], ']')
			if end > 0 {
				b.WriteString(layout[i+1 : i+end])
				i += end + 1
				continue
			}
		}
		tok := ""
		for _, candidate := range formatTokens {
			if strings.HasPrefix(layout[i:], candidate) {
				tok = candidate
				break
			}
		}
		if tok == "" {
			b.WriteByte(layout[i])
			i++
			continue
		}
		i += len(tok)

		switch tok {
		case "YYYY":
			b.WriteString(fmt.Sprintf("%04d", t.Year()))
		case "YY":
			b.WriteString(fmt.Sprintf("%02d", t.Year()%100))
		case "MMMM":
			if genitive {
				b.WriteString(names.monthsGenitive[t.Month()-1])
			} else {
				b.WriteString(names.months[t.Month()-1])
			}
		case "MMM":
			b.WriteString(names.monthsShort[t.Month()-1])
		case "MM":
			b.WriteString(fmt.Sprintf("%02d", int(t.Month())))
		case "M":
			b.WriteString(strconv.Itoa(int(t.Month())))
		case "Do":
			b.WriteString(ordinal(t.Day(), m.locale))
		case "DD":
			b.WriteString(fmt.Sprintf("%02d", t.Day()))
		case "D":
			b.WriteString(strconv.Itoa(t.Day()))
		case "dddd":
			b.WriteString(names.weekdays[t.Weekday()])
		case "ddd":
			b.WriteString(names.weekdaysShort[t.Weekday()])
		case "HH":
			b.WriteString(fmt.Sprintf("%02d", t.Hour()))
		case "H":
			b.WriteString(strconv.Itoa(t.Hour()))
		case "hh":
			b.WriteString(fmt.Sprintf("%02d", hour12(t.Hour())))
		case "h":
			b.WriteString(strconv.Itoa(hour12(t.Hour())))
		case "mm":
			b.WriteString(fmt.Sprintf("%02d", t.Minute()))
		case "m":
			b.WriteString(strconv.Itoa(t.Minute()))
		case "ss":
			b.WriteString(fmt.Sprintf("%02d", t.Second()))
		case "s":
			b.WriteString(strconv.Itoa(t.Second()))
		case "A":
			b.WriteString(meridiem(t.Hour(), true))
		case "a":
			b.WriteString(meridiem(t.Hour(), false))
		case "ZZ":
			b.WriteString(t.Format("-0700"))
		case "Z":
			b.WriteString(t.Format("-07:00"))
		case "X":
			b.WriteString(strconv.FormatInt(t.Unix(), 10))
		case "x":
			b.WriteString(strconv.FormatInt(t.UnixMilli(), 10))
		}
	}
	return b.String()
}

func hour12(h int) int {
	h %= 12
	if h == 0 {
		return 12
	}
	return h
}

func meridiem(h int, upper bool) string {
	s := "am"
	if h >= 12 {
		s = "pm"
	}
	if upper {
		return strings.ToUpper(s)
	}
	return s
}

func ordinal(d int, locale string) string {
	if localeFor(locale).months != locales["en"].months {
		return strconv.Itoa(d)
	}
	suffix := "th"
	switch {
	case d%100 >= 11 && d%100 <= 13:
	case d%10 == 1:
		suffix = "st"
	case d%10 == 2:
		suffix = "nd"
	case d%10 == 3:
		suffix = "rd"
	}
	return strconv.Itoa(d) + suffix
}
