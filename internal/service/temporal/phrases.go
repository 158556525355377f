package temporal

import (
	"regexp"
	"strconv"
	"time"
)

type direction int

const (
	past direction = iota + 1
	future
)

// rule maps a phrase pattern to a day offset. Patterns run against folded text (lowercase, no accents).
type rule struct {
	lang      string
	direction direction
	pattern   *regexp.Regexp
	offset    func(m []string, today time.Time) (int, bool)
}

// rewrite turns a phrase that looks temporal but is not (Spanish "esta mañana" is this morning,
// not tomorrow) into a neutral one before classification.
type rewrite struct {
	pattern     *regexp.Regexp
	replacement string
}

var rewrites = []rewrite{
	{regexp.MustCompile(`\b(esta|por la|en la|de la|la) manana\b`), "hoy"},
}

const (
	enWeekdays = `(sunday|monday|tuesday|wednesday|thursday|friday|saturday)`
	frWeekdays = `(dimanche|lundi|mardi|mercredi|jeudi|vendredi|samedi)`
	esWeekdays = `(domingo|lunes|martes|miercoles|jueves|viernes|sabado)`
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday, "wednesday": time.Wednesday,
	"thursday": time.Thursday, "friday": time.Friday, "saturday": time.Saturday,
	"dimanche": time.Sunday, "lundi": time.Monday, "mardi": time.Tuesday, "mercredi": time.Wednesday,
	"jeudi": time.Thursday, "vendredi": time.Friday, "samedi": time.Saturday,
	"domingo": time.Sunday, "lunes": time.Monday, "martes": time.Tuesday, "miercoles": time.Wednesday,
	"jueves": time.Thursday, "viernes": time.Friday, "sabado": time.Saturday,
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"un": 1, "une": 1, "deux": 2, "trois": 3, "quatre": 4, "cinq": 5, "sept": 7, "huit": 8, "neuf": 9, "dix": 10,
	"uno": 1, "una": 1, "dos": 2, "tres": 3, "cuatro": 4, "cinco": 5, "seis": 6, "siete": 7, "ocho": 8, "nueve": 9, "diez": 10,
}

// Future phrases are checked before past ones and always reject.
var futureRules = []rule{
	{"en", future, regexp.MustCompile(`\btomorrow\b`), nil},
	{"en", future, regexp.MustCompile(`\bnext (week|month|year)\b`), nil},
	{"en", future, regexp.MustCompile(`\bnext ` + enWeekdays + `\b`), nil},
	{"en", future, regexp.MustCompile(`\bin (\w+) (days?|weeks?)\b`), nil},
	{"en", future, regexp.MustCompile(`\blater (today|tonight|this week)\b`), nil},
	{"fr", future, regexp.MustCompile(`\bdemain\b`), nil},
	{"fr", future, regexp.MustCompile(`\b(la semaine|le mois) prochaine?\b`), nil},
	{"fr", future, regexp.MustCompile(`\b` + frWeekdays + ` prochain\b`), nil},
	{"fr", future, regexp.MustCompile(`\bdans (\w+) (jours?|semaines?)\b`), nil},
	{"es", future, regexp.MustCompile(`\bmanana\b`), nil},
	{"es", future, regexp.MustCompile(`\b(la )?(proxima semana|semana que viene|proximo mes)\b`), nil},
	{"es", future, regexp.MustCompile(`\bel ` + esWeekdays + ` (que viene|proximo)\b`), nil},
	{"es", future, regexp.MustCompile(`\bdentro de (\w+) (dias?|semanas?)\b`), nil},
}

// Order matters: longer phrases ("avant-hier") must come before the phrases they contain ("hier").
var pastRules = []rule{
	{"en", past, regexp.MustCompile(`\bday before yesterday\b`), fixed(2)},
	{"en", past, regexp.MustCompile(`\byesterday\b`), fixed(1)},
	{"en", past, regexp.MustCompile(`\blast night\b`), fixed(1)},
	{"en", past, regexp.MustCompile(`\b(\w+) days? ago\b`), counted(1, 1)},
	{"en", past, regexp.MustCompile(`\b(\w+) weeks? ago\b`), counted(1, 7)},
	{"en", past, regexp.MustCompile(`\blast week\b`), fixed(7)},
	{"en", past, regexp.MustCompile(`\blast ` + enWeekdays + `\b`), lastWeekday(1)},
	{"en", past, regexp.MustCompile(`\b(today|this morning|this afternoon|this evening|tonight)\b`), fixed(0)},
	{"fr", past, regexp.MustCompile(`\bavant[- ]hier\b`), fixed(2)},
	{"fr", past, regexp.MustCompile(`\bhier\b`), fixed(1)},
	{"fr", past, regexp.MustCompile(`\bil y a (\w+) jours?\b`), counted(1, 1)},
	{"fr", past, regexp.MustCompile(`\bil y a (\w+) semaines?\b`), counted(1, 7)},
	{"fr", past, regexp.MustCompile(`\bla semaine (derniere|passee)\b`), fixed(7)},
	{"fr", past, regexp.MustCompile(`\b` + frWeekdays + ` (dernier|passe)\b`), lastWeekday(1)},
	{"fr", past, regexp.MustCompile(`\b(aujourd'hui|aujourdhui|ce matin|ce soir|cet apres-midi)\b`), fixed(0)},
	{"es", past, regexp.MustCompile(`\b(anteayer|antier|antes de ayer)\b`), fixed(2)},
	{"es", past, regexp.MustCompile(`\bayer\b`), fixed(1)},
	{"es", past, regexp.MustCompile(`\banoche\b`), fixed(1)},
	{"es", past, regexp.MustCompile(`\bhace (\w+) dias?\b`), counted(1, 1)},
	{"es", past, regexp.MustCompile(`\bhace (\w+) semanas?\b`), counted(1, 7)},
	{"es", past, regexp.MustCompile(`\bla semana pasada\b`), fixed(7)},
	{"es", past, regexp.MustCompile(`\bel ` + esWeekdays + ` pasado\b`), lastWeekday(1)},
	{"es", past, regexp.MustCompile(`\bhoy\b`), fixed(0)},
}

func fixed(days int) func([]string, time.Time) (int, bool) {
	return func([]string, time.Time) (int, bool) { return days, true }
}

func counted(group, multiplier int) func([]string, time.Time) (int, bool) {
	return func(m []string, _ time.Time) (int, bool) {
		n, ok := parseCount(m[group])
		if !ok {
			return 0, false
		}
		if n > maxCountedDays/multiplier {
			return maxCountedDays, true
		}
		return n * multiplier, true
	}
}

// lastWeekday resolves "last monday" to the most recent such day strictly before today.
func lastWeekday(group int) func([]string, time.Time) (int, bool) {
	return func(m []string, today time.Time) (int, bool) {
		target, ok := weekdays[m[group]]
		if !ok {
			return 0, false
		}
		days := (int(today.Weekday()) - int(target) + 7) % 7
		if days == 0 {
			days = 7
		}
		return days, true
	}
}

// maxCountedDays caps "N days/weeks ago" offsets. Anything older is already outside every backdating window.
const maxCountedDays = 3660

func parseCount(token string) (int, bool) {
	if n, err := strconv.Atoi(token); err == nil && n >= 0 {
		return n, true
	}
	n, ok := numberWords[token]
	return n, ok
}
