// internal/common/database/where.go
package database

import (
	"fmt"
	"strconv"
	"strings"
)

// Where accumulates AND-ed SQL conditions with positional Postgres arguments.
type Where struct {
	conds []string
	args  []interface{}
}

// Add appends cond, replacing each "?" with the placeholder of the matching arg.
func (w *Where) Add(cond string, args ...interface{}) *Where {
	for _, a := range args {
		cond = strings.Replace(cond, "?", w.Arg(a), 1)
	}
	w.conds = append(w.conds, cond)
	return w
}

// Arg registers v and returns its placeholder without adding a condition.
func (w *Where) Arg(v interface{}) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

// Or appends the disjunction of conds. Conds reference placeholders from Arg.
func (w *Where) Or(conds ...string) *Where {
	if len(conds) == 0 {
		return w
	}
	w.conds = append(w.conds, "("+strings.Join(conds, " OR ")+")")
	return w
}

func (w *Where) Args() []interface{} {
	return w.args
}

func (w *Where) Empty() bool {
	return len(w.conds) == 0
}

func (w *Where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Page is the sort and window of a list query. Sort is "field" or "field:ASC|DESC".
type Page struct {
	Sort  string
	Start int
	Limit int
}

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

// Clause renders ORDER BY, LIMIT and OFFSET. Only fields present in columns
// are sortable; anything else falls back to def.
func (p Page) Clause(columns map[string]string, def string) string {
	order := def
	if p.Sort != "" {
		field, dir, _ := strings.Cut(p.Sort, ":")
		if col, ok := columns[field]; ok {
			dir = strings.ToUpper(dir)
			if dir != "DESC" {
				dir = "ASC"
			}
			order = col + " " + dir
		}
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	start := p.Start
	if start < 0 {
		start = 0
	}
	return fmt.Sprintf(" ORDER BY %s LIMIT %d OFFSET %d", order, limit, start)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains returns an ILIKE pattern matching q anywhere.
func Contains(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}

// SearchTerms splits a free-text query into the comparisons it supports:
// substring on text columns, equality on boolean columns when q is true/false.
func SearchTerms(w *Where, q string, textCols, boolCols []string) {
	var conds []string
	if len(textCols) > 0 {
		p := w.Arg(Contains(q))
		for _, c := range textCols {
			conds = append(conds, c+" ILIKE "+p)
		}
	}
	if q == "true" || q == "false" {
		p := w.Arg(q == "true")
		for _, c := range boolCols {
			conds = append(conds, c+" = "+p)
		}
	}
	w.Or(conds...)
}
