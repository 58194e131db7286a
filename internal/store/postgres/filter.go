package postgres

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/surebet/internal/domain"
)

// filter accumulates WHERE clauses and positional arguments for list queries.
type filter struct {
	timeCol string
	conds   []string
	args    []any
	limit   int
	offset  int
}

func newFilter(timeCol string, opts domain.ListOpts) *filter {
	f := &filter{timeCol: timeCol, limit: opts.Limit, offset: opts.Offset}
	if opts.Since != nil {
		f.where(timeCol, ">=", *opts.Since)
	}
	if opts.Until != nil {
		f.where(timeCol, "<=", *opts.Until)
	}
	return f
}

func (f *filter) where(col, op string, v any) {
	f.args = append(f.args, v)
	f.conds = append(f.conds, fmt.Sprintf("%s %s $%d", col, op, len(f.args)))
}

// sql renders the WHERE, ORDER BY, LIMIT and OFFSET tail. Call it once, after
// every condition has been added.
func (f *filter) sql() string {
	var b strings.Builder
	if len(f.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(f.conds, " AND "))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(f.timeCol)
	b.WriteString(" DESC")
	if f.limit > 0 {
		f.args = append(f.args, f.limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(f.args))
	}
	if f.offset > 0 {
		f.args = append(f.args, f.offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(f.args))
	}
	return b.String()
}
