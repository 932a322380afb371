package postgres

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/lib/pq"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
)

var sortColumns = map[domain.PollSortBy]string{
	domain.SortByCreationDate:     "p.created_at",
	domain.SortByEndDate:          "p.end_date",
	domain.SortByParticipantCount: "p.participant_count",
}

// pollQuery accumulates WHERE conditions and their numbered placeholders.
type pollQuery struct {
	conds []string
	args  []interface{}
}

// newPollQuery translates criteria into conditions. leading are bound first,
// so they take placeholders $1..$n.
func newPollQuery(c ports.PollCriteria, leading ...interface{}) *pollQuery {
	q := &pollQuery{args: leading}

	if c.Status != "" {
		q.where("p.status = " + q.arg(string(c.Status)))
	}
	q.window(c.Window, c.Now)
	q.window(c.Bucket, c.Now)

	if c.AuthoredOrVoted {
		q.where(fmt.Sprintf("(p.author_user_id = %s OR p.id = ANY(%s))", q.arg(c.AuthorID), q.arg(pq.Array(nonNil(c.VotedIDs)))))
	} else {
		if c.AuthorID != 0 {
			q.where("p.author_user_id = " + q.arg(c.AuthorID))
		}
		if c.VotedIDs != nil {
			q.where("p.id = ANY(" + q.arg(pq.Array(c.VotedIDs)) + ")")
		}
	}

	if c.SearchIDs != nil {
		q.where("p.id = ANY(" + q.arg(pq.Array(c.SearchIDs)) + ")")
	}

	return q
}

func (q *pollQuery) arg(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *pollQuery) where(cond string) {
	q.conds = append(q.conds, cond)
}

func (q *pollQuery) window(w ports.PollWindow, now time.Time) {
	switch w {
	case ports.WindowActive:
		n := q.arg(now)
		q.where(fmt.Sprintf("p.start_date <= %s AND p.end_date > %s", n, n))
	case ports.WindowInactive:
		n := q.arg(now)
		q.where(fmt.Sprintf("(p.start_date > %s OR p.end_date <= %s)", n, n))
	}
}

func (q *pollQuery) whereClause() string {
	if len(q.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.conds, " AND ")
}

// page appends LIMIT and OFFSET placeholders.
func (q *pollQuery) page(limit, offset int) string {
	return fmt.Sprintf(" LIMIT %s OFFSET %s", q.arg(limit), q.arg(offset))
}

func orderClause(order ports.PollOrder) (string, error) {
	column, ok := sortColumns[order.SortBy]
	if !ok {
		return "", fmt.Errorf("%w: unsupported sort key %q", domain.ErrInvalidInput, order.SortBy)
	}
	dir := "ASC"
	if order.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, p.id %s", column, dir, dir), nil
}

// tsQuery turns free text into a prefix-matching tsquery: every word must
// match the start of a lexeme. Punctuation is dropped.
func tsQuery(search string) string {
	var terms []string
	for _, word := range strings.Fields(search) {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, word)
		if cleaned != "" {
			terms = append(terms, cleaned+":*")
		}
	}
	return strings.Join(terms, " & ")
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
