package query

import (
	"strings"
)

// Statement is a rendered SQL statement with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// selectBuilder accumulates the clauses of a single SELECT. Arguments are
// kept per clause so they line up with placeholders after rendering.
type selectBuilder struct {
	columns    string
	from       string
	joins      []string
	where      []string
	whereArgs  []any
	groupBy    string
	having     string
	havingArgs []any
	orderBy    []string
	limit      int
	offset     int
}

func (b *selectBuilder) join(clause string) {
	for _, j := range b.joins {
		if j == clause {
			return
		}
	}
	b.joins = append(b.joins, clause)
}

func (b *selectBuilder) filter(pred string, args ...any) {
	b.where = append(b.where, pred)
	b.whereArgs = append(b.whereArgs, args...)
}

func (b *selectBuilder) render() Statement {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(b.columns)
	sb.WriteString(" FROM ")
	sb.WriteString(b.from)
	for _, j := range b.joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.where, " AND "))
	}
	if b.groupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(b.groupBy)
	}
	if b.having != "" {
		sb.WriteString(" HAVING ")
		sb.WriteString(b.having)
	}
	if len(b.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	sb.WriteString(" LIMIT ? OFFSET ?")

	args := make([]any, 0, len(b.whereArgs)+len(b.havingArgs)+2)
	args = append(args, b.whereArgs...)
	args = append(args, b.havingArgs...)
	args = append(args, b.limit, b.offset)
	return Statement{SQL: sb.String(), Args: args}
}

const (
	joinDirector    = "JOIN directors d ON d.id = m.director_id"
	joinMovieGenres = "JOIN movie_genres mg ON mg.movie_id = m.id"
	joinGenres      = "JOIN genres g ON g.id = mg.genre_id"
	directorName    = "LOWER(CONCAT(d.first_name, ' ', d.last_name))"
)

var sortColumns = map[SortField]string{
	SortRating:      "m.rating",
	SortReleaseDate: "m.release_date",
}

// MovieIDs renders the statement selecting the ids of one page of movies,
// in result order. Steps run in a fixed order: sort, title text, release
// dates, directors, genres, window.
func MovieIDs(p MovieParams) Statement {
	b := &selectBuilder{columns: "m.id", from: "movies m"}

	for _, k := range p.Sort {
		b.orderBy = append(b.orderBy, sortColumns[k.Field]+" "+strings.ToUpper(string(k.Direction)))
	}
	b.orderBy = append(b.orderBy, "m.id ASC")

	if p.Search != "" {
		b.filter("LOWER(m.title) LIKE ?", containsPattern(p.Search))
	}

	if p.ReleaseDates != nil {
		b.filter("m.release_date BETWEEN ? AND ?",
			p.ReleaseDates.From.Format("2006-01-02"), p.ReleaseDates.To.Format("2006-01-02"))
	}

	if len(p.Directors) > 0 {
		b.join(joinDirector)
		ors := make([]string, len(p.Directors))
		args := make([]any, len(p.Directors))
		for i, d := range p.Directors {
			ors[i] = directorName + " LIKE ?"
			args[i] = containsPattern(d)
		}
		b.filter("("+strings.Join(ors, " OR ")+")", args...)
	}

	if len(p.Genres) > 0 {
		// Every joined row is one genre of the movie; a movie qualifies when
		// the number of its rows matching the requested titles equals the
		// number of requested titles.
		b.join(joinMovieGenres)
		b.join(joinGenres)
		b.groupBy = "m.id"
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(p.Genres)), ", ")
		b.having = "SUM(CASE WHEN LOWER(g.title) IN (" + marks + ") THEN 1 ELSE 0 END) = ?"
		for _, g := range p.Genres {
			b.havingArgs = append(b.havingArgs, g)
		}
		b.havingArgs = append(b.havingArgs, len(p.Genres))
	}

	b.limit = p.Page.Size
	b.offset = p.Page.Offset()
	return b.render()
}

// DirectorPage renders the director search statement.
func DirectorPage(p DirectorParams) Statement {
	b := &selectBuilder{
		columns: "d.id, d.first_name, d.last_name, d.description",
		from:    "directors d",
		orderBy: []string{"d.id ASC"},
	}
	if p.Search != "" {
		b.filter(directorName+" LIKE ?", containsPattern(p.Search))
	}
	b.limit = p.Page.Size
	b.offset = p.Page.Offset()
	return b.render()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive LIKE pattern matching s
// literally anywhere in the column.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
