package iostore

import (
	"context"
	"iter"
	"strings"

	"github.com/gnames/taxtag/pkg/taxon"
)

// SearchName runs a prefix match against the FTS5 name index, ranked
// by popularity (count_rank) and then by name length as a proxy for
// lexical closeness to the query. The sequence is lazy and
// restartable: the query runs anew on each range.
func (s *store) SearchName(
	ctx context.Context,
	q, language string,
	limit int,
) iter.Seq2[*taxon.Taxon, error] {
	if limit <= 0 {
		limit = 10
	}
	match := ftsPrefixQuery(q)

	return func(yield func(*taxon.Taxon, error) bool) {
		if match == "" {
			return
		}

		rows, err := s.db.QueryContext(ctx,
			`SELECT taxon_id FROM taxon_fts
			 WHERE name MATCH ?
			   AND (language_code = ? OR language_code = '')
			 GROUP BY taxon_id
			 ORDER BY MAX(CAST(count_rank AS INTEGER)) DESC,
			          MIN(length(name))
			 LIMIT ?`,
			match, language, limit)
		if err != nil {
			yield(nil, SearchError(q, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var id int64
			if err = rows.Scan(&id); err != nil {
				yield(nil, SearchError(q, err))
				return
			}
			t, err := s.GetTaxon(ctx, id)
			if err != nil {
				// FTS rows are derived, not authoritative; a
				// dangling index entry is skipped.
				continue
			}
			if !yield(t, nil) {
				return
			}
		}
		if err = rows.Err(); err != nil {
			yield(nil, SearchError(q, err))
		}
	}
}

// ftsPrefixQuery turns user input into an FTS5 prefix MATCH
// expression, quoting each token to neutralize FTS operators.
func ftsPrefixQuery(q string) string {
	fields := strings.Fields(q)
	if len(fields) == 0 {
		return ""
	}
	for i, f := range fields {
		f = strings.ReplaceAll(f, `"`, `""`)
		fields[i] = `"` + f + `"*`
	}
	return strings.Join(fields, " ")
}
