package engine

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/episodic/internal/bitmap"
)

// SearchQuery is a two-stage episode filter. Stage 1: every non-nil
// chunk filter must equal the corresponding nibble of one active
// backbone (unset chunks are wildcards). Stage 2: every facet filter
// requires at least one facet row with exactly that id and value. Both
// stages AND together; either may be omitted.
type SearchQuery struct {
	ChunkA *uint8
	ChunkB *uint8
	ChunkC *uint8
	ChunkD *uint8
	Facets []FacetSetting
	Limit  int
}

type chunkFilter struct {
	column string
	value  uint8
}

func (q SearchQuery) chunkFilters() []chunkFilter {
	var filters []chunkFilter
	add := func(column string, v *uint8) {
		if v != nil {
			filters = append(filters, chunkFilter{column, *v})
		}
	}
	add("bits_a", q.ChunkA)
	add("bits_b", q.ChunkB)
	add("bits_c", q.ChunkC)
	add("bits_d", q.ChunkD)
	return filters
}

// SearchEpisodes runs the two-stage filter and returns matching
// episodes, newest first.
func (s *Store) SearchEpisodes(q SearchQuery) ([]Episode, error) {
	for _, f := range q.chunkFilters() {
		if f.value > 0xF {
			return nil, fmt.Errorf("chunk filter %s value 0x%X exceeds 4 bits", f.column, f.value)
		}
	}
	for _, f := range q.Facets {
		if err := bitmap.ValidateFacet(f.ID, f.Value); err != nil {
			return nil, err
		}
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT e.episode_id, e.status, e.ref_type, e.ref_locator, e.created_at FROM episodes e`)

	chunks := q.chunkFilters()
	if len(chunks) > 0 {
		sb.WriteString(` WHERE EXISTS (SELECT 1 FROM backbones b WHERE b.episode_id = e.episode_id AND b.deprecated = 0`)
		for _, f := range chunks {
			sb.WriteString(` AND b.` + f.column + ` = ?`)
			args = append(args, f.value)
		}
		sb.WriteString(`)`)
	} else {
		sb.WriteString(` WHERE 1 = 1`)
	}

	for _, f := range q.Facets {
		sb.WriteString(` AND EXISTS (SELECT 1 FROM facets f WHERE f.episode_id = e.episode_id AND f.facet_id = ? AND f.value = ?)`)
		args = append(args, f.ID, f.Value)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	sb.WriteString(` ORDER BY e.created_at DESC, e.episode_id DESC LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.Query(sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching episodes: %w", err)
	}
	defer rows.Close()

	var result []Episode
	for rows.Next() {
		var ep Episode
		if err := rows.Scan(&ep.ID, &ep.Status, &ep.Ref.Type, &ep.Ref.Locator, &ep.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ep)
	}
	return result, rows.Err()
}
