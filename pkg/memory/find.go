package memory

import (
	"context"
	"sort"

	"hive/pkg/protocol"
)

// vectorPoolLimit caps how many embeddings a vector scan loads into
// memory. Together with maxVocabSize this bounds the scan's footprint.
const vectorPoolLimit = 1000

// FindOpts configures a hybrid search.
type FindOpts struct {
	Limit      int     // hard cap, enforced here; 0 = configured default
	MinScore   float64 // fused-score floor; 0 = no floor
	Collection string  // optional namespace filter
}

// ScoredMemory is a record with its fused relevance score.
type ScoredMemory struct {
	protocol.Memory
	Score float64
}

// Find ranks records against query by fusing the FTS5 BM25 list and
// the cosine-similarity list with Reciprocal Rank Fusion. RRF is
// monotonic in both signals, so improving either the lexical or the
// vector match never lowers a record's fused score. Limit is enforced
// server-side; records under MinScore are dropped.
func (s *Store) Find(ctx context.Context, query string, opts FindOpts) ([]ScoredMemory, error) {
	if query == "" {
		return nil, &protocol.ValidationError{Field: "query", Reason: "empty"}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = s.opts.Limit
	}

	textRanks, err := s.lexicalRanks(ctx, query, opts.Collection)
	if err != nil {
		return nil, err
	}
	vectorRanks, err := s.vectorRanks(ctx, query, opts.Collection)
	if err != nil {
		return nil, err
	}

	// Union of both lists, fused by rank.
	fused := make(map[string]float64, len(textRanks)+len(vectorRanks))
	for id, rank := range textRanks {
		fused[id] = RRFScore(rank, vectorRanks[id], s.opts.RRFK)
	}
	for id, rank := range vectorRanks {
		if _, done := fused[id]; !done {
			fused[id] = RRFScore(0, rank, s.opts.RRFK)
		}
	}

	ids := make([]string, 0, len(fused))
	for id, score := range fused {
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if fused[ids[i]] != fused[ids[j]] {
			return fused[ids[i]] > fused[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]ScoredMemory, 0, len(ids))
	for _, id := range ids {
		m, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ScoredMemory{Memory: m, Score: fused[id]})
	}
	return out, nil
}

// lexicalRanks runs the FTS5 query and returns 1-based BM25 ranks.
func (s *Store) lexicalRanks(ctx context.Context, query, collection string) (map[string]int, error) {
	q := `
		SELECT m.id
		FROM memories_fts
		JOIN memories m ON memories_fts.rowid = m.rowid
		WHERE memories_fts MATCH ?`
	args := []any{protocol.SanitizeFTS5Query(query)}
	if collection != "" {
		q += ` AND m.collection = ?`
		args = append(args, collection)
	}
	q += ` ORDER BY bm25(memories_fts) LIMIT ?`
	args = append(args, vectorPoolLimit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &protocol.StorageError{Op: "lexical search", Err: err}
	}
	defer rows.Close()

	ranks := make(map[string]int)
	rank := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, &protocol.StorageError{Op: "lexical scan", Err: err}
		}
		rank++
		ranks[id] = rank
	}
	if err := rows.Err(); err != nil {
		return nil, &protocol.StorageError{Op: "lexical rows", Err: err}
	}
	return ranks, nil
}

// vectorRanks embeds the query and returns 1-based cosine ranks over
// the candidate pool. Records without an embedding never rank.
func (s *Store) vectorRanks(ctx context.Context, query, collection string) (map[string]int, error) {
	qvec := s.opts.Embedder.Embed(query)
	if len(qvec) == 0 {
		return map[string]int{}, nil
	}

	q := `SELECT id, embedding FROM memories WHERE embedding IS NOT NULL`
	args := []any{}
	if collection != "" {
		q += ` AND collection = ?`
		args = append(args, collection)
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, vectorPoolLimit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &protocol.StorageError{Op: "vector search", Err: err}
	}
	defer rows.Close()

	type scored struct {
		id  string
		sim float64
	}
	var pool []scored
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, &protocol.StorageError{Op: "vector scan", Err: err}
		}
		sim := CosineSimilarity(qvec, UnmarshalEmbedding(blob))
		if sim > 0 {
			pool = append(pool, scored{id: id, sim: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &protocol.StorageError{Op: "vector rows", Err: err}
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].sim != pool[j].sim {
			return pool[i].sim > pool[j].sim
		}
		return pool[i].id < pool[j].id
	})

	ranks := make(map[string]int, len(pool))
	for i, p := range pool {
		ranks[p.id] = i + 1
	}
	return ranks, nil
}
