// Package memory — embedding support for semantic search.
package memory

import (
	"encoding/binary"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into a fixed-direction float vector. The store
// is polymorphic over this capability: production callers may plug a
// model-backed implementation, while the built-in TFEmbedder keeps
// everything deterministic and dependency-free for tests and offline
// use.
type Embedder interface {
	Embed(text string) []float32
}

// maxVocabSize caps the number of unique terms in the vocabulary to
// prevent embedding vectors from growing without bound. Once the cap
// is reached, new unseen terms are silently ignored (zero weight).
const maxVocabSize = 10000

// TFEmbedder computes term-frequency vectors over a growing
// vocabulary (term -> dimension index). All embeddings share the
// vector space defined by the vocabulary at computation time; cosine
// comparison handles length mismatch by zero-padding conceptually.
// Bag-of-words TF rather than full TF-IDF: IDF needs a corpus scan
// that would be expensive at insert time, and the hybrid RRF blend
// already supplies most of the ranking signal.
type TFEmbedder struct {
	vocab map[string]int
}

// NewTFEmbedder creates a TFEmbedder with an empty vocabulary.
func NewTFEmbedder() *TFEmbedder {
	return &TFEmbedder{vocab: make(map[string]int)}
}

// tokenize splits text into lowercase alphanumeric tokens.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Embed computes an L2-normalized TF vector for text, growing the
// vocabulary with unseen terms up to the cap. Empty input returns nil.
func (e *TFEmbedder) Embed(text string) []float32 {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}

	tf := make(map[string]int, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}

	for term := range tf {
		if _, ok := e.vocab[term]; !ok {
			if len(e.vocab) >= maxVocabSize {
				continue
			}
			e.vocab[term] = len(e.vocab)
		}
	}

	vec := make([]float32, len(e.vocab))
	for term, count := range tf {
		if idx, ok := e.vocab[term]; ok {
			vec[idx] = float32(count)
		}
	}

	normalize32(vec)
	return vec
}

// VocabSize returns the current vocabulary size (vector dimensions).
func (e *TFEmbedder) VocabSize() int {
	return len(e.vocab)
}

// normalize32 normalizes a float32 vector to unit length in place.
func normalize32(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// CosineSimilarity computes cosine similarity between two float32
// vectors. Vectors of different lengths are compared as if the
// shorter were zero-padded. Returns 0 if either is empty.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}

	aShared := a[:minLen]
	bShared := b[:minLen]

	var dot, normA, normB float64
	for i, av := range aShared {
		bv := bShared[i]
		dot += float64(av) * float64(bv)
		normA += float64(av) * float64(av)
		normB += float64(bv) * float64(bv)
	}
	for _, av := range a[minLen:] {
		normA += float64(av) * float64(av)
	}
	for _, bv := range b[minLen:] {
		normB += float64(bv) * float64(bv)
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// MarshalEmbedding serializes a float32 slice to a compact
// little-endian BLOB (4 bytes per float32).
func MarshalEmbedding(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// UnmarshalEmbedding deserializes a BLOB back to a float32 slice.
func UnmarshalEmbedding(data []byte) []float32 {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil
	}
	n := len(data) / 4
	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v
}

// RRFScore computes the Reciprocal Rank Fusion score for an item
// given its 1-based ranks in the lexical and vector result lists.
// A rank of 0 means absent from that list and contributes nothing.
// The fused score is monotonic in both inputs: improving either rank
// never lowers it.
func RRFScore(textRank, vectorRank int, k float64) float64 {
	var score float64
	if textRank > 0 {
		score += 1.0 / (k + float64(textRank))
	}
	if vectorRank > 0 {
		score += 1.0 / (k + float64(vectorRank))
	}
	return score
}
