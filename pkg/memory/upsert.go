package memory

import (
	"context"
	"fmt"
	"strings"

	"hive/pkg/protocol"
)

// Operation is the action a classifier chose for incoming content.
type Operation string

const (
	OpAdd    Operation = "ADD"    // new knowledge, insert
	OpUpdate Operation = "UPDATE" // supersedes a candidate, replace it
	OpDelete Operation = "DELETE" // invalidates a candidate, remove it
	OpNoop   Operation = "NOOP"   // already known, do nothing
)

// Decision is a classifier verdict. TargetID names the affected
// candidate for UPDATE, DELETE, and NOOP; Reason is a short
// human-readable explanation surfaced to the caller.
type Decision struct {
	Op       Operation
	TargetID string
	Reason   string
}

// Classifier decides how incoming content relates to the retrieved
// candidates. Implementations may call out to a model; the store only
// requires determinism per (content, candidates) pair within a run.
type Classifier interface {
	Classify(ctx context.Context, content string, candidates []ScoredMemory) (Decision, error)
}

// UpsertOpts configures a smart upsert.
type UpsertOpts struct {
	Collection string
	Tags       []string
	Metadata   map[string]string
	TopK       int // candidate count; 0 = configured default
}

// UpsertResult reports what an upsert did.
type UpsertResult struct {
	Operation Operation
	ID        string // affected record id; empty for NOOP without a match
	Reason    string
}

// Upsert is the smart write path: retrieve the top-K nearest records,
// classify the incoming content against them, and execute the verdict.
// An empty store (or no candidates) always yields ADD.
func (s *Store) Upsert(ctx context.Context, content string, opts UpsertOpts) (UpsertResult, error) {
	if strings.TrimSpace(content) == "" {
		return UpsertResult{}, &protocol.ValidationError{Field: "content", Reason: "empty"}
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = s.opts.TopK
	}

	candidates, err := s.Find(ctx, content, FindOpts{Limit: topK, Collection: opts.Collection})
	if err != nil {
		return UpsertResult{}, err
	}

	if len(candidates) == 0 {
		id, err := s.Insert(ctx, InsertParams{
			Content:    content,
			Collection: opts.Collection,
			Tags:       opts.Tags,
			Metadata:   opts.Metadata,
		})
		if err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{Operation: OpAdd, ID: id, Reason: "no similar records"}, nil
	}

	decision, err := s.opts.Classifier.Classify(ctx, content, candidates)
	if err != nil {
		return UpsertResult{}, err
	}

	switch decision.Op {
	case OpAdd:
		id, err := s.Insert(ctx, InsertParams{
			Content:    content,
			Collection: opts.Collection,
			Tags:       opts.Tags,
			Metadata:   opts.Metadata,
		})
		if err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{Operation: OpAdd, ID: id, Reason: decision.Reason}, nil

	case OpUpdate:
		if decision.TargetID == "" {
			return UpsertResult{}, &protocol.ValidationError{Field: "classifier", Reason: "UPDATE without target"}
		}
		if err := s.Replace(ctx, decision.TargetID, content); err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{Operation: OpUpdate, ID: decision.TargetID, Reason: decision.Reason}, nil

	case OpDelete:
		if decision.TargetID == "" {
			return UpsertResult{}, &protocol.ValidationError{Field: "classifier", Reason: "DELETE without target"}
		}
		if err := s.Delete(ctx, decision.TargetID); err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{Operation: OpDelete, ID: decision.TargetID, Reason: decision.Reason}, nil

	case OpNoop:
		return UpsertResult{Operation: OpNoop, ID: decision.TargetID, Reason: decision.Reason}, nil

	default:
		return UpsertResult{}, &protocol.ValidationError{
			Field:  "classifier",
			Reason: fmt.Sprintf("unknown operation %q", decision.Op),
		}
	}
}

// Heuristic thresholds. Duplicate similarity means textual near-equality;
// the related floor gates the contradiction and deletion checks so cue
// words in unrelated text do not touch existing records.
const (
	duplicateSimilarity = 0.9
	relatedSimilarity   = 0.3
	noopSimilarity      = 0.75
)

// deleteCues mark content that retracts or invalidates prior knowledge.
// Checked before the contradiction cues: a retraction that also reads
// like a correction should delete, not rewrite.
var deleteCues = []string{
	"obsolete", "no longer applies", "no longer valid", "remove", "delete",
	"invalid", "retracted", "deprecated",
}

// contradictionCues mark content that corrects prior knowledge in place.
var contradictionCues = []string{
	"actually", "wrong", "incorrect", "instead", "not ", "isn't", "is no longer",
	"changed to", "now uses",
}

// HeuristicClassifier is the built-in deterministic classifier: token
// Jaccard overlap against the best candidate plus cue-word scans. It
// never calls out, so the smart write path works offline.
type HeuristicClassifier struct{}

// Classify implements Classifier.
func (HeuristicClassifier) Classify(_ context.Context, content string, candidates []ScoredMemory) (Decision, error) {
	if len(candidates) == 0 {
		return Decision{Op: OpAdd, Reason: "no similar records"}, nil
	}

	// Best candidate by token overlap, not by fused score: the fused
	// score ranks relevance to the query, overlap measures equality.
	best := candidates[0]
	bestSim := jaccard(content, best.Content)
	for _, c := range candidates[1:] {
		if sim := jaccard(content, c.Content); sim > bestSim {
			best, bestSim = c, sim
		}
	}

	lower := strings.ToLower(content)

	if bestSim >= duplicateSimilarity {
		return Decision{
			Op:       OpNoop,
			TargetID: best.ID,
			Reason:   fmt.Sprintf("near-duplicate of %s", best.ID),
		}, nil
	}

	if bestSim >= relatedSimilarity {
		for _, cue := range deleteCues {
			if strings.Contains(lower, cue) {
				return Decision{
					Op:       OpDelete,
					TargetID: best.ID,
					Reason:   fmt.Sprintf("retraction cue %q against %s", cue, best.ID),
				}, nil
			}
		}
		for _, cue := range contradictionCues {
			if strings.Contains(lower, cue) {
				return Decision{
					Op:       OpUpdate,
					TargetID: best.ID,
					Reason:   fmt.Sprintf("correction cue %q against %s", cue, best.ID),
				}, nil
			}
		}
	}

	if bestSim >= noopSimilarity {
		return Decision{
			Op:       OpNoop,
			TargetID: best.ID,
			Reason:   fmt.Sprintf("restates %s", best.ID),
		}, nil
	}

	return Decision{Op: OpAdd, Reason: "distinct from existing records"}, nil
}

// jaccard computes token-set Jaccard similarity between two texts.
func jaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range tokenize(text) {
		set[t] = struct{}{}
	}
	return set
}
