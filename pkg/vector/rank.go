package vector

import (
	"math"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// ChunkID returns the deterministic identifier of a document's chunk, so
// retried upserts overwrite rather than duplicate.
func ChunkID(documentID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(documentID+"/"+strconv.Itoa(index))).String()
}

// VersionChunkIDs returns the IDs of the first n chunks written by one version
// of a document. An empty version names chunks keyed by the document ID alone.
func VersionChunkIDs(documentID, version string, n int) []string {
	key := documentID
	if version != "" {
		key += "@" + version
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = ChunkID(key, i)
	}
	return ids
}

// Rank orders results by descending score, then by insertion time. Remaining
// ties keep their storage order, except that chunks of the same document are
// put in chunk index order.
func Rank(results []QueryResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.IngestedAt.Before(b.IngestedAt)
	})

	for start := 0; start < len(results); {
		end := start + 1
		for end < len(results) &&
			results[end].Score == results[start].Score &&
			results[end].IngestedAt.Equal(results[start].IngestedAt) {
			end++
		}
		if end-start > 1 {
			orderTies(results[start:end])
		}
		start = end
	}
}

// orderTies sorts a run of tied results by chunk index within each document.
// Documents keep the position of their first result in the run.
func orderTies(run []QueryResult) {
	first := make(map[string]int, len(run))
	for i, r := range run {
		if _, ok := first[r.DocumentID]; !ok {
			first[r.DocumentID] = i
		}
	}
	sort.SliceStable(run, func(i, j int) bool {
		a, b := run[i], run[j]
		if a.DocumentID != b.DocumentID {
			return first[a.DocumentID] < first[b.DocumentID]
		}
		return a.Index < b.Index
	})
}

// Top ranks results and truncates them to k.
func Top(results []QueryResult, k int) []QueryResult {
	Rank(results)
	if k >= 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their lengths differ.
func Cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// DistanceScore converts a distance (lower is closer) into a score.
func DistanceScore(distance float64) float32 {
	return float32(1.0 / (1.0 + distance))
}
