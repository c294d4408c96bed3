package docstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// idHashVersion tags the identifier hash so that identifier stability is
// testable across implementations. Bump only with a new version string;
// existing tables keep their stored identifiers.
const idHashVersion = "docuvec-id-v1"

// Document is the unit of storage: free-text content, schema-constrained
// metadata and an optional embedding vector. Score is populated on query
// results only and is never persisted.
type Document struct {
	ID        string
	Content   string
	Meta      map[string]any
	Embedding []float32
	Score     *float64
}

// DocumentID derives the deterministic identifier for a document from its
// content and metadata: SHA-256 over the version tag, the content and the
// canonical JSON encoding of the metadata (map keys sorted), hex encoded.
// Documents with identical content and metadata share an identifier.
func DocumentID(content string, meta map[string]any) string {
	h := sha256.New()
	h.Write([]byte(idHashVersion))
	h.Write([]byte{0})
	h.Write([]byte(content))
	h.Write([]byte{0})
	if len(meta) > 0 {
		// encoding/json emits map keys in sorted order, which makes this
		// encoding canonical.
		b, err := json.Marshal(meta)
		if err == nil {
			h.Write(b)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// withScore returns a copy of the document carrying the given score.
func (d Document) withScore(score float64) Document {
	d.Score = &score
	return d
}
