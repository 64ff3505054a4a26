package blob

import "go.mongodb.org/mongo-driver/v2/mongo"

// Bucket names used across the pipeline (spec.md §3 Blob / §4.A).
const (
	BucketFiles = "files" // originals and PDF views (spec.md §4.K)
	BucketOCR   = "ocr"   // OCR JSON/text/page artifacts (spec.md §3 OCR Artifact)
)

// Registry lazily opens one Store per bucket on a shared database connection.
type Registry struct {
	db      *mongo.Database
	byName  map[string]*Store
}

// NewRegistry builds a Registry over db.
func NewRegistry(db *mongo.Database) *Registry {
	return &Registry{db: db, byName: make(map[string]*Store)}
}

// Bucket returns (opening if necessary) the named bucket's Store.
func (r *Registry) Bucket(name string) (*Store, error) {
	if s, ok := r.byName[name]; ok {
		return s, nil
	}
	s, err := NewStore(r.db, name)
	if err != nil {
		return nil, err
	}
	r.byName[name] = s
	return s, nil
}
