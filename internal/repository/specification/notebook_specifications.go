package specification

import "gorm.io/gorm"

// HasEmbedding keeps only notebooks that can take part in retrieval.
type HasEmbedding struct{}

func (s HasEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NOT NULL")
}

// MissingEmbedding selects notebooks the sweep has to (re)embed. When Model is
// set, vectors produced by a different model count as missing too.
type MissingEmbedding struct {
	Model string
}

func (s MissingEmbedding) Apply(db *gorm.DB) *gorm.DB {
	if s.Model == "" {
		return db.Where("embedding IS NULL")
	}
	return db.Where("(embedding IS NULL OR embedding_model IS NULL OR embedding_model <> ?)", s.Model)
}
