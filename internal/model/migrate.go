package model

import "gorm.io/gorm"

// All lists every table this service migrates, in dependency order.
func All() []interface{} {
	return []interface{}{
		&Notebook{},
		&ChatSession{},
		&ChatMessage{},
		&EmbeddingJob{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
