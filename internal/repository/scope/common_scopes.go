package scope

import "gorm.io/gorm"

func OrderBySequenceAsc(db *gorm.DB) *gorm.DB {
	return db.Order("sequence ASC")
}
