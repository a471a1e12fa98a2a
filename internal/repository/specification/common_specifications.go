package specification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByID filters by ID
type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// UserOwnedBy restricts rows to a single owner.
type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// OrderBy applies ordering. Field must come from a fixed whitelist, never from user input.
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}

type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	return db.Limit(s.Limit).Offset(s.Offset)
}

// UpdatedBetween bounds updated_at; nil ends are open.
type UpdatedBetween struct {
	From *time.Time
	To   *time.Time
}

func (s UpdatedBetween) Apply(db *gorm.DB) *gorm.DB {
	if s.From != nil {
		db = db.Where("updated_at >= ?", *s.From)
	}
	if s.To != nil {
		db = db.Where("updated_at <= ?", *s.To)
	}
	return db
}

// IDGreaterThan is the keyset cursor for paging in id order.
type IDGreaterThan struct {
	ID uuid.UUID
}

func (s IDGreaterThan) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id > ?", s.ID)
}
