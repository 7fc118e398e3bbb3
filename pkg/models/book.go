package models

import (
	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID        int       `bun:",pk,autoincrement" json:"id"`
	Title     string    `bun:",notnull" json:"title"`
	Author    string    `bun:",notnull" json:"author"`
	Read      bool      `bun:",notnull" json:"read"`
	CreatedAt Timestamp `bun:",notnull" json:"created_at"`
	UpdatedAt Timestamp `bun:",notnull" json:"updated_at"`
}

// EffectiveDate is the date a book is placed on the timeline by: when it was
// last touched, or when it was added if it has never been updated.
func (b *Book) EffectiveDate() Timestamp {
	if !b.UpdatedAt.IsZero() {
		return b.UpdatedAt
	}
	return b.CreatedAt
}
