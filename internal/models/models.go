package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity supplied by the auth layer: an opaque id plus a display
// name. This service only reads users.
type User struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
}

type Book struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string    `gorm:"size:255;not null;index" json:"title"`
	Author        string    `gorm:"size:255;not null" json:"author"`
	Description   *string   `gorm:"type:text" json:"description"`
	PublishedDate time.Time `gorm:"type:date;not null" json:"published_date"`
	CoverImage    *string   `gorm:"size:512" json:"cover_image"`
}

// Bookmark marks a book as "to read" for one user. The composite unique index
// guarantees at most one bookmark per (user, book) pair; the workflow layer
// additionally guarantees a bookmark never coexists with a comment for the
// same pair.
type Bookmark struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_bookmark_user_book" json:"user_id"`
	User    User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	BookID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_bookmark_user_book" json:"book_id"`
	Book    Book      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	AddedOn time.Time `gorm:"not null" json:"added_on"`
}

// Comment is a user's single review of a book: optional text plus an optional
// 1-5 rating. Rating 0 means "unset" and is excluded from every aggregate.
// SubmittedOn is set on first submission and never refreshed when the comment
// is modified.
type Comment struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_comment_user_book" json:"user_id"`
	User        User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	BookID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uniq_comment_user_book" json:"book_id"`
	Book        Book      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Text        *string   `gorm:"type:text" json:"text"`
	Rating      int       `gorm:"not null;default:0;check:rating >= 0 AND rating <= 5" json:"rating"`
	SubmittedOn time.Time `gorm:"not null" json:"submitted_on"`
}

// IDs are assigned client-side so the schema works on Postgres and on the
// sqlite database the tests run against.

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
