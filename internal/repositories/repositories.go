package repositories

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bookstack/internal/models"
)

type UserRepository interface {
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
}

type BookRepository interface {
	Create(db *gorm.DB, book *models.Book) error
	List(db *gorm.DB) ([]models.Book, error)
	GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error)
}

type BookmarkRepository interface {
	Create(db *gorm.DB, bookmark *models.Bookmark) error
	// CreateIfAbsent inserts the bookmark unless one already exists for the
	// (user, book) pair. Insert and duplicate check are a single atomic
	// statement (ON CONFLICT DO NOTHING), so a concurrent duplicate can
	// never abort the surrounding transaction. Returns true when a row was
	// inserted.
	CreateIfAbsent(db *gorm.DB, bookmark *models.Bookmark) (bool, error)
	GetByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (*models.Bookmark, error)
	// DeleteByUserAndBook removes the pair's bookmark if one exists and
	// returns the number of rows deleted (0 or 1).
	DeleteByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (int64, error)
	ExistsByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (bool, error)
	CountByBook(db *gorm.DB, bookID uuid.UUID) (int64, error)
}

// RatingBucket is one row of the grouped rating count query.
type RatingBucket struct {
	Rating int
	Count  int64
}

// CommentAction is one entry of a book's action log: who said what, with
// which rating, and when they first engaged.
type CommentAction struct {
	Username    string    `gorm:"column:username" json:"username"`
	Text        *string   `gorm:"column:text" json:"text"`
	Rating      int       `gorm:"column:rating" json:"rating"`
	SubmittedOn time.Time `gorm:"column:submitted_on" json:"submitted_on"`
}

type CommentRepository interface {
	Create(db *gorm.DB, comment *models.Comment) error
	// Upsert inserts the comment or, when a row already exists for the
	// (user, book) pair, overwrites its text and rating in place (ON
	// CONFLICT DO UPDATE). Only text and rating are assigned on conflict,
	// so the existing row keeps its id and submitted_on.
	Upsert(db *gorm.DB, comment *models.Comment) error
	GetByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (*models.Comment, error)
	// UpdateContent overwrites text and rating of an existing comment.
	// SubmittedOn is deliberately left untouched: it marks first engagement.
	UpdateContent(db *gorm.DB, id uuid.UUID, text *string, rating int) error
	ExistsByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (bool, error)
	CountWithText(db *gorm.DB, bookID uuid.UUID) (int64, error)
	CountRated(db *gorm.DB, bookID uuid.UUID) (int64, error)
	AverageRating(db *gorm.DB, bookID uuid.UUID) (*float64, error)
	CountByRating(db *gorm.DB, bookID uuid.UUID) ([]RatingBucket, error)
	ListActions(db *gorm.DB, bookID uuid.UUID) ([]CommentAction, error)
}

// concrete implementations

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) Create(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Create(book).Error
}

// List returns all books in the canonical catalogue order: title ascending.
func (r *bookRepository) List(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := db.Order("title ASC").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *bookRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	var book models.Book
	if err := db.First(&book, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

type bookmarkRepository struct {
	db *gorm.DB
}

func NewBookmarkRepository(db *gorm.DB) BookmarkRepository {
	return &bookmarkRepository{db: db}
}

func (r *bookmarkRepository) Create(db *gorm.DB, bookmark *models.Bookmark) error {
	if db == nil {
		db = r.db
	}
	return db.Create(bookmark).Error
}

func (r *bookmarkRepository) CreateIfAbsent(db *gorm.DB, bookmark *models.Bookmark) (bool, error) {
	if db == nil {
		db = r.db
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoNothing: true,
	}).Create(bookmark)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *bookmarkRepository) GetByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (*models.Bookmark, error) {
	if db == nil {
		db = r.db
	}
	var bookmark models.Bookmark
	err := db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&bookmark).Error
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func (r *bookmarkRepository) DeleteByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	result := db.Where("user_id = ? AND book_id = ?", userID, bookID).Delete(&models.Bookmark{})
	return result.RowsAffected, result.Error
}

func (r *bookmarkRepository) ExistsByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Bookmark{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

func (r *bookmarkRepository) CountByBook(db *gorm.DB, bookID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Bookmark{}).Where("book_id = ?", bookID).Count(&count).Error
	return count, err
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(db *gorm.DB, comment *models.Comment) error {
	if db == nil {
		db = r.db
	}
	return db.Create(comment).Error
}

func (r *commentRepository) Upsert(db *gorm.DB, comment *models.Comment) error {
	if db == nil {
		db = r.db
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "rating"}),
	}).Create(comment).Error
}

func (r *commentRepository) GetByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (*models.Comment, error) {
	if db == nil {
		db = r.db
	}
	var comment models.Comment
	err := db.Where("user_id = ? AND book_id = ?", userID, bookID).First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) UpdateContent(db *gorm.DB, id uuid.UUID, text *string, rating int) error {
	if db == nil {
		db = r.db
	}
	// Map-based Updates so a nil text becomes NULL and no other column
	// (notably submitted_on) is written.
	return db.Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"text":   text,
			"rating": rating,
		}).Error
}

func (r *commentRepository) ExistsByUserAndBook(db *gorm.DB, userID, bookID uuid.UUID) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Comment{}).
		Where("user_id = ? AND book_id = ?", userID, bookID).
		Count(&count).Error
	return count > 0, err
}

// CountWithText counts the comments on a book that actually carry text;
// rating-only comments are excluded.
func (r *commentRepository) CountWithText(db *gorm.DB, bookID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Comment{}).
		Where("book_id = ? AND text IS NOT NULL", bookID).
		Count(&count).Error
	return count, err
}

func (r *commentRepository) CountRated(db *gorm.DB, bookID uuid.UUID) (int64, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.Comment{}).
		Where("book_id = ? AND rating <> 0", bookID).
		Count(&count).Error
	return count, err
}

// AverageRating returns the mean of the non-zero ratings on a book, or nil
// when no comment carries a rating.
func (r *commentRepository) AverageRating(db *gorm.DB, bookID uuid.UUID) (*float64, error) {
	if db == nil {
		db = r.db
	}
	var avg sql.NullFloat64
	err := db.Model(&models.Comment{}).
		Where("book_id = ? AND rating <> 0", bookID).
		Select("AVG(rating)").
		Scan(&avg).Error
	if err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	return &avg.Float64, nil
}

func (r *commentRepository) CountByRating(db *gorm.DB, bookID uuid.UUID) ([]RatingBucket, error) {
	if db == nil {
		db = r.db
	}
	var buckets []RatingBucket
	err := db.Model(&models.Comment{}).
		Where("book_id = ? AND rating <> 0", bookID).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

// ListActions returns the action log for a book: one entry per comment,
// joined with the commenting user's display name. Ordered by submission time
// ascending with username as tie-breaker so the log is deterministic.
func (r *commentRepository) ListActions(db *gorm.DB, bookID uuid.UUID) ([]CommentAction, error) {
	if db == nil {
		db = r.db
	}
	var actions []CommentAction
	err := db.Table("comments").
		Select("users.name AS username, comments.text, comments.rating, comments.submitted_on").
		Joins("JOIN users ON users.id = comments.user_id").
		Where("comments.book_id = ?", bookID).
		Order("comments.submitted_on ASC, users.name ASC").
		Scan(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}
