package services

import (
	"strconv"

	"github.com/google/uuid"

	"bookstack/internal/repositories"
)

// StatsEngine computes per-book statistics at read time. Every method is a
// pure read issuing a fresh query against the store; nothing is cached
// between requests.
type StatsEngine struct {
	bookmarkRepo repositories.BookmarkRepository
	commentRepo  repositories.CommentRepository
}

func NewStatsEngine(bookmarkRepo repositories.BookmarkRepository, commentRepo repositories.CommentRepository) *StatsEngine {
	return &StatsEngine{
		bookmarkRepo: bookmarkRepo,
		commentRepo:  commentRepo,
	}
}

// IsBookmarked reports whether the viewer currently has a bookmark on the book.
func (e *StatsEngine) IsBookmarked(bookID, viewerID uuid.UUID) (bool, error) {
	return e.bookmarkRepo.ExistsByUserAndBook(nil, viewerID, bookID)
}

// BookmarkCount returns the number of bookmarks on the book across all users.
func (e *StatsEngine) BookmarkCount(bookID uuid.UUID) (int64, error) {
	return e.bookmarkRepo.CountByBook(nil, bookID)
}

// CommentCount returns the number of comments on the book that carry text.
func (e *StatsEngine) CommentCount(bookID uuid.UUID) (int64, error) {
	return e.commentRepo.CountWithText(nil, bookID)
}

// RatedCount returns the number of comments on the book with a rating set.
func (e *StatsEngine) RatedCount(bookID uuid.UUID) (int64, error) {
	return e.commentRepo.CountRated(nil, bookID)
}

// AverageRating returns the mean of the set ratings, or nil when none exist.
func (e *StatsEngine) AverageRating(bookID uuid.UUID) (*float64, error) {
	return e.commentRepo.AverageRating(nil, bookID)
}

// RatingHistogram maps each rating value "1".."5" to its comment count. All
// five keys are always present; empty buckets report 0.
func (e *StatsEngine) RatingHistogram(bookID uuid.UUID) (map[string]int64, error) {
	buckets, err := e.commentRepo.CountByRating(nil, bookID)
	if err != nil {
		return nil, err
	}
	histogram := make(map[string]int64, 5)
	for i := 1; i <= 5; i++ {
		histogram[strconv.Itoa(i)] = 0
	}
	for _, b := range buckets {
		histogram[strconv.Itoa(b.Rating)] = b.Count
	}
	return histogram, nil
}

// ActionLog returns every comment on the book as (username, text, rating,
// submitted_on), ordered by submission time ascending.
func (e *StatsEngine) ActionLog(bookID uuid.UUID) ([]repositories.CommentAction, error) {
	return e.commentRepo.ListActions(nil, bookID)
}
