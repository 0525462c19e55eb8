// Package presenters shapes catalogue records and their read-time statistics
// into the payloads the API returns. is_bookmarked is always computed for the
// requesting viewer, so these values must never be cached across viewers.
package presenters

import (
	"time"

	"github.com/google/uuid"

	"bookstack/internal/models"
	"bookstack/internal/repositories"
)

// BookSummary is the list-view payload: book attributes plus the
// viewer-specific bookmark flag and the global bookmark count.
type BookSummary struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	Description    *string   `json:"description"`
	PublishedDate  time.Time `json:"published_date"`
	CoverImage     *string   `json:"cover_image"`
	IsBookmarked   bool      `json:"is_bookmarked"`
	TotalBookmarks int64     `json:"total_bookmarks"`
}

// BookDetail is the single-book payload: the summary fields plus the full
// aggregation block.
type BookDetail struct {
	BookSummary
	TotalComments int64                        `json:"total_comments"`
	TotalRating   int64                        `json:"total_rating"`
	RatingAvg     *float64                     `json:"rating_avg"`
	RatingDict    map[string]int64             `json:"rating_dict"`
	UsersActions  []repositories.CommentAction `json:"users_actions"`
}

func NewBookSummary(book *models.Book, isBookmarked bool, totalBookmarks int64) BookSummary {
	return BookSummary{
		ID:             book.ID,
		Title:          book.Title,
		Author:         book.Author,
		Description:    book.Description,
		PublishedDate:  book.PublishedDate,
		CoverImage:     book.CoverImage,
		IsBookmarked:   isBookmarked,
		TotalBookmarks: totalBookmarks,
	}
}

func NewBookDetail(summary BookSummary, totalComments, totalRating int64, ratingAvg *float64, ratingDict map[string]int64, actions []repositories.CommentAction) BookDetail {
	if actions == nil {
		actions = []repositories.CommentAction{}
	}
	return BookDetail{
		BookSummary:   summary,
		TotalComments: totalComments,
		TotalRating:   totalRating,
		RatingAvg:     ratingAvg,
		RatingDict:    ratingDict,
		UsersActions:  actions,
	}
}
