package services

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"bookstack/internal/models"
	"bookstack/internal/presenters"
	"bookstack/internal/repositories"
)

// ─── Sentinel Errors ──────────────────────────────────────────────────────────

var (
	// ErrBookNotFound is returned when the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrUserNotFound is returned when the referenced user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrBookmarkNotFound is returned by RemoveBookmark when the pair has no
	// bookmark. Non-fatal: it signals a no-op to the caller.
	ErrBookmarkNotFound = errors.New("bookmark not found")

	// ErrAlreadyCommented is returned when a bookmark is attempted on a book
	// the user has already commented on. Commenting is the terminal state for
	// a (user, book) pair; the reverse edge is blocked.
	ErrAlreadyCommented = errors.New("user has commented on this book")

	// ErrEmptySubmission is returned when a comment submission carries neither
	// text nor a rating.
	ErrEmptySubmission = errors.New("either text or rating must be provided")

	// ErrInvalidRating is returned when a submitted rating falls outside 1-5.
	ErrInvalidRating = errors.New("rating must be a number between 1 and 5, or left blank")
)

// ─── Service Interface ────────────────────────────────────────────────────────

// CatalogService defines the application-level operations of the catalogue.
type CatalogService interface {
	CreateBook(title, author string, description *string, publishedDate time.Time, coverImage *string) (*models.Book, error)
	ListBooks(viewerID uuid.UUID) ([]presenters.BookSummary, error)
	GetBook(bookID, viewerID uuid.UUID) (*presenters.BookDetail, error)

	// AddBookmark get-or-creates the viewer's bookmark on a book. The bool
	// result is true when a new bookmark was created, false when one already
	// existed (a no-op).
	AddBookmark(userID, bookID uuid.UUID) (*models.Bookmark, bool, error)
	RemoveBookmark(userID, bookID uuid.UUID) error

	// SubmitComment upserts the viewer's comment on a book. The bool result
	// is true when the comment was created, false when an existing comment
	// was modified in place.
	SubmitComment(userID, bookID uuid.UUID, text *string, rating *int) (*models.Comment, bool, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type catalogService struct {
	db           *gorm.DB
	userRepo     repositories.UserRepository
	bookRepo     repositories.BookRepository
	bookmarkRepo repositories.BookmarkRepository
	commentRepo  repositories.CommentRepository
	stats        *StatsEngine
}

// NewCatalogService wires up all dependencies and returns a CatalogService.
func NewCatalogService(
	db *gorm.DB,
	userRepo repositories.UserRepository,
	bookRepo repositories.BookRepository,
	bookmarkRepo repositories.BookmarkRepository,
	commentRepo repositories.CommentRepository,
	stats *StatsEngine,
) CatalogService {
	return &catalogService{
		db:           db,
		userRepo:     userRepo,
		bookRepo:     bookRepo,
		bookmarkRepo: bookmarkRepo,
		commentRepo:  commentRepo,
		stats:        stats,
	}
}

// ─── Catalogue Reads ──────────────────────────────────────────────────────────

// CreateBook adds a book to the catalogue. Administrative: books are never
// created or deleted by the bookmark/comment workflow.
func (s *catalogService) CreateBook(title, author string, description *string, publishedDate time.Time, coverImage *string) (*models.Book, error) {
	book := &models.Book{
		Title:         title,
		Author:        author,
		Description:   description,
		PublishedDate: publishedDate,
		CoverImage:    coverImage,
	}
	if err := s.bookRepo.Create(nil, book); err != nil {
		log.Printf("[ERROR] CreateBook: failed to create book record: %v", err)
		return nil, err
	}
	log.Printf("[INFO] CreateBook: created book %q (id=%s)", book.Title, book.ID)
	return book, nil
}

// ListBooks returns every book in title order as a summary for the viewer.
func (s *catalogService) ListBooks(viewerID uuid.UUID) ([]presenters.BookSummary, error) {
	books, err := s.bookRepo.List(nil)
	if err != nil {
		return nil, err
	}
	summaries := make([]presenters.BookSummary, 0, len(books))
	for i := range books {
		summary, err := s.summarize(&books[i], viewerID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GetBook returns the detailed view of one book for the viewer.
func (s *catalogService) GetBook(bookID, viewerID uuid.UUID) (*presenters.BookDetail, error) {
	book, err := s.bookRepo.GetByID(nil, bookID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	summary, err := s.summarize(book, viewerID)
	if err != nil {
		return nil, err
	}
	totalComments, err := s.stats.CommentCount(bookID)
	if err != nil {
		return nil, err
	}
	ratedCount, err := s.stats.RatedCount(bookID)
	if err != nil {
		return nil, err
	}
	ratingAvg, err := s.stats.AverageRating(bookID)
	if err != nil {
		return nil, err
	}
	histogram, err := s.stats.RatingHistogram(bookID)
	if err != nil {
		return nil, err
	}
	actions, err := s.stats.ActionLog(bookID)
	if err != nil {
		return nil, err
	}

	detail := presenters.NewBookDetail(summary, totalComments, ratedCount, ratingAvg, histogram, actions)
	return &detail, nil
}

func (s *catalogService) summarize(book *models.Book, viewerID uuid.UUID) (presenters.BookSummary, error) {
	isBookmarked, err := s.stats.IsBookmarked(book.ID, viewerID)
	if err != nil {
		return presenters.BookSummary{}, err
	}
	totalBookmarks, err := s.stats.BookmarkCount(book.ID)
	if err != nil {
		return presenters.BookSummary{}, err
	}
	return presenters.NewBookSummary(book, isBookmarked, totalBookmarks), nil
}

// ─── Bookmark Workflow ────────────────────────────────────────────────────────

// AddBookmark implements the transactional bookmark flow.
//
// Precondition: no comment exists for the (user, book) pair — a commented
// book can never be re-bookmarked. When the precondition holds the bookmark
// is get-or-created: an existing bookmark is reported as-is with created ==
// false rather than treated as an error.
func (s *catalogService) AddBookmark(userID, bookID uuid.UUID) (*models.Bookmark, bool, error) {
	var bookmark *models.Bookmark
	var created bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.userRepo.GetByID(tx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if _, err := s.bookRepo.GetByID(tx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		commented, err := s.commentRepo.ExistsByUserAndBook(tx, userID, bookID)
		if err != nil {
			return err
		}
		if commented {
			log.Printf("[WARN] AddBookmark: user %s has commented on book %s, bookmark rejected", userID, bookID)
			return ErrAlreadyCommented
		}

		existing, err := s.bookmarkRepo.GetByUserAndBook(tx, userID, bookID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			bookmark = existing
			created = false
			return nil
		}

		b := &models.Bookmark{
			UserID:  userID,
			BookID:  bookID,
			AddedOn: time.Now().UTC(),
		}
		// ON CONFLICT DO NOTHING: a concurrent duplicate insert cannot fail
		// a statement (which would abort the transaction on Postgres), it
		// just reports zero rows.
		inserted, err := s.bookmarkRepo.CreateIfAbsent(tx, b)
		if err != nil {
			log.Printf("[ERROR] AddBookmark: failed to create bookmark for user %s / book %s: %v", userID, bookID, err)
			return err
		}
		if !inserted {
			// Lost a race against an identical request; report the
			// surviving row as the no-op branch.
			log.Printf("[WARN] AddBookmark: concurrent duplicate for user %s / book %s, reporting existing bookmark", userID, bookID)
			survivor, err := s.bookmarkRepo.GetByUserAndBook(tx, userID, bookID)
			if err != nil {
				return err
			}
			bookmark = survivor
			created = false
			return nil
		}
		bookmark = b
		created = true
		return nil
	})

	if err != nil {
		return nil, false, err
	}
	if created {
		log.Printf("[INFO] AddBookmark: bookmark created (id=%s) for user %s / book %s", bookmark.ID, userID, bookID)
	}
	return bookmark, created, nil
}

// RemoveBookmark deletes the pair's bookmark. A missing bookmark is reported
// as ErrBookmarkNotFound, which callers treat as a non-fatal no-op.
func (s *catalogService) RemoveBookmark(userID, bookID uuid.UUID) error {
	deleted, err := s.bookmarkRepo.DeleteByUserAndBook(nil, userID, bookID)
	if err != nil {
		log.Printf("[ERROR] RemoveBookmark: failed to delete bookmark for user %s / book %s: %v", userID, bookID, err)
		return err
	}
	if deleted == 0 {
		return ErrBookmarkNotFound
	}
	log.Printf("[INFO] RemoveBookmark: bookmark removed for user %s / book %s", userID, bookID)
	return nil
}

// ─── Comment Workflow ─────────────────────────────────────────────────────────

// SubmitComment implements the transactional comment upsert.
//
// Validation: at least one of text / rating must be provided (blank text
// counts as absent), and a provided rating must lie in 1-5.
//
// Inside one transaction: any standing bookmark for the pair is deleted
// unconditionally — commenting supersedes bookmarking even on first
// submission — then the comment is looked up and either inserted (created ==
// true) or overwritten in place (created == false, submitted_on untouched).
// A unique-constraint race on the insert collapses into the overwrite branch
// and is never surfaced.
func (s *catalogService) SubmitComment(userID, bookID uuid.UUID, text *string, rating *int) (*models.Comment, bool, error) {
	if text != nil && strings.TrimSpace(*text) == "" {
		text = nil
	}
	if text == nil && rating == nil {
		return nil, false, ErrEmptySubmission
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, false, ErrInvalidRating
	}

	ratingVal := 0
	if rating != nil {
		ratingVal = *rating
	}

	var comment *models.Comment
	var created bool

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.userRepo.GetByID(tx, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if _, err := s.bookRepo.GetByID(tx, bookID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		// Commenting and bookmarking are mutually exclusive: drop any
		// standing bookmark before touching the comment.
		removed, err := s.bookmarkRepo.DeleteByUserAndBook(tx, userID, bookID)
		if err != nil {
			return err
		}
		if removed > 0 {
			log.Printf("[INFO] SubmitComment: bookmark superseded by comment for user %s / book %s", userID, bookID)
		}

		existing, err := s.commentRepo.GetByUserAndBook(tx, userID, bookID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			if err := s.commentRepo.UpdateContent(tx, existing.ID, text, ratingVal); err != nil {
				log.Printf("[ERROR] SubmitComment: failed to update comment %s: %v", existing.ID, err)
				return err
			}
			existing.Text = text
			existing.Rating = ratingVal
			comment = existing
			created = false
			return nil
		}

		c := &models.Comment{
			UserID:      userID,
			BookID:      bookID,
			Text:        text,
			Rating:      ratingVal,
			SubmittedOn: time.Now().UTC(),
		}
		// ON CONFLICT upsert: when a concurrent first submission wins the
		// insert, this statement overwrites its text and rating in place
		// (last writer wins) instead of failing and aborting the
		// transaction.
		if err := s.commentRepo.Upsert(tx, c); err != nil {
			log.Printf("[ERROR] SubmitComment: failed to upsert comment for user %s / book %s: %v", userID, bookID, err)
			return err
		}
		// Reload so the caller sees the stored row. An id other than the one
		// we tried to insert means the insert collapsed into an overwrite.
		stored, err := s.commentRepo.GetByUserAndBook(tx, userID, bookID)
		if err != nil {
			return err
		}
		created = stored.ID == c.ID
		if !created {
			log.Printf("[WARN] SubmitComment: concurrent insert for user %s / book %s collapsed into modification", userID, bookID)
		}
		comment = stored
		return nil
	})

	if err != nil {
		return nil, false, err
	}
	if created {
		log.Printf("[INFO] SubmitComment: comment created (id=%s) for user %s / book %s", comment.ID, userID, bookID)
	} else {
		log.Printf("[INFO] SubmitComment: comment modified (id=%s) for user %s / book %s", comment.ID, userID, bookID)
	}
	return comment, created, nil
}
