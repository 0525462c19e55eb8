package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"bookstack/internal/models"
	"bookstack/internal/repositories"
	"bookstack/internal/services"
)

type CatalogHandler struct {
	svc services.CatalogService
}

func RegisterRoutes(r *gin.Engine, svc services.CatalogService, users repositories.UserRepository) {
	h := &CatalogHandler{svc: svc}

	// Every route is viewer-scoped: even the list view needs the caller's
	// identity to compute is_bookmarked.
	authed := r.Group("/", ViewerIdentity(users))

	authed.GET("/books", h.listBooks)
	authed.GET("/books/:id", h.getBook)

	authed.POST("/books/:id/bookmark", h.addBookmark)
	authed.DELETE("/books/:id/bookmark", h.removeBookmark)
	authed.POST("/books/:id/comment", h.submitComment)

	// Administrative endpoint; book records are otherwise immutable here.
	authed.POST("/books", h.createBook)
}

// ─── Viewer Identity ──────────────────────────────────────────────────────────

const viewerKey = "viewer"

// ViewerIdentity resolves the authenticated caller from the X-User-ID header
// set by the upstream auth layer and stashes the user in the request context.
// Requests without a resolvable identity are rejected with 401.
func ViewerIdentity(users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-User-ID")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing X-User-ID header"})
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid user id"})
			return
		}
		user, err := users.GetByID(nil, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Set(viewerKey, user)
		c.Next()
	}
}

func currentViewer(c *gin.Context) *models.User {
	return c.MustGet(viewerKey).(*models.User)
}

// ─── Catalogue Reads ──────────────────────────────────────────────────────────

func (h *CatalogHandler) listBooks(c *gin.Context) {
	viewer := currentViewer(c)

	summaries, err := h.svc.ListBooks(viewer.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (h *CatalogHandler) getBook(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}
	viewer := currentViewer(c)

	detail, err := h.svc.GetBook(bookID, viewer.ID)
	if err != nil {
		if errors.Is(err, services.ErrBookNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ─── Bookmark Workflow ────────────────────────────────────────────────────────

func (h *CatalogHandler) addBookmark(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}
	viewer := currentViewer(c)

	_, created, err := h.svc.AddBookmark(viewer.ID, bookID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		case errors.Is(err, services.ErrUserNotFound):
			// The viewer's row vanished after the middleware resolved it.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		case errors.Is(err, services.ErrAlreadyCommented):
			c.JSON(http.StatusBadRequest, gin.H{"message": "user has commented on this book"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if created {
		c.JSON(http.StatusCreated, gin.H{"message": "book bookmarked successfully"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "bookmark already exists"})
}

func (h *CatalogHandler) removeBookmark(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}
	viewer := currentViewer(c)

	if err := h.svc.RemoveBookmark(viewer.ID, bookID); err != nil {
		if errors.Is(err, services.ErrBookmarkNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"message": "bookmark not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "bookmark removed successfully"})
}

// ─── Comment Workflow ─────────────────────────────────────────────────────────

// Rating bounds are checked by the service, which owns the validation rules;
// binding only parses the shape.
type submitCommentRequest struct {
	Text   *string `json:"text"`
	Rating *int    `json:"rating"`
}

func (h *CatalogHandler) submitComment(c *gin.Context) {
	bookID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid book id"})
		return
	}
	viewer := currentViewer(c)

	var req submitCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, created, err := h.svc.SubmitComment(viewer.ID, bookID, req.Text, req.Rating)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBookNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "book not found"})
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		case errors.Is(err, services.ErrEmptySubmission), errors.Is(err, services.ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if created {
		c.JSON(http.StatusCreated, comment)
		return
	}
	c.JSON(http.StatusOK, comment)
}

// ─── Catalogue Administration ─────────────────────────────────────────────────

type createBookRequest struct {
	Title         string  `json:"title" binding:"required"`
	Author        string  `json:"author" binding:"required"`
	Description   *string `json:"description"`
	PublishedDate string  `json:"published_date" binding:"required"`
	CoverImage    *string `json:"cover_image"`
}

func (h *CatalogHandler) createBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	publishedDate, err := time.Parse(time.DateOnly, req.PublishedDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "published_date must be a YYYY-MM-DD date"})
		return
	}

	book, err := h.svc.CreateBook(req.Title, req.Author, req.Description, publishedDate, req.CoverImage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, book)
}
