package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/polyglot_blog/internal/events"
	"github.com/Skotchmaster/polyglot_blog/internal/models"
	"github.com/Skotchmaster/polyglot_blog/internal/repo"
	"github.com/Skotchmaster/polyglot_blog/internal/transport"
)

const (
	maxCommentLen    = 2000
	maxAuthorNameLen = 100
)

type CommentService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *CommentService) ListApproved(ctx context.Context, blogID uuid.UUID, offset, limit int) (int64, []models.Comment, error) {
	approved := true
	total, items, err := s.Repo.ListComments(ctx, repo.CommentFilter{BlogID: &blogID, Approved: &approved}, offset, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("list comments: %w", err)
	}
	return total, items, nil
}

// Create stores a comment on a published blog. It stays hidden until an
// admin approves it.
func (s *CommentService) Create(ctx context.Context, blogID uuid.UUID, req transport.CreateCommentRequest) (*models.Comment, error) {
	name := strings.TrimSpace(req.AuthorName)
	body := strings.TrimSpace(req.Body)
	email := normalizeEmail(req.AuthorEmail)

	switch {
	case name == "" || utf8.RuneCountInString(name) > maxAuthorNameLen:
		return nil, fmt.Errorf("%w: authorName is required and must be at most %d characters", ErrValidation, maxAuthorNameLen)
	case body == "" || utf8.RuneCountInString(body) > maxCommentLen:
		return nil, fmt.Errorf("%w: body is required and must be at most %d characters", ErrValidation, maxCommentLen)
	case email != "" && !validEmail(email):
		return nil, fmt.Errorf("%w: invalid authorEmail", ErrValidation)
	}

	blog, err := s.Repo.GetBlog(ctx, blogID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get blog: %w", err)
	}
	if !blog.Published {
		return nil, ErrNotFound
	}

	c := &models.Comment{BlogID: blogID, AuthorName: name, AuthorEmail: email, Body: body}
	if err := s.Repo.CreateComment(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	publish(ctx, s.Events, events.TopicComment, blogID.String(), events.Event{
		Type: "comment.created",
		At:   time.Now().UTC(),
		Data: map[string]string{"id": c.ID.String(), "blogId": blogID.String()},
	})
	return c, nil
}

func (s *CommentService) List(ctx context.Context, approved *bool, offset, limit int) (int64, []models.Comment, error) {
	total, items, err := s.Repo.ListComments(ctx, repo.CommentFilter{Approved: approved}, offset, limit)
	if err != nil {
		return 0, nil, fmt.Errorf("list comments: %w", err)
	}
	return total, items, nil
}

func (s *CommentService) Approve(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	c, err := s.Repo.ApproveComment(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("approve comment: %w", err)
	}
	publish(ctx, s.Events, events.TopicComment, c.BlogID.String(), events.Event{
		Type: "comment.approved",
		At:   time.Now().UTC(),
		Data: map[string]string{"id": c.ID.String(), "blogId": c.BlogID.String()},
	})
	return c, nil
}

func (s *CommentService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteComment(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete comment: %w", err)
	}
	return nil
}
