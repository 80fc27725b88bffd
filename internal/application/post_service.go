package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nikitalobanov12/WriteShare/internal/domain"
)

// PostService manages the caller's posts.
type PostService struct {
	posts       domain.PostRepository
	caches      *Caches
	invalidator *Invalidator
	logger      domain.Logger
}

// NewPostService creates a new PostService.
func NewPostService(posts domain.PostRepository, caches *Caches, invalidator *Invalidator, logger domain.Logger) *PostService {
	return &PostService{posts: posts, caches: caches, invalidator: invalidator, logger: logger}
}

// CreatePost stores a new post authored by the caller.
func (s *PostService) CreatePost(ctx context.Context, rs *RequestSession, name string) (*domain.Post, error) {
	identity, err := rs.Require(ctx, domain.PermissionCreate)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidInput)
	}

	post, err := s.posts.CreatePost(ctx, name, identity.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	s.invalidator.OnPostChanged(ctx, post.ID, identity.UserID)
	return post, nil
}

// LatestPost returns the caller's newest post, or nil when there is none.
func (s *PostService) LatestPost(ctx context.Context, rs *RequestSession) (*domain.Post, error) {
	identity, err := rs.Require(ctx, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	return CacheOrFetch(ctx, s.caches.Store, ReadUserLatestPost.Key(identity.UserID), ReadUserLatestPost.TTL(s.caches.TTL),
		func(ctx context.Context) (*domain.Post, error) {
			return s.posts.LatestPost(ctx, identity.UserID)
		})
}

// ListPosts returns every post of the caller, newest first.
func (s *PostService) ListPosts(ctx context.Context, rs *RequestSession) ([]domain.Post, error) {
	identity, err := rs.Require(ctx, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	return CacheOrFetch(ctx, s.caches.Store, ReadUserAllPosts.Key(identity.UserID), ReadUserAllPosts.TTL(s.caches.TTL),
		func(ctx context.Context) ([]domain.Post, error) {
			posts, err := s.posts.ListPosts(ctx, identity.UserID)
			if err != nil {
				return nil, fmt.Errorf("failed to list posts: %w", err)
			}
			if posts == nil {
				posts = []domain.Post{}
			}
			return posts, nil
		})
}

// DeletePost removes a post. Only its author may delete it.
func (s *PostService) DeletePost(ctx context.Context, rs *RequestSession, postID int64) error {
	identity, err := rs.Require(ctx, domain.PermissionWrite)
	if err != nil {
		return err
	}

	post, err := s.posts.GetPost(ctx, postID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: post not found", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load post: %w", err)
	}
	if post.CreatedByID != identity.UserID {
		return fmt.Errorf("%w: you can only delete your own posts", domain.ErrForbidden)
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	s.invalidator.OnPostChanged(ctx, postID, identity.UserID)
	s.logger.Info(ctx, "Post deleted", "post_id", postID)
	return nil
}
