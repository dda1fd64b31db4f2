package service

import (
	"context"
	"log/slog"

	"storyline/internal/models"
	"storyline/internal/observability"
	"storyline/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	selfFollowMessage   = "You cannot follow yourself."
	selfUnfollowMessage = "You cannot unfollow yourself."
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	postRepo   repository.PostRepository
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	postRepo repository.PostRepository,
) *FollowService {
	return &FollowService{followRepo: followRepo, userRepo: userRepo, postRepo: postRepo}
}

// Follow makes the caller follow targetID and returns the target. Following
// someone already followed changes nothing.
func (s *FollowService) Follow(ctx context.Context, id Identity, targetID uint) (target *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FollowService", "Follow",
		attribute.Int64("follower.id", int64(id.UserID)),
		attribute.Int64("followed.id", int64(targetID)))
	defer func() { span.End(err) }()

	target, err = s.target(ctx, id, targetID)
	if err != nil {
		return nil, err
	}
	if target.ID == id.UserID {
		return nil, models.NewConflictError(selfFollowMessage)
	}

	created, err := s.followRepo.Follow(ctx, id.UserID, target.ID)
	if err != nil {
		return nil, err
	}
	if created {
		observability.FollowEvents.WithLabelValues("follow").Inc()
		slog.InfoContext(ctx, "follow", "follower_id", id.UserID, "followed_id", target.ID)
	}
	return target, nil
}

// Unfollow removes the edge from the caller to targetID if there is one.
func (s *FollowService) Unfollow(ctx context.Context, id Identity, targetID uint) (target *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FollowService", "Unfollow",
		attribute.Int64("follower.id", int64(id.UserID)),
		attribute.Int64("followed.id", int64(targetID)))
	defer func() { span.End(err) }()

	target, err = s.target(ctx, id, targetID)
	if err != nil {
		return nil, err
	}
	if target.ID == id.UserID {
		return nil, models.NewConflictError(selfUnfollowMessage)
	}

	removed, err := s.followRepo.Unfollow(ctx, id.UserID, target.ID)
	if err != nil {
		return nil, err
	}
	if removed {
		observability.FollowEvents.WithLabelValues("unfollow").Inc()
		slog.InfoContext(ctx, "unfollow", "follower_id", id.UserID, "followed_id", target.ID)
	}
	return target, nil
}

func (s *FollowService) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	if followerID == 0 || followerID == followedID {
		return false, nil
	}
	return s.followRepo.IsFollowing(ctx, followerID, followedID)
}

// FollowedPosts returns one page of posts by the caller and by everyone the caller follows.
func (s *FollowService) FollowedPosts(ctx context.Context, id Identity, page int) (result *PostPage, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "FollowService", "FollowedPosts",
		attribute.Int64("user.id", int64(id.UserID)))
	defer func() { span.End(err) }()

	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	page = normalizePageNumber(page)
	posts, total, err := s.postRepo.Feed(ctx, id.UserID, PostsPerPage, (page-1)*PostsPerPage)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Page: page, PerPage: PostsPerPage, Total: total}, nil
}

func (s *FollowService) target(ctx context.Context, id Identity, targetID uint) (*models.User, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, targetID)
}
