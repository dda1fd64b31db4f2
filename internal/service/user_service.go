package service

import (
	"context"
	"log/slog"

	"storyline/internal/models"
	"storyline/internal/observability"
	"storyline/internal/repository"
	"storyline/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type UserService struct {
	userRepo    repository.UserRepository
	historyRepo repository.HistoryRepository
	followRepo  repository.FollowRepository
	avatars     *AvatarService
}

// UserProfile is everything the public user page shows.
type UserProfile struct {
	User      *models.User
	Histories []models.History
	Followers int64
	Following int64
}

// UsersPerPage is the page size of the author directory.
const UsersPerPage = PostsPerPage

// UserPage is one page of the author directory.
type UserPage struct {
	Users []models.User
	Page  int
	More  bool
}

func (p *UserPage) HasPrev() bool { return p.Page > 1 }
func (p *UserPage) HasNext() bool { return p.More }
func (p *UserPage) PrevPage() int { return p.Page - 1 }
func (p *UserPage) NextPage() int { return p.Page + 1 }

// UpdateAccountInput carries the account form and an optional new picture.
type UpdateAccountInput struct {
	Form    validation.AccountForm
	Picture *AvatarUpload
}

func NewUserService(
	userRepo repository.UserRepository,
	historyRepo repository.HistoryRepository,
	followRepo repository.FollowRepository,
	avatars *AvatarService,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		historyRepo: historyRepo,
		followRepo:  followRepo,
		avatars:     avatars,
	}
}

func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// ListUsers returns one page of the author directory, oldest account first.
func (s *UserService) ListUsers(ctx context.Context, page int) (result *UserPage, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "ListUsers",
		attribute.Int("page", page))
	defer func() { span.End(err) }()

	page = normalizePageNumber(page)
	// One extra row tells whether a next page exists without counting.
	users, err := s.userRepo.List(ctx, UsersPerPage+1, (page-1)*UsersPerPage)
	if err != nil {
		return nil, err
	}
	more := len(users) > UsersPerPage
	if more {
		users = users[:UsersPerPage]
	}
	return &UserPage{Users: users, Page: page, More: more}, nil
}

// Profile loads a user together with their stories and follow counts.
func (s *UserService) Profile(ctx context.Context, id uint) (profile *UserProfile, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "Profile",
		attribute.Int64("user.id", int64(id)))
	defer func() { span.End(err) }()

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	histories, err := s.historyRepo.ListByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	followers, err := s.followRepo.CountFollowers(ctx, id)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.CountFollowing(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserProfile{
		User:      user,
		Histories: histories,
		Followers: followers,
		Following: following,
	}, nil
}

// UpdateAccount changes the caller's username, about text and, when a
// picture is supplied, their avatar. The previous avatar file is removed
// once the new one is recorded.
func (s *UserService) UpdateAccount(ctx context.Context, id Identity, in UpdateAccountInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "UserService", "UpdateAccount",
		attribute.Int64("user.id", int64(id.UserID)))
	defer func() { span.End(err) }()

	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	user, err = s.userRepo.GetByID(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	form := in.Form
	fe := form.Validate()
	if _, bad := fe["username"]; !bad && form.Username != user.Username {
		existing, err := s.userRepo.GetByUsername(ctx, form.Username)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != user.ID {
			fe.Add("username", usernameTakenMessage)
		}
	}
	if !fe.Valid() {
		return nil, fe
	}

	oldImage := user.ImageFile
	newImage := ""
	if in.Picture != nil && s.avatars != nil {
		newImage, err = s.avatars.Save(ctx, *in.Picture)
		if err != nil {
			return nil, err
		}
		user.ImageFile = newImage
	}
	user.Username = form.Username
	user.About = form.About

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		if newImage != "" {
			if rerr := s.avatars.Remove(newImage); rerr != nil {
				slog.WarnContext(ctx, "failed to remove unsaved avatar", "file", newImage, "err", rerr)
			}
		}
		return nil, err
	}

	if newImage != "" && oldImage != newImage {
		if err := s.avatars.Remove(oldImage); err != nil {
			slog.WarnContext(ctx, "failed to remove previous avatar", "file", oldImage, "err", err)
		}
	}
	slog.InfoContext(ctx, "account updated", "user_id", user.ID)
	return user, nil
}
