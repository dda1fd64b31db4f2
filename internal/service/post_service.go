package service

import (
	"context"
	"math"

	"storyline/internal/models"
	"storyline/internal/observability"
	"storyline/internal/repository"
	"storyline/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// PostsPerPage is the page size of the home page and the feed.
const PostsPerPage = 20

// MaxPage is the highest page number served; the row offset of any page up
// to it fits in an int32.
const MaxPage = math.MaxInt32 / PostsPerPage

type PostService struct {
	postRepo repository.PostRepository
}

// PostPage is one page of posts, newest first.
type PostPage struct {
	Posts   []models.Post
	Page    int
	PerPage int
	Total   int64
}

// TotalPages is at least 1 so an empty listing still renders page 1.
func (p *PostPage) TotalPages() int {
	if p.PerPage <= 0 || p.Total == 0 {
		return 1
	}
	return int((p.Total + int64(p.PerPage) - 1) / int64(p.PerPage))
}

func (p *PostPage) HasPrev() bool { return p.Page > 1 }
func (p *PostPage) HasNext() bool { return p.Page < p.TotalPages() }
func (p *PostPage) PrevPage() int { return p.Page - 1 }
func (p *PostPage) NextPage() int { return p.Page + 1 }

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// CreatePost writes a post about a character of a story. The character must
// exist and belong to historyID.
func (s *PostService) CreatePost(ctx context.Context, id Identity, historyID, characterID uint, form validation.PostForm) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "CreatePost",
		attribute.Int64("character.id", int64(characterID)))
	defer func() { span.End(err) }()

	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if fe := form.Validate(); !fe.Valid() {
		return nil, fe
	}

	post = &models.Post{
		Title:       form.Title,
		Content:     form.Content,
		UserID:      id.UserID,
		HistoryID:   historyID,
		CharacterID: characterID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.ContentMutations.WithLabelValues("post", "create").Inc()
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, postID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID)
}

func (s *PostService) UpdatePost(ctx context.Context, id Identity, postID uint, form validation.PostForm) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "UpdatePost",
		attribute.Int64("post.id", int64(postID)))
	defer func() { span.End(err) }()

	post, err = s.editablePost(ctx, id, postID)
	if err != nil {
		return nil, err
	}
	if fe := form.Validate(); !fe.Valid() {
		return nil, fe
	}

	post.Title = form.Title
	post.Content = form.Content
	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	observability.ContentMutations.WithLabelValues("post", "update").Inc()
	return post, nil
}

// DeletePost removes the post and returns it so the caller can redirect to its character.
func (s *PostService) DeletePost(ctx context.Context, id Identity, postID uint) (post *models.Post, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "DeletePost",
		attribute.Int64("post.id", int64(postID)))
	defer func() { span.End(err) }()

	post, err = s.editablePost(ctx, id, postID)
	if err != nil {
		return nil, err
	}
	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return nil, err
	}
	observability.ContentMutations.WithLabelValues("post", "delete").Inc()
	return post, nil
}

// Home returns one page of every post. Pages start at 1.
func (s *PostService) Home(ctx context.Context, page int) (*PostPage, error) {
	page = normalizePageNumber(page)
	posts, total, err := s.postRepo.ListAll(ctx, PostsPerPage, (page-1)*PostsPerPage)
	if err != nil {
		return nil, err
	}
	return &PostPage{Posts: posts, Page: page, PerPage: PostsPerPage, Total: total}, nil
}

func (s *PostService) editablePost(ctx context.Context, id Identity, postID uint) (*models.Post, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := authorize(id, post.UserID); err != nil {
		return nil, err
	}
	return post, nil
}

func normalizePageNumber(page int) int {
	if page < 1 {
		return 1
	}
	if page > MaxPage {
		return MaxPage
	}
	return page
}
