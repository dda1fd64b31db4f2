package service

import (
	"context"
	"errors"
	"log/slog"

	"storyline/internal/models"
	"storyline/internal/observability"
	"storyline/internal/repository"
	"storyline/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// CharacterHasPostsMessage is the refusal shown when a character still has posts.
const CharacterHasPostsMessage = "You cannot delete this character because it has posts."

type CharacterService struct {
	characterRepo repository.CharacterRepository
	postRepo      repository.PostRepository
}

// CharacterPage is a character with the posts written about it.
type CharacterPage struct {
	Character *models.Character
	Posts     []models.Post
}

func NewCharacterService(characterRepo repository.CharacterRepository, postRepo repository.PostRepository) *CharacterService {
	return &CharacterService{characterRepo: characterRepo, postRepo: postRepo}
}

// CreateCharacter adds a character to an existing story. Anyone logged in
// may add characters to any story.
func (s *CharacterService) CreateCharacter(ctx context.Context, id Identity, historyID uint, form validation.CharacterForm) (character *models.Character, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CharacterService", "CreateCharacter",
		attribute.Int64("history.id", int64(historyID)))
	defer func() { span.End(err) }()

	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if fe := form.Validate(); !fe.Valid() {
		return nil, fe
	}

	character = &models.Character{
		Name:      form.Name,
		Info:      form.Info,
		UserID:    id.UserID,
		HistoryID: historyID,
	}
	if err := s.characterRepo.Create(ctx, character); err != nil {
		return nil, err
	}
	observability.ContentMutations.WithLabelValues("character", "create").Inc()
	return character, nil
}

// GetCharacter returns the character only when it belongs to historyID.
func (s *CharacterService) GetCharacter(ctx context.Context, historyID, characterID uint) (*models.Character, error) {
	character, err := s.characterRepo.GetByID(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if character.HistoryID != historyID {
		return nil, models.NewNotFoundError("Character", characterID)
	}
	return character, nil
}

// CharacterPage loads the character and lists its posts, newest first.
func (s *CharacterService) CharacterPage(ctx context.Context, historyID, characterID uint) (page *CharacterPage, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CharacterService", "CharacterPage",
		attribute.Int64("character.id", int64(characterID)))
	defer func() { span.End(err) }()

	character, err := s.GetCharacter(ctx, historyID, characterID)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.ListByCharacter(ctx, characterID)
	if err != nil {
		return nil, err
	}
	return &CharacterPage{Character: character, Posts: posts}, nil
}

func (s *CharacterService) UpdateCharacter(ctx context.Context, id Identity, historyID, characterID uint, form validation.CharacterForm) (character *models.Character, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CharacterService", "UpdateCharacter",
		attribute.Int64("character.id", int64(characterID)))
	defer func() { span.End(err) }()

	character, err = s.editableCharacter(ctx, id, historyID, characterID)
	if err != nil {
		return nil, err
	}
	if fe := form.Validate(); !fe.Valid() {
		return nil, fe
	}

	character.Name = form.Name
	character.Info = form.Info
	if err := s.characterRepo.Update(ctx, character); err != nil {
		return nil, err
	}
	observability.ContentMutations.WithLabelValues("character", "update").Inc()
	return character, nil
}

// DeleteCharacter removes a character that no post is written about.
func (s *CharacterService) DeleteCharacter(ctx context.Context, id Identity, historyID, characterID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "CharacterService", "DeleteCharacter",
		attribute.Int64("character.id", int64(characterID)))
	defer func() { span.End(err) }()

	if _, err := s.editableCharacter(ctx, id, historyID, characterID); err != nil {
		return err
	}

	if err := s.characterRepo.DeleteIfChildless(ctx, characterID); err != nil {
		if errors.Is(err, repository.ErrHasChildren) {
			observability.RefusedDeletes.WithLabelValues("character").Inc()
			slog.InfoContext(ctx, "refused delete", "entity", "character", "character_id", characterID)
			return models.NewConflictError(CharacterHasPostsMessage)
		}
		return err
	}
	observability.ContentMutations.WithLabelValues("character", "delete").Inc()
	return nil
}

func (s *CharacterService) editableCharacter(ctx context.Context, id Identity, historyID, characterID uint) (*models.Character, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	character, err := s.GetCharacter(ctx, historyID, characterID)
	if err != nil {
		return nil, err
	}
	if err := authorize(id, character.UserID); err != nil {
		return nil, err
	}
	return character, nil
}
