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

// HistoryHasCharactersMessage is the refusal shown when a story still has characters.
const HistoryHasCharactersMessage = "You cannot delete this story because it has characters."

type HistoryService struct {
	historyRepo   repository.HistoryRepository
	characterRepo repository.CharacterRepository
}

// HistoryPage is a story with the characters that belong to it.
type HistoryPage struct {
	History    *models.History
	Characters []models.Character
}

func NewHistoryService(historyRepo repository.HistoryRepository, characterRepo repository.CharacterRepository) *HistoryService {
	return &HistoryService{historyRepo: historyRepo, characterRepo: characterRepo}
}

func (s *HistoryService) CreateHistory(ctx context.Context, id Identity, form validation.HistoryForm) (history *models.History, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "HistoryService", "CreateHistory")
	defer func() { span.End(err) }()

	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	if fe := form.Validate(); !fe.Valid() {
		return nil, fe
	}

	history = &models.History{Title: form.Title, Info: form.Info, UserID: id.UserID}
	if err := s.historyRepo.Create(ctx, history); err != nil {
		return nil, err
	}
	observability.ContentMutations.WithLabelValues("history", "create").Inc()
	return history, nil
}

func (s *HistoryService) GetHistory(ctx context.Context, historyID uint) (*models.History, error) {
	return s.historyRepo.GetByID(ctx, historyID)
}

// HistoryPage loads the story and lists its characters.
func (s *HistoryService) HistoryPage(ctx context.Context, historyID uint) (page *HistoryPage, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "HistoryService", "HistoryPage",
		attribute.Int64("history.id", int64(historyID)))
	defer func() { span.End(err) }()

	history, err := s.historyRepo.GetByID(ctx, historyID)
	if err != nil {
		return nil, err
	}
	characters, err := s.characterRepo.ListByHistory(ctx, historyID)
	if err != nil {
		return nil, err
	}
	return &HistoryPage{History: history, Characters: characters}, nil
}

// UpdateHistory checks existence, then authorship, then the form.
func (s *HistoryService) UpdateHistory(ctx context.Context, id Identity, historyID uint, form validation.HistoryForm) (history *models.History, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "HistoryService", "UpdateHistory",
		attribute.Int64("history.id", int64(historyID)))
	defer func() { span.End(err) }()

	history, err = s.editableHistory(ctx, id, historyID)
	if err != nil {
		return nil, err
	}
	if fe := form.Validate(); !fe.Valid() {
		return nil, fe
	}

	history.Title = form.Title
	history.Info = form.Info
	if err := s.historyRepo.Update(ctx, history); err != nil {
		return nil, err
	}
	observability.ContentMutations.WithLabelValues("history", "update").Inc()
	return history, nil
}

// DeleteHistory removes a story that has no characters. A story with
// characters is left untouched and a CONFLICT error is returned.
func (s *HistoryService) DeleteHistory(ctx context.Context, id Identity, historyID uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "HistoryService", "DeleteHistory",
		attribute.Int64("history.id", int64(historyID)))
	defer func() { span.End(err) }()

	if _, err := s.editableHistory(ctx, id, historyID); err != nil {
		return err
	}

	if err := s.historyRepo.DeleteIfChildless(ctx, historyID); err != nil {
		if errors.Is(err, repository.ErrHasChildren) {
			observability.RefusedDeletes.WithLabelValues("history").Inc()
			slog.InfoContext(ctx, "refused delete", "entity", "history", "history_id", historyID)
			return models.NewConflictError(HistoryHasCharactersMessage)
		}
		return err
	}
	observability.ContentMutations.WithLabelValues("history", "delete").Inc()
	slog.InfoContext(ctx, "history deleted", "history_id", historyID)
	return nil
}

func (s *HistoryService) editableHistory(ctx context.Context, id Identity, historyID uint) (*models.History, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	history, err := s.historyRepo.GetByID(ctx, historyID)
	if err != nil {
		return nil, err
	}
	if err := authorize(id, history.UserID); err != nil {
		return nil, err
	}
	return history, nil
}
