package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/vibes-studio/internal/board"
	"github.com/mmeshcher/vibes-studio/internal/model"
)

// Position указывает место карточки на доске.
type Position struct {
	Status model.Status
	Index  int
}

// GetBoard возвращает доску целиком.
func (s *Service) GetBoard(ctx context.Context) (*model.Board, error) {
	return s.repo.LoadBoard(ctx)
}

// GetProject возвращает проект по идентификатору.
func (s *Service) GetProject(ctx context.Context, id string) (model.Project, error) {
	b, err := s.repo.LoadBoard(ctx)
	if err != nil {
		return model.Project{}, err
	}
	return board.Find(b, id)
}

// mutate применяет fn к доске в транзакции хранилища. Если expected задан и не
// совпадает с текущей версией, ничего не записывается.
func (s *Service) mutate(ctx context.Context, expected *int64, fn func(b *model.Board) (bool, error)) (*model.Board, error) {
	return s.repo.UpdateBoard(ctx, func(b *model.Board) (bool, error) {
		if expected != nil && *expected != b.Version {
			return false, fmt.Errorf("%w: current %d, expected %d", ErrVersionConflict, b.Version, *expected)
		}
		return fn(b)
	})
}

// Vote добавляет голос проекту и возвращает его вместе с новой версией доски.
func (s *Service) Vote(ctx context.Context, status model.Status, id string, expected *int64) (model.Project, int64, error) {
	var voted model.Project

	b, err := s.mutate(ctx, expected, func(b *model.Board) (bool, error) {
		p, err := board.Vote(b, status, id)
		if err != nil {
			return false, err
		}
		voted = p
		return true, nil
	})
	if err != nil {
		return model.Project{}, 0, err
	}

	return voted, b.Version, nil
}

// Move переносит карточку между позициями доски.
func (s *Service) Move(ctx context.Context, from, to Position, expected *int64) (*model.Board, error) {
	b, err := s.mutate(ctx, expected, func(b *model.Board) (bool, error) {
		return board.Move(b, from.Status, to.Status, from.Index, to.Index)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project moved",
		zap.String("from", string(from.Status)),
		zap.Int("from_index", from.Index),
		zap.String("to", string(to.Status)),
		zap.Int("to_index", to.Index),
		zap.Int64("version", b.Version),
	)
	return b, nil
}

// EditProject применяет правки администратора к проекту.
func (s *Service) EditProject(ctx context.Context, id string, upd board.ProjectUpdate, expected *int64) (model.Project, int64, error) {
	var edited model.Project

	b, err := s.mutate(ctx, expected, func(b *model.Board) (bool, error) {
		p, err := board.Edit(b, id, upd)
		if err != nil {
			return false, err
		}
		edited = p
		return true, nil
	})
	if err != nil {
		return model.Project{}, 0, err
	}

	return edited, b.Version, nil
}

// ProposeProject добавляет предложение сообщества в список proposed.
func (s *Service) ProposeProject(ctx context.Context, in board.NewProposal) (model.Project, int64, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.Project{}, 0, fmt.Errorf("generate project id: %w", err)
	}

	var proposed model.Project
	b, err := s.mutate(ctx, nil, func(b *model.Board) (bool, error) {
		proposed = board.Propose(b, in, id.String(), s.now())
		return true, nil
	})
	if err != nil {
		return model.Project{}, 0, err
	}

	s.enqueue(fmt.Sprintf("New project proposal: %s\nBy: %s <%s>\nBudget: $%.2f\n\n%s",
		proposed.Title, in.ProposerName, in.ProposerMail, in.Budget, proposed.Description))

	return proposed, b.Version, nil
}

// ImportBoard проверяет документ доски и заменяет им текущую доску.
func (s *Service) ImportBoard(ctx context.Context, doc *model.Board, expected *int64) (*model.Board, error) {
	doc = doc.Clone()
	if err := board.Validate(doc); err != nil {
		return nil, err
	}

	b, err := s.mutate(ctx, expected, func(b *model.Board) (bool, error) {
		for _, st := range model.Statuses {
			*b.List(st) = *doc.List(st)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("board imported", zap.Int64("version", b.Version))
	return b, nil
}

// Image описывает загружаемый файл картинки.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UploadProjectImage сохраняет картинку в хранилище и записывает её адрес в проект.
func (s *Service) UploadProjectImage(ctx context.Context, id string, img Image, expected *int64) (model.Project, int64, error) {
	if s.images == nil {
		return model.Project{}, 0, ErrUploadsDisabled
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return model.Project{}, 0, ErrInvalidImage
	}

	if _, err := s.GetProject(ctx, id); err != nil {
		return model.Project{}, 0, err
	}

	key := fmt.Sprintf("projects/%s/%s%s", id, uuid.NewString(), strings.ToLower(filepath.Ext(img.Filename)))
	url, err := s.images.Upload(ctx, key, img.ContentType, img.Body, img.Size)
	if err != nil {
		return model.Project{}, 0, fmt.Errorf("upload image: %w", err)
	}

	s.logger.Info("project image uploaded", zap.String("project_id", id), zap.String("key", key))

	return s.EditProject(ctx, id, board.ProjectUpdate{Image: &url}, expected)
}
