// Package board реализует операции над доской проектов.
//
// Функции пакета работают с полной копией документа доски в памяти и не
// знают ничего о хранилище: сервис загружает доску, применяет операцию и
// записывает документ целиком.
package board

import (
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/vibes-studio/internal/model"
)

var (
	// ErrProjectNotFound возвращается, если проекта нет в указанной категории или на доске.
	ErrProjectNotFound = errors.New("project not found")
	// ErrInvalidStatus возвращается для неизвестной категории.
	ErrInvalidStatus = errors.New("invalid project status")
	// ErrInvalidPosition возвращается, если индекс перемещения выходит за границы списка.
	ErrInvalidPosition = errors.New("invalid board position")
	// ErrVotingClosed возвращается при голосовании за проект вне категории future.
	ErrVotingClosed = errors.New("voting is closed for this project")
	// ErrDuplicateProject возвращается, если один идентификатор встречается на доске дважды.
	ErrDuplicateProject = errors.New("duplicate project id")
	// ErrMissingID возвращается, если у проекта в документе нет идентификатора.
	ErrMissingID = errors.New("project id is empty")
	// ErrInvalidProject возвращается для проекта с отрицательными голосами или бюджетом.
	ErrInvalidProject = errors.New("invalid project")
)

// Vote увеличивает счётчик голосов проекта id в категории status.
func Vote(b *model.Board, status model.Status, id string) (model.Project, error) {
	list := b.List(status)
	if list == nil {
		return model.Project{}, ErrInvalidStatus
	}

	idx := indexOf(*list, id)
	if idx < 0 {
		return model.Project{}, ErrProjectNotFound
	}
	if status != model.StatusFuture {
		return model.Project{}, ErrVotingClosed
	}

	(*list)[idx].Votes++
	return (*list)[idx], nil
}

// Move переносит проект с позиции srcIdx списка src на позицию dstIdx списка dst.
// Возвращает false, если исходная и целевая позиции совпадают.
func Move(b *model.Board, src, dst model.Status, srcIdx, dstIdx int) (bool, error) {
	srcList := b.List(src)
	dstList := b.List(dst)
	if srcList == nil || dstList == nil {
		return false, ErrInvalidStatus
	}

	if src == dst && srcIdx == dstIdx {
		return false, nil
	}

	if srcIdx < 0 || srcIdx >= len(*srcList) {
		return false, fmt.Errorf("%w: source index %d", ErrInvalidPosition, srcIdx)
	}

	limit := len(*dstList)
	if src == dst {
		limit--
	}
	if dstIdx < 0 || dstIdx > limit {
		return false, fmt.Errorf("%w: destination index %d", ErrInvalidPosition, dstIdx)
	}

	moved := (*srcList)[srcIdx]
	*srcList = append((*srcList)[:srcIdx:srcIdx], (*srcList)[srcIdx+1:]...)

	moved.Status = dst
	*dstList = insertAt(*dstList, dstIdx, moved)

	return true, nil
}

// ProjectUpdate содержит поля, которые можно изменить через форму редактирования.
// Nil означает «не менять».
type ProjectUpdate struct {
	Title       *string
	Description *string
	Tags        []string
	Status      *model.Status
	Image       *string
}

// Edit применяет изменения к проекту id. При смене категории проект
// удаляется из старого списка и добавляется в конец нового.
func Edit(b *model.Board, id string, upd ProjectUpdate) (model.Project, error) {
	if upd.Status != nil && !upd.Status.Valid() {
		return model.Project{}, ErrInvalidStatus
	}

	status, idx, ok := locate(b, id)
	if !ok {
		return model.Project{}, ErrProjectNotFound
	}

	list := b.List(status)
	p := (*list)[idx]

	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Tags != nil {
		p.Tags = append([]string(nil), upd.Tags...)
	}
	if upd.Image != nil {
		p.Image = *upd.Image
	}

	if upd.Status == nil || *upd.Status == status {
		p.Status = status
		(*list)[idx] = p
		return p, nil
	}

	*list = append((*list)[:idx:idx], (*list)[idx+1:]...)

	p.Status = *upd.Status
	dst := b.List(p.Status)
	*dst = append(*dst, p)

	return p, nil
}

// NewProposal содержит данные формы предложения проекта.
type NewProposal struct {
	Title        string
	Description  string
	Tags         []string
	Budget       float64
	ProposerName string
	ProposerMail string
}

// Propose добавляет в конец списка proposed новый проект с нулём голосов.
func Propose(b *model.Board, in NewProposal, id string, now time.Time) model.Project {
	created := now.UTC()
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	p := model.Project{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Tags:        tags,
		Votes:       0,
		Status:      model.StatusProposed,
		Image:       model.DefaultProjectImage,
		Proposal: &model.Proposal{
			ProposedBy:   in.ProposerMail,
			ProposerName: in.ProposerName,
			Budget:       in.Budget,
		},
		CreatedAt: &created,
	}

	b.Proposed = append(b.Proposed, p)
	return p
}

// Find ищет проект по идентификатору во всех категориях.
func Find(b *model.Board, id string) (model.Project, error) {
	status, idx, ok := locate(b, id)
	if !ok {
		return model.Project{}, ErrProjectNotFound
	}
	return (*b.List(status))[idx], nil
}

// Validate проверяет, что каждый идентификатор встречается ровно в одном
// списке, а голоса и бюджет не отрицательны. Поле Status приводится к списку, в котором лежит проект:
// старые документы из браузера не обновляли его при перетаскивании.
func Validate(b *model.Board) error {
	seen := make(map[string]model.Status)
	for _, s := range model.Statuses {
		list := b.List(s)
		for i := range *list {
			p := &(*list)[i]
			if p.ID == "" {
				return fmt.Errorf("%w: in %s", ErrMissingID, s)
			}
			if prev, dup := seen[p.ID]; dup {
				return fmt.Errorf("%w: %q in %s and %s", ErrDuplicateProject, p.ID, prev, s)
			}
			seen[p.ID] = s

			if p.Votes < 0 {
				return fmt.Errorf("%w: %q has negative votes", ErrInvalidProject, p.ID)
			}
			if p.Proposal != nil && p.Proposal.Budget < 0 {
				return fmt.Errorf("%w: %q has negative budget", ErrInvalidProject, p.ID)
			}

			p.Status = s
		}
	}
	return nil
}

func locate(b *model.Board, id string) (model.Status, int, bool) {
	for _, s := range model.Statuses {
		if idx := indexOf(*b.List(s), id); idx >= 0 {
			return s, idx, true
		}
	}
	return "", -1, false
}

func indexOf(list []model.Project, id string) int {
	for i, p := range list {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func insertAt(list []model.Project, idx int, p model.Project) []model.Project {
	list = append(list, model.Project{})
	copy(list[idx+1:], list[idx:])
	list[idx] = p
	return list
}
