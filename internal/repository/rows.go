package repository

import (
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mmeshcher/vibes-studio/internal/model"
	"github.com/mmeshcher/vibes-studio/internal/validation"
)

var projectColumns = []string{
	"id", "status", "position", "title", "description", "tags", "votes",
	"image", "proposed_by", "proposer_name", "budget_cents", "created_at",
}

var consultingColumns = []string{
	"id", "name", "email", "project_idea", "budget_cents", "payment_intent_id", "created_at",
}

// queries строит SQL для обоих диалектов; отличается только формат плейсхолдеров.
type queries struct {
	sb       sq.StatementBuilderType
	lockRows bool
}

func newQueries(ph sq.PlaceholderFormat, lockRows bool) queries {
	return queries{
		sb:       sq.StatementBuilder.PlaceholderFormat(ph),
		lockRows: lockRows,
	}
}

func (q queries) selectVersion(forUpdate bool) (string, []any, error) {
	b := q.sb.Select("version").From("board_state").Where(sq.Eq{"id": 1})
	if forUpdate && q.lockRows {
		b = b.Suffix("FOR UPDATE")
	}
	return b.ToSql()
}

func (q queries) selectProjects() (string, []any, error) {
	return q.sb.Select(projectColumns...).
		From("projects").
		OrderBy("status", "position").
		ToSql()
}

func (q queries) deleteProjects() (string, []any, error) {
	return q.sb.Delete("projects").ToSql()
}

// insertProjects возвращает пустой запрос, если на доске нет проектов.
func (q queries) insertProjects(b *model.Board) (string, []any, error) {
	ins := q.sb.Insert("projects").Columns(projectColumns...)
	n := 0
	for _, s := range model.Statuses {
		for pos, p := range *b.List(s) {
			values, err := projectValues(p, s, pos)
			if err != nil {
				return "", nil, err
			}
			ins = ins.Values(values...)
			n++
		}
	}
	if n == 0 {
		return "", nil, nil
	}
	return ins.ToSql()
}

func (q queries) bumpVersion() (string, []any, error) {
	return q.sb.Update("board_state").
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("CURRENT_TIMESTAMP")).
		Where(sq.Eq{"id": 1}).
		Suffix("RETURNING version").
		ToSql()
}

func (q queries) insertConsulting(req *model.ConsultingRequest) (string, []any, error) {
	var intentID *string
	if req.PaymentIntentID != "" {
		intentID = &req.PaymentIntentID
	}
	return q.sb.Insert("consulting_requests").
		Columns("name", "email", "project_idea", "budget_cents", "payment_intent_id", "created_at").
		Values(req.Name, req.Email, req.ProjectIdea, validation.ToCents(req.Budget), intentID, req.CreatedAt.UTC()).
		Suffix("RETURNING id").
		ToSql()
}

func (q queries) selectConsulting() (string, []any, error) {
	return q.sb.Select(consultingColumns...).
		From("consulting_requests").
		OrderBy("created_at DESC", "id DESC").
		ToSql()
}

// scanner покрывает и pgx.Row(s), и *sql.Row(s).
type scanner interface {
	Scan(dest ...any) error
}

func projectValues(p model.Project, s model.Status, pos int) ([]any, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	rawTags, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}

	var (
		proposedBy   *string
		proposerName *string
		budgetCents  *int64
		createdAt    *time.Time
	)
	if p.Proposal != nil {
		if p.Proposal.ProposedBy != "" {
			proposedBy = &p.Proposal.ProposedBy
		}
		if p.Proposal.ProposerName != "" {
			proposerName = &p.Proposal.ProposerName
		}
		cents := validation.ToCents(p.Proposal.Budget)
		budgetCents = &cents
	}
	if p.CreatedAt != nil {
		t := p.CreatedAt.UTC()
		createdAt = &t
	}

	return []any{
		p.ID, string(s), pos, p.Title, p.Description, string(rawTags), p.Votes,
		p.Image, proposedBy, proposerName, budgetCents, createdAt,
	}, nil
}

func scanProject(row scanner) (model.Project, error) {
	var (
		p            model.Project
		status       string
		position     int
		rawTags      string
		proposedBy   *string
		proposerName *string
		budgetCents  *int64
		createdAt    *time.Time
	)

	err := row.Scan(&p.ID, &status, &position, &p.Title, &p.Description, &rawTags, &p.Votes,
		&p.Image, &proposedBy, &proposerName, &budgetCents, &createdAt)
	if err != nil {
		return model.Project{}, fmt.Errorf("scan project: %w", err)
	}

	p.Status = model.Status(status)
	if err := json.Unmarshal([]byte(rawTags), &p.Tags); err != nil {
		return model.Project{}, fmt.Errorf("decode tags of %s: %w", p.ID, err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	if proposedBy != nil || proposerName != nil || budgetCents != nil {
		p.Proposal = &model.Proposal{}
		if proposedBy != nil {
			p.Proposal.ProposedBy = *proposedBy
		}
		if proposerName != nil {
			p.Proposal.ProposerName = *proposerName
		}
		if budgetCents != nil {
			p.Proposal.Budget = float64(*budgetCents) / 100
		}
	}
	if createdAt != nil {
		t := createdAt.UTC()
		p.CreatedAt = &t
	}

	return p, nil
}

func scanConsulting(row scanner) (model.ConsultingRequest, error) {
	var (
		req         model.ConsultingRequest
		budgetCents int64
		intentID    *string
	)

	if err := row.Scan(&req.ID, &req.Name, &req.Email, &req.ProjectIdea, &budgetCents, &intentID, &req.CreatedAt); err != nil {
		return model.ConsultingRequest{}, fmt.Errorf("scan consulting request: %w", err)
	}

	req.Budget = float64(budgetCents) / 100
	if intentID != nil {
		req.PaymentIntentID = *intentID
	}
	req.CreatedAt = req.CreatedAt.UTC()
	return req, nil
}

// appendProject раскладывает строки в списки доски в порядке position.
func appendProject(b *model.Board, p model.Project) error {
	list := b.List(p.Status)
	if list == nil {
		return fmt.Errorf("unknown status %q for project %s", p.Status, p.ID)
	}
	*list = append(*list, p)
	return nil
}

func emptyBoard(version int64) *model.Board {
	return &model.Board{
		Version:  version,
		Past:     []model.Project{},
		Current:  []model.Project{},
		Future:   []model.Project{},
		Proposed: []model.Project{},
	}
}
