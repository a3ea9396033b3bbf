// Package model содержит доменные сущности сайта Vibes Studios.
package model

import (
	"encoding/json"
	"time"
)

// Status описывает категорию проекта на доске.
type Status string

const (
	StatusPast     Status = "past"
	StatusCurrent  Status = "current"
	StatusFuture   Status = "future"
	StatusProposed Status = "proposed"
)

// Statuses перечисляет категории в порядке отображения на доске.
var Statuses = []Status{StatusPast, StatusCurrent, StatusFuture, StatusProposed}

// Valid сообщает, является ли значение одной из известных категорий.
func (s Status) Valid() bool {
	switch s {
	case StatusPast, StatusCurrent, StatusFuture, StatusProposed:
		return true
	}
	return false
}

// DefaultProjectImage используется, когда у проекта нет собственной картинки.
const DefaultProjectImage = "/placeholder.svg?height=200&width=400"

// Proposal содержит поля, которые есть только у проектов, предложенных сообществом.
type Proposal struct {
	ProposedBy   string
	ProposerName string
	Budget       float64
}

// Project описывает карточку проекта на доске.
type Project struct {
	ID          string
	Title       string
	Description string
	Tags        []string
	Votes       int
	Status      Status
	Image       string
	Proposal    *Proposal
	CreatedAt   *time.Time
}

// projectJSON повторяет форму записи, которую сайт хранил в браузере.
type projectJSON struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Tags         []string   `json:"tags"`
	Votes        int        `json:"votes"`
	Status       Status     `json:"status,omitempty"`
	Image        string     `json:"image,omitempty"`
	ProposedBy   string     `json:"proposedBy,omitempty"`
	ProposerName string     `json:"proposerName,omitempty"`
	Budget       *float64   `json:"budget,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// MarshalJSON разворачивает поля предложения в плоскую запись.
func (p Project) MarshalJSON() ([]byte, error) {
	out := projectJSON{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Tags:        p.Tags,
		Votes:       p.Votes,
		Status:      p.Status,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if p.Proposal != nil {
		out.ProposedBy = p.Proposal.ProposedBy
		out.ProposerName = p.Proposal.ProposerName
		budget := p.Proposal.Budget
		out.Budget = &budget
	}
	return json.Marshal(out)
}

// UnmarshalJSON собирает Proposal, если в записи есть автор или бюджет.
func (p *Project) UnmarshalJSON(data []byte) error {
	var in projectJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*p = Project{
		ID:          in.ID,
		Title:       in.Title,
		Description: in.Description,
		Tags:        in.Tags,
		Votes:       in.Votes,
		Status:      in.Status,
		Image:       in.Image,
		CreatedAt:   in.CreatedAt,
	}
	if in.ProposedBy != "" || in.ProposerName != "" || in.Budget != nil {
		p.Proposal = &Proposal{
			ProposedBy:   in.ProposedBy,
			ProposerName: in.ProposerName,
		}
		if in.Budget != nil {
			p.Proposal.Budget = *in.Budget
		}
	}
	return nil
}

// Board хранит четыре упорядоченных списка проектов и версию документа.
type Board struct {
	Version  int64     `json:"version"`
	Past     []Project `json:"past"`
	Current  []Project `json:"current"`
	Future   []Project `json:"future"`
	Proposed []Project `json:"proposed"`
}

// List возвращает указатель на список категории или nil для неизвестной категории.
func (b *Board) List(s Status) *[]Project {
	switch s {
	case StatusPast:
		return &b.Past
	case StatusCurrent:
		return &b.Current
	case StatusFuture:
		return &b.Future
	case StatusProposed:
		return &b.Proposed
	}
	return nil
}

// Clone возвращает глубокую копию доски.
func (b *Board) Clone() *Board {
	c := &Board{Version: b.Version}
	for _, s := range Statuses {
		src := *b.List(s)
		dst := make([]Project, len(src))
		for i, p := range src {
			dst[i] = p.clone()
		}
		*c.List(s) = dst
	}
	return c
}

func (p Project) clone() Project {
	c := p
	if p.Tags != nil {
		c.Tags = append([]string(nil), p.Tags...)
	}
	if p.Proposal != nil {
		pr := *p.Proposal
		c.Proposal = &pr
	}
	if p.CreatedAt != nil {
		t := *p.CreatedAt
		c.CreatedAt = &t
	}
	return c
}

// PaymentRequest описывает запрос на создание платёжного намерения.
type PaymentRequest struct {
	Amount         float64
	CustomerEmail  string
	IdempotencyKey string
}

// PaymentIntentResult — результат создания платёжного намерения: успех с секретом или ошибка.
type PaymentIntentResult struct {
	Success      bool
	ClientSecret string
	Amount       float64
	IntentID     string
	ErrorMessage string
}

// PaymentSucceeded создаёт успешный результат.
func PaymentSucceeded(intentID, clientSecret string, amount float64) PaymentIntentResult {
	return PaymentIntentResult{
		Success:      true,
		ClientSecret: clientSecret,
		Amount:       amount,
		IntentID:     intentID,
	}
}

// PaymentFailed создаёт неуспешный результат с сообщением для пользователя.
func PaymentFailed(message string) PaymentIntentResult {
	return PaymentIntentResult{ErrorMessage: message}
}

// ConsultingRequest описывает заявку с формы консалтинга.
type ConsultingRequest struct {
	ID              int64
	Name            string
	Email           string
	ProjectIdea     string
	Budget          float64
	PaymentIntentID string
	CreatedAt       time.Time
}
