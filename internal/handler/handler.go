// Package handler содержит HTTP-обработчики API сайта Vibes Studios.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/vibes-studio/internal/board"
	"github.com/mmeshcher/vibes-studio/internal/catalog"
	"github.com/mmeshcher/vibes-studio/internal/middleware"
	"github.com/mmeshcher/vibes-studio/internal/model"
	"github.com/mmeshcher/vibes-studio/internal/service"
	"github.com/mmeshcher/vibes-studio/internal/validation"
)

const maxJSONBody = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	GetBoard(ctx context.Context) (*model.Board, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	Vote(ctx context.Context, status model.Status, id string, expected *int64) (model.Project, int64, error)
	Move(ctx context.Context, from, to service.Position, expected *int64) (*model.Board, error)
	EditProject(ctx context.Context, id string, upd board.ProjectUpdate, expected *int64) (model.Project, int64, error)
	ProposeProject(ctx context.Context, in board.NewProposal) (model.Project, int64, error)
	ImportBoard(ctx context.Context, doc *model.Board, expected *int64) (*model.Board, error)
	UploadProjectImage(ctx context.Context, id string, img service.Image, expected *int64) (model.Project, int64, error)

	PaymentsEnabled() bool
	CreatePaymentIntent(ctx context.Context, req model.PaymentRequest) model.PaymentIntentResult

	SubmitConsulting(ctx context.Context, in service.ConsultingInput) (service.ConsultingResult, error)
	ListConsulting(ctx context.Context) ([]model.ConsultingRequest, error)

	AuthenticateAdmin(password string) error
	Pricing() *catalog.Catalog
}

// Handler реализует HTTP-обработчики API сайта.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
	returnURL      string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// returnURL: путь, на который платёжная форма возвращает покупателя.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware, returnURL string) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
		returnURL:      returnURL,
	}
}

type errorResponse struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response error", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Error: message})
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// handleError переводит ошибки сервиса в HTTP-статусы. Неизвестные ошибки
// пишутся в журнал и отдаются клиенту как 500.
func (h *Handler) handleError(w http.ResponseWriter, op string, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, board.ErrProjectNotFound):
		h.writeError(w, http.StatusNotFound, "project not found")
	case errors.Is(err, board.ErrVotingClosed):
		h.writeError(w, http.StatusConflict, "voting is closed for this project")
	case errors.Is(err, board.ErrInvalidStatus),
		errors.Is(err, board.ErrInvalidPosition),
		errors.Is(err, board.ErrDuplicateProject),
		errors.Is(err, board.ErrMissingID),
		errors.Is(err, board.ErrInvalidProject):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrVersionConflict):
		h.writeError(w, http.StatusPreconditionFailed, "board was changed by someone else, reload and try again")
	case errors.Is(err, service.ErrInvalidImage):
		h.writeError(w, http.StatusUnsupportedMediaType, "file must be an image")
	case errors.Is(err, service.ErrUploadsDisabled),
		errors.Is(err, service.ErrPaymentsDisabled),
		errors.Is(err, service.ErrAdminDisabled):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error(op+" error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func setETag(w http.ResponseWriter, version int64) {
	w.Header().Set("ETag", strconv.Quote(strconv.FormatInt(version, 10)))
}

func parseETag(value string) (int64, bool) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "W/")
	unquoted, err := strconv.Unquote(value)
	if err != nil {
		unquoted = value
	}
	v, err := strconv.ParseInt(unquoted, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// expectedVersion читает If-Match. Отсутствующий заголовок и "*" означают
// запись без проверки версии.
func expectedVersion(r *http.Request) (*int64, error) {
	value := strings.TrimSpace(r.Header.Get("If-Match"))
	if value == "" || value == "*" {
		return nil, nil
	}

	v, ok := parseETag(value)
	if !ok {
		return nil, fmt.Errorf("invalid If-Match header %q", value)
	}
	return &v, nil
}

// parseTags принимает теги массивом или строкой через запятую.
// Для отсутствующего поля возвращает nil.
func parseTags(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return validation.NormalizeTags(list), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, &validation.Error{Fields: []validation.FieldError{{
			Field:   "tags",
			Message: "Tags must be a list or a comma-separated string.",
		}}}
	}
	return validation.SplitTags(s), nil
}
