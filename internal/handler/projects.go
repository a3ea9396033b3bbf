package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/vibes-studio/internal/board"
	"github.com/mmeshcher/vibes-studio/internal/model"
	"github.com/mmeshcher/vibes-studio/internal/service"
	"github.com/mmeshcher/vibes-studio/internal/validation"
)

const maxImageSize = 5 << 20

// GetProjects возвращает доску целиком. Версия документа отдаётся в ETag.
func (h *Handler) GetProjects(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.GetBoard(r.Context())
	if err != nil {
		h.handleError(w, "get board", err)
		return
	}

	setETag(w, b.Version)
	if v, ok := parseETag(r.Header.Get("If-None-Match")); ok && v == b.Version {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.writeJSON(w, http.StatusOK, b)
}

// GetProject возвращает один проект.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, "get project", err)
		return
	}

	h.writeJSON(w, http.StatusOK, p)
}

// Vote добавляет голос проекту из категории future.
func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	expected, err := expectedVersion(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := model.Status(chi.URLParam(r, "status"))
	p, version, err := h.service.Vote(r.Context(), status, chi.URLParam(r, "id"), expected)
	if err != nil {
		h.handleError(w, "vote", err)
		return
	}

	setETag(w, version)
	h.writeJSON(w, http.StatusOK, p)
}

type proposalRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Tags        json.RawMessage `json:"tags"`
	Budget      json.RawMessage `json:"budget"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
}

// ProposeProject принимает предложение проекта от сообщества.
func (h *Handler) ProposeProject(w http.ResponseWriter, r *http.Request) {
	var req proposalRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	tags, err := parseTags(req.Tags)
	if err != nil {
		h.handleError(w, "propose project", err)
		return
	}

	budget, ok := validation.ParseAmount(req.Budget)
	if !ok {
		h.handleError(w, "propose project", &validation.Error{Fields: []validation.FieldError{{
			Field:   "budget",
			Message: "Budget must be a valid non-negative number.",
		}}})
		return
	}

	form := validation.ProposalForm{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Tags:        tags,
		Budget:      budget,
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
	}
	if err := validation.Struct(form); err != nil {
		h.handleError(w, "propose project", err)
		return
	}

	p, version, err := h.service.ProposeProject(r.Context(), board.NewProposal{
		Title:        form.Title,
		Description:  form.Description,
		Tags:         form.Tags,
		Budget:       form.Budget,
		ProposerName: form.Name,
		ProposerMail: form.Email,
	})
	if err != nil {
		h.handleError(w, "propose project", err)
		return
	}

	setETag(w, version)
	h.writeJSON(w, http.StatusCreated, p)
}

type boardPosition struct {
	Status model.Status `json:"status"`
	Index  *int         `json:"index"`
}

type moveRequest struct {
	Source      boardPosition `json:"source"`
	Destination boardPosition `json:"destination"`
}

// MoveProject переносит карточку по доске, повторяя событие перетаскивания.
func (h *Handler) MoveProject(w http.ResponseWriter, r *http.Request) {
	expected, err := expectedVersion(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req moveRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Source.Index == nil || req.Destination.Index == nil {
		h.writeError(w, http.StatusBadRequest, "source and destination index are required")
		return
	}

	b, err := h.service.Move(r.Context(),
		service.Position{Status: req.Source.Status, Index: *req.Source.Index},
		service.Position{Status: req.Destination.Status, Index: *req.Destination.Index},
		expected,
	)
	if err != nil {
		h.handleError(w, "move project", err)
		return
	}

	setETag(w, b.Version)
	h.writeJSON(w, http.StatusOK, b)
}

type editRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Tags        json.RawMessage `json:"tags"`
	Status      *string         `json:"status"`
	Image       *string         `json:"imageUrl"`
}

// EditProject применяет правки администратора к проекту.
func (h *Handler) EditProject(w http.ResponseWriter, r *http.Request) {
	expected, err := expectedVersion(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req editRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	tags, err := parseTags(req.Tags)
	if err != nil {
		h.handleError(w, "edit project", err)
		return
	}

	form := validation.ProjectEditForm{
		Title:       trimPtr(req.Title),
		Description: trimPtr(req.Description),
		Tags:        tags,
		Status:      req.Status,
		Image:       trimPtr(req.Image),
	}
	if err := validation.Struct(form); err != nil {
		h.handleError(w, "edit project", err)
		return
	}

	upd := board.ProjectUpdate{
		Title:       form.Title,
		Description: form.Description,
		Tags:        form.Tags,
		Image:       form.Image,
	}
	if form.Status != nil {
		s := model.Status(*form.Status)
		upd.Status = &s
	}

	p, version, err := h.service.EditProject(r.Context(), chi.URLParam(r, "id"), upd, expected)
	if err != nil {
		h.handleError(w, "edit project", err)
		return
	}

	setETag(w, version)
	h.writeJSON(w, http.StatusOK, p)
}

// UploadProjectImage принимает картинку проекта из multipart-поля image.
func (h *Handler) UploadProjectImage(w http.ResponseWriter, r *http.Request) {
	expected, err := expectedVersion(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+maxJSONBody)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, http.StatusRequestEntityTooLarge, "image must not exceed 5 MB")
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageSize {
		h.writeError(w, http.StatusRequestEntityTooLarge, "image must not exceed 5 MB")
		return
	}

	p, version, err := h.service.UploadProjectImage(r.Context(), chi.URLParam(r, "id"), service.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}, expected)
	if err != nil {
		h.handleError(w, "upload project image", err)
		return
	}

	h.logger.Info("project image updated", zap.String("project_id", p.ID))

	setETag(w, version)
	h.writeJSON(w, http.StatusOK, p)
}

// ImportBoard заменяет доску документом из тела запроса.
func (h *Handler) ImportBoard(w http.ResponseWriter, r *http.Request) {
	expected, err := expectedVersion(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var doc model.Board
	r.Body = http.MaxBytesReader(w, r.Body, 8*maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid board document")
		return
	}

	b, err := h.service.ImportBoard(r.Context(), &doc, expected)
	if err != nil {
		h.handleError(w, "import board", err)
		return
	}

	setETag(w, b.Version)
	h.writeJSON(w, http.StatusOK, b)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
