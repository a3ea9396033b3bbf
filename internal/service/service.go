// Package service реализует бизнес-логику сайта Vibes Studios: приём платежей,
// доску проектов, заявки на консалтинг и вход администратора.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/vibes-studio/internal/catalog"
	"github.com/mmeshcher/vibes-studio/internal/model"
	"github.com/mmeshcher/vibes-studio/internal/payment"
	"github.com/mmeshcher/vibes-studio/internal/repository"
)

var (
	// ErrVersionConflict возвращается, если версия доски не совпала с ожидаемой клиентом.
	ErrVersionConflict = errors.New("board version conflict")
	// ErrInvalidAmount возвращается для нулевой, отрицательной или нечисловой суммы.
	ErrInvalidAmount = errors.New("invalid payment amount")
	// ErrAmountTooLarge возвращается для суммы больше лимита провайдера.
	ErrAmountTooLarge = fmt.Errorf("%w: exceeds the processor limit", ErrInvalidAmount)
	// ErrPaymentFailed возвращается, если платёжный провайдер не создал намерение.
	ErrPaymentFailed = errors.New("payment intent creation failed")
	// ErrPaymentsDisabled возвращается, если ключ Stripe не настроен.
	ErrPaymentsDisabled = errors.New("payments are not configured")
	// ErrInvalidCredentials возвращается при неверном пароле администратора.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAdminDisabled возвращается, если пароль администратора не задан.
	ErrAdminDisabled = errors.New("admin login is not configured")
	// ErrUploadsDisabled возвращается, если хранилище картинок не настроено.
	ErrUploadsDisabled = errors.New("image uploads are not configured")
	// ErrInvalidImage возвращается для файла, который не является картинкой.
	ErrInvalidImage = errors.New("file is not an image")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	LoadBoard(ctx context.Context) (*model.Board, error)
	UpdateBoard(ctx context.Context, fn repository.BoardMutation) (*model.Board, error)
	CreateConsultingRequest(ctx context.Context, req *model.ConsultingRequest) (int64, error)
	ListConsultingRequests(ctx context.Context) ([]model.ConsultingRequest, error)
}

// PaymentProcessor создаёт платёжные намерения у провайдера.
type PaymentProcessor interface {
	CreateIntent(ctx context.Context, amountCents int64, email, idempotencyKey string) (*payment.Intent, error)
}

// ImageUploader сохраняет картинку и возвращает её публичный адрес.
type ImageUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// Notifier доставляет текстовые уведомления команде.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Options задаёт зависимости сервиса. Nil-поля отключают соответствующую функцию.
type Options struct {
	Payments          PaymentProcessor
	Images            ImageUploader
	Notifier          Notifier
	Catalog           *catalog.Catalog
	AdminPasswordHash []byte
	IdempotencyWindow time.Duration
	Logger            *zap.Logger
	Now               func() time.Time
}

// Service содержит бизнес-логику сайта.
type Service struct {
	repo      Repository
	payments  PaymentProcessor
	images    ImageUploader
	notifier  Notifier
	catalog   *catalog.Catalog
	adminHash []byte
	window    time.Duration
	logger    *zap.Logger
	now       func() time.Time

	events chan string
}

const notificationQueueSize = 64

// NewService создаёт новый сервис с указанным репозиторием и зависимостями.
func NewService(repo Repository, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		repo:      repo,
		payments:  opts.Payments,
		images:    opts.Images,
		notifier:  opts.Notifier,
		catalog:   opts.Catalog,
		adminHash: opts.AdminPasswordHash,
		window:    opts.IdempotencyWindow,
		logger:    logger,
		now:       now,
		events:    make(chan string, notificationQueueSize),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// PaymentsEnabled сообщает, настроен ли платёжный провайдер.
func (s *Service) PaymentsEnabled() bool {
	return s.payments != nil
}

// Pricing возвращает прайс-лист студии.
func (s *Service) Pricing() *catalog.Catalog {
	return s.catalog
}
