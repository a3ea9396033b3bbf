// Package repository содержит хранилища доски проектов и заявок:
// PostgreSQL для продакшена и встроенную SQLite для одиночной установки.
package repository

import (
	"context"
	"embed"
	"errors"
	"strings"

	"github.com/mmeshcher/vibes-studio/internal/model"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

var (
	// ErrBoardNotInitialized возвращается, если в хранилище нет строки состояния доски.
	ErrBoardNotInitialized = errors.New("board state is not initialized")
	// ErrUnsupportedDSN возвращается для строки подключения неизвестного вида.
	ErrUnsupportedDSN = errors.New("unsupported database uri")
)

// BoardMutation применяет изменение к загруженной доске и сообщает, изменилась ли она.
// Если changed == false, документ не записывается и версия не растёт.
type BoardMutation func(b *model.Board) (changed bool, err error)

// Store описывает общий контракт хранилищ.
type Store interface {
	Close() error
	LoadBoard(ctx context.Context) (*model.Board, error)
	UpdateBoard(ctx context.Context, fn BoardMutation) (*model.Board, error)
	CreateConsultingRequest(ctx context.Context, req *model.ConsultingRequest) (int64, error)
	ListConsultingRequests(ctx context.Context) ([]model.ConsultingRequest, error)
}

// Open выбирает хранилище по строке подключения: postgres:// и postgresql://
// открывают PostgreSQL, всё остальное считается путём к файлу SQLite.
func Open(dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresRepository(dsn)
	case dsn == "":
		return nil, ErrUnsupportedDSN
	default:
		return NewSQLiteRepository(dsn)
	}
}
