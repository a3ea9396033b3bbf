package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/vibes-studio/internal/model"
)

// PostgresRepository хранит доску и заявки в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
	q    queries
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{
		pool: pool,
		q:    newQueries(sq.Dollar, true),
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations/postgres"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 1 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// LoadBoard читает доску целиком из согласованного снимка.
func (r *PostgresRepository) LoadBoard(ctx context.Context) (*model.Board, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := r.readBoard(ctx, tx, false)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return b, nil
}

// UpdateBoard блокирует строку состояния доски, загружает документ, применяет fn
// и записывает документ целиком с увеличением версии.
func (r *PostgresRepository) UpdateBoard(ctx context.Context, fn BoardMutation) (*model.Board, error) {
	var result *model.Board

	err := r.withRetry(ctx, func() error {
		b, err := r.updateBoardTx(ctx, fn)
		if err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) updateBoardTx(ctx context.Context, fn BoardMutation) (*model.Board, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	b, err := r.readBoard(ctx, tx, true)
	if err != nil {
		return nil, err
	}

	changed, err := fn(b)
	if err != nil {
		return nil, err
	}
	if !changed {
		return b, nil
	}

	if err := r.writeBoard(ctx, tx, b); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return b, nil
}

func (r *PostgresRepository) readBoard(ctx context.Context, tx pgx.Tx, forUpdate bool) (*model.Board, error) {
	query, args, err := r.q.selectVersion(forUpdate)
	if err != nil {
		return nil, fmt.Errorf("build version query: %w", err)
	}

	var version int64
	if err := tx.QueryRow(ctx, query, args...).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBoardNotInitialized
		}
		return nil, fmt.Errorf("select board version: %w", err)
	}

	query, args, err = r.q.selectProjects()
	if err != nil {
		return nil, fmt.Errorf("build projects query: %w", err)
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select projects: %w", err)
	}
	defer rows.Close()

	b := emptyBoard(version)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		if err := appendProject(b, p); err != nil {
			return nil, err
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return b, nil
}

func (r *PostgresRepository) writeBoard(ctx context.Context, tx pgx.Tx, b *model.Board) error {
	query, args, err := r.q.deleteProjects()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete projects: %w", err)
	}

	query, args, err = r.q.insertProjects(b)
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}
	if query != "" {
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert projects: %w", err)
		}
	}

	query, args, err = r.q.bumpVersion()
	if err != nil {
		return fmt.Errorf("build version update: %w", err)
	}
	if err := tx.QueryRow(ctx, query, args...).Scan(&b.Version); err != nil {
		return fmt.Errorf("bump board version: %w", err)
	}

	return nil
}

// CreateConsultingRequest сохраняет заявку с формы консалтинга.
func (r *PostgresRepository) CreateConsultingRequest(ctx context.Context, req *model.ConsultingRequest) (int64, error) {
	query, args, err := r.q.insertConsulting(req)
	if err != nil {
		return 0, fmt.Errorf("build insert query: %w", err)
	}

	var id int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert consulting request: %w", err)
	}
	return id, nil
}

// ListConsultingRequests возвращает заявки, начиная с самых новых.
func (r *PostgresRepository) ListConsultingRequests(ctx context.Context) ([]model.ConsultingRequest, error) {
	query, args, err := r.q.selectConsulting()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select consulting requests: %w", err)
	}
	defer rows.Close()

	var res []model.ConsultingRequest
	for rows.Next() {
		req, err := scanConsulting(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
