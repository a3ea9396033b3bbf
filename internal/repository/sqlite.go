package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/vibes-studio/internal/model"
)

// sqliteParams включают немедленную блокировку записи в начале транзакции
// и ожидание занятой базы вместо мгновенной ошибки SQLITE_BUSY.
const sqliteParams = "_txlock=immediate&_busy_timeout=5000"

// SQLiteRepository хранит доску и заявки в файле SQLite.
type SQLiteRepository struct {
	db *sql.DB
	q  queries
}

// NewSQLiteRepository открывает файл базы и применяет миграции.
func NewSQLiteRepository(dsn string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	r := &SQLiteRepository{
		db: db,
		q:  newQueries(sq.Question, false),
	}

	if err := r.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return r, nil
}

// sqliteDSN приводит путь вида sqlite://vibes.db или vibes.db к URI
// драйвера и добавляет обязательные параметры.
func sqliteDSN(dsn string) string {
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		dsn = strings.TrimPrefix(dsn, prefix)
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteParams
	}
	return dsn + "?" + sqliteParams
}

func (r *SQLiteRepository) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, r.db, "migrations/sqlite"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Close закрывает базу.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// LoadBoard читает доску целиком внутри одной транзакции.
func (r *SQLiteRepository) LoadBoard(ctx context.Context) (*model.Board, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	b, err := r.readBoard(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return b, nil
}

// UpdateBoard применяет fn под блокировкой записи базы.
func (r *SQLiteRepository) UpdateBoard(ctx context.Context, fn BoardMutation) (*model.Board, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	b, err := r.readBoard(ctx, tx)
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

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) readBoard(ctx context.Context, tx *sql.Tx) (*model.Board, error) {
	query, args, err := r.q.selectVersion(true)
	if err != nil {
		return nil, fmt.Errorf("build version query: %w", err)
	}

	var version int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBoardNotInitialized
		}
		return nil, fmt.Errorf("select board version: %w", err)
	}

	query, args, err = r.q.selectProjects()
	if err != nil {
		return nil, fmt.Errorf("build projects query: %w", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
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

func (r *SQLiteRepository) writeBoard(ctx context.Context, tx *sql.Tx, b *model.Board) error {
	query, args, err := r.q.deleteProjects()
	if err != nil {
		return fmt.Errorf("build delete query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete projects: %w", err)
	}

	query, args, err = r.q.insertProjects(b)
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}
	if query != "" {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert projects: %w", err)
		}
	}

	query, args, err = r.q.bumpVersion()
	if err != nil {
		return fmt.Errorf("build version update: %w", err)
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&b.Version); err != nil {
		return fmt.Errorf("bump board version: %w", err)
	}

	return nil
}

// CreateConsultingRequest сохраняет заявку с формы консалтинга.
func (r *SQLiteRepository) CreateConsultingRequest(ctx context.Context, req *model.ConsultingRequest) (int64, error) {
	query, args, err := r.q.insertConsulting(req)
	if err != nil {
		return 0, fmt.Errorf("build insert query: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert consulting request: %w", err)
	}
	return id, nil
}

// ListConsultingRequests возвращает заявки, начиная с самых новых.
func (r *SQLiteRepository) ListConsultingRequests(ctx context.Context) ([]model.ConsultingRequest, error) {
	query, args, err := r.q.selectConsulting()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
