package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/infra/logging"
)

// SQLiteRecordRepositoryConfig holds configuration for the SQLite record repository.
type SQLiteRecordRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/qnasvc.db"`
	// BusyTimeout is how long a connection waits for a locked database
	BusyTimeout time.Duration `env:"BUSY_TIMEOUT" default:"5s"`
}

// SQLiteRecordRepository implements Repository using SQLite as the storage backend.
type SQLiteRecordRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteRecordRepository)(nil)

// NewSQLiteRecordRepository opens the database and creates the schema if needed.
func NewSQLiteRecordRepository(ctx context.Context, cfg SQLiteRecordRepositoryConfig) (*SQLiteRecordRepository, error) {
	log := logging.GetLogger("repo.record.sqlite_record_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	pragmas := url.Values{}
	pragmas.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	pragmas.Add("_pragma", "foreign_keys(1)")
	pragmas.Add("_pragma", "journal_mode(WAL)")

	db, err := sql.Open("sqlite", "file:"+cfg.DatabasePath+"?"+pragmas.Encode())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := initializeSQLiteDB(ctx, db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initialize db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	log.DebugContext(ctx, "database ready")

	return &SQLiteRecordRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeSQLiteDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS questions (
			id         TEXT    PRIMARY KEY,
			text       TEXT    NOT NULL,
			image      TEXT,
			author_id  TEXT,
			created_at INTEGER NOT NULL,
			likes      INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS answers (
			id          TEXT    PRIMARY KEY,
			question_id TEXT    NOT NULL REFERENCES questions (id) ON DELETE CASCADE,
			text        TEXT,
			image       TEXT,
			author_id   TEXT,
			created_at  INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS answers_question_id_created_at ON answers (question_id, created_at);
		CREATE TABLE IF NOT EXISTS question_likes (
			question_id TEXT    NOT NULL REFERENCES questions (id) ON DELETE CASCADE,
			principal   TEXT    NOT NULL,
			created_at  INTEGER NOT NULL,
			PRIMARY KEY (question_id, principal)
		);
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

func sqliteNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func mapSQLiteError(err error) error {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return errors.Join(domain.ErrDuplicateRecord, err)
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return errors.Join(domain.ErrQuestionNotFound, err)
		}
	}

	return err
}

// CreateQuestion implements Repository.CreateQuestion using SQLite.
func (r *SQLiteRecordRepository) CreateQuestion(ctx context.Context, q *domain.Question) (err error) {
	defer func() {
		if err != nil {
			r.log.ErrorContext(ctx, "create question failed", logging.Err(err))
		}
	}()

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	createdAt := sqliteNow()

	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO questions (id, text, image, author_id, created_at, likes) VALUES (?, ?, ?, ?, ?, 0)",
		q.ID, q.Text, q.Image, q.AuthorID, createdAt.UnixMicro(),
	); err != nil {
		return fmt.Errorf("insert question: %w", mapSQLiteError(err))
	}

	q.CreatedAt = createdAt
	q.Likes = 0

	return nil
}

// CreateAnswer implements Repository.CreateAnswer using SQLite.
func (r *SQLiteRecordRepository) CreateAnswer(ctx context.Context, a *domain.Answer) (err error) {
	defer func() {
		if err != nil && !errors.Is(err, domain.ErrQuestionNotFound) {
			r.log.ErrorContext(ctx, "create answer failed", logging.Err(err))
		}
	}()

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	createdAt := sqliteNow()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO answers (id, question_id, text, image, author_id, created_at)
		SELECT ?, id, ?, ?, ?, ? FROM questions WHERE id = ?`,
		a.ID, a.Text, a.Image, a.AuthorID, createdAt.UnixMicro(), a.QuestionID,
	)
	if err != nil {
		return fmt.Errorf("insert answer: %w", mapSQLiteError(err))
	}

	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, a.QuestionID)
	}

	a.CreatedAt = createdAt

	return nil
}

// ListQuestions implements Repository.ListQuestions using SQLite.
func (r *SQLiteRecordRepository) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, text, image, author_id, created_at, likes FROM questions ORDER BY created_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	questions := []domain.Question{}

	for rows.Next() {
		var (
			q         domain.Question
			createdAt int64
		)

		if err := rows.Scan(&q.ID, &q.Text, &q.Image, &q.AuthorID, &createdAt, &q.Likes); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}

		q.CreatedAt = time.UnixMicro(createdAt).UTC()
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	return questions, nil
}

// ListAnswers implements Repository.ListAnswers using SQLite.
func (r *SQLiteRecordRepository) ListAnswers(ctx context.Context, questionID domain.RecordID) ([]domain.Answer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, question_id, text, image, author_id, created_at FROM answers
		WHERE question_id = ? ORDER BY created_at ASC, id ASC`,
		questionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	answers := []domain.Answer{}

	for rows.Next() {
		var (
			a         domain.Answer
			createdAt int64
		)

		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.Image, &a.AuthorID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}

		a.CreatedAt = time.UnixMicro(createdAt).UTC()
		answers = append(answers, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}

	return answers, nil
}

// QuestionExists implements Repository.QuestionExists using SQLite.
func (r *SQLiteRecordRepository) QuestionExists(ctx context.Context, questionID domain.RecordID) (bool, error) {
	var exists bool

	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM questions WHERE id = ?)", questionID,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("query question: %w", err)
	}

	return exists, nil
}

// LikeQuestion implements Repository.LikeQuestion using a SQLite transaction.
func (r *SQLiteRecordRepository) LikeQuestion(
	ctx context.Context,
	questionID domain.RecordID,
	principal string,
) (liked bool, err error) {
	defer func() {
		if err != nil && !errors.Is(err, domain.ErrQuestionNotFound) {
			r.log.ErrorContext(ctx, "like question failed", logging.Err(err))
		}
	}()

	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	//nolint:exhaustruct
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO question_likes (question_id, principal, created_at)
		SELECT id, ?, ? FROM questions WHERE id = ?
		ON CONFLICT (question_id, principal) DO NOTHING`,
		principal, sqliteNow().UnixMicro(), questionID,
	)
	if err != nil {
		return false, fmt.Errorf("insert like: %w", mapSQLiteError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM questions WHERE id = ?)", questionID,
		).Scan(&exists); err != nil {
			return false, fmt.Errorf("query question: %w", err)
		} else if !exists {
			return false, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, questionID)
		}

		return false, nil
	}

	if _, err := tx.ExecContext(ctx, "UPDATE questions SET likes = likes + 1 WHERE id = ?", questionID); err != nil {
		return false, fmt.Errorf("increment likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	return true, nil
}

// HasLiked implements Repository.HasLiked using SQLite.
func (r *SQLiteRecordRepository) HasLiked(ctx context.Context, questionID domain.RecordID, principal string) (bool, error) {
	var liked bool

	if err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM question_likes WHERE question_id = ? AND principal = ?)",
		questionID, principal,
	).Scan(&liked); err != nil {
		return false, fmt.Errorf("query like: %w", err)
	}

	return liked, nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteRecordRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
