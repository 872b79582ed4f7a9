package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/studyhub/internal/domain"
)

// ErrUnknownDriver is returned when the configured record store driver does not exist.
var ErrUnknownDriver = errors.New("unknown record store driver")

// Repository defines the interface for question and answer persistence.
type Repository interface {
	// CreateQuestion stores q and sets q.CreatedAt to the store's timestamp.
	// Likes always start at zero.
	CreateQuestion(ctx context.Context, q *domain.Question) error

	// CreateAnswer stores a and sets a.CreatedAt.
	// Returns domain.ErrQuestionNotFound if the question does not exist.
	CreateAnswer(ctx context.Context, a *domain.Answer) error

	// ListQuestions returns all questions, newest first.
	ListQuestions(ctx context.Context) ([]domain.Question, error)

	// ListAnswers returns the answers of a question, oldest first.
	ListAnswers(ctx context.Context, questionID domain.RecordID) ([]domain.Answer, error)

	// QuestionExists reports whether a question with the given ID exists.
	QuestionExists(ctx context.Context, questionID domain.RecordID) (bool, error)

	// LikeQuestion records one like of principal for the question and bumps its counter
	// in the same transaction. Returns false if the principal liked it before.
	LikeQuestion(ctx context.Context, questionID domain.RecordID, principal string) (bool, error)

	// HasLiked reports whether principal liked the question.
	HasLiked(ctx context.Context, questionID domain.RecordID, principal string) (bool, error)

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryConfig selects and configures the record store backend.
type RepositoryConfig struct {
	// Driver is either "sqlite" or "postgres"
	Driver string `env:"DRIVER" default:"sqlite"`

	SQLite   SQLiteRecordRepositoryConfig   `envPrefix:"SQLITE_"`
	Postgres PostgresRecordRepositoryConfig `envPrefix:"POSTGRES_"`
}

// NewRepository creates the Repository selected by cfg.Driver.
func NewRepository(ctx context.Context, cfg RepositoryConfig) (Repository, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLiteRecordRepository(ctx, cfg.SQLite)
	case "postgres":
		return NewPostgresRecordRepository(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
