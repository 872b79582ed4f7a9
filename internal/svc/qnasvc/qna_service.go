// Package qnasvc implements question and answer submission on top of the record store
// and the image pipeline.
package qnasvc

import (
	"context"

	"github.com/mkrupp/studyhub/internal/domain"
)

// QuestionsNamespace scopes the storage of question images.
const QuestionsNamespace = "questions"

// QnAService defines the operations behind the Q&A screens.
type QnAService interface {
	// PostQuestion stores a new question authored by the request principal, if any.
	// Returns domain.ErrEmptySubmission when neither text nor image is given.
	PostQuestion(ctx context.Context, text string, image *string) (domain.RecordID, error)

	// PostAnswer stores an answer to an existing question.
	// Returns domain.ErrQuestionNotFound for unknown questions and
	// domain.ErrEmptySubmission when neither text nor image is given.
	PostAnswer(ctx context.Context, questionID domain.RecordID, text, image *string) (domain.RecordID, error)

	// ListQuestions returns all questions, newest first.
	ListQuestions(ctx context.Context) ([]domain.Question, error)

	// ListAnswers returns the answers of a question, oldest first.
	ListAnswers(ctx context.Context, questionID domain.RecordID) ([]domain.Answer, error)

	// LikeQuestion likes a question on behalf of the request principal and reports
	// whether the like was new. Returns domain.ErrUnauthorized without a principal.
	LikeQuestion(ctx context.Context, questionID domain.RecordID) (bool, error)

	// HasLiked reports whether the request principal liked the question. It is false
	// for anonymous requests.
	HasLiked(ctx context.Context, questionID domain.RecordID) (bool, error)
}

// AnswersNamespace scopes the storage of the answer images of a question.
func AnswersNamespace(questionID domain.RecordID) string {
	return QuestionsNamespace + "/" + questionID.String() + "/answers"
}
