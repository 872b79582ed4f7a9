package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mkrupp/studyhub/internal/util/encoding"
)

var (
	// ErrNoRecordID is returned when a record ID is required but not provided.
	ErrNoRecordID = errors.New("no record ID")
	// ErrQuestionNotFound is returned when answering or liking a question that does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrEmptySubmission is returned for submissions without text and without image.
	ErrEmptySubmission = errors.New("empty submission")
	// ErrDuplicateRecord is returned when a record ID is already taken.
	ErrDuplicateRecord = errors.New("duplicate record")
)

// RecordID identifies a question or answer document.
// It is the Crockford Base32 encoding of a UUIDv7, so IDs sort by creation time.
type RecordID string

// NewRecordID generates a fresh, time-ordered RecordID.
func NewRecordID() (RecordID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new uuid: %w", err)
	}

	return RecordID(encoding.EncodeCrockfordB32LC(id[:])), nil
}

// String returns the string representation of the RecordID.
func (id RecordID) String() string {
	return string(id)
}

// Question is a posted question as stored in the document store.
type Question struct {
	ID        RecordID  `json:"id"`
	Text      string    `json:"text"`
	Image     *string   `json:"imageBase64"`
	AuthorID  *string   `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int64     `json:"likes"`
}

// Answer is a reply to a Question.
type Answer struct {
	ID         RecordID  `json:"id"`
	QuestionID RecordID  `json:"questionId"`
	Text       *string   `json:"text"`
	Image      *string   `json:"imageBase64"`
	AuthorID   *string   `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RecordIDResponse is returned after a record was created.
type RecordIDResponse struct {
	ID string `json:"id"`
}

// LikeResponse reports whether the caller liked a question.
type LikeResponse struct {
	Liked bool `json:"liked"`
}

// QuestionRequest is the body of a question submission. Image is an inline data URL or
// a locator; it is resolved before the record is written.
type QuestionRequest struct {
	Text  string  `json:"text"`
	Image *string `json:"image"`
}

// AnswerRequest is the body of an answer submission. Text or Image must be set.
type AnswerRequest struct {
	Text  *string `json:"text"`
	Image *string `json:"image"`
}
