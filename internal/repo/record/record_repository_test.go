//go:build integration || all

package record_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/repo/record"
)

func ptr(s string) *string {
	return &s
}

func newQuestion(t *testing.T, text string) *domain.Question {
	t.Helper()

	id, err := domain.NewRecordID()
	if err != nil {
		t.Fatalf("NewRecordID() error = %v", err)
	}

	//nolint:exhaustruct
	return &domain.Question{ID: id, Text: text, Image: ptr("data:image/jpeg;base64,AAAA"), AuthorID: ptr("user-1")}
}

func newAnswer(t *testing.T, questionID domain.RecordID, text *string) *domain.Answer {
	t.Helper()

	id, err := domain.NewRecordID()
	if err != nil {
		t.Fatalf("NewRecordID() error = %v", err)
	}

	//nolint:exhaustruct
	return &domain.Answer{ID: id, QuestionID: questionID, Text: text}
}

// testRepository runs the behavior every Repository implementation shares.
//
//nolint:funlen,cyclop
func testRepository(t *testing.T, repo record.Repository) {
	t.Helper()

	ctx := context.Background()

	t.Run("questions newest first", func(t *testing.T) {
		first, second := newQuestion(t, "first"), newQuestion(t, "second")

		for _, q := range []*domain.Question{first, second} {
			if err := repo.CreateQuestion(ctx, q); err != nil {
				t.Fatalf("CreateQuestion() error = %v", err)
			}

			if q.CreatedAt.IsZero() {
				t.Error("CreatedAt not assigned")
			}
		}

		questions, err := repo.ListQuestions(ctx)
		if err != nil {
			t.Fatalf("ListQuestions() error = %v", err)
		}

		index := map[domain.RecordID]int{}
		for i, q := range questions {
			index[q.ID] = i
		}

		if index[second.ID] >= index[first.ID] {
			t.Errorf("second question at %d, first at %d", index[second.ID], index[first.ID])
		}

		got := questions[index[first.ID]]
		if got.Text != "first" || got.Image == nil || *got.Image != *first.Image || got.Likes != 0 {
			t.Errorf("stored question = %+v", got)
		}
	})

	t.Run("answers oldest first with nullable fields", func(t *testing.T) {
		q := newQuestion(t, "with answers")
		if err := repo.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("CreateQuestion() error = %v", err)
		}

		answers := []*domain.Answer{
			newAnswer(t, q.ID, ptr("one")),
			newAnswer(t, q.ID, nil),
			newAnswer(t, q.ID, ptr("three")),
		}
		answers[1].Image = ptr("https://store/x.jpg")

		for _, a := range answers {
			if err := repo.CreateAnswer(ctx, a); err != nil {
				t.Fatalf("CreateAnswer() error = %v", err)
			}
		}

		got, err := repo.ListAnswers(ctx, q.ID)
		if err != nil {
			t.Fatalf("ListAnswers() error = %v", err)
		}

		if len(got) != len(answers) {
			t.Fatalf("ListAnswers() returned %d answers, want %d", len(got), len(answers))
		}

		for i := range answers {
			if got[i].ID != answers[i].ID {
				t.Errorf("answer %d = %s, want %s", i, got[i].ID, answers[i].ID)
			}
		}

		if got[1].Text != nil || got[1].Image == nil || got[1].AuthorID != nil {
			t.Errorf("nullable fields = %+v", got[1])
		}
	})

	t.Run("answer to missing question", func(t *testing.T) {
		err := repo.CreateAnswer(ctx, newAnswer(t, "missing", ptr("orphan")))
		if !errors.Is(err, domain.ErrQuestionNotFound) {
			t.Errorf("CreateAnswer() error = %v, want ErrQuestionNotFound", err)
		}

		exists, err := repo.QuestionExists(ctx, "missing")
		if err != nil || exists {
			t.Errorf("QuestionExists() = %v, %v", exists, err)
		}
	})

	t.Run("duplicate question id", func(t *testing.T) {
		q := newQuestion(t, "dup")
		if err := repo.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("CreateQuestion() error = %v", err)
		}

		if err := repo.CreateQuestion(ctx, q); !errors.Is(err, domain.ErrDuplicateRecord) {
			t.Errorf("CreateQuestion() error = %v, want ErrDuplicateRecord", err)
		}
	})

	t.Run("likes are counted once per principal", func(t *testing.T) {
		q := newQuestion(t, "likeable")
		if err := repo.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("CreateQuestion() error = %v", err)
		}

		var wg sync.WaitGroup

		for i := range 5 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				if _, err := repo.LikeQuestion(ctx, q.ID, fmt.Sprintf("user-%d", i%2)); err != nil {
					t.Errorf("LikeQuestion() error = %v", err)
				}
			}()
		}

		wg.Wait()

		liked, err := repo.LikeQuestion(ctx, q.ID, "user-0")
		if err != nil || liked {
			t.Errorf("repeated LikeQuestion() = %v, %v", liked, err)
		}

		for principal, want := range map[string]bool{"user-0": true, "user-1": true, "user-2": false} {
			if got, err := repo.HasLiked(ctx, q.ID, principal); err != nil || got != want {
				t.Errorf("HasLiked(%s) = %v, %v, want %v", principal, got, err, want)
			}
		}

		questions, err := repo.ListQuestions(ctx)
		if err != nil {
			t.Fatalf("ListQuestions() error = %v", err)
		}

		for _, got := range questions {
			if got.ID == q.ID && got.Likes != 2 {
				t.Errorf("likes = %d, want 2", got.Likes)
			}
		}

		if _, err := repo.LikeQuestion(ctx, "missing", "user-0"); !errors.Is(err, domain.ErrQuestionNotFound) {
			t.Errorf("LikeQuestion(missing) error = %v, want ErrQuestionNotFound", err)
		}
	})
}
