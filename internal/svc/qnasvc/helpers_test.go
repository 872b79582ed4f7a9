package qnasvc_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/repo/record"
)

var errRepo = errors.New("repository error")

// mockRepository is an in-memory record.Repository.
type mockRepository struct {
	mu        sync.Mutex
	questions []domain.Question
	answers   []domain.Answer
	likes     map[string]bool
	err       error
	clock     time.Time
}

var _ record.Repository = (*mockRepository)(nil)

func newMockRepository() *mockRepository {
	return &mockRepository{likes: map[string]bool{}, clock: time.Unix(1_700_000_000, 0)}
}

func (m *mockRepository) tick() time.Time {
	m.clock = m.clock.Add(time.Second)

	return m.clock
}

func (m *mockRepository) CreateQuestion(_ context.Context, q *domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	q.CreatedAt = m.tick()
	m.questions = append(m.questions, *q)

	return nil
}

func (m *mockRepository) CreateAnswer(_ context.Context, a *domain.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}

	if !m.exists(a.QuestionID) {
		return domain.ErrQuestionNotFound
	}

	a.CreatedAt = m.tick()
	m.answers = append(m.answers, *a)

	return nil
}

func (m *mockRepository) ListQuestions(context.Context) ([]domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	questions := slices.Clone(m.questions)
	slices.Reverse(questions)

	return questions, nil
}

func (m *mockRepository) ListAnswers(_ context.Context, questionID domain.RecordID) ([]domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	var answers []domain.Answer

	for _, a := range m.answers {
		if a.QuestionID == questionID {
			answers = append(answers, a)
		}
	}

	return answers, nil
}

func (m *mockRepository) QuestionExists(_ context.Context, questionID domain.RecordID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}

	return m.exists(questionID), nil
}

func (m *mockRepository) exists(questionID domain.RecordID) bool {
	return slices.ContainsFunc(m.questions, func(q domain.Question) bool { return q.ID == questionID })
}

func (m *mockRepository) LikeQuestion(_ context.Context, questionID domain.RecordID, principal string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}

	idx := slices.IndexFunc(m.questions, func(q domain.Question) bool { return q.ID == questionID })
	if idx < 0 {
		return false, domain.ErrQuestionNotFound
	}

	key := questionID.String() + "/" + principal
	if m.likes[key] {
		return false, nil
	}

	m.likes[key] = true
	m.questions[idx].Likes++

	return true, nil
}

func (m *mockRepository) HasLiked(_ context.Context, questionID domain.RecordID, principal string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return false, m.err
	}

	return m.likes[questionID.String()+"/"+principal], nil
}

func (m *mockRepository) Close() error {
	return nil
}

// mockImages resolves every image to a fixed payload and records the namespaces.
type mockImages struct {
	mu         sync.Mutex
	payload    domain.Payload
	namespaces []string
}

func (m *mockImages) Resolve(_ context.Context, source *string, namespace string) domain.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()

	if source == nil || *source == "" {
		return domain.NoPayload()
	}

	m.namespaces = append(m.namespaces, namespace)

	return m.payload
}

func ptr(s string) *string {
	return &s
}
