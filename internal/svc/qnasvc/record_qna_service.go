package qnasvc

import (
	"context"
	"fmt"

	"github.com/mkrupp/studyhub/internal/domain"
	context_ "github.com/mkrupp/studyhub/internal/infra/context"
	"github.com/mkrupp/studyhub/internal/infra/logging"
	"github.com/mkrupp/studyhub/internal/repo/record"
	"github.com/mkrupp/studyhub/internal/svc/imagesvc"
)

// RecordQnAService implements QnAService on a record.Repository. Images are resolved
// through an imagesvc.ImageService and never fail a submission.
type RecordQnAService struct {
	records record.Repository
	images  imagesvc.ImageService
	log     logging.Logger
}

var _ QnAService = (*RecordQnAService)(nil)

// NewRecordQnAService creates a RecordQnAService.
func NewRecordQnAService(records record.Repository, images imagesvc.ImageService) *RecordQnAService {
	return &RecordQnAService{
		records: records,
		images:  images,
		log:     logging.GetLogger("svc.qnasvc.record_qna_service"),
	}
}

func (s *RecordQnAService) PostQuestion(ctx context.Context, text string, image *string) (id domain.RecordID, err error) {
	log := s.log

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "post question failed", logging.Err(err))
		} else {
			log.InfoContext(ctx, "question posted")
		}
	}()

	if text == "" && isEmpty(image) {
		return "", domain.ErrEmptySubmission
	}

	id, err = domain.NewRecordID()
	if err != nil {
		return "", fmt.Errorf("new record id: %w", err)
	}

	payload := s.images.Resolve(ctx, image, QuestionsNamespace)

	log = log.With(logging.Group("question", "id", id, "image", payload.Kind.String()))

	//nolint:exhaustruct
	question := &domain.Question{
		ID:       id,
		Text:     text,
		Image:    payload.Field(),
		AuthorID: authorID(ctx),
		Likes:    0,
	}

	if err := s.records.CreateQuestion(ctx, question); err != nil {
		return "", fmt.Errorf("create question: %w", err)
	}

	return id, nil
}

func (s *RecordQnAService) PostAnswer(
	ctx context.Context,
	questionID domain.RecordID,
	text, image *string,
) (id domain.RecordID, err error) {
	log := s.log.With(logging.Group("answer", "question_id", questionID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "post answer failed", logging.Err(err))
		} else {
			log.InfoContext(ctx, "answer posted")
		}
	}()

	if questionID == "" {
		return "", domain.ErrNoRecordID
	}

	if isEmpty(text) && isEmpty(image) {
		return "", domain.ErrEmptySubmission
	}

	// Checked before the image is resolved so unknown questions leave no stored objects.
	exists, err := s.records.QuestionExists(ctx, questionID)
	if err != nil {
		return "", fmt.Errorf("question exists: %w", err)
	} else if !exists {
		return "", domain.ErrQuestionNotFound
	}

	id, err = domain.NewRecordID()
	if err != nil {
		return "", fmt.Errorf("new record id: %w", err)
	}

	payload := s.images.Resolve(ctx, image, AnswersNamespace(questionID))

	log = log.With("answer_id", id, "image", payload.Kind.String())

	//nolint:exhaustruct
	answer := &domain.Answer{
		ID:         id,
		QuestionID: questionID,
		Text:       text,
		Image:      payload.Field(),
		AuthorID:   authorID(ctx),
	}

	if err := s.records.CreateAnswer(ctx, answer); err != nil {
		return "", fmt.Errorf("create answer: %w", err)
	}

	return id, nil
}

func (s *RecordQnAService) ListQuestions(ctx context.Context) (questions []domain.Question, err error) {
	defer func() {
		if err != nil {
			s.log.ErrorContext(ctx, "list questions failed", logging.Err(err))
		} else {
			s.log.DebugContext(ctx, "questions listed", "count", len(questions))
		}
	}()

	questions, err = s.records.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	return questions, nil
}

func (s *RecordQnAService) ListAnswers(ctx context.Context, questionID domain.RecordID) (answers []domain.Answer, err error) {
	log := s.log.With(logging.Group("question", "id", questionID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "list answers failed", logging.Err(err))
		} else {
			log.DebugContext(ctx, "answers listed", "count", len(answers))
		}
	}()

	exists, err := s.records.QuestionExists(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("question exists: %w", err)
	} else if !exists {
		return nil, domain.ErrQuestionNotFound
	}

	answers, err = s.records.ListAnswers(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	return answers, nil
}

func (s *RecordQnAService) LikeQuestion(ctx context.Context, questionID domain.RecordID) (liked bool, err error) {
	log := s.log.With(logging.Group("question", "id", questionID))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "like question failed", logging.Err(err))
		} else {
			log.DebugContext(ctx, "question liked", "new", liked)
		}
	}()

	principal, ok := context_.PrincipalFromContext(ctx)
	if !ok {
		return false, domain.ErrUnauthorized
	}

	liked, err = s.records.LikeQuestion(ctx, questionID, principal)
	if err != nil {
		return false, fmt.Errorf("like question: %w", err)
	}

	return liked, nil
}

func (s *RecordQnAService) HasLiked(ctx context.Context, questionID domain.RecordID) (bool, error) {
	principal, ok := context_.PrincipalFromContext(ctx)
	if !ok {
		return false, nil
	}

	liked, err := s.records.HasLiked(ctx, questionID, principal)
	if err != nil {
		s.log.ErrorContext(ctx, "has liked failed", logging.Group("question", "id", questionID), logging.Err(err))

		return false, fmt.Errorf("has liked: %w", err)
	}

	return liked, nil
}

func authorID(ctx context.Context) *string {
	principal, ok := context_.PrincipalFromContext(ctx)
	if !ok {
		return nil
	}

	return &principal
}

func isEmpty(s *string) bool {
	return s == nil || *s == ""
}
