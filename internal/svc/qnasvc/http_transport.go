package qnasvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/infra/logging"
	http_ "github.com/mkrupp/studyhub/internal/infra/transport/http"
)

// HTTPTransportConfig contains configuration parameters for the Q&A HTTP transport.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig

	// MaxBodyBytes caps submission bodies; inline images are carried in the body
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" default:"16777216"`
}

// HTTPTransport serves the Q&A API:
//   - POST /questions, GET /questions
//   - POST /questions/{question_id}/answers, GET /questions/{question_id}/answers
//   - POST /questions/{question_id}/likes, GET /questions/{question_id}/likes
//
// Requests under /media/ are handed to the media handler.
type HTTPTransport struct {
	qnaSvc  QnAService
	handler http.Handler
	log     logging.Logger
	cfg     HTTPTransportConfig
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport. media may be nil to serve no media.
// With a non-nil validator, bearer tokens are resolved into request principals;
// requests without a token stay anonymous.
func NewHTTPTransport(
	qnaSvc QnAService,
	media http.Handler,
	validator http_.TokenValidator,
	cfg HTTPTransportConfig,
) *HTTPTransport {
	ht := &HTTPTransport{
		qnaSvc:  qnaSvc,
		handler: nil,
		log:     logging.GetLogger("svc.qnasvc.http_transport"),
		cfg:     cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /questions", ht.HandlePostQuestion)
	mux.HandleFunc("GET /questions", ht.HandleListQuestions)
	mux.HandleFunc("POST /questions/{question_id}/answers", ht.HandlePostAnswer)
	mux.HandleFunc("GET /questions/{question_id}/answers", ht.HandleListAnswers)
	mux.HandleFunc("POST /questions/{question_id}/likes", ht.HandleLike)
	mux.HandleFunc("GET /questions/{question_id}/likes", ht.HandleHasLiked)

	if media != nil {
		mux.Handle("/media/", media)
	}

	ht.handler = mux
	if validator != nil {
		ht.handler = http_.AuthorizingMiddleware(mux, validator, ht.log)
	}

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.handler.ServeHTTP(w, r)
}

// HandlePostQuestion creates a question from a JSON QuestionRequest and answers 201
// with its ID.
func (ht *HTTPTransport) HandlePostQuestion(w http.ResponseWriter, r *http.Request) {
	_ = ht.handlePostQuestion(w, r)
}

func (ht *HTTPTransport) handlePostQuestion(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "post question request failed", logging.Err(err))
		}
	}(r.Context())

	var req domain.QuestionRequest
	if err := ht.decode(w, r, &req); err != nil {
		return err
	}

	id, err := ht.qnaSvc.PostQuestion(r.Context(), req.Text, req.Image)
	if err != nil {
		writeError(w, err)

		return fmt.Errorf("post question: %w", err)
	}

	return writeJSON(w, http.StatusCreated, domain.RecordIDResponse{ID: id.String()})
}

// HandleListQuestions lists all questions, newest first.
func (ht *HTTPTransport) HandleListQuestions(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleListQuestions(w, r)
}

func (ht *HTTPTransport) handleListQuestions(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "list questions request failed", logging.Err(err))
		}
	}(r.Context())

	questions, err := ht.qnaSvc.ListQuestions(r.Context())
	if err != nil {
		writeError(w, err)

		return fmt.Errorf("list questions: %w", err)
	}

	if questions == nil {
		questions = []domain.Question{}
	}

	return writeJSON(w, http.StatusOK, questions)
}

// HandlePostAnswer creates an answer from a JSON AnswerRequest and answers 201 with its ID.
func (ht *HTTPTransport) HandlePostAnswer(w http.ResponseWriter, r *http.Request) {
	_ = ht.handlePostAnswer(w, r)
}

func (ht *HTTPTransport) handlePostAnswer(w http.ResponseWriter, r *http.Request) (err error) {
	questionID := domain.RecordID(r.PathValue("question_id"))
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "post answer request failed", logging.Err(err))
		}
	}(r.Context())

	var req domain.AnswerRequest
	if err := ht.decode(w, r, &req); err != nil {
		return err
	}

	id, err := ht.qnaSvc.PostAnswer(r.Context(), questionID, req.Text, req.Image)
	if err != nil {
		writeError(w, err)

		return fmt.Errorf("post answer: %w", err)
	}

	return writeJSON(w, http.StatusCreated, domain.RecordIDResponse{ID: id.String()})
}

// HandleListAnswers lists the answers of a question, oldest first.
func (ht *HTTPTransport) HandleListAnswers(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleListAnswers(w, r)
}

func (ht *HTTPTransport) handleListAnswers(w http.ResponseWriter, r *http.Request) (err error) {
	questionID := domain.RecordID(r.PathValue("question_id"))
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "list answers request failed", logging.Err(err))
		}
	}(r.Context())

	answers, err := ht.qnaSvc.ListAnswers(r.Context(), questionID)
	if err != nil {
		writeError(w, err)

		return fmt.Errorf("list answers: %w", err)
	}

	if answers == nil {
		answers = []domain.Answer{}
	}

	return writeJSON(w, http.StatusOK, answers)
}

// HandleLike likes a question for the authenticated caller. The response tells whether
// the like was new.
func (ht *HTTPTransport) HandleLike(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLike(w, r)
}

func (ht *HTTPTransport) handleLike(w http.ResponseWriter, r *http.Request) (err error) {
	questionID := domain.RecordID(r.PathValue("question_id"))
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "like request failed", logging.Err(err))
		}
	}(r.Context())

	liked, err := ht.qnaSvc.LikeQuestion(r.Context(), questionID)
	if err != nil {
		writeError(w, err)

		return fmt.Errorf("like question: %w", err)
	}

	return writeJSON(w, http.StatusOK, domain.LikeResponse{Liked: liked})
}

// HandleHasLiked reports whether the caller liked a question.
func (ht *HTTPTransport) HandleHasLiked(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleHasLiked(w, r)
}

func (ht *HTTPTransport) handleHasLiked(w http.ResponseWriter, r *http.Request) (err error) {
	questionID := domain.RecordID(r.PathValue("question_id"))
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.WarnContext(ctx, "has liked request failed", logging.Err(err))
		}
	}(r.Context())

	liked, err := ht.qnaSvc.HasLiked(r.Context(), questionID)
	if err != nil {
		writeError(w, err)

		return fmt.Errorf("has liked: %w", err)
	}

	return writeJSON(w, http.StatusOK, domain.LikeResponse{Liked: liked})
}

func (ht *HTTPTransport) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, ht.cfg.MaxBodyBytes)

	if err := json.NewDecoder(body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		} else {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		}

		return fmt.Errorf("decode request: %w", err)
	}

	return nil
}

func writeError(w http.ResponseWriter, err error) {
	var status int

	switch {
	case errors.Is(err, domain.ErrEmptySubmission), errors.Is(err, domain.ErrNoRecordID):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrQuestionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateRecord):
		status = http.StatusConflict
	default:
		status = http.StatusInternalServerError
	}

	http.Error(w, http.StatusText(status), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}
