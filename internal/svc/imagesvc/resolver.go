package imagesvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/infra/logging"
)

// resolveState is a position in the pipeline.
type resolveState int

const (
	stateStart resolveState = iota
	stateRemoteUpload
	stateInlineEncode
	stateCompress
	stateLastResort
	stateDone
)

func (state resolveState) String() string {
	switch state {
	case stateStart:
		return "start"
	case stateRemoteUpload:
		return "remote_upload"
	case stateInlineEncode:
		return "inline_encode"
	case stateCompress:
		return "compress"
	case stateLastResort:
		return "last_resort"
	default:
		return "done"
	}
}

// errStagePanic marks a stage that panicked.
var errStagePanic = errors.New("stage panic")

// Resolver drives an ImageSource through remote upload, inline encoding and compression
// and always terminates with a payload.
type Resolver struct {
	uploader   Uploader
	inliner    Inliner
	compressor Compressor
	log        logging.Logger
}

var _ ImageService = (*Resolver)(nil)

// NewResolver creates a Resolver from its stages. A nil uploader skips remote upload.
func NewResolver(uploader Uploader, inliner Inliner, compressor Compressor) *Resolver {
	return &Resolver{
		uploader:   uploader,
		inliner:    inliner,
		compressor: compressor,
		log:        logging.GetLogger("svc.imagesvc.resolver"),
	}
}

// resolution carries the state machine's data between stages.
type resolution struct {
	source    domain.ImageSource
	namespace string
	raw       []byte
	payload   domain.Payload
}

// Resolve implements ImageService. It never fails: stage failures fall through to the
// next stage and the last resort hands back the original source string, which may
// exceed the size limit. A nil or empty source resolves to no payload without calling
// any stage.
func (res *Resolver) Resolve(ctx context.Context, source *string, namespace string) domain.Payload {
	run := &resolution{
		source:    Normalize(source),
		namespace: namespace,
		raw:       nil,
		payload:   domain.NoPayload(),
	}

	log := res.log.With(logging.Group("resolve", "namespace", namespace, "source", run.source.Kind.String()))

	state := stateStart

	for state != stateDone {
		if state != stateStart && state != stateLastResort && ctx.Err() != nil {
			log.WarnContext(ctx, "resolve cancelled", "state", state.String(), logging.Err(ctx.Err()))

			state = stateLastResort
		}

		next, err := res.step(ctx, state, run)
		if err != nil {
			log.WarnContext(ctx, "stage fell through",
				"state", state.String(),
				"next", next.String(),
				logging.Err(err),
			)
		}

		state = next
	}

	if run.payload.Kind == domain.PayloadPassthrough {
		log.WarnContext(ctx, "image resolved by last resort", "size", len(run.payload.Value))
	} else {
		log.DebugContext(ctx, "image resolved", "kind", run.payload.Kind.String(), "size", len(run.payload.Value))
	}

	return run.payload
}

// step runs one state and returns its successor. A panic inside a stage moves to the
// last resort.
func (res *Resolver) step(ctx context.Context, state resolveState, run *resolution) (next resolveState, err error) {
	defer func() {
		if p := recover(); p != nil {
			next, err = stateLastResort, fmt.Errorf("%w: %s: %v", errStagePanic, state, p)
		}
	}()

	switch state {
	case stateStart:
		return res.start(run), nil
	case stateRemoteUpload:
		return res.remoteUpload(ctx, run)
	case stateInlineEncode:
		return res.inlineEncode(ctx, run)
	case stateCompress:
		return res.compress(ctx, run)
	case stateLastResort:
		run.payload = domain.Payload{Kind: domain.PayloadPassthrough, Value: run.source.Raw}

		return stateDone, nil
	default:
		return stateDone, nil
	}
}

func (res *Resolver) start(run *resolution) resolveState {
	switch run.source.Kind {
	case domain.SourceInline:
		return stateInlineEncode
	case domain.SourceLocator:
		if res.uploader == nil {
			return stateInlineEncode
		}

		return stateRemoteUpload
	default:
		return stateDone
	}
}

func (res *Resolver) remoteUpload(ctx context.Context, run *resolution) (resolveState, error) {
	url, err := res.uploader.Upload(ctx, run.source.Raw, run.namespace)
	if err != nil {
		return stateInlineEncode, fmt.Errorf("upload: %w", err)
	}

	run.payload = domain.Payload{Kind: domain.PayloadRemote, Value: url}

	return stateDone, nil
}

func (res *Resolver) inlineEncode(ctx context.Context, run *resolution) (resolveState, error) {
	inline, raw, err := res.inliner.Encode(ctx, run.source)

	switch {
	case err == nil:
		run.payload = domain.Payload{Kind: domain.PayloadInline, Value: inline}

		return stateDone, nil
	case errors.Is(err, domain.ErrTooLarge) && len(raw) > 0:
		run.raw = raw

		return stateCompress, fmt.Errorf("inline encode: %w", err)
	default:
		return stateLastResort, fmt.Errorf("inline encode: %w", err)
	}
}

func (res *Resolver) compress(ctx context.Context, run *resolution) (resolveState, error) {
	compressed, err := res.compressor.Compress(ctx, run.raw)
	if err != nil {
		return stateLastResort, fmt.Errorf("compress: %w", err)
	}

	run.payload = domain.Payload{Kind: domain.PayloadInline, Value: compressed}

	return stateDone, nil
}
