package imagesvc

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/mkrupp/studyhub/internal/domain"
	"github.com/mkrupp/studyhub/internal/infra/logging"
	"github.com/mkrupp/studyhub/internal/repo/object"
	"github.com/mkrupp/studyhub/internal/svc/authclient"
	"github.com/mkrupp/studyhub/internal/util/encoding"
)

const storageNameSuffixLength = 6

// Uploader persists the bytes behind a locator and returns a retrieval URL.
type Uploader interface {
	Upload(ctx context.Context, locator string, namespace string) (string, error)
}

// RemoteUploader implements Uploader on an object.Store. Objects are written to
// <namespace>/<principal>/<unix-millis>-<random>.<ext>.
type RemoteUploader struct {
	principals authclient.PrincipalProvider
	reader     ByteReader
	store      object.Store
	timeout    time.Duration
	now        func() time.Time
	log        logging.Logger
}

var _ Uploader = (*RemoteUploader)(nil)

// NewRemoteUploader creates a RemoteUploader. principals may be nil, in which case every
// write is scoped to the anonymous principal.
func NewRemoteUploader(
	principals authclient.PrincipalProvider,
	reader ByteReader,
	store object.Store,
	cfg PipelineConfig,
) *RemoteUploader {
	return &RemoteUploader{
		principals: principals,
		reader:     reader,
		store:      store,
		timeout:    cfg.UploadTimeout,
		now:        time.Now,
		log:        logging.GetLogger("svc.imagesvc.remote_uploader"),
	}
}

// Upload implements Uploader. The whole stage, principal lookup included, is bounded by
// the configured upload timeout; expiry is reported as an ordinary failure.
func (up *RemoteUploader) Upload(ctx context.Context, locator string, namespace string) (url string, err error) {
	if up.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, up.timeout)
		defer cancel()
	}

	var key domain.ObjectKey

	defer func() {
		log := up.log.With(logging.Group("upload", "namespace", namespace, "key", key))
		if err != nil {
			log.WarnContext(ctx, "remote upload failed", logging.Err(err))
		} else {
			log.DebugContext(ctx, "remote upload done")
		}
	}()

	principal := up.ensurePrincipal(ctx)

	data, err := up.reader.ReadBytes(ctx, locator)
	if err != nil {
		return "", fmt.Errorf("read bytes: %w", err)
	}

	contentType, ext, ok := detectImageType(data)
	if !ok {
		return "", notAnImage(data)
	}

	name, err := up.storageName(ext)
	if err != nil {
		return "", fmt.Errorf("storage name: %w", err)
	}

	key = domain.ObjectKey(path.Join(namespace, principal, name))

	if err := up.store.Put(ctx, key, contentType, data); err != nil {
		return "", fmt.Errorf("put: %w", err)
	}

	url, err = up.store.URL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("url: %w", err)
	}

	return url, nil
}

// ensurePrincipal never fails: an unestablished principal is logged and writes go to
// the anonymous scope.
func (up *RemoteUploader) ensurePrincipal(ctx context.Context) string {
	if up.principals == nil {
		return domain.AnonymousPrincipal
	}

	principal, err := up.principals.EnsurePrincipal(ctx)
	if err != nil {
		up.log.WarnContext(ctx, "ensure principal failed, writing anonymously", logging.Err(err))

		return domain.AnonymousPrincipal
	}

	return sanitizePathSegment(principal)
}

func (up *RemoteUploader) storageName(ext string) (string, error) {
	suffix, err := encoding.RandomCrockfordB32LC(storageNameSuffixLength)
	if err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}

	return strconv.FormatInt(up.now().UnixMilli(), 10) + "-" + suffix + "." + ext, nil
}

// sanitizePathSegment keeps a principal from adding or escaping path levels.
func sanitizePathSegment(segment string) string {
	segment = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}

		return r
	}, segment)

	if segment == "" || segment == "." || segment == ".." {
		return domain.AnonymousPrincipal
	}

	return segment
}
