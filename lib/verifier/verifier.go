package verifier

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/isitup/lib/models"
	"go.uber.org/zap"
)

// maxBodyBytes bounds how much of a page is read when looking for its title.
const maxBodyBytes = 256 << 10

// Verifier checks whether a URL is reachable. Implementations must not touch
// shared state.
type Verifier interface {
	Verify(ctx context.Context, url string) (models.CheckResult, error)
}

type VerifierFunc func(ctx context.Context, url string) (models.CheckResult, error)

func (f VerifierFunc) Verify(ctx context.Context, url string) (models.CheckResult, error) {
	return f(ctx, url)
}

type HTTPVerifier struct {
	log       *zap.Logger
	transport http.RoundTripper
}

func NewHTTPVerifier(log *zap.Logger, transport http.RoundTripper) Verifier {
	return &HTTPVerifier{log, transport}
}

// Verify issues a GET for url. Any HTTP response counts as reachable, whatever
// its status; a failed connection is reported as unreachable rather than as an
// error. Errors are returned only when ctx ends first.
func (v *HTTPVerifier) Verify(ctx context.Context, url string) (models.CheckResult, error) {
	var res models.CheckResult

	err := requests.URL(url).
		Transport(v.transport).
		AddValidator(nil).
		Handle(func(resp *http.Response) error {
			code := resp.StatusCode
			res.Reachable = true
			res.StatusCode = &code
			res.Title = v.readTitle(resp)
			return nil
		}).
		Fetch(ctx)

	switch {
	case err == nil:
		return res, nil
	case res.Reachable:
		// Response already received, the failure came after.
		return res, nil
	case ctx.Err() != nil:
		return models.CheckResult{}, ctx.Err()
	default:
		v.log.Sugar().Debugw("URL unreachable", "url", url, "err", err)
		return models.CheckResult{Reachable: false}, nil
	}
}

func (v *HTTPVerifier) readTitle(resp *http.Response) string {
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "" && !strings.Contains(mediaType, "html") {
		return ""
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	doc, err := parse(string(body))
	if err != nil {
		return ""
	}
	return ExtractTitle(doc)
}
