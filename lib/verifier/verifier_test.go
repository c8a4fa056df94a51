package verifier

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fiffu/isitup/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHTTPVerifier_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><head><title>  Example
			Domain </title></head><body>hi</body></html>`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(zaptest.NewLogger(t), http.DefaultTransport)
	res, err := v.Verify(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.True(t, res.Reachable)
	require.NotNil(t, res.StatusCode)
	assert.Equal(t, http.StatusOK, *res.StatusCode)
	assert.Equal(t, "Example Domain", res.Title)
}

func TestHTTPVerifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"down"}`))
	}))
	defer srv.Close()

	v := NewHTTPVerifier(zaptest.NewLogger(t), http.DefaultTransport)
	res, err := v.Verify(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.True(t, res.Reachable, "a response was received")
	require.NotNil(t, res.StatusCode)
	assert.Equal(t, http.StatusServiceUnavailable, *res.StatusCode)
	assert.Empty(t, res.Title)
}

func TestHTTPVerifier_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	v := NewHTTPVerifier(zaptest.NewLogger(t), http.DefaultTransport)
	res, err := v.Verify(context.Background(), url)
	require.NoError(t, err)

	assert.False(t, res.Reachable)
	assert.Nil(t, res.StatusCode)
}

func TestExtractTitle_Opengraph(t *testing.T) {
	doc, err := parse(`<html><head><meta property="og:title" content=" Shared  page "></head></html>`)
	require.NoError(t, err)
	assert.Equal(t, "Shared page", ExtractTitle(doc))
}

func TestCheck(t *testing.T) {
	code := 200
	ok := VerifierFunc(func(ctx context.Context, url string) (models.CheckResult, error) {
		return models.CheckResult{Reachable: true, StatusCode: &code, Title: "t"}, nil
	})

	outcome := Check(context.Background(), ok, "http://example.com", time.Second, zaptest.NewLogger(t))
	assert.Equal(t, "http://example.com", outcome.URL)
	assert.True(t, outcome.Reachable)
	assert.Equal(t, &code, outcome.StatusCode)
	assert.Equal(t, "t", outcome.Title)
	assert.False(t, outcome.CheckedAt.IsZero())
}

func TestCheck_FailuresBecomeUnreachable(t *testing.T) {
	code := 200
	verifiers := map[string]Verifier{
		"error": VerifierFunc(func(ctx context.Context, url string) (models.CheckResult, error) {
			return models.CheckResult{Reachable: true, StatusCode: &code}, errors.New("boom")
		}),
		"panic": VerifierFunc(func(ctx context.Context, url string) (models.CheckResult, error) {
			panic("verifier bug")
		}),
		"ignores context": VerifierFunc(func(ctx context.Context, url string) (models.CheckResult, error) {
			time.Sleep(time.Second)
			return models.CheckResult{Reachable: true, StatusCode: &code}, nil
		}),
	}

	for name, v := range verifiers {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			outcome := Check(context.Background(), v, "http://example.com", 50*time.Millisecond, zaptest.NewLogger(t))

			assert.False(t, outcome.Reachable)
			assert.Nil(t, outcome.StatusCode)
			assert.Less(t, time.Since(start), 500*time.Millisecond)
		})
	}
}
