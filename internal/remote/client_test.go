package remote

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/spigell/wingman/internal/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Config{BaseURL: server.URL + "/", Credential: "secret-token"}, zap.NewNop())
	return client, server
}

func TestExtractResumeText_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ExtractTextPath, r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		assert.NoError(t, err)
		assert.Equal(t, "cv.pdf", header.Filename)
		assert.Equal(t, []byte("%PDF-1.4 resume"), content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"  Experienced engineer...  "}`))
	})

	extracted, err := client.ExtractResumeText(context.Background(), []byte("%PDF-1.4 resume"), "cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, "  Experienced engineer...  ", extracted.Text)
}

func TestExtractResumeText_BlankTextIsPassedOn(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"   "}`))
	})

	extracted, err := client.ExtractResumeText(context.Background(), []byte("%PDF scanned"), "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "   ", extracted.Text)
}

func TestExtractResumeText_Gzip(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(`{"text":"compressed resume"}`))
		_ = gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	})

	extracted, err := client.ExtractResumeText(context.Background(), []byte("data"), "cv.docx")
	require.NoError(t, err)
	assert.Equal(t, "compressed resume", extracted.Text)
}

func TestExtractResumeText_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{
			name:    "service error message",
			status:  http.StatusInternalServerError,
			body:    `{"error":{"message":"bad file"}}`,
			kind:    analysis.ErrUploadFailed,
			message: "bad file",
		},
		{
			name:    "string error",
			status:  http.StatusBadRequest,
			body:    `{"error":"unsupported format"}`,
			kind:    analysis.ErrUploadFailed,
			message: "unsupported format",
		},
		{
			name:    "no error body",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			kind:    analysis.ErrUploadFailed,
			message: "File upload failed",
		},
		{
			name:    "missing text field",
			status:  http.StatusOK,
			body:    `{"pages":2}`,
			kind:    analysis.ErrUploadFailed,
			message: "File upload failed",
		},
		{
			name:    "unreadable success body",
			status:  http.StatusOK,
			body:    `plain text`,
			kind:    analysis.ErrExtractionFailed,
			message: "Text extraction returned an unreadable response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := client.ExtractResumeText(context.Background(), []byte("data"), "cv.pdf")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestExtractResumeText_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := New(Config{BaseURL: server.URL}, nil)

	_, err := client.ExtractResumeText(context.Background(), []byte("data"), "cv.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrUploadFailed)
	assert.Contains(t, err.Error(), "File upload failed")
}

func TestAnalyze_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, AnalyzePath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{
			"jobTitle":       "Backend Engineer",
			"jobDescription": "Build APIs",
			"extractedText":  "Experienced engineer...",
		}, req)

		_, _ = w.Write([]byte(`{"decision":"Yes","score":82,"reason":"Good fit","coverLetter":"Dear...","resumeEnhancements":"Add Go"}`))
	})

	result, err := client.Analyze(context.Background(), "Backend Engineer", "Build APIs", "Experienced engineer...")
	require.NoError(t, err)
	assert.Equal(t, &analysis.Result{
		Decision:           analysis.DecisionYes,
		Score:              82,
		Reason:             "Good fit",
		CoverLetter:        "Dear...",
		ResumeEnhancements: "Add Go",
	}, result)
}

func TestAnalyze_FencedGenerativeText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("```json\n{\"decision\":\"No\",\"score\":40,\"reason\":\"x\",\"coverLetter\":\"\",\"resumeEnhancements\":\"\"}\n```"))
	})

	result, err := client.Analyze(context.Background(), "t", "d", "r")
	require.NoError(t, err)
	assert.Equal(t, &analysis.Result{Decision: analysis.DecisionNo, Score: 40, Reason: "x"}, result)
}

func TestAnalyze_TransportFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
	})

	_, err := client.Analyze(context.Background(), "t", "d", "r")
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrAnalysisTransportFailed)
	assert.Equal(t, "model overloaded", err.Error())
}

func TestAnalyze_TransportFailureWithoutMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Analyze(context.Background(), "t", "d", "r")
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrAnalysisTransportFailed)
	assert.Equal(t, "Analysis request failed: status 500", err.Error())
}

func TestAnalyze_MalformedResponse(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"score":90,"reason":"missing decision"}`))
	})

	_, err := client.Analyze(context.Background(), "t", "d", "r")
	require.Error(t, err)
	assert.ErrorIs(t, err, analysis.ErrAnalysisMalformedResponse)
	assert.Equal(t, int32(1), calls.Load(), "malformed responses must not be retried")

	var pipelineErr *analysis.Error
	require.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, analysis.ReasonMissingDecision, pipelineErr.Reason)
}
