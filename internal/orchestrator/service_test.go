package orchestrator

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/wingman/internal/analysis"
	"github.com/spigell/wingman/internal/bus"
)

// startService serves the background endpoint. The returned stop ends
// dispatching and then waits for running pipelines.
func startService(t *testing.T, b *bus.Bus, o *Orchestrator) (stop func()) {
	t.Helper()

	endpoint, err := b.Endpoint("background")
	if err != nil {
		t.Fatalf("register endpoint: %v", err)
	}

	svc := NewService(o, nil)
	svc.Register(endpoint)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = endpoint.Serve(ctx)
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			cancel()
			<-done
			svc.Wait()
		})
	}
	t.Cleanup(stop)

	return stop
}

func TestServiceAnalyzeResume(t *testing.T) {
	var gotText string
	o := New(stubExtractor{}, analyzerFunc(func(_ context.Context, _, _, text string) (*analysis.Result, error) {
		gotText = text
		return &analysis.Result{Decision: analysis.DecisionYes, Score: 75, Reason: "fit", CoverLetter: "Dear..."}, nil
	}), nil)

	b := bus.New(nil)
	startService(t, b, o)

	var reply AnalyzeReply
	err := b.Request(context.Background(), "background", MessageAnalyzeResume, AnalyzePayload{
		JobTitle:       "SRE",
		JobDescription: "Keep things running",
		FileName:       "cv.txt",
		FileBase64:     base64.StdEncoding.EncodeToString([]byte("ten years of on-call")),
	}, &reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reply.Error != "" {
		t.Fatalf("unexpected error reply: %s", reply.Error)
	}
	if reply.Result == nil || reply.Result.Score != 75 || reply.Result.CoverLetter != "Dear..." {
		t.Fatalf("unexpected result: %+v", reply.Result)
	}
	if gotText != "ten years of on-call" {
		t.Fatalf("resume bytes were not decoded, analyzer got %q", gotText)
	}
}

func TestServiceRejectsInvalidEncoding(t *testing.T) {
	called := false
	o := New(stubExtractor{}, analyzerFunc(func(context.Context, string, string, string) (*analysis.Result, error) {
		called = true
		return nil, nil
	}), nil)

	b := bus.New(nil)
	startService(t, b, o)

	var reply AnalyzeReply
	err := b.Request(context.Background(), "background", MessageAnalyzeResume, AnalyzePayload{
		JobDescription: "desc",
		FileName:       "cv.pdf",
		FileBase64:     "not base64!",
	}, &reply)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reply.Error != "invalid file encoding" || reply.Result != nil {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if called {
		t.Fatal("pipeline must not run for undecodable files")
	}
}

func TestServiceRepliesWithPipelineError(t *testing.T) {
	o := New(stubExtractor{err: analysis.UploadFailed("bad file", nil)}, analyzerFunc(func(context.Context, string, string, string) (*analysis.Result, error) {
		t.Error("analyzer must not be called")
		return nil, nil
	}), nil)

	b := bus.New(nil)
	startService(t, b, o)

	var reply AnalyzeReply
	if err := b.Request(context.Background(), "background", MessageAnalyzeResume, AnalyzePayload{FileBase64: "YQ=="}, &reply); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reply.Error != "bad file" || reply.Result != nil {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestServiceAbandonedRequestIsNotCancelled(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	b := bus.New(zap.New(core))

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan error, 1)
	o := New(stubExtractor{}, analyzerFunc(func(ctx context.Context, _, _, _ string) (*analysis.Result, error) {
		close(started)
		<-release
		finished <- ctx.Err()
		return &analysis.Result{Decision: analysis.DecisionNo, Score: 1}, nil
	}), nil)

	stop := startService(t, b, o)

	ctx, cancel := context.WithCancel(context.Background())
	call, err := b.Send(ctx, "background", MessageAnalyzeResume, AnalyzePayload{FileBase64: "YQ=="})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	<-started
	cancel()
	if err := call.Wait(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	close(release)
	if err := <-finished; err != nil {
		t.Fatalf("pipeline context was cancelled with the caller: %v", err)
	}
	stop()

	if observed.FilterMessage("dropping reply nobody waits for").Len() != 1 {
		t.Fatalf("expected the reply to be dropped, logs: %v", observed.All())
	}
}
