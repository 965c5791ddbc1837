package routing

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"iqtoolkit/analyzer/internal/routing"
	"iqtoolkit/analyzer/pkg/providers"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func TestRetryPolicy_ExactAttemptsOnPersistentFailure(t *testing.T) {
	for _, retries := range []int{0, 1, 3, 5} {
		mock := routing.NewMockProvider("p").FailWith(providers.NewUnavailableError("p", errors.New("refused")))
		policy := RetryPolicy{MaxRetries: retries, Logger: slog.New(slog.DiscardHandler)}

		_, attempts, err := policy.Invoke(context.Background(), mock, "prompt")

		var exhausted *ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("R=%d: expected ExhaustedError, got %v", retries, err)
		}
		if attempts != retries+1 || mock.Calls() != retries+1 || exhausted.Attempts != retries+1 {
			t.Errorf("R=%d: attempts=%d calls=%d exhausted.Attempts=%d, want %d",
				retries, attempts, mock.Calls(), exhausted.Attempts, retries+1)
		}
		if !exhausted.Retryable {
			t.Errorf("R=%d: expected budget exhaustion to be marked retryable", retries)
		}
	}
}

func TestRetryPolicy_FirstTrySuccess(t *testing.T) {
	mock := routing.NewMockProvider("p")
	policy := RetryPolicy{MaxRetries: 3}

	text, attempts, err := policy.Invoke(context.Background(), mock, "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "mock response" || attempts != 1 || mock.Calls() != 1 {
		t.Errorf("text=%q attempts=%d calls=%d", text, attempts, mock.Calls())
	}
}

func TestRetryPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	mock := routing.NewMockProvider("p").SetResults(
		routing.MockResult{Err: providers.NewTimeoutError("p", context.DeadlineExceeded)},
		routing.MockResult{Err: providers.NewProtocolError("p", 503, "busy", true, nil)},
		routing.MockResult{Text: "ok"},
	)

	text, attempts, err := RetryPolicy{MaxRetries: 3}.Invoke(context.Background(), mock, "prompt")
	if err != nil || text != "ok" || attempts != 3 {
		t.Fatalf("got text=%q attempts=%d err=%v", text, attempts, err)
	}
}

func TestRetryPolicy_NonRetryableStopsImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"auth", providers.NewAuthError("p", 401, "bad key")},
		{"bad request", providers.NewProtocolError("p", 400, "bad request", false, nil)},
		{"missing field", providers.NewProtocolError("p", 200, "response field missing", false, nil)},
		{"unclassified", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := routing.NewMockProvider("p").FailWith(tt.err)
			_, attempts, err := RetryPolicy{MaxRetries: 5}.Invoke(context.Background(), mock, "prompt")

			var exhausted *ExhaustedError
			if !errors.As(err, &exhausted) {
				t.Fatalf("expected ExhaustedError, got %v", err)
			}
			if attempts != 1 || mock.Calls() != 1 {
				t.Errorf("expected a single attempt, got %d", mock.Calls())
			}
			if exhausted.Retryable {
				t.Error("non-retryable stop must not be marked retryable")
			}
			if !errors.Is(err, tt.err) {
				t.Error("ExhaustedError should unwrap to the last provider error")
			}
		})
	}
}

func TestRetryPolicy_CustomClassifier(t *testing.T) {
	mock := routing.NewMockProvider("p").FailWith(providers.NewAuthError("p", 401, "bad key"))
	policy := RetryPolicy{
		MaxRetries: 2,
		Classifier: func(error) bool { return true },
	}

	_, attempts, _ := policy.Invoke(context.Background(), mock, "prompt")
	if attempts != 3 {
		t.Errorf("expected classifier to force 3 attempts, got %d", attempts)
	}
}

func TestRetryPolicy_CancellationAbortsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := routing.NewMockProvider("p").FailWith(providers.NewUnavailableError("p", errors.New("refused")))
	policy := RetryPolicy{MaxRetries: 10, Delay: time.Hour}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, _, err := policy.Invoke(ctx, mock, "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	var exhausted *ExhaustedError
	if errors.As(err, &exhausted) {
		t.Error("cancellation must not be reported as exhaustion")
	}
	if time.Since(start) > time.Second {
		t.Error("cancellation did not interrupt the retry delay")
	}
	if mock.Calls() != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", mock.Calls())
	}
}

func TestRetryPolicy_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mock := routing.NewMockProvider("p")

	_, attempts, err := RetryPolicy{}.Invoke(ctx, mock, "prompt")
	if !errors.Is(err, context.Canceled) || attempts != 0 || mock.Calls() != 0 {
		t.Errorf("err=%v attempts=%d calls=%d", err, attempts, mock.Calls())
	}
}

func TestRetryPolicy_LogsEveryFailedAttempt(t *testing.T) {
	logger, buf := bufferLogger()
	mock := routing.NewMockProvider("primary").FailWith(providers.NewProtocolError("primary", 500, "oops", true, nil))

	_, _, _ = RetryPolicy{MaxRetries: 2, Logger: logger}.Invoke(context.Background(), mock, "prompt")

	out := buf.String()
	if n := strings.Count(out, "provider attempt failed"); n != 3 {
		t.Fatalf("expected 3 failure log lines, got %d:\n%s", n, out)
	}
	for _, want := range []string{"attempt=1", "attempt=2", "attempt=3", "provider=primary", "kind=protocol_error"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q", want)
		}
	}
}

type recordingObserver struct {
	attempts  []string
	fallbacks []bool
}

func (r *recordingObserver) ObserveAttempt(provider string, err error, _ time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	r.attempts = append(r.attempts, provider+":"+outcome)
}

func (r *recordingObserver) ObserveFallback(_, _ string, succeeded bool) {
	r.fallbacks = append(r.fallbacks, succeeded)
}

func TestRetryPolicy_Observer(t *testing.T) {
	obs := &recordingObserver{}
	mock := routing.NewMockProvider("p").SetResults(
		routing.MockResult{Err: providers.NewUnavailableError("p", errors.New("refused"))},
		routing.MockResult{Text: "ok"},
	)

	_, _, _ = RetryPolicy{MaxRetries: 1, Observer: obs}.Invoke(context.Background(), mock, "prompt")

	want := []string{"p:failure", "p:success"}
	if strings.Join(obs.attempts, ",") != strings.Join(want, ",") {
		t.Errorf("observed %v, want %v", obs.attempts, want)
	}
}
