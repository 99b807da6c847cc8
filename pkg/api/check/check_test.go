package check

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boingbasti/docker-update-commander/internal/actions"
)

type fakeChecker struct {
	mu      sync.Mutex
	runs    int
	names   []string
	summary actions.CheckSummary
	err     error
	block   chan struct{}
}

func (f *fakeChecker) RunScopedCheck(_ context.Context, names []string) (actions.CheckSummary, error) {
	f.mu.Lock()
	f.runs++
	f.names = names
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}

	return f.summary, f.err
}

func TestHandleRunsCheck(t *testing.T) {
	t.Parallel()

	checker := &fakeChecker{summary: actions.CheckSummary{Checked: 3, UpdatesAvailable: 1}}
	handler := New(checker)

	recorder := httptest.NewRecorder()
	handler.Handle(recorder, httptest.NewRequest(http.MethodPost, "/v1/check", nil))

	require.Equal(t, http.StatusOK, recorder.Code)

	var summary actions.CheckSummary
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, 1, summary.UpdatesAvailable)
	assert.Empty(t, checker.names)
}

func TestHandleScopesCheckToTargets(t *testing.T) {
	t.Parallel()

	checker := &fakeChecker{summary: actions.CheckSummary{Checked: 2}}
	handler := New(checker)

	recorder := httptest.NewRecorder()
	handler.Handle(recorder, httptest.NewRequest(
		http.MethodPost, "/v1/check?target=web,db&target=cache", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"web", "db", "cache"}, checker.names)
}

func TestHandleRejectsConcurrentCheck(t *testing.T) {
	t.Parallel()

	checker := &fakeChecker{block: make(chan struct{})}
	handler := New(checker)

	first := make(chan int, 1)

	go func() {
		recorder := httptest.NewRecorder()
		handler.Handle(recorder, httptest.NewRequest(http.MethodPost, "/v1/check", nil))
		first <- recorder.Code
	}()

	assert.Eventually(t, func() bool {
		checker.mu.Lock()
		defer checker.mu.Unlock()

		return checker.runs == 1
	}, 2*time.Second, 10*time.Millisecond)

	// A second request while the first pass runs is rejected.
	recorder := httptest.NewRecorder()
	handler.Handle(recorder, httptest.NewRequest(http.MethodPost, "/v1/check", nil))
	assert.Equal(t, http.StatusTooManyRequests, recorder.Code)

	close(checker.block)
	assert.Equal(t, http.StatusOK, <-first)
}

func TestHandleCheckFailure(t *testing.T) {
	t.Parallel()

	handler := New(&fakeChecker{err: assert.AnError})

	recorder := httptest.NewRecorder()
	handler.Handle(recorder, httptest.NewRequest(http.MethodPost, "/v1/check", nil))
	assert.Equal(t, http.StatusBadGateway, recorder.Code)
}

func TestHandleRejectsNonPost(t *testing.T) {
	t.Parallel()

	handler := New(&fakeChecker{})

	recorder := httptest.NewRecorder()
	handler.Handle(recorder, httptest.NewRequest(http.MethodGet, "/v1/check", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}
