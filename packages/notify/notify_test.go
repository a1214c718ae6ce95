package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/storyspec/packages/core/runner"
)

type recorder struct {
	mu    sync.Mutex
	calls []*RunSummary
	err   error
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Notify(_ context.Context, summary *RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, summary)
	return r.err
}

func TestParseNotifyOn(t *testing.T) {
	on, err := ParseNotifyOn("")
	require.NoError(t, err)
	assert.Equal(t, NotifyFailure, on)

	on, err = ParseNotifyOn("recovery")
	require.NoError(t, err)
	assert.Equal(t, NotifyRecovery, on)

	_, err = ParseNotifyOn("sometimes")
	assert.Error(t, err)
}

func TestManager_Policies(t *testing.T) {
	passed := func() *RunSummary { return &RunSummary{TotalStories: 1, PassedStories: 1} }
	failed := func() *RunSummary { return &RunSummary{TotalStories: 1, FailedStories: 1} }

	tests := []struct {
		name  string
		on    NotifyOn
		runs  []*RunSummary
		calls int
	}{
		{"always", NotifyAlways, []*RunSummary{passed(), failed()}, 2},
		{"failure", NotifyFailure, []*RunSummary{passed(), failed()}, 1},
		{"success", NotifySuccess, []*RunSummary{passed(), failed()}, 1},
		{"recovery", NotifyRecovery, []*RunSummary{passed(), failed(), passed(), passed()}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			m := NewManager(tt.on, rec)
			for _, s := range tt.runs {
				require.NoError(t, m.Notify(context.Background(), s))
			}
			assert.Len(t, rec.calls, tt.calls)
		})
	}
}

func TestManager_RecoveryIsMarked(t *testing.T) {
	rec := &recorder{}
	m := NewManager(NotifyRecovery, rec)

	require.NoError(t, m.Notify(context.Background(), &RunSummary{FailedStories: 1}))
	recovered := &RunSummary{PassedStories: 1}
	require.NoError(t, m.Notify(context.Background(), recovered))

	assert.True(t, recovered.IsRecovery)
	assert.Equal(t, "Stories recovered!", headline(recovered))
}

func TestManager_JoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	first, second := &recorder{err: boom}, &recorder{}
	m := NewManager(NotifyAlways, first)
	m.AddNotifier(second)
	assert.Equal(t, 2, m.Len())

	err := m.Notify(context.Background(), &RunSummary{})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, second.calls, 1, "later notifiers still run")
}

func TestSummarize(t *testing.T) {
	result := &runner.RunResult{
		Duration: 2 * time.Second,
		Stories: []*runner.StoryResult{
			{Path: "a.story", Title: "a", Scenarios: []*runner.ScenarioResult{{Title: "ok"}}},
			{Path: "b.story", Title: "b", Failed: true, Scenarios: []*runner.ScenarioResult{
				{Title: "broken", Failed: true},
				{Title: "fine"},
			}},
		},
		PendingMethods: []string{"pending"},
	}

	s := Summarize(result, "nightly")
	assert.Equal(t, 2, s.TotalStories)
	assert.Equal(t, 1, s.PassedStories)
	assert.Equal(t, 1, s.FailedStories)
	assert.Equal(t, 3, s.TotalScenarios)
	assert.Equal(t, 1, s.PendingSteps)
	require.Len(t, s.FailedResults, 1)
	assert.Equal(t, "b.story", s.FailedResults[0].Path)
	assert.Equal(t, []string{"broken"}, s.FailedResults[0].Scenarios)
	assert.Equal(t, "nightly: 1 of 2 stories failed", headline(s))
}

func webhook(t *testing.T, status int) (*httptest.Server, func() map[string]any) {
	t.Helper()
	var (
		mu   sync.Mutex
		body map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		_ = json.Unmarshal(data, &body)
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() map[string]any {
		mu.Lock()
		defer mu.Unlock()
		return body
	}
}

func failedSummary() *RunSummary {
	return &RunSummary{
		TotalStories:  2,
		PassedStories: 1,
		FailedStories: 1,
		FailedResults: []FailedStory{{Title: "login", Path: "login.story", Scenarios: []string{"bad password"}}},
	}
}

func TestSlackNotifier(t *testing.T) {
	srv, body := webhook(t, http.StatusOK)
	n := NewSlackNotifier(srv.URL, WithSlackChannel("#ci"), WithSlackUsername("bot"))
	assert.Equal(t, "slack", n.Name())

	require.NoError(t, n.Notify(context.Background(), failedSummary()))

	got := body()
	assert.Equal(t, "#ci", got["channel"])
	assert.Equal(t, "bot", got["username"])
	attachments := got["attachments"].([]any)
	require.Len(t, attachments, 1)
	attachment := attachments[0].(map[string]any)
	assert.Equal(t, "danger", attachment["color"])
	assert.Contains(t, attachment["title"], "1 of 2 stories failed")
	assert.Contains(t, attachment["text"], "login.story")
	assert.Contains(t, attachment["text"], "bad password")
}

func TestSlackNotifier_ErrorStatus(t *testing.T) {
	srv, _ := webhook(t, http.StatusForbidden)
	err := NewSlackNotifier(srv.URL).Notify(context.Background(), &RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestTeamsNotifier(t *testing.T) {
	srv, body := webhook(t, http.StatusAccepted)
	n := NewTeamsNotifier(srv.URL, WithTeamsHTTPClient(srv.Client()))
	assert.Equal(t, "teams", n.Name())

	require.NoError(t, n.Notify(context.Background(), failedSummary()))

	got := body()
	assert.Equal(t, "message", got["type"])
	card := got["attachments"].([]any)[0].(map[string]any)
	assert.Equal(t, "application/vnd.microsoft.card.adaptive", card["contentType"])
	blocks := card["content"].(map[string]any)["body"].([]any)
	first := blocks[0].(map[string]any)
	assert.Equal(t, "attention", first["color"])
	assert.Equal(t, "1 of 2 stories failed", first["text"])
}

func TestTeamsNotifier_ErrorStatus(t *testing.T) {
	srv, _ := webhook(t, http.StatusInternalServerError)
	err := NewTeamsNotifier(srv.URL).Notify(context.Background(), &RunSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
