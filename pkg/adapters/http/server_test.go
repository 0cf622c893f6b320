package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sesame/internal/runtime"
	sesamehttp "github.com/aretw0/sesame/pkg/adapters/http"
	"github.com/aretw0/sesame/pkg/domain"
)

type fakeExperiment struct{}

func (fakeExperiment) VarList(filter string) []domain.VarInfo {
	all := []domain.VarInfo{
		{Name: "subject_nr", Value: "3"},
		{Name: "title", Value: "Stroop"},
	}
	var out []domain.VarInfo
	for _, v := range all {
		if strings.Contains(v.Name, filter) || strings.Contains(v.Value, filter) {
			out = append(out, v)
		}
	}
	return out
}

func (fakeExperiment) ItemTypes() map[string]string {
	return map[string]string{"experiment": "sequence", "trial": "sketchpad"}
}

func (fakeExperiment) Mermaid() string { return "graph TD\n" }

type fakeController struct {
	paused  bool
	resumed int
}

func (c *fakeController) Paused() (runtime.PauseState, bool) {
	if !c.paused {
		return runtime.PauseState{}, false
	}
	return runtime.PauseState{Paused: true, Item: "trial", Vars: map[string]string{"x": "1"}}, true
}

func (c *fakeController) Resume() bool {
	if !c.paused {
		return false
	}
	c.paused = false
	c.resumed++
	return true
}

func TestServer_ReadEndpoints(t *testing.T) {
	srv := httptest.NewServer(sesamehttp.NewServer(fakeExperiment{}, nil, sesamehttp.WithVersion("1.2.3")).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/vars?filter=Stroop")
	require.NoError(t, err)
	var vars []domain.VarInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vars))
	resp.Body.Close()
	assert.Equal(t, []domain.VarInfo{{Name: "title", Value: "Stroop"}}, vars)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(srv.URL + "/items")
	require.NoError(t, err)
	var types map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&types))
	resp.Body.Close()
	assert.Equal(t, "sketchpad", types["trial"])

	resp, err = http.Get(srv.URL + "/graph")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "graph TD\n", string(body))

	resp, err = http.Get(srv.URL + "/info")
	require.NoError(t, err)
	var info map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.Equal(t, "1.2.3", info["version"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_PauseAndResume(t *testing.T) {
	ctl := &fakeController{}
	h := sesamehttp.NewServer(fakeExperiment{}, ctl).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resume", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	ctl.paused = true
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pause", nil))
	var st runtime.PauseState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Paused)
	assert.Equal(t, "trial", st.Item)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resume", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, ctl.resumed)
}

func TestServer_Preflight(t *testing.T) {
	h := sesamehttp.NewServer(fakeExperiment{}, nil).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/vars", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MetricsHandler(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "sesame_runs_total 1\n")
	})
	h := sesamehttp.NewServer(fakeExperiment{}, nil, sesamehttp.WithMetrics(metrics)).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "sesame_runs_total")
}

func TestServer_EventsStreamHooks(t *testing.T) {
	s := sesamehttp.NewServer(fakeExperiment{}, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Eventually(t, func() bool { return s.Streams.Len() == 1 }, time.Second, 5*time.Millisecond)

	hooks := s.Hooks()
	hooks.OnItemEnter(context.Background(), &domain.ItemEvent{
		EventBase: domain.EventBase{Type: domain.EventItemEnter, RunID: "r1"},
		Item:      "trial",
		Phase:     domain.PhaseRun,
	})

	var data string
	for data == "" {
		line, err = r.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
		}
	}
	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, "item_enter", ev["type"])
	assert.Equal(t, "trial", ev["item"])
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := sesamehttp.NewStreamManager()
	ch, cancel := sm.Subscribe()
	for i := 0; i < 100; i++ {
		sm.Broadcast("x")
	}
	assert.Len(t, ch, 64)
	cancel()
	cancel()
	assert.Equal(t, 0, sm.Len())
}
