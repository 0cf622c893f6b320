package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/sesame/internal/config"
	"github.com/aretw0/sesame/internal/logging"
	"github.com/aretw0/sesame/pkg/domain"
	"github.com/aretw0/sesame/pkg/persistence/middleware"
)

const keyboardExperiment = `define loop trials
	set repeat 2
	setcycle 0 target z
	run trial

define sequence trial
	run kb always
	run log always

define keyboard_response kb
	set allowed_responses "z;m"
	set correct_response "[target]"

define logger log
	log response
	log correct
`

func writeExperiment(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.opensesame")
	require.NoError(t, os.WriteFile(path, []byte("set start trials\n"+keyboardExperiment), 0o644))
	return path
}

func readLog(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestExecute_LineResponses(t *testing.T) {
	path := writeExperiment(t)
	cfg := config.Default()
	cfg.Logfile = "data.csv"

	rec, err := Execute(context.Background(), RunOptions{
		Path:   path,
		Config: cfg,
		IO:     IO{In: strings.NewReader("x\nz\nm\n"), Out: io.Discard, Err: io.Discard},
		Quiet:  true,
	}, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, rec.Status)

	lines := readLog(t, filepath.Join(filepath.Dir(path), "data.csv"))
	assert.Equal(t, []string{"response,correct", "z,1", "m,0"}, lines)
}

func TestExecute_AutoResponse(t *testing.T) {
	path := writeExperiment(t)
	cfg := config.Default()
	cfg.Logfile = "auto.csv"
	cfg.AutoResponse = true
	cfg.Seed = 7

	rec, err := Execute(context.Background(), RunOptions{
		Path:   path,
		Config: cfg,
		IO:     IO{In: strings.NewReader(""), Out: io.Discard, Err: io.Discard},
		Quiet:  true,
	}, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, rec.Status)

	lines := readLog(t, filepath.Join(filepath.Dir(path), "auto.csv"))
	require.Len(t, lines, 3)
	for _, l := range lines[1:] {
		assert.Regexp(t, `^[zm],[01]$`, l)
	}
}

func TestExecute_Inspector(t *testing.T) {
	path := writeExperiment(t)
	cfg := config.Default()
	cfg.Logfile = ""
	cfg.AutoResponse = true
	cfg.InspectAddr = "127.0.0.1:0"

	var out bytes.Buffer
	rec, err := Execute(context.Background(), RunOptions{
		Path:   path,
		Config: cfg,
		IO:     IO{In: strings.NewReader(""), Out: &out, Err: io.Discard},
	}, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, rec.Status)
	assert.Contains(t, out.String(), "Inspector at http://127.0.0.1:")
}

func TestExecute_MissingExperiment(t *testing.T) {
	cfg := config.Default()
	_, err := Execute(context.Background(), RunOptions{
		Path:   "define sequence broken\n\trun missing\n",
		Config: cfg,
		IO:     IO{In: strings.NewReader(""), Out: io.Discard, Err: io.Discard},
		Quiet:  true,
	}, logging.NewNop())
	assert.Error(t, err)
}

func TestNewPersistence(t *testing.T) {
	logger := logging.NewNop()

	t.Run("file", func(t *testing.T) {
		cfg := config.Default()
		cfg.Records = config.RecordsFile
		cfg.RecordsDir = t.TempDir()
		p, err := newPersistence(cfg, logger)
		require.NoError(t, err)
		defer p.Close()
		assert.Nil(t, p.Leases)

		require.NoError(t, p.Records.Save(context.Background(), &domain.RunRecord{ID: "r1"}))
		entries, err := os.ReadDir(cfg.RecordsDir)
		require.NoError(t, err)
		assert.NotEmpty(t, entries)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.Default()
		cfg.Records = config.RecordsRedis
		cfg.Redis.Addr = mr.Addr()
		p, err := newPersistence(cfg, logger)
		require.NoError(t, err)
		defer p.Close()
		require.NotNil(t, p.Leases)

		require.NoError(t, p.Records.Save(context.Background(), &domain.RunRecord{ID: "r1"}))
		ids, err := p.Records.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"r1"}, ids)
	})

	t.Run("redacted and encrypted", func(t *testing.T) {
		cfg := config.Default()
		cfg.Redact = []string{"^subject_name$"}
		cfg.RecordsKey = base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 32))
		p, err := newPersistence(cfg, logger)
		require.NoError(t, err)

		ctx := context.Background()
		rec := &domain.RunRecord{ID: "r1", Globals: map[string]string{"subject_name": "Ada", "subject_nr": "1"}}
		require.NoError(t, p.Records.Save(ctx, rec))
		loaded, err := p.Records.Load(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"subject_name": middleware.Mask, "subject_nr": "1"}, loaded.Globals)
	})

	t.Run("bad key", func(t *testing.T) {
		cfg := config.Default()
		cfg.RecordsKey = base64.StdEncoding.EncodeToString([]byte("short"))
		_, err := newPersistence(cfg, logger)
		assert.ErrorContains(t, err, "records_key")
	})
}

func TestHandleExecutionError(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"cancelled", &domain.RuntimeError{Item: "kb", Err: context.Canceled}, nil},
		{"end of input", io.EOF, nil},
		{"failure", boom, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, handleExecutionError(tt.err))
		})
	}
}

func TestLogCompletion(t *testing.T) {
	var out bytes.Buffer
	rec := &domain.RunRecord{ID: "r1", Status: domain.RunStatusCompleted, TeardownErrors: []string{"cleanup: boom"}}
	logCompletion(&out, rec, nil, nil)
	assert.Contains(t, out.String(), "Run r1")
	assert.Contains(t, out.String(), ">>> Teardown: cleanup: boom")

	out.Reset()
	logCompletion(&out, nil, context.Canceled, os.Interrupt)
	assert.Equal(t, "> [CTRL+C]\n>>> Interrupted.\n", out.String())
}

func TestExecute_JSONLines(t *testing.T) {
	path := writeExperiment(t)
	cfg := config.Default()
	cfg.Logfile = "json.csv"
	cfg.JSON = true

	var out bytes.Buffer
	rec, err := Execute(context.Background(), RunOptions{
		Path:   path,
		Config: cfg,
		IO:     IO{In: strings.NewReader("\"m\"\n{\"value\":\"z\"}\n"), Out: &out, Err: io.Discard},
	}, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, rec.Status)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2, "only JSON lines on standard output")
	for _, l := range lines {
		assert.JSONEq(t, `{"type":"request","item":"kb","allowed":["z","m"]}`, l)
	}
	assert.Equal(t, []string{"response,correct", "m,0", "z,1"}, readLog(t, filepath.Join(filepath.Dir(path), "json.csv")))
}
