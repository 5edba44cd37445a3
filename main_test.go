package main

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/VyvaHart/system-load-demonstrator/internal/server"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := strings.Join([]string{
		"server:",
		"  port: \"127.0.0.1:0\"",
		"load:",
		"  temp_dir: " + dir,
		"logging:",
		"  level: error",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestAppOptionsValidate(t *testing.T) {
	require.NoError(t, fx.ValidateApp(appOptions(configPath, nil)))
}

func TestShippedConfigBuildsApp(t *testing.T) {
	// the shipped config path is relative to the repository root
	app := fxtest.New(t, appOptions(configPath, nil), fx.Invoke(func(*server.Server) {}))
	require.NoError(t, app.Err())
}

func TestAppServesLoad(t *testing.T) {
	var srv *server.Server
	app := fxtest.New(t, appOptions(writeConfig(t), nil), fx.Populate(&srv))
	app.RequireStart()
	defer app.RequireStop()

	resp, err := http.Get("http://" + srv.Addr() + "/load?mode=cpu_heavy&cpu_task_scale=12&iterations=1")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(gjson.GetBytes(body, "cpu_work").String(), "fibonacci_recursive(12) = 144"))

	resp, err = http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `loadgen_cpu_tasks_total{algorithm="fibonacci",path="/load"} 1`)
	assert.Contains(t, string(body), "app_info")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestPortFlagOverridesConfig(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.Flags().Parse([]string{"--port", "9123"}))

	var srv *server.Server
	app := fxtest.New(t, appOptions(writeConfig(t), cmd.Flags()), fx.Populate(&srv))
	require.NoError(t, app.Err())
	assert.Equal(t, ":9123", srv.Addr())
}

func TestMissingConfigFails(t *testing.T) {
	app := fx.New(appOptions(filepath.Join(t.TempDir(), "missing.json"), nil), fx.NopLogger)
	assert.Error(t, app.Err())
}
