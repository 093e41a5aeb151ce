package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/arath/internal/checkpoint"
)

// araRoutes is a minimal ARA API with one failed playbook run holding an ok
// and a failed result.
var araRoutes = map[string]string{
	"/api/v1/playbooks": `{"count": 1, "next": null, "results": [
		{"id": 7, "name": "site", "path": "/pb/site.yml", "status": "failed", "ended": "2024-03-01T10:00:00Z"}
	]}`,
	"/api/v1/results": `{"count": 2, "next": null, "results": [
		{"id": 70, "status": "ok", "ended": "2024-03-01T09:59:00Z", "task": 1, "host": 1},
		{"id": 71, "status": "failed", "ended": "2024-03-01T09:59:30Z", "task": 2, "host": 1}
	]}`,
	"/api/v1/tasks/1": `{"id": 1, "name": "Gathering Facts", "lineno": 1, "tags": [],
		"file": {"id": 1, "path": "/pb/site.yml"}, "play": {"id": 1, "name": "all"}}`,
	"/api/v1/tasks/2": `{"id": 2, "name": "Restart nginx", "lineno": 42, "tags": ["web"],
		"file": {"id": 2, "path": "/pb/roles/web/handlers/main.yml"}, "play": {"id": 1, "name": "Web servers"}}`,
	"/api/v1/hosts/1": `{"id": 1, "name": "web01", "facts": {"ansible_hostname": "web01-prod"}}`,
}

func newARAServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "upstream unavailable", status)
			return
		}
		body, ok := araRoutes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	for _, key := range []string{"ARA_API_SERVER", "ARA_API_USERNAME", "ARA_API_PASSWORD"} {
		t.Setenv(key, "")
	}

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "absent.yaml")))

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeCheckpoint(t *testing.T, ts time.Time) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".arath.timestamp")
	require.NoError(t, os.WriteFile(path, []byte(checkpoint.Format(ts)), 0644))
	return path
}

func readCheckpoint(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestReportCommandHTTP(t *testing.T) {
	srv := newARAServer(t, http.StatusOK)
	previous := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	path := writeCheckpoint(t, previous)
	before := time.Now().UTC()

	stdout, _, err := execute(t, "report", "--endpoint", srv.URL, "--checkpoint", path)
	require.NoError(t, err)

	lines := strings.Split(stdout, "\n")
	require.GreaterOrEqual(t, len(lines), 2)
	assert.True(t, strings.HasPrefix(lines[0], "current timestamp: "), lines[0])
	assert.Equal(t, "previous timestamp: 2024-03-01T00:00:00Z", lines[1])
	assert.True(t, strings.HasSuffix(stdout,
		"failed: \"Restart nginx\"\nweb01-prod [web] \"Web servers\"\nmain.yml:42\n"), stdout)
	assert.NotContains(t, stdout, "Gathering Facts")

	saved, err := checkpoint.Parse(readCheckpoint(t, path))
	require.NoError(t, err)
	assert.False(t, saved.Before(before.Truncate(time.Second)), "checkpoint advanced to the run start")
}

func TestReportCommandReportAll(t *testing.T) {
	srv := newARAServer(t, http.StatusOK)
	path := writeCheckpoint(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	stdout, _, err := execute(t, "report", "--endpoint", srv.URL, "--checkpoint", path, "--report-all", "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, stdout, "ok: \"Gathering Facts\"\nweb01-prod [] \"all\"\nsite.yml:1\n")
	assert.Contains(t, stdout, "failed: \"Restart nginx\"")
}

func TestReportCommandDryRunKeepsCheckpoint(t *testing.T) {
	srv := newARAServer(t, http.StatusOK)
	path := writeCheckpoint(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	before := readCheckpoint(t, path)

	stdout, _, err := execute(t, "report", "--endpoint", srv.URL, "--checkpoint", path, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, stdout, "Restart nginx")
	assert.Equal(t, before, readCheckpoint(t, path))
}

func TestReportCommandMarkdown(t *testing.T) {
	srv := newARAServer(t, http.StatusOK)
	path := writeCheckpoint(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	stdout, _, err := execute(t, "report", "--endpoint", srv.URL, "--checkpoint", path, "--format", "markdown")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout, "# ARA report"), stdout)
	assert.Contains(t, stdout, "```\nfailed: \"Restart nginx\"")
}

func TestReportCommandUpstreamFailure(t *testing.T) {
	srv := newARAServer(t, http.StatusInternalServerError)
	path := writeCheckpoint(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	before := readCheckpoint(t, path)

	_, stderr, err := execute(t, "report", "--endpoint", srv.URL, "--checkpoint", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Contains(t, stderr, "report failed")
	assert.Equal(t, before, readCheckpoint(t, path))
}

func TestReportCommandLogDir(t *testing.T) {
	srv := newARAServer(t, http.StatusOK)
	path := writeCheckpoint(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	logDir := filepath.Join(t.TempDir(), "logs")

	_, _, err := execute(t, "report", "--endpoint", srv.URL, "--checkpoint", path, "--log-dir", logDir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(logDir, "latest.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "RUN SUMMARY")
}

func TestReportCommandInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "bad format", args: []string{"--format", "pdf"}, wantErr: "invalid format"},
		{name: "bad source", args: []string{"--source", "s3"}, wantErr: "invalid source"},
		{name: "bad level", args: []string{"--log-level", "loud"}, wantErr: "invalid log_level"},
		{name: "ignore with report-all", args: []string{"--ignore", "ok", "--report-all"}, wantErr: "together"},
		{name: "bad endpoint", args: []string{"--endpoint", "ara.example.org"}, wantErr: "scheme"},
		{name: "missing database", args: []string{"--source", "offline", "--database", "/nonexistent/ansible.sqlite"}, wantErr: "ARA database"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".arath.timestamp")
			args := append([]string{"report", "--checkpoint", path}, tt.args...)

			_, _, err := execute(t, args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.NoFileExists(t, path)
		})
	}
}

func TestReportCommandConfigFile(t *testing.T) {
	srv := newARAServer(t, http.StatusOK)
	path := writeCheckpoint(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "endpoint: " + srv.URL + "\ncheckpoint_path: " + path + "\nignore_statuses: [ok, failed]\n"
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	t.Setenv("ARA_API_SERVER", "")
	cmd := NewRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"report", "--config", configPath})

	require.NoError(t, cmd.Execute())
	assert.NotContains(t, stdout.String(), "Restart nginx", "failed is ignored by the config file")
}
