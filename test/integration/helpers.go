//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	BinaryPath string
	Verbose    bool
}

// LoadTestConfig loads configuration from environment variables
func LoadTestConfig() *TestConfig {
	return &TestConfig{
		BinaryPath: getBinaryPath(),
		Verbose:    os.Getenv("CLIENTABLE_VERBOSE") == "true",
	}
}

// getBinaryPath determines the path to the clientable binary
func getBinaryPath() string {
	if path := os.Getenv("CLIENTABLE_BINARY_PATH"); path != "" {
		return path
	}

	// Try common locations
	candidates := []string{
		"../../clientable",
		"./clientable",
		"../clientable",
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return "clientable" // Fallback to PATH
}

// SkipIfMissingBinary skips test if the binary cannot be found
func (config *TestConfig) SkipIfMissingBinary(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath(config.BinaryPath); err != nil {
		t.Skipf("clientable binary not found at %s, skipping integration test", config.BinaryPath)
	}
}

// CommandRunner runs clientable commands against an isolated config file
type CommandRunner struct {
	config     *TestConfig
	configFile string
	t          *testing.T
}

// NewCommandRunner creates a new command runner with an empty config file
func NewCommandRunner(config *TestConfig, t *testing.T) *CommandRunner {
	t.Helper()

	configFile := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(configFile, []byte("{}\n"), 0o600); err != nil {
		t.Fatalf("failed to create config file: %v", err)
	}

	return &CommandRunner{
		config:     config,
		configFile: configFile,
		t:          t,
	}
}

// Run executes a clientable command and returns output
func (runner *CommandRunner) Run(args ...string) (stdout, stderr string, err error) {
	return runner.RunWithInput("", args...)
}

// RunWithInput executes a clientable command with stdin input
func (runner *CommandRunner) RunWithInput(input string, args ...string) (stdout, stderr string, err error) {
	args = append([]string{"--config", runner.configFile}, args...)

	cmd := exec.Command(runner.config.BinaryPath, args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.Stdin = strings.NewReader(input)

	if runner.config.Verbose {
		runner.t.Logf("Running: %s %s", runner.config.BinaryPath, strings.Join(args, " "))
	}

	err = cmd.Run()
	stdout = stdoutBuf.String()
	stderr = stderrBuf.String()

	if runner.config.Verbose && err != nil {
		runner.t.Logf("Command failed: %v\nStdout: %s\nStderr: %s", err, stdout, stderr)
	}

	return stdout, stderr, err
}

// AddService registers a service in the runner's config file
func (runner *CommandRunner) AddService(name, endpoint string) error {
	_, stderr, err := runner.Run("services", "add", name, endpoint)
	if err != nil {
		return fmt.Errorf("failed to add service: %s", stderr)
	}

	return nil
}

// ResourceService is an in-memory REST service speaking the v2 envelope
type ResourceService struct {
	mu      sync.Mutex
	nextID  int
	records map[int]map[string]interface{}
	Server  *httptest.Server
}

// NewResourceService starts a service holding one resource collection
func NewResourceService(t *testing.T, resource string) *ResourceService {
	t.Helper()

	service := &ResourceService{nextID: 1, records: make(map[int]map[string]interface{})}
	prefix := "/v2/" + resource

	service.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, prefix)

		service.mu.Lock()
		defer service.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && path == "":
			var record map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&record)
			record["id"] = service.nextID
			service.records[service.nextID] = record
			service.nextID++
			writeEnvelope(w, http.StatusOK, record)
		case r.Method == http.MethodGet && (path == "/_batch" || path == ""):
			list := make([]map[string]interface{}, 0, len(service.records))
			for id := 1; id < service.nextID; id++ {
				if record, ok := service.records[id]; ok {
					list = append(list, record)
				}
			}
			writeEnvelope(w, http.StatusOK, list)
		case r.Method == http.MethodGet && path == "/_aggregate":
			writeEnvelope(w, http.StatusOK, map[string]interface{}{
				"count": map[string]interface{}{"*": len(service.records)},
			})
		default:
			id, err := strconv.Atoi(strings.TrimPrefix(path, "/"))
			record, ok := service.records[id]
			if err != nil || !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"code":404,"msg":"not found"}`))

				return
			}

			switch r.Method {
			case http.MethodPut:
				var changes map[string]interface{}
				_ = json.NewDecoder(r.Body).Decode(&changes)
				for key, value := range changes {
					record[key] = value
				}
				writeEnvelope(w, http.StatusOK, record)
			case http.MethodDelete:
				delete(service.records, id)
				writeEnvelope(w, http.StatusOK, []interface{}{})
			default:
				writeEnvelope(w, http.StatusOK, record)
			}
		}
	}))
	t.Cleanup(service.Server.Close)

	return service
}

func writeEnvelope(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"code": status, "data": data})
}

// AssertJSONOutput verifies command output is valid JSON
func AssertJSONOutput(t *testing.T, output string) {
	t.Helper()

	if !json.Valid([]byte(strings.TrimSpace(output))) {
		t.Errorf("Output does not appear to be JSON: %s", output)
	}
}

// AssertYAMLOutput verifies command output looks like YAML
func AssertYAMLOutput(t *testing.T, output string) {
	t.Helper()

	output = strings.TrimSpace(output)
	if strings.Contains(output, "---") || strings.Contains(output, ":") {
		return // Looks like YAML
	}
	t.Errorf("Output does not appear to be YAML: %s", output)
}
