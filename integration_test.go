package main

import (
	"context"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kwv/veloproj/lidar"
)

// buildBinary compiles the command into a temporary directory
func buildBinary(t *testing.T) string {
	t.Helper()
	binaryPath := filepath.Join(t.TempDir(), "veloproj-test")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if output, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, output)
	}
	return binaryPath
}

// TestCLIExitCodes runs the built binary against real fixtures
func TestCLIExitCodes(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test (set RUN_INTEGRATION_TESTS=1 to run)")
	}

	binaryPath := buildBinary(t)
	calib := writeCalibration(t)
	cloud := []lidar.Point3D{{X: 10, R: 0.5}}

	tests := []struct {
		name           string
		args           []string
		wantExit       int
		expectInOutput []string
	}{
		{
			name:           "depth sequence",
			args:           []string{writeSequence(t, 2, 2, cloud), calib, filepath.Join(t.TempDir(), "out")},
			wantExit:       0,
			expectInOutput: []string{"veloproj version:", "Found 2 frames", "Wrote 2 depth images"},
		},
		{
			name:           "count mismatch",
			args:           []string{writeSequence(t, 3, 4, cloud), calib, filepath.Join(t.TempDir(), "out")},
			wantExit:       1,
			expectInOutput: []string{"frame count mismatch"},
		},
		{
			name:           "missing positional",
			args:           []string{calib, calib},
			wantExit:       1,
			expectInOutput: []string{"expected 3 arguments"},
		},
		{
			name:           "help",
			args:           []string{"--help"},
			wantExit:       0,
			expectInOutput: []string{"Usage of veloproj", "-overlay", "-http-port"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			cmd := exec.CommandContext(ctx, binaryPath, tt.args...)
			cmd.Env = append(os.Environ(), "MQTT_BROKER=")
			output, _ := cmd.CombinedOutput()
			outputStr := string(output)

			if code := cmd.ProcessState.ExitCode(); code != tt.wantExit {
				t.Errorf("exit code = %d, want %d\nFull output:\n%s", code, tt.wantExit, outputStr)
			}
			for _, expected := range tt.expectInOutput {
				if !strings.Contains(outputStr, expected) {
					t.Errorf("Expected output to contain '%s', but it didn't.\nFull output:\n%s",
						expected, outputStr)
				}
			}
		})
	}
}

// TestHTTPServeSignalHandling tests that --http serves the latest frame and stops on SIGINT
func TestHTTPServeSignalHandling(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test (set RUN_INTEGRATION_TESTS=1 to run)")
	}

	binaryPath := buildBinary(t)
	data := writeSequence(t, 1, 1, []lidar.Point3D{{X: 10, R: 0.5}})

	cmd := exec.Command(binaryPath, "--http", "--http-port", "18089", data, writeCalibration(t), t.TempDir())
	cmd.Env = append(os.Environ(), "MQTT_BROKER=")
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start: %v", err)
	}

	// Give it time to start
	var resp *http.Response
	var err error
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://127.0.0.1:18089/depth.png")
		if err == nil && resp.StatusCode == http.StatusOK {
			break
		}
		if resp != nil {
			_ = resp.Body.Close()
			resp = nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	if resp == nil {
		t.Errorf("depth endpoint never became ready: %v", err)
	} else {
		_ = resp.Body.Close()
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Logf("Failed to send SIGINT (process may have already exited): %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Service exited with error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("Service did not shut down within timeout")
		if err := cmd.Process.Kill(); err != nil {
			t.Logf("Failed to kill process: %v", err)
		}
	}
}
