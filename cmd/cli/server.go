package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

const (
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

// isServerRunning checks if the server is responding to health checks
func isServerRunning() bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findServerBinary looks next to the CLI, then on PATH, then in common install locations
func findServerBinary() (string, error) {
	execPath, err := os.Executable()
	if err == nil {
		execDir := filepath.Dir(execPath)
		serverPath := filepath.Join(execDir, "halftunes-server")
		if _, err := os.Stat(serverPath); err == nil {
			return serverPath, nil
		}
	}

	serverPath, err := exec.LookPath("halftunes-server")
	if err == nil {
		return serverPath, nil
	}

	commonPaths := []string{
		"/usr/local/bin/halftunes-server",
		"/usr/bin/halftunes-server",
		filepath.Join(os.Getenv("HOME"), "go/bin/halftunes-server"),
		filepath.Join(os.Getenv("HOME"), ".local/bin/halftunes-server"),
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("halftunes-server binary not found")
}

// startServerBackground starts the server as a detached background process
func startServerBackground() error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	args := []string{}
	if configFile != "" {
		args = append(args, "-config", configFile)
	}
	cmd := exec.Command(serverPath, args...)
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Reap the child if it exits while the CLI is still running
	go func() {
		cmd.Wait()
	}()

	return nil
}

// waitForServerReady polls the server until it's ready or timeout
func waitForServerReady() error {
	deadline := time.Now().Add(serverStartTimeout)

	for time.Now().Before(deadline) {
		if isServerRunning() {
			return nil
		}
		time.Sleep(serverPollInterval)
	}

	return fmt.Errorf("server did not start within %v", serverStartTimeout)
}

// ensureServerRunning checks if server is running, starts it if not
func ensureServerRunning(out io.Writer) error {
	if isServerRunning() {
		return nil
	}

	fmt.Fprintln(out, "Server not running, starting...")

	if err := startServerBackground(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	if err := waitForServerReady(); err != nil {
		return err
	}

	fmt.Fprintln(out, "Server started successfully")
	return nil
}
