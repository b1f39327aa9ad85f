package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// HealthResponse matches the /readyz body.
type HealthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthError carries the process exit code for a failed check.
type healthError struct {
	code int
	msg  string
}

func (e *healthError) Error() string { return e.msg }

func newHealthcheckCommand() *cobra.Command {
	var (
		timeout time.Duration
		url     string
	)
	cmd := &cobra.Command{
		Use:   "healthcheck",
		Short: "Check if the server is ready",
		Long: `Performs a readiness check by calling the /readyz endpoint.

This command is used by Docker HEALTHCHECK to monitor container health.

Exit codes:
  0 - Server is healthy
  1 - Server is unhealthy or unreachable
  2 - Invalid response from server`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				port := os.Getenv("SERVER_PORT")
				if port == "" {
					port = "5002"
				}
				url = fmt.Sprintf("http://localhost:%s/readyz", port)
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if _, err := performHealthCheck(ctx, url); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Health check failed: %v\n", err)
				var he *healthError
				if errors.As(err, &he) {
					os.Exit(he.code)
				}
				os.Exit(1)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")
	cmd.Flags().StringVar(&url, "url", "", "readiness URL (default: http://localhost:{SERVER_PORT}/readyz)")
	return cmd
}

func performHealthCheck(ctx context.Context, url string) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &healthError{code: 1, msg: fmt.Sprintf("create request: %v", err)}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &healthError{code: 1, msg: fmt.Sprintf("request: %v", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	var body HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &healthError{code: 2, msg: fmt.Sprintf("parse response: %v", err)}
	}

	if resp.StatusCode != http.StatusOK || body.Status != "healthy" {
		return &body, &healthError{code: 1, msg: fmt.Sprintf("status %d, server status %q", resp.StatusCode, body.Status)}
	}
	return &body, nil
}
