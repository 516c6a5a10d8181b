package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/vinyl/internal/shared"
	"github.com/urfave/cli/v3"
)

type healthResponse struct {
	Status string `json:"status"`
}

// Health GETs /api/health of a running server and fails unless it answers {"status": "ok"}.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	base := strings.TrimRight(cmd.String("url"), "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var health healthResponse
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &health) != nil || health.Status != "ok" {
		return fmt.Errorf("%w: status %d: %s", shared.ErrServiceUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if cmd.Bool("json") {
		return r.writeJSON(health, false)
	}
	return r.writePlain("%s is healthy\n", base)
}
