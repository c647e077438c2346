package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/fmbridge/internal/formatter"
	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/desertthunder/fmbridge/internal/services"
	"github.com/desertthunder/fmbridge/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the Firefly API
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.api.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, !cmd.Bool("json"))
}

// APIPost makes a direct POST request to the Firefly API
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	var jsonTest any
	if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
		return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.api.Post(ctx, path, []byte(data))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, true)
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	return r.writeBytes(append(resp.Body, '\n'))
}

// APIDump fetches the instance information and the first page of every synced collection.
func (r *Runner) APIDump(ctx context.Context, cmd *cli.Command) error {
	type DumpData struct {
		About       any            `json:"about"`
		Collections map[string]any `json:"collections"`
		Errors      []any          `json:"errors,omitempty"`
	}

	dump := DumpData{Collections: make(map[string]any), Errors: []any{}}

	r.logger.Info("dumping Firefly state")

	endpoints := []string{"/api/v1/about"}
	for _, kind := range models.AllKinds {
		endpoints = append(endpoints, kind.Endpoint())
	}

	for i, endpoint := range endpoints {
		resp, err := r.api.Get(ctx, endpoint)
		if err == nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		if err != nil {
			dump.Errors = append(dump.Errors, map[string]string{"endpoint": endpoint, "error": err.Error()})
			r.logger.Warn("failed to fetch", "endpoint", endpoint, "error", err)
			continue
		}

		if i == 0 {
			dump.About = resp.JSONData
		} else {
			dump.Collections[models.AllKinds[i-1].String()] = resp.JSONData
		}
	}

	if path := cmd.String("save"); path != "" {
		data, err := shared.MarshalJSON(dump, true)
		if err != nil {
			return fmt.Errorf("failed to marshal dump: %w", err)
		}
		if err := formatter.WriteOutput(path, data); err != nil {
			r.logger.Warn("failed to save dump", "error", err)
		} else {
			r.logger.Info("dump saved", "file", path)
		}
	}

	return r.writeJSON(dump, cmd.Bool("pretty"))
}
