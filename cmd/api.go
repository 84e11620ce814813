package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/urfave/cli/v3"
)

// APIGet makes a direct GET request to the Web API
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, http.MethodGet, cmd.StringArg("path"), "", cmd.Bool("pretty"))
}

// APIPut makes a direct PUT request to the Web API
func (r *Runner) APIPut(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, http.MethodPut, cmd.StringArg("path"), cmd.String("data"), true)
}

// APIPost makes a direct POST request to the Web API
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	return r.apiCall(ctx, http.MethodPost, cmd.StringArg("path"), cmd.String("data"), true)
}

func (r *Runner) apiCall(ctx context.Context, method, path, data string, pretty bool) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body []byte
	if data != "" {
		var jsonTest any
		if err := json.Unmarshal([]byte(data), &jsonTest); err != nil {
			return fmt.Errorf("%w: data is not valid JSON: %v", shared.ErrInvalidInput, err)
		}
		body = []byte(data)
	}

	client, err := r.connect(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("api request", "method", method, "path", path)

	resp, err := client.Raw(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}
	return r.writeResponse(resp, pretty)
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	if len(resp.Body) == 0 {
		return r.writePlain("%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return r.writePlain("%s\n", resp.Body)
}
