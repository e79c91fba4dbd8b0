package client

import (
	"context"
	"net/http"
	"net/url"

	"devpilot/internal/orchestrator"
	"devpilot/internal/service"
)

// Execute runs cmd on the server. A command that ran and failed is returned
// as an unsuccessful result, not as an error.
func (c *Client) Execute(ctx context.Context, cmd orchestrator.Command) (orchestrator.CommandResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/commands", cmd)
	if err != nil {
		return orchestrator.CommandResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusUnprocessableEntity:
		var res orchestrator.CommandResult
		if err := decode(resp, &res); err != nil {
			return orchestrator.CommandResult{}, err
		}
		return res, nil
	default:
		return orchestrator.CommandResult{}, responseError(resp)
	}
}

// Status fetches the aggregate status snapshot
func (c *Client) Status(ctx context.Context) (orchestrator.Status, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/status", nil)
	if err != nil {
		return orchestrator.Status{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return orchestrator.Status{}, responseError(resp)
	}
	var body struct {
		Status orchestrator.Status `json:"status"`
	}
	if err := decode(resp, &body); err != nil {
		return orchestrator.Status{}, err
	}
	return body.Status, nil
}

// ListServices returns the service processes the server tracks
func (c *Client) ListServices(ctx context.Context) ([]service.RuntimeState, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/services", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp)
	}
	var body struct {
		Services []service.RuntimeState `json:"services"`
	}
	if err := decode(resp, &body); err != nil {
		return nil, err
	}
	return body.Services, nil
}

// GetService returns the live state of one configured service
func (c *Client) GetService(ctx context.Context, name string) (service.RuntimeState, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/services/"+url.PathEscape(name), nil)
	if err != nil {
		return service.RuntimeState{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return service.RuntimeState{}, responseError(resp)
	}
	var state service.RuntimeState
	if err := decode(resp, &state); err != nil {
		return service.RuntimeState{}, err
	}
	return state, nil
}
