package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"devpilot/internal/config"
)

// ErrProcessExited is returned by a ProcessProbe once the process is gone
var ErrProcessExited = stderrors.New("process exited")

// maxProbeBody caps how much of a health response is read
const maxProbeBody = 64 << 10

// Probe decides whether a service is ready or healthy. On success it returns
// a short description of what it observed.
type Probe interface {
	Check(ctx context.Context) (string, error)
}

// ProbeFactory builds the probe for a service. proc is nil for health checks
// of services that are not tracked.
type ProbeFactory func(svc config.ServiceDescriptor, proc *Process) Probe

// HTTPProbe succeeds when a GET returns a 2xx status
type HTTPProbe struct {
	URL    string
	Client *http.Client
}

// Check issues the GET. The observation is the "status" field of a JSON body
// when present, the HTTP status line otherwise.
func (p HTTPProbe) Check(ctx context.Context) (string, error) {
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return "", fmt.Errorf("invalid probe url %s: %w", p.URL, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.Status, fmt.Errorf("unexpected status %s from %s", resp.Status, p.URL)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Status != "" {
		return payload.Status, nil
	}
	return resp.Status, nil
}

// TCPProbe succeeds when a connection to Address can be opened
type TCPProbe struct {
	Address string
	Timeout time.Duration
}

func (p TCPProbe) Check(ctx context.Context) (string, error) {
	dialer := net.Dialer{Timeout: p.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return "", err
	}
	conn.Close()
	return "accepting connections", nil
}

// ProcessProbe succeeds while the process is alive
type ProcessProbe struct {
	Process *Process
}

func (p ProcessProbe) Check(context.Context) (string, error) {
	if p.Process == nil {
		return "", fmt.Errorf("no process: %w", ErrProcessExited)
	}
	if p.Process.Exited() {
		if err := p.Process.ExitErr(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrProcessExited, err)
		}
		return "", ErrProcessExited
	}
	return fmt.Sprintf("pid %d running", p.Process.PID()), nil
}

// AllProbe succeeds when every probe succeeds, checked in order. The
// observation of the last probe is returned.
type AllProbe []Probe

func (a AllProbe) Check(ctx context.Context) (string, error) {
	var detail string
	for _, p := range a {
		d, err := p.Check(ctx)
		if err != nil {
			return d, err
		}
		detail = d
	}
	return detail, nil
}

// DefaultReadiness waits for the process to stay alive and its port to answer
func DefaultReadiness(timeout time.Duration) ProbeFactory {
	client := &http.Client{Timeout: timeout}
	return func(svc config.ServiceDescriptor, proc *Process) Probe {
		var target Probe = HTTPProbe{URL: svc.BaseURL(), Client: client}
		if svc.ReadyProbe == config.ProbeTCP {
			target = TCPProbe{Address: fmt.Sprintf("localhost:%d", svc.Port), Timeout: timeout}
		}
		if proc == nil {
			return target
		}
		return AllProbe{ProcessProbe{Process: proc}, target}
	}
}

// DefaultHealth probes the service's health endpoint
func DefaultHealth(timeout time.Duration) ProbeFactory {
	client := &http.Client{Timeout: timeout}
	return func(svc config.ServiceDescriptor, _ *Process) Probe {
		return HTTPProbe{URL: svc.HealthURL(), Client: client}
	}
}
