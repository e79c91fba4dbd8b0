package service

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"devpilot/internal/config"
	"devpilot/internal/constants"
	"devpilot/internal/errors"
	"devpilot/internal/logger"
	"devpilot/internal/validation"
)

// waitDelay bounds how long Wait keeps draining output after the process exits
const waitDelay = 2 * time.Second

// Process is a spawned service process
type Process struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
	outputs []*io.PipeWriter
}

// StartCommand returns the command line used to launch svc
func StartCommand(svc config.ServiceDescriptor) ([]string, error) {
	if len(svc.StartCommand) > 0 {
		return svc.StartCommand, nil
	}
	switch svc.Runtime {
	case config.RuntimeNode:
		return []string{constants.NPM, "start"}, nil
	case config.RuntimePython:
		return []string{constants.Python, "app.py"}, nil
	case config.RuntimePHP:
		if !svc.HasPort() {
			return nil, errors.InvalidInput(svc.Name+".port", "a port for the php built-in server")
		}
		return []string{constants.PHP, "-S", fmt.Sprintf("127.0.0.1:%d", svc.Port)}, nil
	default:
		return nil, errors.UnknownRuntime(svc.Name, string(svc.Runtime))
	}
}

// spawn launches svc in dir, detached from any caller context. Output is
// forwarded to the logger.
func spawn(svc config.ServiceDescriptor, dir string) (*Process, error) {
	line, err := StartCommand(svc)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(line[0], line[1:]...)
	cmd.Dir = dir
	cmd.Env = os.Environ()
	if svc.HasPort() {
		cmd.Env = append(cmd.Env, "PORT="+strconv.Itoa(svc.Port))
	}
	cmd.WaitDelay = waitDelay
	configureProcess(cmd)

	stdout := logger.ServiceOutput(svc.Name, "stdout")
	stderr := logger.ServiceOutput(svc.Name, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("failed to spawn %s: %w", validation.JoinCommand(line), err)
	}

	p := &Process{
		cmd:     cmd,
		done:    make(chan struct{}),
		outputs: []*io.PipeWriter{stdout, stderr},
	}
	go p.wait()

	logger.WithFields(logger.Fields{
		"service": svc.Name,
		"pid":     cmd.Process.Pid,
		"command": validation.JoinCommand(line),
	}).Debug("Spawned service process")
	return p, nil
}

func (p *Process) wait() {
	p.waitErr = p.cmd.Wait()
	for _, w := range p.outputs {
		w.Close()
	}
	close(p.done)
}

// PID returns the operating system process id
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Done is closed once the process has exited
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exited reports whether the process has exited
func (p *Process) Exited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// ExitErr returns the result of waiting on the process. It is only
// meaningful after Done is closed.
func (p *Process) ExitErr() error {
	return p.waitErr
}

// Stop sends the graceful termination signal, waits up to grace for exit and
// force-kills the process group if it is still alive. It reports whether the
// kill was needed.
func (p *Process) Stop(grace time.Duration) bool {
	if p.Exited() {
		return false
	}
	if err := terminateProcess(p.cmd); err != nil {
		logger.WithError(err).WithField("pid", p.PID()).Debug("Termination signal failed")
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-p.done:
		return false
	case <-timer.C:
	}

	p.Kill()
	return true
}

// Kill force-kills the process group and waits for the process to exit
func (p *Process) Kill() {
	if p.Exited() {
		return
	}
	if err := killProcess(p.cmd); err != nil {
		logger.WithError(err).WithField("pid", p.PID()).Debug("Kill signal failed")
	}
	<-p.done
}
