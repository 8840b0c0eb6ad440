package proc

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"stackwarden/internal/logger"
	"stackwarden/internal/models"
)

// Controller is the process control boundary of the supervisor. The concrete
// mechanism behind it (OS process, container runtime, remote API) is an
// external collaborator; the core only relies on these three operations.
type Controller interface {
	Start(ctx context.Context, spec models.ServiceSpec) error
	Stop(ctx context.Context, id string, grace time.Duration) error
	ForceKill(id string) error
}

type managedProcess struct {
	cmd      *exec.Cmd
	done     chan struct{}
	exitErr  error
	stopping bool
}

// ExecController runs services as local OS processes.
type ExecController struct {
	mu    sync.Mutex
	procs map[string]*managedProcess
}

func NewExecController() *ExecController {
	return &ExecController{procs: make(map[string]*managedProcess)}
}

/**
 * Start launches the service's command and begins reaping it
 * @description
 * - Refuses to start when a live process for the id already exists
 * - A reaper goroutine waits on the process so exits are observed promptly
 */
func (c *ExecController) Start(ctx context.Context, spec models.ServiceSpec) error {
	if spec.Command == "" {
		return &models.ProcessControlError{Service: spec.ID, Op: "start",
			Err: fmt.Errorf("no command configured")}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if mp, ok := c.procs[spec.ID]; ok {
		select {
		case <-mp.done:
			// previous process exited, fall through and replace it
		default:
			return &models.ProcessControlError{Service: spec.ID, Op: "start",
				Err: models.ErrAlreadyRunning}
		}
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	if err := cmd.Start(); err != nil {
		return &models.ProcessControlError{Service: spec.ID, Op: "start", Err: err}
	}

	mp := &managedProcess{cmd: cmd, done: make(chan struct{})}
	c.procs[spec.ID] = mp
	logger.Infof("service [%s] started (pid %d)", spec.ID, cmd.Process.Pid)

	go func() {
		mp.exitErr = cmd.Wait()
		close(mp.done)
	}()
	return nil
}

/**
 * Stop signals the service and escalates to kill after the grace period
 * @description
 * - SIGTERM first; if the process is still alive when grace elapses or the
 *   context is cancelled, it is killed
 * - Stopping an id without a live process is a no-op
 */
func (c *ExecController) Stop(ctx context.Context, id string, grace time.Duration) error {
	c.mu.Lock()
	mp, ok := c.procs[id]
	if ok {
		mp.stopping = true
	}
	c.mu.Unlock()
	if !ok {
		return nil
	}

	select {
	case <-mp.done:
		return nil
	default:
	}

	if err := mp.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return &models.ProcessControlError{Service: id, Op: "stop", Err: err}
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-mp.done:
		logger.Infof("service [%s] stopped", id)
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}
	logger.Warnf("service [%s] did not stop within %v, killing", id, grace)
	return c.ForceKill(id)
}

// ForceKill terminates the service's process immediately.
func (c *ExecController) ForceKill(id string) error {
	c.mu.Lock()
	mp, ok := c.procs[id]
	c.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-mp.done:
		return nil
	default:
	}
	if err := mp.cmd.Process.Kill(); err != nil {
		return &models.ProcessControlError{Service: id, Op: "kill", Err: err}
	}
	<-mp.done
	logger.Infof("service [%s] killed", id)
	return nil
}

// Alive reports whether the service's process still exists in the process
// table. Used as a cheap pre-check before probing.
func (c *ExecController) Alive(id string) bool {
	c.mu.Lock()
	mp, ok := c.procs[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case <-mp.done:
		return false
	default:
	}
	exists, err := process.PidExists(int32(mp.cmd.Process.Pid))
	return err == nil && exists
}
