package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/exec"
	"strings"

	"stackwarden/internal/models"
)

// maxOutput bounds what a probe may report back; anything longer is truncated
// before it lands in the runtime record.
const maxOutput = 512

// Prober executes one health check against a service. The caller bounds the
// execution through ctx; an expired deadline is a failed probe, never a
// pending one.
type Prober interface {
	Check(ctx context.Context, spec models.ProbeSpec) (ok bool, output string, err error)
}

// Default returns a prober that dispatches on the probe type.
func Default() Prober {
	return &multiProber{
		http: &HTTPProber{Client: &http.Client{}},
		tcp:  &TCPProber{},
		cmd:  &CommandProber{},
	}
}

type multiProber struct {
	http *HTTPProber
	tcp  *TCPProber
	cmd  *CommandProber
}

func (m *multiProber) Check(ctx context.Context, spec models.ProbeSpec) (bool, string, error) {
	switch spec.Type {
	case models.ProbeHTTP:
		return m.http.Check(ctx, spec)
	case models.ProbeTCP:
		return m.tcp.Check(ctx, spec)
	case models.ProbeCommand:
		return m.cmd.Check(ctx, spec)
	default:
		return false, "", fmt.Errorf("unknown probe type %q", spec.Type)
	}
}

// HTTPProber issues a GET against the target URL and compares the status code.
type HTTPProber struct {
	Client *http.Client
}

func (p *HTTPProber) Check(ctx context.Context, spec models.ProbeSpec) (bool, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, spec.Target, nil)
	if err != nil {
		return false, "", err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false, truncate(err.Error()), nil
	}
	defer resp.Body.Close()
	// Drain a little so keep-alive connections are reusable.
	_, _ = io.CopyN(io.Discard, resp.Body, maxOutput)

	expect := spec.ExpectStatus
	if expect == 0 {
		expect = http.StatusOK
	}
	out := fmt.Sprintf("GET %s: %d", spec.Target, resp.StatusCode)
	return resp.StatusCode == expect, out, nil
}

// TCPProber reports healthy when the target address accepts a connection.
type TCPProber struct{}

func (p *TCPProber) Check(ctx context.Context, spec models.ProbeSpec) (bool, string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", spec.Target)
	if err != nil {
		return false, truncate(err.Error()), nil
	}
	conn.Close()
	return true, fmt.Sprintf("tcp %s: connected", spec.Target), nil
}

// CommandProber runs the target as a shell-less command line; exit code zero
// means healthy. Output is the combined stdout/stderr.
type CommandProber struct{}

func (p *CommandProber) Check(ctx context.Context, spec models.ProbeSpec) (bool, string, error) {
	fields := strings.Fields(spec.Target)
	if len(fields) == 0 {
		return false, "", fmt.Errorf("empty probe command")
	}
	cmd := exec.CommandContext(ctx, fields[0], fields[1:]...)
	out, err := cmd.CombinedOutput()
	output := truncate(strings.TrimSpace(string(out)))
	if ctx.Err() != nil {
		return false, "probe timed out", nil
	}
	if err != nil {
		if output == "" {
			output = err.Error()
		}
		return false, output, nil
	}
	return true, output, nil
}

func truncate(s string) string {
	if len(s) > maxOutput {
		return s[:maxOutput]
	}
	return s
}
