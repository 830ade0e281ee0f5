package gateways

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// EntrypointRunner executes the runtime contract at container start: it
// checks the declared mounts, applies the declared environment, and runs
// the entrypoint script with no arguments. The entrypoint's exit code
// becomes the container's exit code.
type EntrypointRunner struct {
	stdout io.Writer
	stderr io.Writer
}

// NewEntrypointRunner creates a runner wired to the process's own streams
func NewEntrypointRunner() *EntrypointRunner {
	return &EntrypointRunner{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// NewEntrypointRunnerWithStreams creates a runner with explicit output
// streams (used by tests)
func NewEntrypointRunnerWithStreams(stdout, stderr io.Writer) *EntrypointRunner {
	return &EntrypointRunner{stdout: stdout, stderr: stderr}
}

// Run executes the contract's entrypoint and returns its exit code.
// When the contract declares a user, the entrypoint runs as that user.
// A non-nil error means the entrypoint never ran (missing mount, missing
// script, unknown user); the exit code is then -1.
func (er *EntrypointRunner) Run(ctx context.Context, contract *entities.RuntimeContract) (int, error) {
	for _, mount := range contract.Mounts {
		info, err := os.Stat(mount)
		if err != nil {
			return -1, fmt.Errorf("expected mount %s is not present: %w", mount, err)
		}
		if !info.IsDir() {
			return -1, fmt.Errorf("expected mount %s is not a directory", mount)
		}
	}

	if _, err := os.Stat(contract.Entrypoint); err != nil {
		return -1, fmt.Errorf("entrypoint %s is not present: %w", contract.Entrypoint, err)
	}

	// No arguments: the entrypoint's contract is invocation with none
	//nolint:gosec // G204: the entrypoint is the declared runtime contract
	cmd := exec.CommandContext(ctx, contract.Entrypoint)

	env := os.Environ()
	for key, value := range contract.Env {
		env = append(env, key+"="+value)
	}

	if contract.User != "" {
		u, err := user.Lookup(contract.User)
		if err != nil {
			return -1, fmt.Errorf("contract user %s does not exist: %w", contract.User, err)
		}
		env = append(env, "HOME="+u.HomeDir, "USER="+u.Username, "LOGNAME="+u.Username)

		// Only root can switch identity; when already running as the
		// contract user there is nothing to drop.
		if os.Getuid() == 0 {
			cred, err := userCredential(u)
			if err != nil {
				return -1, err
			}
			cmd.SysProcAttr = &syscall.SysProcAttr{Credential: cred}
		} else if u.Uid != strconv.Itoa(os.Getuid()) {
			return -1, fmt.Errorf("cannot switch to contract user %s without root", contract.User)
		}
	}

	cmd.Env = env
	cmd.Stdout = er.stdout
	cmd.Stderr = er.stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		return -1, fmt.Errorf("failed to run entrypoint: %w", err)
	}

	return 0, nil
}

// userCredential converts a passwd entry into process credentials
func userCredential(u *user.User) (*syscall.Credential, error) {
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid uid for %s: %w", u.Username, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid gid for %s: %w", u.Username, err)
	}
	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}
