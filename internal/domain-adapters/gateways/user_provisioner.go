package gateways

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ochairo/cauldron/internal/domain/entities"
)

// UserProvisioner creates the unprivileged execution identity and
// configures its global VCS trust. Provisioned environments are later
// mounted against externally-owned source trees of varying ownership, so
// the user's git config must trust arbitrary local directories.
type UserProvisioner struct {
	executor *ScriptExecutor
	timeout  time.Duration
}

// NewUserProvisioner creates a new user provisioner
func NewUserProvisioner(executor *ScriptExecutor) *UserProvisioner {
	return &UserProvisioner{
		executor: executor,
		timeout:  2 * time.Minute,
	}
}

// ProvisionUser creates the user account and applies its VCS trust config
func (up *UserProvisioner) ProvisionUser(ctx context.Context, user *entities.UserConfig) error {
	if user.Name == "" {
		return fmt.Errorf("user name not specified")
	}

	home := user.Home
	if home == "" {
		home = "/home/" + user.Name
	}

	if err := up.executor.RunChecked(ctx, ExecuteScriptConfig{
		Script:      CreateUserCommand(user.Name, home),
		Timeout:     up.timeout,
		Description: fmt.Sprintf("create user %s", user.Name),
	}); err != nil {
		return err
	}

	if user.VCSTrust {
		// Runs as the created user so .gitconfig lands in their home
		// with their ownership, not the provisioner's.
		if err := up.executor.RunChecked(ctx, ExecuteScriptConfig{
			Script: AsUserCommand(user.Name, "git config --global --add safe.directory '*'"),
			Env: map[string]string{
				"HOME": home,
			},
			Timeout:     up.timeout,
			Description: fmt.Sprintf("configure VCS trust for %s", user.Name),
		}); err != nil {
			return err
		}
	}

	return nil
}

// CreateUserCommand builds the user creation invocation (exported for testing)
func CreateUserCommand(name, home string) string {
	return fmt.Sprintf("useradd --create-home --home-dir %s --shell /bin/sh %s", home, name)
}

// AsUserCommand wraps a shell command so it runs as the named user
// (exported for testing). An empty name leaves the command unchanged.
func AsUserCommand(name, script string) string {
	if name == "" {
		return script
	}
	quoted := "'" + strings.ReplaceAll(script, "'", `'\''`) + "'"
	return fmt.Sprintf("runuser -u %s -- /bin/sh -c %s", name, quoted)
}
