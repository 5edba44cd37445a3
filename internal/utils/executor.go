package utils

import (
	"context"
	"os/exec"

	"go.uber.org/zap"
)

// CommandExecutor runs the host commands the collectors read from.
type CommandExecutor interface {
	GetDiskUsage(ctx context.Context, path string) ([]byte, error)
}

type SystemCommandExecutor struct {
	logger *zap.Logger
}

func NewSystemCommandExecutor(logger *zap.Logger) *SystemCommandExecutor {
	return &SystemCommandExecutor{
		logger: logger,
	}
}

// Execute executes a command and returns the output
// Args:
// - ctx: context.Context
// - command: string
// - args: []string
// Returns:
// - []byte: output of the command
// - error: error if the command fails
func (e *SystemCommandExecutor) Execute(ctx context.Context, command string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command, args...)

	e.logger.Debug("Executing command",
		zap.String("command", command),
		zap.Strings("args", args),
	)

	output, err := cmd.Output()
	if err != nil {
		e.logger.Error("Command execution failed",
			zap.String("command", command),
			zap.Strings("args", args),
			zap.Error(err),
		)
		return nil, err
	}

	return output, nil
}

// GetDiskUsage gets disk usage of the filesystem holding path in 1K blocks
// The command it runs is:
// - df -k -P path
func (e *SystemCommandExecutor) GetDiskUsage(ctx context.Context, path string) ([]byte, error) {
	if path == "" {
		path = "/"
	}
	return e.Execute(ctx, "df", "-k", "-P", path)
}
