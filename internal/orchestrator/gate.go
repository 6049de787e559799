package orchestrator

import (
	"context"
	"log/slog"

	"github.com/Cyclone1070/lolo/internal/risk"
	"github.com/Cyclone1070/lolo/internal/ui"
)

// CommandGate decides whether a shell command may run. A nil error means
// proceed; a *RefusalError means the command was blocked and the refusal
// text should be returned to the model as the tool result.
type CommandGate interface {
	Check(ctx context.Context, command string) error
}

type riskGate struct {
	ui     ui.UserInterface
	logger *slog.Logger
}

// NewCommandGate builds the default gate: dangerous commands require an
// explicit confirmation from the user, interactive programs are refused
// outright with a non-interactive alternative when one exists.
func NewCommandGate(userUI ui.UserInterface, logger *slog.Logger) CommandGate {
	return &riskGate{ui: userUI, logger: logger}
}

func (g *riskGate) Check(ctx context.Context, command string) error {
	verdict := risk.Classify(command)
	g.logger.Debug("command classified", "command", command, "level", verdict.Level)

	switch verdict.Level {
	case risk.LevelSafe:
		return nil
	case risk.LevelInteractive:
		return &RefusalError{
			Command:     command,
			Reason:      verdict.Reason,
			Alternative: verdict.Alternative,
		}
	case risk.LevelDangerous:
		approved, err := g.ui.ReadConfirmation(ctx, ui.ConfirmRequest{
			Command:     command,
			Reason:      verdict.Reason,
			Alternative: verdict.Alternative,
		})
		if err != nil || !approved {
			return &RefusalError{
				Command:     command,
				Reason:      "the user declined to run this command",
				Alternative: verdict.Alternative,
			}
		}
		return nil
	}
	return nil
}
