package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/foreman-cli/api/schemas"
	"github.com/xkilldash9x/foreman-cli/internal/config"
	"github.com/xkilldash9x/foreman-cli/internal/observability"
	"github.com/xkilldash9x/foreman-cli/internal/service"
)

// factory is replaceable in tests.
var factory = service.NewComponentFactory()

// newRunCmd creates the `run` command: execute one decision workflow for a
// trigger and print the resulting decision.
func newRunCmd() *cobra.Command {
	var contextPairs []string

	runCmd := &cobra.Command{
		Use:   "run <trigger>",
		Short: "Runs one decision workflow for the given trigger",
		Long: `Runs one decision workflow: solicits proposals from the configured
specialist agents, resolves conflicts by constitutional priority, and
dispatches the approved actions. The final decision is printed as JSON.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			workflowContext, err := parseContextPairs(contextPairs)
			if err != nil {
				return err
			}

			components, err := factory.Create(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown()

			trigger := args[0]
			logger.Info("Running decision workflow", zap.String("trigger", trigger))

			state, err := components.Engine.RunWithDeadline(ctx, trigger, workflowContext)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(state.Decision, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to render decision: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	runCmd.Flags().StringArrayVar(&contextPairs, "context", nil,
		"workflow context as key=value pairs (repeatable)")

	return runCmd
}

// parseContextPairs turns repeated key=value flags into the workflow context
// map handed to every specialist agent.
func parseContextPairs(pairs []string) (map[string]interface{}, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, &schemas.ValidationError{
				Field:  "context",
				Reason: fmt.Sprintf("%q is not a key=value pair", pair),
			}
		}
		out[key] = value
	}
	return out, nil
}
