package commands

import (
	"fmt"
	"os/user"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/systmms/rollops/internal/config"
	"github.com/systmms/rollops/internal/rollout"
	"github.com/systmms/rollops/internal/storage"
)

// NewSetWeightCommand creates the set-weight command
func NewSetWeightCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-weight <service> <weight>",
		Short: "Advance a manual rollout to a new candidate weight",
		Long: `Hand a target weight to a running manual-strategy rollout. The controller
picks the request up at its next suspension point, validates it against the
rollout's max weight and the no-decrease rule, shifts traffic, and runs the
health gate.`,
		Example: `  # Move the candidate to 25% of traffic
  rollops set-weight scoring-api 25`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cfg.Load()

			weight, err := strconv.Atoi(args[1])
			if err != nil || weight < 1 || weight > 100 {
				return ExitError{
					Code:    ExitInvalidSpec,
					Message: fmt.Sprintf("weight must be an integer between 1 and 100, got %q", args[1]),
				}
			}

			service := args[0]
			store := cfg.Store()
			if err := requireActiveRollout(store, service); err != nil {
				return err
			}

			err = store.SaveControl(service, &storage.ControlRequest{
				Type:        storage.ControlSetWeight,
				Weight:      weight,
				RequestedAt: time.Now(),
				RequestedBy: currentUser(),
			})
			if err != nil {
				return err
			}

			cfg.Logger.Info("%s: weight request for %d%% recorded", service, weight)
			return nil
		},
	}

	return cmd
}

// NewAbortCommand creates the abort command
func NewAbortCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abort <service>",
		Short: "Force a running rollout to roll back",
		Long: `Record an abort request for a running rollout. The controller consumes it
at its next suspension point, reverts all traffic to the stable revision,
and deletes the candidate. An abort always wins over a pending weight
request.`,
		Example: `  rollops abort scoring-api`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cfg.Load()

			service := args[0]
			store := cfg.Store()
			if err := requireActiveRollout(store, service); err != nil {
				return err
			}

			err := store.SaveControl(service, &storage.ControlRequest{
				Type:        storage.ControlAbort,
				RequestedAt: time.Now(),
				RequestedBy: currentUser(),
			})
			if err != nil {
				return err
			}

			cfg.Logger.Info("%s: abort recorded, the rollout will roll back shortly", service)
			return nil
		},
	}

	return cmd
}

// requireActiveRollout rejects control requests for services with no live
// rollout, so a typo doesn't leave a stale control file behind. A missing
// status file surfaces as an error from the store.
func requireActiveRollout(store storage.Store, service string) error {
	status, err := store.GetStatus(service)
	if err != nil {
		return err
	}
	if rollout.Phase(status.Phase).IsTerminal() {
		return fmt.Errorf("rollout for %q already finished (%s)", service, status.Phase)
	}
	return nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}
