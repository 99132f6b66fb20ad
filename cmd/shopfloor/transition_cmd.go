package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"shopfloor/internal/api"
	"shopfloor/internal/config"
	"shopfloor/internal/models"
	"shopfloor/internal/session"
	"shopfloor/internal/workflow"
)

var errPromptCancelled = errors.New("cancelled")

func newStartCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return newSimpleTransitionCmd(cfg, structured, models.ActionStart, "Start working on a pending task")
}

func newResumeCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return newSimpleTransitionCmd(cfg, structured, models.ActionResume, "Resume a task on hold")
}

func newCompleteCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return newSimpleTransitionCmd(cfg, structured, models.ActionComplete, "Mark an in-progress task completed")
}

func newHoldCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return newReasonTransitionCmd(cfg, structured, models.ActionHold, "Put an in-progress task on hold")
}

func newDenyCmd(cfg *config.Config, structured *bool) *cobra.Command {
	return newReasonTransitionCmd(cfg, structured, models.ActionDeny, "Decline a pending task")
}

func newSimpleTransitionCmd(cfg *config.Config, structured *bool, action models.Action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(action) + " <id>",
		Short: short,
		Args:  requireTaskID,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransition(cmd, cfg, *structured, args[0], action, func(ctx context.Context, ctrl *workflow.Controller) error {
				switch action {
				case models.ActionStart:
					return ctrl.Start(ctx, args[0])
				case models.ActionResume:
					return ctrl.Resume(ctx, args[0])
				default:
					return ctrl.Complete(ctx, args[0])
				}
			})
		},
	}
}

func newReasonTransitionCmd(cfg *config.Config, structured *bool, action models.Action, short string) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   string(action) + " <id>",
		Short: short,
		Args:  requireTaskID,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return runTransition(cmd, cfg, *structured, id, action, func(ctx context.Context, ctrl *workflow.Controller) error {
				if strings.TrimSpace(reason) != "" {
					if action == models.ActionHold {
						return ctrl.Hold(ctx, id, reason)
					}
					return ctrl.Deny(ctx, id, reason)
				}
				return promptAndSubmit(ctx, ctrl, id, action, cmd.InOrStdin(), cmd.ErrOrStderr())
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", fmt.Sprintf("reason (one of: %s)", strings.Join(models.ReasonsFor(action), "; ")))
	return cmd
}

func runTransition(cmd *cobra.Command, cfg *config.Config, structured bool, id string, action models.Action, apply func(context.Context, *workflow.Controller) error) error {
	return withSession(cfg, func(sess *session.Session, client *api.Client) error {
		ctrl := newController(sess, client, api.TaskQuery{})
		if err := ctrl.Refresh(cmd.Context()); err != nil {
			return err
		}
		before, _ := ctrl.Task(id)

		if err := apply(cmd.Context(), ctrl); err != nil {
			return err
		}

		after, ok := ctrl.Task(id)
		if structured {
			return writeStructured(after)
		}
		if !ok {
			return writePlain("%s %s: done\n", id, action)
		}
		return writePlain("%s: %s -> %s\n", id, statusText(before.Status), statusText(after.Status))
	})
}

// promptAndSubmit drives the reason prompt from a line-oriented reader until
// a submission succeeds, the operator cancels, or input ends.
func promptAndSubmit(ctx context.Context, ctrl *workflow.Controller, id string, action models.Action, in io.Reader, out io.Writer) error {
	var err error
	if action == models.ActionHold {
		err = ctrl.BeginHold(id)
	} else {
		err = ctrl.BeginDeny(id)
	}
	if err != nil {
		return err
	}

	reader := bufio.NewReader(in)
	for {
		prompt, open := ctrl.Prompt()
		if !open {
			return nil
		}
		fmt.Fprintf(out, "Reason to %s %s:\n", action, id)
		for i, choice := range prompt.Choices {
			fmt.Fprintf(out, "  %d) %s\n", i+1, choice)
		}
		fmt.Fprintf(out, "Choose 1-%d (q to cancel): ", len(prompt.Choices))

		line, readErr := reader.ReadString('\n')
		answer := strings.TrimSpace(line)
		if readErr != nil && answer == "" {
			ctrl.CancelReason()
			if errors.Is(readErr, io.EOF) {
				return errPromptCancelled
			}
			return readErr
		}
		if strings.EqualFold(answer, "q") {
			ctrl.CancelReason()
			return errPromptCancelled
		}

		if answer != "" {
			if err := ctrl.SelectReason(choiceText(prompt.Choices, answer)); err != nil {
				fmt.Fprintln(out, err)
				continue
			}
		}
		err := ctrl.SubmitReason(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, workflow.ErrReasonRequired):
			fmt.Fprintln(out, err)
		default:
			// The prompt stays open after a rejected submission.
			ctrl.CancelReason()
			return err
		}
	}
}

// choiceText maps a 1-based number to its choice; anything else is passed
// through as typed.
func choiceText(choices []string, answer string) string {
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(choices) {
		return choices[n-1]
	}
	return answer
}
