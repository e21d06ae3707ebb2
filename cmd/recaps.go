package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/brettbeeson/notsolong/internal/api"
	"github.com/brettbeeson/notsolong/internal/shared"
)

// RecapsAdd posts a new recap on a title. Requires a signed-in session.
func (r *Runner) RecapsAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	titleID := int(cmd.Int("title"))
	if titleID <= 0 {
		return fmt.Errorf("%w: --title is required", shared.ErrMissingArgument)
	}
	text := strings.TrimSpace(cmd.String("text"))
	if text == "" {
		return fmt.Errorf("%w: --text is required", shared.ErrMissingArgument)
	}

	recap, err := r.client.CreateRecap(ctx, titleID, text)
	if err != nil {
		return fmt.Errorf("failed to create recap: %s", api.ErrorMessage(err, "create failed"))
	}

	r.writePlainln("✓ Recap posted (id %d)", recap.ID)
	return nil
}

// RecapsEdit replaces the text of one of the user's recaps.
func (r *Runner) RecapsEdit(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	id := int(cmd.Int("id"))
	if id <= 0 {
		return fmt.Errorf("%w: --id is required", shared.ErrMissingArgument)
	}
	text := strings.TrimSpace(cmd.String("text"))
	if text == "" {
		return fmt.Errorf("%w: --text is required", shared.ErrMissingArgument)
	}

	recap, err := r.client.UpdateRecap(ctx, id, text)
	if err != nil {
		return fmt.Errorf("failed to update recap: %s", api.ErrorMessage(err, "update failed"))
	}

	r.writePlainln("✓ Recap %d updated", recap.ID)
	return nil
}

// RecapsDelete removes one of the user's recaps.
func (r *Runner) RecapsDelete(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	id := int(cmd.Int("id"))
	if id <= 0 {
		return fmt.Errorf("%w: --id is required", shared.ErrMissingArgument)
	}

	if err := r.client.DeleteRecap(ctx, id); err != nil {
		return fmt.Errorf("failed to delete recap: %s", api.ErrorMessage(err, "delete failed"))
	}

	r.writePlainln("✓ Recap %d deleted", id)
	return nil
}

// RecapsVote casts, changes, or clears a vote on a recap.
func (r *Runner) RecapsVote(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	id := int(cmd.Int("id"))
	if id <= 0 {
		return fmt.Errorf("%w: --id is required", shared.ErrMissingArgument)
	}

	value := 0
	switch {
	case cmd.Bool("up") && cmd.Bool("down"):
		return fmt.Errorf("%w: pass --up or --down, not both", shared.ErrInvalidFlag)
	case cmd.Bool("up"):
		value = 1
	case cmd.Bool("down"):
		value = -1
	case cmd.Bool("clear"):
		value = 0
	default:
		return fmt.Errorf("%w: pass --up, --down, or --clear", shared.ErrMissingArgument)
	}

	recap, err := r.client.VoteRecap(ctx, id, value)
	if err != nil {
		return fmt.Errorf("failed to vote: %s", api.ErrorMessage(err, "vote failed"))
	}

	r.writePlainln("✓ Vote recorded. Recap %d now scores %+d.", recap.ID, recap.Score)
	return nil
}
