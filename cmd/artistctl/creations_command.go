package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ai-artist-backend/internal/media"
)

func newCreationsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "creations",
		Short: "Inspect and manage saved creations",
	}

	cmd.AddCommand(newCreationsListCommand(ctx))
	cmd.AddCommand(newCreationsDeleteCommand(ctx))
	cmd.AddCommand(newCreationsClearCommand(ctx))
	cmd.AddCommand(newCreationsExportCommand(ctx))

	return cmd
}

func newCreationsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved creations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.workspace(cmd.Context())
			if err != nil {
				return err
			}
			creations, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(creations) == 0 {
				fmt.Fprintln(out, "No creations saved")
				return nil
			}

			const stampLayout = "2006-01-02 15:04:05"
			rows := make([][]string, 0, len(creations))
			for _, c := range creations {
				size := "?"
				if _, data, err := media.ParseDataURI(c.Payload); err == nil {
					size = humanBytes(len(data))
				}
				rows = append(rows, []string{
					strconv.FormatInt(c.ID, 10),
					string(c.Kind),
					c.MimeType,
					size,
					c.CreatedAt.Local().Format(stampLayout),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Type", "MIME", "Size", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newCreationsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a creation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCreationID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.workspace(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted creation %d\n", id)
			return nil
		},
	}
}

func newCreationsClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every saved creation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("clearing the workspace cannot be undone; rerun with --yes")
			}
			store, err := ctx.workspace(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Workspace cleared")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the irreversible clear")
	return cmd
}

func newCreationsExportCommand(ctx *commandContext) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Write a creation to a timestamped file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseCreationID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.workspace(cmd.Context())
			if err != nil {
				return err
			}
			creation, err := store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			if creation == nil {
				return fmt.Errorf("creation %d not found", id)
			}
			mimeType, data, err := media.ParseDataURI(creation.Payload)
			if err != nil {
				return fmt.Errorf("creation %d: %w", id, err)
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create export dir: %w", err)
			}
			target := filepath.Join(dir, media.DownloadName(string(creation.Kind), mimeType, time.Now()))
			if err := os.WriteFile(target, data, 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported creation %d to %s\n", id, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the file into")
	return cmd
}

func parseCreationID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid creation id %q", raw)
	}
	return id, nil
}
