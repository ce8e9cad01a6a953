package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ai-artist-backend/internal/preferences"
)

func newPrefsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change the default image settings",
	}

	cmd.AddCommand(newPrefsShowCommand(ctx))
	cmd.AddCommand(newPrefsSetCommand(ctx))

	return cmd
}

func newPrefsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			prefs, err := preferences.Load(cfg.PreferencesPath)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v; showing defaults\n", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPreferences(prefs))
			return nil
		},
	}
}

func newPrefsSetCommand(ctx *commandContext) *cobra.Command {
	var (
		style   string
		quality string
		outputs int
		aspect  string
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update one or more preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			// Unreadable files are replaced by defaults plus the given flags.
			prefs, _ := preferences.Load(cfg.PreferencesPath)

			flags := cmd.Flags()
			if flags.Changed("style") {
				prefs.DefaultStyle = style
			}
			if flags.Changed("quality") {
				prefs.DefaultQuality = quality
			}
			if flags.Changed("outputs") {
				prefs.DefaultNumOutputs = outputs
			}
			if flags.Changed("aspect") {
				prefs.DefaultAspectRatio = aspect
			}

			if err := preferences.Save(cfg.PreferencesPath, prefs); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Saved preferences to %s\n", cfg.PreferencesPath)
			fmt.Fprintln(out, renderPreferences(prefs))
			return nil
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "Default art style")
	cmd.Flags().StringVar(&quality, "quality", "", "Default quality (standard or high)")
	cmd.Flags().IntVar(&outputs, "outputs", 0, "Default number of images (1-4)")
	cmd.Flags().StringVar(&aspect, "aspect", "", "Default aspect ratio (1:1, 16:9 or 9:16)")
	return cmd
}

func renderPreferences(p preferences.Preferences) string {
	return renderTable(
		[]string{"Setting", "Value"},
		[][]string{
			{"Style", p.DefaultStyle},
			{"Quality", p.DefaultQuality},
			{"Outputs", strconv.Itoa(p.DefaultNumOutputs)},
			{"Aspect ratio", p.DefaultAspectRatio},
		},
		nil,
	)
}
