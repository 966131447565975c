package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/classafix/caf-copilot/internal/domain"
)

func newCaseCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "case",
		Short: "Create and inspect cases",
	}
	cmd.AddCommand(
		newCaseCreateCmd(app),
		newCaseShowCmd(app),
		newCaseListCmd(app),
	)
	return cmd
}

func newCaseCreateCmd(app *App) *cobra.Command {
	var externalID, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new case",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var ext *string
			if externalID != "" {
				ext = &externalID
			}
			c, err := app.Cases.CreateCase(cmd.Context(), ext, description)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
	cmd.Flags().StringVar(&externalID, "external-job-id", "", "Job id from the work-order system")
	cmd.Flags().StringVar(&description, "description", "", "Job description")
	return cmd
}

func newCaseShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.Cases.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
}

func newCaseListCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := app.Cases.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range items {
				fmt.Fprintf(out, "%s  %-9s  %s\n", c.ID, c.Status, c.Title)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of cases")
	return cmd
}

func newAttachCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <id> <file>...",
		Short: "Upload files and attach them to a case",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return fmt.Errorf("no media store configured")
			}
			ctx := cmd.Context()
			if _, err := app.Cases.Get(ctx, args[0]); err != nil {
				return err
			}
			media := make([]domain.Media, 0, len(args)-1)
			for _, path := range args[1:] {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				info, err := f.Stat()
				if err != nil {
					_ = f.Close()
					return err
				}
				obj, err := app.Store.Put(ctx, filepath.Base(path), f, info.Size(), "")
				_ = f.Close()
				if err != nil {
					return fmt.Errorf("upload %s: %w", path, err)
				}
				media = append(media, domain.Media{URL: obj.URL, ContentType: obj.ContentType})
			}
			c, err := app.Cases.AttachMedia(ctx, args[0], media)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), c)
		},
	}
}
