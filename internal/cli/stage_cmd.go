package cli

import (
	"fmt"
	"mime"
	"net/url"
	"path"

	"github.com/spf13/cobra"

	"github.com/classafix/caf-copilot/internal/cases"
	"github.com/classafix/caf-copilot/internal/domain"
)

func newTriageCmd(app *App) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "triage <id>",
		Short: "Classify the job and build the question checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := app.Cases.RunTriage(cmd.Context(), args[0], description)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out.Result)
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Job description")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func newVisionCmd(app *App) *cobra.Command {
	var (
		contextText string
		urls        []string
	)
	cmd := &cobra.Command{
		Use:   "vision <id>",
		Short: "Describe the case photos",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var media []domain.Media
			for _, u := range urls {
				media = append(media, domain.Media{URL: u, ContentType: guessImageType(u)})
			}
			if len(media) == 0 {
				c, err := app.Cases.Get(ctx, args[0])
				if err != nil {
					return err
				}
				media = c.Media
			}
			out, err := app.Cases.RunVisionRecon(ctx, args[0], contextText, media)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out.Result)
		},
	}
	cmd.Flags().StringVar(&contextText, "context", "", "What the photos should be checked for")
	cmd.Flags().StringSliceVar(&urls, "image-url", nil, "Image URL (defaults to the case media)")
	_ = cmd.MarkFlagRequired("context")
	return cmd
}

func newTenantMessageCmd(app *App) *cobra.Command {
	var answers []string
	cmd := &cobra.Command{
		Use:   "tenant-message <id>",
		Short: "Print the clarification message for unanswered questions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseAnswers(answers)
			if err != nil {
				return err
			}
			msg, err := app.Cases.TenantMessage(cmd.Context(), args[0], parsed)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), msg)
			return err
		},
	}
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "Answer as q1=text (repeatable)")
	return cmd
}

func newDiagnoseCmd(app *App) *cobra.Command {
	var (
		answers    []string
		tenantText string
		visionRaw  string
	)
	cmd := &cobra.Command{
		Use:   "diagnose <id>",
		Short: "Produce ranked repair diagnoses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseAnswers(answers)
			if err != nil {
				return err
			}
			out, err := app.Cases.RunFinalDiagnosis(cmd.Context(), args[0], parsed, tenantText, visionRaw)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out.Result)
		},
	}
	cmd.Flags().StringArrayVar(&answers, "answer", nil, "Answer as q1=text (repeatable)")
	cmd.Flags().StringVar(&tenantText, "tenant-text", "", "Free text from the tenant")
	cmd.Flags().StringVar(&visionRaw, "vision-raw", "", "Vision recon JSON to use instead of the stored one")
	return cmd
}

func newPriceCmd(app *App) *cobra.Command {
	var (
		index       int
		description string
	)
	cmd := &cobra.Command{
		Use:   "price <id>",
		Short: "Recommend a price for one diagnosis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel := cases.Selection{Index: &index}
			out, err := app.Cases.RunPricing(cmd.Context(), args[0], sel, description)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out.Result)
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "Index of the diagnosis to price")
	cmd.Flags().StringVar(&description, "description", "", "Job description override")
	return cmd
}

func newQuoteCmd(app *App) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "quote <id>",
		Short: "Compare a subcontractor quote against the market",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := app.Cases.RunQuoteAnalysis(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), out.Result)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "Quote details as text or JSON")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func guessImageType(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	}
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return "image/jpeg"
}
