// Package cli is the operator command line for driving cases through the
// pipeline without the HTTP API.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/classafix/caf-copilot/internal/cases"
	"github.com/classafix/caf-copilot/internal/domain"
	"github.com/classafix/caf-copilot/internal/storage"
)

// CaseService is the subset of the case workflow the CLI drives.
type CaseService interface {
	CreateCase(ctx context.Context, externalJobID *string, description string) (*domain.Case, error)
	Get(ctx context.Context, id string) (*domain.Case, error)
	List(ctx context.Context, limit int) ([]domain.Case, error)
	AttachMedia(ctx context.Context, id string, media []domain.Media) (*domain.Case, error)
	RunTriage(ctx context.Context, id, description string) (*cases.Outcome[*domain.TriageResult], error)
	RunVisionRecon(ctx context.Context, id, contextText string, media []domain.Media) (*cases.Outcome[*domain.VisionRecon], error)
	RunFinalDiagnosis(ctx context.Context, id string, answers map[string]string, tenantText, visionReconRaw string) (*cases.Outcome[*domain.DiagnosisSet], error)
	RunPricing(ctx context.Context, id string, sel cases.Selection, description string) (*cases.Outcome[*domain.PricingRecommendation], error)
	RunQuoteAnalysis(ctx context.Context, id, input string) (*cases.Outcome[*domain.QuoteAnalysis], error)
	TenantMessage(ctx context.Context, id string, answers map[string]string) (string, error)
}

// App holds the services the commands run against.
type App struct {
	Cases CaseService
	Store storage.Store
}

// NewRootCmd creates the top-level "copilot" command.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "copilot",
		Short:         "Triage, diagnose and price maintenance cases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newCaseCmd(app),
		newAttachCmd(app),
		newTriageCmd(app),
		newVisionCmd(app),
		newTenantMessageCmd(app),
		newDiagnoseCmd(app),
		newPriceCmd(app),
		newQuoteCmd(app),
	)

	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseAnswers turns repeated "id=answer" flags into a map.
func parseAnswers(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		id, answer, ok := strings.Cut(p, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("answer %q must look like q1=answer", p)
		}
		out[id] = strings.TrimSpace(answer)
	}
	return out, nil
}

// FormatError renders err for the terminal, including failure diagnostics.
func FormatError(err error) string {
	f, ok := domain.AsFailure(err)
	if !ok {
		return err.Error()
	}
	var sb strings.Builder
	sb.WriteString(f.Error())
	if f.Body != "" {
		fmt.Fprintf(&sb, "\n  body: %s", truncate(f.Body, 500))
	}
	if f.Timeout {
		sb.WriteString("\n  timed out")
	}
	if f.Cleaned != "" {
		fmt.Fprintf(&sb, "\n  cleaned output: %s", truncate(f.Cleaned, 500))
	} else if f.Raw != "" {
		fmt.Fprintf(&sb, "\n  raw output: %s", truncate(f.Raw, 500))
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
