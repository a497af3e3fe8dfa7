package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/apigovern/gatekeeper/app"
	"github.com/apigovern/gatekeeper/domain"
	"github.com/apigovern/gatekeeper/service"
)

// CheckCommand runs duplicate checks for one or more API definition files.
type CheckCommand struct {
	apiID          string
	organization   string
	threshold      float64
	format         string
	quiet          bool
	maxConcurrency int
}

// NewCheckCommand creates a new check command.
func NewCheckCommand() *CheckCommand {
	return &CheckCommand{
		threshold:      domain.DefaultSimilarityThreshold,
		format:         "text",
		maxConcurrency: 4,
	}
}

// CreateCobraCommand creates the cobra command for duplicate checking.
func (c *CheckCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <definition-file-or-glob>...",
		Short: "Check API definitions for duplicates",
		Long: `Check one or more OpenAPI definitions against the indexed APIs of an
organization.

Glob patterns (including **) are expanded, each definition is checked
concurrently, and the command fails when any definition matches an
indexed API above the similarity threshold.

Exit codes:
  0: No duplicates found
  1: One or more potential duplicates found, or the check failed

Examples:
  # Check a single definition
  gatekeeper check --organization acme petstore.yaml

  # Check a whole directory tree in CI
  gatekeeper check --organization acme "apis/**/*.yaml"

  # Lower the threshold and emit JSON
  gatekeeper check --organization acme --threshold 0.8 --format json api.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.runCheck,
	}

	cmd.Flags().StringVar(&c.apiID, "api-id", "", "UUID of the API being checked (excluded from matches)")
	cmd.Flags().StringVarP(&c.organization, "organization", "o", "", "Tenant whose index is searched")
	cmd.Flags().Float64VarP(&c.threshold, "threshold", "t", domain.DefaultSimilarityThreshold, "Similarity threshold 0.5-1.0")
	cmd.Flags().StringVarP(&c.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVarP(&c.quiet, "quiet", "q", false, "Only report duplicates")
	cmd.Flags().IntVar(&c.maxConcurrency, "max-concurrency", 4, "Maximum concurrent checks")

	_ = cmd.MarkFlagRequired("organization")
	return cmd
}

func (c *CheckCommand) runCheck(cmd *cobra.Command, args []string) error {
	files, err := expandPatterns(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no definition files match %s", strings.Join(args, ", "))
	}

	format, err := service.ParseOutputFormat(c.format)
	if err != nil {
		return err
	}

	cfg, err := loadGatekeeperConfig(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := buildService(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Shutdown() }()

	useCase := app.NewDedupUseCase(svc, cmd.OutOrStdout())
	formatter := service.NewDedupFormatter()

	bar := c.newProgressBar(len(files))

	results := make([]domain.DedupResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i, file := range files {
		g.Go(func() error {
			defer func() {
				if bar != nil {
					_ = bar.Add(1)
				}
			}()
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			result, err := useCase.CheckDefinition(ctx, string(data), c.apiID, c.organization, c.threshold)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	duplicates := 0
	for i, result := range results {
		if result.IsDuplicate {
			duplicates++
		}
		if c.quiet && !result.IsDuplicate {
			continue
		}
		rendered, err := formatter.Format(result, format)
		if err != nil {
			return err
		}
		if len(files) > 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "==> %s\n", files[i])
		}
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
	}

	if duplicates > 0 {
		return fmt.Errorf("found potential duplicates in %d of %d definition(s)", duplicates, len(files))
	}
	if !c.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "Checked %d definition(s), no duplicates found\n", len(files))
	}
	return nil
}

func (c *CheckCommand) newProgressBar(total int) *progressbar.ProgressBar {
	if total < 2 || c.quiet || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription("checking definitions"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

// expandPatterns resolves literal paths and doublestar glob patterns.
func expandPatterns(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, pattern := range patterns {
		if _, err := os.Stat(pattern); err == nil {
			if _, dup := seen[pattern]; !dup {
				seen[pattern] = struct{}{}
				files = append(files, pattern)
			}
			continue
		}

		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		for _, match := range matches {
			if _, dup := seen[match]; dup {
				continue
			}
			seen[match] = struct{}{}
			files = append(files, filepath.ToSlash(match))
		}
	}
	return files, nil
}

// NewCheckCmd creates and returns the check cobra command.
func NewCheckCmd() *cobra.Command {
	return NewCheckCommand().CreateCobraCommand()
}
