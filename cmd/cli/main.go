// Package main provides the review-jury command line tool.
//
// Run with: go run ./cmd/cli review --text "Our new tagline" --persona "Copy Editor"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleveque/review-jury/internal/config"
	"github.com/fleveque/review-jury/internal/llm"
	"github.com/fleveque/review-jury/internal/roles"
	"github.com/fleveque/review-jury/internal/service"
	"github.com/fleveque/review-jury/internal/session"
	"github.com/fleveque/review-jury/internal/storage"
)

// apiKeyEnv is read when --api-key is not given.
const apiKeyEnv = "JURY_API_KEY"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootCmd builds the command tree:
// jury-cli roles
// jury-cli review --text ... --persona ...
func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jury-cli",
		Short: "Review text or images with a panel of AI personas",
		// Errors from a run are not usage mistakes.
		SilenceUsage: true,
	}

	root.AddCommand(rolesCmd())
	root.AddCommand(reviewCmd())
	return root
}

func rolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the configured reviewer personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(os.Getenv("JURY_CONFIG_PATH"))
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			personas, err := roles.LoadAll(cfg.Roles.Path)
			if err != nil {
				return fmt.Errorf("loading personas: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tDESCRIPTION")
			for _, p := range personas {
				fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Description)
			}
			return w.Flush()
		},
	}
}

// reviewError shows a rejected review the way the form does. Cobra prints it
// once as the command's error.
type reviewError struct {
	err error
}

func (e reviewError) Error() string { return service.UserMessage(e.err) }

func (e reviewError) Unwrap() error { return e.err }

type reviewOptions struct {
	text        string
	image       string
	personas    []string
	apiKey      string
	textModel   string
	visionModel string

	adhocName        string
	adhocDescription string
	adhocPrompt      string
}

func reviewCmd() *cobra.Command {
	var opts reviewOptions

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Run a review and print the combined markdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReview(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.text, "text", "", "Text to review")
	f.StringVar(&opts.image, "image", "", "Path of an image to review")
	f.StringArrayVar(&opts.personas, "persona", nil, "Persona to include (repeatable); defaults to the form's default selection")
	f.StringVar(&opts.apiKey, "api-key", "", "Model API key (default $"+apiKeyEnv+")")
	f.StringVar(&opts.textModel, "text-model", "", "Text model (default: first configured)")
	f.StringVar(&opts.visionModel, "vision-model", "", "Vision model (default: first configured)")
	f.StringVar(&opts.adhocName, "adhoc-name", "", "Name of an extra persona for this run")
	f.StringVar(&opts.adhocDescription, "adhoc-description", "", "Description of the extra persona")
	f.StringVar(&opts.adhocPrompt, "adhoc-prompt", "", "System prompt of the extra persona")
	return cmd
}

func runReview(cmd *cobra.Command, opts reviewOptions) error {
	cfg, err := config.Load(os.Getenv("JURY_CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Development logger on stderr keeps stdout clean for the markdown.
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	personas, err := roles.LoadAll(cfg.Roles.Path)
	if err != nil {
		return fmt.Errorf("loading personas: %w", err)
	}

	textModel, err := cfg.LLM.ResolveTextModel(opts.textModel)
	if err != nil {
		return err
	}
	visionModel, err := cfg.LLM.ResolveVisionModel(opts.visionModel)
	if err != nil {
		return err
	}

	selected := opts.personas
	if len(selected) == 0 {
		selected = roles.DefaultSelection(personas, 2)
	}

	var sess session.Session
	if opts.adhocName != "" || opts.adhocPrompt != "" {
		sess, err = sess.AddPersona(opts.adhocName, opts.adhocDescription, opts.adhocPrompt)
		if err != nil {
			return err
		}
		selected = append(selected, sess.Personas[0].Name)
	}

	apiKey := opts.apiKey
	if apiKey == "" {
		apiKey = os.Getenv(apiKeyEnv)
	}

	factory, err := llm.NewFactory(cfg.LLM)
	if err != nil {
		return fmt.Errorf("configuring llm: %w", err)
	}
	files := storage.LocalFiles{MaxBytes: cfg.Image.MaxBytes}
	processor := service.NewImageProcessor(cfg.Image.MaxDimension, cfg.Image.MaxBytes)
	reviews := service.NewReviewService(personas, factory, files, processor, cfg.Review.ImageInstruction, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := reviews.Review(ctx, service.Request{
		Input:       service.InputPart{Text: opts.text, Image: opts.image},
		APIKey:      apiKey,
		TextModel:   textModel,
		VisionModel: visionModel,
		Personas:    selected,
		Session:     sess,
	})
	if err != nil {
		return reviewError{err: err}
	}

	fmt.Fprintln(cmd.OutOrStdout(), result.Markdown())

	if n := result.Failures(); n > 0 {
		logger.Warn("some personas failed", zap.Int("failed", n), zap.Int("total", len(result.Sections)))
	}
	return nil
}
