// Command tree for the lexiread CLI.
//
// Information Hiding:
// - Flag parsing hidden
// - Input resolution (args, files, stdin) hidden
// - App lifecycle per command hidden

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/richinex/lexiread/config"
	"github.com/richinex/lexiread/internal/logging"
	"github.com/richinex/lexiread/model"
	"github.com/richinex/lexiread/overlay"
	"github.com/richinex/lexiread/server"
)

// Options holds global flag values.
type Options struct {
	Provider string
	Format   string
	Verbose  bool
}

type rootState struct {
	opts    Options
	appOpts []AppOption
}

// NewRootCommand builds the lexiread command tree. appOpts are applied to
// every App the commands create.
func NewRootCommand(appOpts ...AppOption) *cobra.Command {
	state := &rootState{appOpts: appOpts}

	rootCmd := &cobra.Command{
		Use:   "lexiread",
		Short: "Phrase analysis cache and annotation overlay for English reading",
		Long: `Analyse words, phrases and sentences with an LLM backend, cache the results,
and render cached phrases as nested highlight overlays over any text.

Backends: openai, anthropic, deepseek, gemini (API key from <PROVIDER>_API_KEY).
Phrase store: LEXIREAD_STORE=sqlite|bolt|redis|memory at LEXIREAD_DB (redis: LEXIREAD_REDIS_ADDR).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&state.opts.Provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().StringVarP(&state.opts.Format, "format", "f", FormatJSON, "Output format (json, yaml, text)")
	rootCmd.PersistentFlags().BoolVarP(&state.opts.Verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(analyzeCmd(state))
	rootCmd.AddCommand(fullTextCmd(state))
	rootCmd.AddCommand(examplesCmd(state))
	rootCmd.AddCommand(overlayCmd(state))
	rootCmd.AddCommand(phrasesCmd(state))
	rootCmd.AddCommand(serveCmd(state))

	return rootCmd
}

// openApp loads settings for the selected provider and wires an App.
func (s *rootState) openApp(ctx context.Context) (*App, error) {
	settings, err := config.New(s.opts.Provider)
	if err != nil {
		return nil, err
	}
	if s.opts.Verbose {
		settings.Log.Level = "debug"
	}
	return NewApp(ctx, settings, s.appOpts...)
}

// withApp runs fn against a freshly wired App and closes it afterwards.
func (s *rootState) withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, err := s.openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			app.Logger.Warn("failed to close phrase store", logging.Err(cerr))
		}
	}()
	return fn(ctx, app)
}

func analyzeCmd(state *rootState) *cobra.Command {
	var contextText string
	var session string

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Analyse a word, phrase or sentence",
		Long: `Analyse a selection. Cached phrases return immediately; otherwise the backend
is asked with up to 4 attempts. Short selections get a word analysis, longer
ones or those with sentence punctuation get a grammar breakdown.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withApp(cmd, func(ctx context.Context, app *App) error {
				res := app.Orchestrator.Analyze(ctx, model.Selection{
					Text:    args[0],
					Context: contextText,
					Session: session,
				})
				return writeValue(cmd.OutOrStdout(), state.opts.Format, res)
			})
		},
	}

	cmd.Flags().StringVarP(&contextText, "context", "c", "", "Surrounding text of the selection")
	cmd.Flags().StringVar(&session, "session", "", "Reader session for stale-result detection")

	return cmd
}

func fullTextCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fulltext [file]",
		Short: "Summarize a whole document (reads stdin when no file or \"-\")",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readDocument(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return state.withApp(cmd, func(ctx context.Context, app *App) error {
				record := app.Orchestrator.AnalyzeFullText(ctx, overlay.SplitParagraphs(text))
				return writeValue(cmd.OutOrStdout(), state.opts.Format, record)
			})
		},
	}
	return cmd
}

func examplesCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examples [phrase] [meaning]",
		Short: "Generate example sentences for one meaning of a phrase",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withApp(cmd, func(ctx context.Context, app *App) error {
				examples, err := app.Orchestrator.ExamplesForMeaning(ctx, args[0], args[1])
				if err != nil {
					return err
				}
				return writeValue(cmd.OutOrStdout(), state.opts.Format, examples)
			})
		},
	}
	return cmd
}

func overlayCmd(state *rootState) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "overlay [text]",
		Short: "Highlight cached phrases in text",
		Long: `Render the overlay tree of cached phrases over text. With --file the document
is split into paragraphs and each paragraph is rendered on its own.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && len(args) == 0 {
				return errors.New("overlay needs text or --file")
			}
			return state.withApp(cmd, func(_ context.Context, app *App) error {
				out := cmd.OutOrStdout()
				if file == "" {
					return writeSegments(out, state.opts.Format, app.Renderer.Render(args[0]))
				}

				text, err := readDocument(cmd.InOrStdin(), []string{file})
				if err != nil {
					return err
				}
				rendered := app.Renderer.RenderParagraphs(overlay.SplitParagraphs(text))
				if strings.ToLower(state.opts.Format) != FormatText {
					return writeValue(out, state.opts.Format, rendered)
				}
				for _, segments := range rendered {
					if err := writeSegments(out, FormatText, segments); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Document to render (\"-\" for stdin)")

	return cmd
}

func phrasesCmd(state *rootState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phrases",
		Short: "Inspect and manage the phrase cache",
	}

	var prefix string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cached phrases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withApp(cmd, func(_ context.Context, app *App) error {
				keys := app.Cache.Keys()
				if prefix != "" {
					keys = app.Cache.WithPrefix(prefix)
				}
				if strings.ToLower(state.opts.Format) == FormatText {
					for _, k := range keys {
						fmt.Fprintln(cmd.OutOrStdout(), k)
					}
					return nil
				}
				return writeValue(cmd.OutOrStdout(), state.opts.Format, keys)
			})
		},
	}
	listCmd.Flags().StringVar(&prefix, "prefix", "", "Only phrases starting with prefix")

	getCmd := &cobra.Command{
		Use:   "get [phrase]",
		Short: "Show the cached analysis of a phrase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withApp(cmd, func(_ context.Context, app *App) error {
				record, ok := app.Cache.Get(args[0])
				if !ok {
					return fmt.Errorf("phrase not cached: %q", args[0])
				}
				return writeValue(cmd.OutOrStdout(), state.opts.Format, record)
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [phrase]",
		Short: "Remove a phrase from the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return state.withApp(cmd, func(ctx context.Context, app *App) error {
				existed, err := app.Cache.Delete(ctx, args[0])
				if err != nil {
					return err
				}
				if !existed {
					return fmt.Errorf("phrase not cached: %q", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", args[0])
				return nil
			})
		},
	}

	cmd.AddCommand(listCmd, getCmd, deleteCmd)
	return cmd
}

func serveCmd(state *rootState) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Long: `Serve the analysis API:

  POST   /v1/analyze         analyse a selection
  POST   /v1/fulltext        summarize a document
  POST   /v1/examples        example sentences for a meaning
  POST   /v1/overlay         overlay tree for text or paragraphs
  GET    /v1/phrases         list cached phrases (?prefix=)
  GET    /v1/phrases/:key    cached analysis
  DELETE /v1/phrases/:key    remove a phrase
  GET    /health, /metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !state.opts.Verbose {
				gin.SetMode(gin.ReleaseMode)
			}
			return state.withApp(cmd, func(ctx context.Context, app *App) error {
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()

				if addr == "" {
					addr = app.Settings.Server.Addr
				}
				logger := app.Logger.Named("http")
				handlers := server.NewHandlers(app.Orchestrator, app.Cache, app.Renderer, logger)
				router := server.NewRouter(handlers, app.Registry, logger)
				return server.New(addr, router, logger).Run(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default LEXIREAD_ADDR or :8080)")

	return cmd
}

// readDocument reads args[0], or stdin when args is empty or "-".
func readDocument(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}
