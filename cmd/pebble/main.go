// Command pebble renders templates from a directory.
//
//	pebble render --dir templates --data ctx.yaml page.html
//	pebble inspect --dir templates page.html
//	pebble check --config pebble.yaml
package main

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/pebbletemplates/pebble-go"
)

type options struct {
	configPath string
	dir        string
	suffix     string
	dataPath   string
	locale     string
	strict     bool
	verbose    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	root := &cobra.Command{
		Use:           "pebble",
		Short:         "Render Pebble templates",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML engine configuration")
	root.PersistentFlags().StringVar(&opts.dir, "dir", "", "Template directory (overrides template_dir)")
	root.PersistentFlags().StringVar(&opts.suffix, "suffix", "", "Suffix appended to template names")
	root.PersistentFlags().BoolVar(&opts.strict, "strict", false, "Fail on undefined variables")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose output")

	render := &cobra.Command{
		Use:   "render [template]",
		Short: "Render a template to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, err := buildEngine(opts, stderr)
			if err != nil {
				return err
			}
			ctx, err := loadData(opts.dataPath)
			if err != nil {
				return err
			}
			tmpl, err := getTemplate(engine, cfg, args[0])
			if err != nil {
				return err
			}
			var renderOpts []pebble.RenderOption
			if opts.locale != "" {
				tag, err := language.Parse(opts.locale)
				if err != nil {
					return fmt.Errorf("invalid locale %q: %w", opts.locale, err)
				}
				renderOpts = append(renderOpts, pebble.WithLocale(tag))
			}
			return tmpl.Render(stdout, ctx, renderOpts...)
		},
	}
	render.Flags().StringVar(&opts.dataPath, "data", "", "YAML file holding the template context")
	render.Flags().StringVar(&opts.locale, "locale", "", "Locale to render with, e.g. de-CH")

	inspect := &cobra.Command{
		Use:   "inspect [template]",
		Short: "List the blocks and macros of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, err := buildEngine(opts, stderr)
			if err != nil {
				return err
			}
			tmpl, err := getTemplate(engine, cfg, args[0])
			if err != nil {
				return err
			}
			blocks := tmpl.BlockNames()
			macros := tmpl.MacroNames()
			sort.Strings(blocks)
			sort.Strings(macros)
			fmt.Fprintf(stdout, "template: %s\n", tmpl.Name())
			fmt.Fprintf(stdout, "blocks: %s\n", strings.Join(blocks, ", "))
			fmt.Fprintf(stdout, "macros: %s\n", strings.Join(macros, ", "))
			return nil
		},
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Compile every template in the template directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, err := buildEngine(opts, stderr)
			if err != nil {
				return err
			}
			names, err := templateNames(cfg)
			if err != nil {
				return err
			}
			failed := 0
			for _, name := range names {
				if _, err := engine.GetTemplate(name); err != nil {
					failed++
					fmt.Fprintf(stdout, "FAIL %s: %v\n", name, err)
					continue
				}
				fmt.Fprintf(stdout, "ok   %s\n", name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d templates failed to compile", failed, len(names))
			}
			return nil
		},
	}

	root.AddCommand(render, inspect, check)
	return root
}

// buildEngine merges the configuration file with the command line flags.
func buildEngine(opts options, stderr io.Writer) (*pebble.Engine, pebble.Config, error) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := pebble.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = pebble.LoadConfig(opts.configPath)
		if err != nil {
			return nil, cfg, err
		}
		logger.Debug("loaded configuration", "path", opts.configPath)
	}
	if opts.dir != "" {
		cfg.TemplateDir = opts.dir
	}
	if opts.suffix != "" {
		cfg.Suffix = opts.suffix
	}
	if opts.strict {
		cfg.StrictVariables = true
	}
	if cfg.TemplateDir == "" {
		cfg.TemplateDir = "."
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfg, err
	}
	logger.Debug("building engine", "template_dir", cfg.TemplateDir, "suffix", cfg.Suffix,
		"strict", cfg.StrictVariables, "parallelism", cfg.Parallelism)

	engine, err := cfg.Apply(pebble.NewBuilder()).Logger(logger).Build()
	return engine, cfg, err
}

// getTemplate wraps template lookup failures with the closest existing name.
func getTemplate(engine *pebble.Engine, cfg pebble.Config, name string) (*pebble.Template, error) {
	tmpl, err := engine.GetTemplate(name)
	if err == nil || !pebble.IsKind(err, pebble.ErrTemplateNotFound) {
		return tmpl, err
	}
	names, listErr := templateNames(cfg)
	if listErr != nil {
		return nil, err
	}
	if match := closestMatch(name, names); match != "" {
		return nil, fmt.Errorf("%w (did you mean %q?)", err, match)
	}
	return nil, err
}

// templateNames lists the template names below the template directory,
// with the configured suffix removed.
func templateNames(cfg pebble.Config) ([]string, error) {
	var names []string
	err := filepath.WalkDir(cfg.TemplateDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, cfg.Suffix) {
			return nil
		}
		rel, err := filepath.Rel(cfg.TemplateDir, path)
		if err != nil {
			return err
		}
		names = append(names, strings.TrimSuffix(filepath.ToSlash(rel), cfg.Suffix))
		return nil
	})
	sort.Strings(names)
	return names, err
}

// closestMatch returns the candidate closest to target, or "".
func closestMatch(target string, candidates []string) string {
	ranks := fuzzy.RankFindFold(target, candidates)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}

func loadData(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data file: %w", err)
	}
	var ctx map[string]any
	if err := yaml.Unmarshal(data, &ctx); err != nil {
		return nil, fmt.Errorf("decoding data file: %w", err)
	}
	return ctx, nil
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}
