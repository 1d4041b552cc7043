// Command kernelc checks and compiles an expression document, prints the
// code of every unit, and optionally runs it.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/funvibe/kernel/internal/analyzer"
	"github.com/funvibe/kernel/internal/backend"
	"github.com/funvibe/kernel/internal/codecache"
	"github.com/funvibe/kernel/internal/config"
	"github.com/funvibe/kernel/internal/parser"
	"github.com/funvibe/kernel/internal/pipeline"
	"github.com/funvibe/kernel/internal/prettyprinter"
	"github.com/funvibe/kernel/internal/symbols"
	"github.com/funvibe/kernel/internal/vm"
)

type options struct {
	configPath string
	lco        bool
	run        bool
	cachePath  string
	verbose    bool
	format     bool
}

func parseFlags(args []string, output io.Writer) (*options, []string, error) {
	fs := flag.NewFlagSet("kernelc", flag.ContinueOnError)
	fs.SetOutput(output)
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "read options from this kernel.yaml")
	fs.BoolVar(&o.lco, "lco", false, "enable last-call optimization")
	fs.BoolVar(&o.run, "run", false, "run the expressions after listing them")
	fs.StringVar(&o.cachePath, "cache", "", "record the compiled units in this SQLite file")
	fs.BoolVar(&o.verbose, "v", false, "trace the stages to stderr")
	fs.BoolVar(&o.format, "fmt", false, "print the document in canonical form and stop")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: kernelc [flags] [file.yaml]\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return o, fs.Args(), nil
}

// loadConfig reads -config, or else the kernel.yaml next to the input.
func loadConfig(o *options, input string) (*config.Config, error) {
	cfg := config.Default()
	path := o.configPath
	if path == "" && input != "" {
		candidate := filepath.Join(filepath.Dir(input), config.DefaultConfigName)
		if _, err := os.Stat(candidate); err == nil && candidate != input {
			path = candidate
		}
	}
	if path != "" {
		var err error
		if cfg, err = config.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if o.lco {
		cfg.LCO = true
	}
	return cfg, nil
}

func readSource(args []string) ([]byte, string, error) {
	if len(args) == 0 {
		stat, _ := os.Stdin.Stat()
		if stat == nil || stat.Mode()&os.ModeCharDevice != 0 {
			return nil, "", fmt.Errorf("no input: give a file or pipe a document")
		}
		src, err := io.ReadAll(os.Stdin)
		return src, "<stdin>", err
	}
	path, err := filepath.Abs(args[0])
	if err != nil {
		return nil, "", err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading input: %w", err)
	}
	return src, path, nil
}

// tracer logs the units a stage leaves behind.
type tracer struct {
	logger *log.Logger
	stage  string
}

func (t *tracer) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	live := ctx.Live()
	t.logger.Printf("%s: %d of %d units live, %d errors", t.stage, len(live), len(ctx.Units), len(ctx.Errors))
	for _, u := range live {
		if u.Code != nil {
			t.logger.Printf("  %s: %d instructions", u.Name, len(u.Code))
		}
	}
	return ctx
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, colour bool) int {
	logger := log.New(stderr, "kernelc: ", 0)

	o, rest, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	src, path, err := readSource(rest)
	if err != nil {
		logger.Print(err)
		return 1
	}
	input := path
	if len(rest) == 0 {
		input = ""
	} else if !config.IsSourceFile(path) {
		logger.Printf("warning: %s does not look like a YAML document", path)
	}
	cfg, err := loadConfig(o, input)
	if err != nil {
		logger.Print(err)
		return 1
	}

	if o.format {
		return format(src, stdout, logger)
	}

	trace := func(stage string) []pipeline.Processor {
		if !o.verbose {
			return nil
		}
		return []pipeline.Processor{&tracer{logger: logger, stage: stage}}
	}
	stages := []pipeline.Processor{&parser.ParserProcessor{}}
	stages = append(stages, trace("parse")...)
	stages = append(stages, &analyzer.SemanticAnalyzerProcessor{})
	stages = append(stages, trace("check")...)
	stages = append(stages, &vm.CompileProcessor{})
	stages = append(stages, trace("compile")...)

	var cache *codecache.Processor
	if o.cachePath != "" {
		store, err := codecache.Open(o.cachePath)
		if err != nil {
			logger.Print(err)
			return 1
		}
		defer store.Close()
		cache = codecache.NewProcessor(ctx, store)
		stages = append(stages, cache)
	}

	stages = append(stages, backend.NewExecutionProcessor(backend.NewListing(colour)))
	if o.run {
		vmb := backend.NewVM(ctx)
		vmb.Echo = true
		stages = append(stages, backend.NewExecutionProcessor(vmb))
	}

	pctx := pipeline.NewPipelineContext(src, path, cfg)
	pctx.Output = stdout
	pctx = pipeline.New(stages...).Run(pctx)

	if cache != nil && o.verbose {
		logger.Printf("cached as run %s", cache.Run)
	}
	if len(pctx.Errors) > 0 {
		for _, e := range pctx.Errors {
			fmt.Fprintf(stderr, "- %s\n", e.Error())
		}
		return 1
	}
	return 0
}

// format reprints a document without checking it.
func format(src []byte, stdout io.Writer, logger *log.Logger) int {
	exprs, err := parser.New(symbols.NewTables()).ParseDocument(src)
	if err != nil {
		logger.Print(err)
		return 1
	}
	out, err := prettyprinter.Print(exprs)
	if err != nil {
		logger.Print(err)
		return 1
	}
	stdout.Write(out)
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	colour := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, colour)
	stop()
	os.Exit(code)
}
