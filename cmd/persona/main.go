package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"persona/internal/bootstrap"
	"persona/internal/config"
	"persona/internal/defaults"
	"persona/internal/i18n"
	"persona/internal/reddit"
	"persona/internal/session"
	"persona/internal/tui"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("persona", flag.ContinueOnError)
	var (
		configPath   string
		backendName  string
		modelName    string
		lang         string
		limit        int
		forceRefresh bool
		reset        bool
		useTUI       bool
		initConfig   bool
	)
	fs.StringVar(&configPath, "config", "", "path to config JSON")
	fs.StringVar(&backendName, "backend", "", "model backend: claude or groq")
	fs.StringVar(&modelName, "model", "", "model name override")
	fs.StringVar(&lang, "lang", "", "interface language: en or zh-CN")
	fs.IntVar(&limit, "limit", 0, "max items fetched per listing")
	fs.BoolVar(&forceRefresh, "refresh", false, "re-fetch activity, bypassing the cache")
	fs.BoolVar(&reset, "reset", false, "clear this user's conversation history first")
	fs.BoolVar(&useTUI, "tui", false, "full-screen UI instead of the line REPL")
	fs.BoolVar(&initConfig, "init-config", false, "write ./.persona/config.json and exit")
	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintln(out, "usage: persona [flags] <reddit-username>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, i18n.T("startup.config_failed", err))
		return exitFatal
	}
	applyFlagOverrides(&cfg, backendName, modelName, lang, limit)
	i18n.Init(cfg.UI.Language)

	if initConfig {
		if err := config.InitProjectConfigScaffold(); err != nil {
			fmt.Fprintln(os.Stderr, i18n.T("startup.config_failed", err))
			return exitFatal
		}
		fmt.Println(i18n.T("startup.config_written"))
		return exitOK
	}

	username := normalizeUsername(fs.Arg(0))
	if username == "" {
		fs.Usage()
		return exitUsage
	}

	build, err := bootstrap.Build(cfg, username, forceRefresh)
	if err != nil {
		fmt.Fprintln(os.Stderr, i18n.T("startup.build_failed", err))
		return exitFatal
	}
	defer build.Close()

	ctl := build.Controller
	if reset {
		if err := ctl.Reset(); err != nil {
			fmt.Fprintln(os.Stderr, i18n.T("startup.storage_failed", err))
			return exitFatal
		}
		fmt.Println(i18n.T("startup.reset", username))
	}

	fmt.Println(i18n.T("startup.fetching", username))
	if err := ctl.Start(context.Background()); err != nil {
		printStartFailure(username, err)
		return exitFatal
	}
	printStartup(ctl)

	if useTUI {
		if err := tui.Run(ctl, build.Backend.Name(), build.Backend.Model()); err != nil {
			fmt.Fprintln(os.Stderr, session.DescribeError(err))
			return exitFatal
		}
		return exitOK
	}

	renderSummary(os.Stdout, ctl.Username(), ctl.Summary())
	fmt.Println(i18n.T("session.hint"))
	return repl(ctl, cfg, build)
}

// repl 行模式主循环。控制词和提问都原样交给控制器。
// repl is the line-mode main loop. Control words and questions alike are
// handed to the controller verbatim.
func repl(ctl *session.Controller, cfg config.Config, build *bootstrap.BuildResult) int {
	input, inputErr := newLineInput(build.Manager.REPLHistoryPath())
	if inputErr != nil {
		fmt.Fprintf(os.Stderr, "line editor unavailable, fallback to basic input: %v\n", inputErr)
	}
	defer input.Close()

	markdown := cfg.UI.Markdown && stdoutIsTerminal()

	for {
		line, err := input.ReadLine(defaults.REPLPrompt)
		if err != nil {
			switch {
			case errors.Is(err, readline.ErrInterrupt):
				fmt.Fprintln(os.Stdout)
				continue
			case errors.Is(err, io.EOF):
				fmt.Println(i18n.T("session.goodbye"))
				return exitOK
			default:
				fmt.Fprintf(os.Stderr, "read input failed: %v\n", err)
				return exitFatal
			}
		}

		out, err := ctl.HandleInput(context.Background(), line)
		if err != nil {
			fmt.Fprintln(os.Stderr, session.DescribeError(err))
			if ctl.State() == session.StateTerminated {
				return exitFatal
			}
			continue
		}
		if done := renderOutcome(os.Stdout, ctl.Username(), out, markdown); done {
			fmt.Println(i18n.T("session.goodbye"))
			return exitOK
		}
	}
}

// printStartup 播报启动时的活动来源与续接的对话
// printStartup reports where the activity came from and any resumed dialogue
func printStartup(ctl *session.Controller) {
	res := ctl.Result()
	switch {
	case res.Stale:
		fmt.Fprintln(os.Stderr, i18n.T("startup.stale", res.FetchErr, res.FetchedAt.Format("2006-01-02 15:04")))
	case res.FromCache:
		fmt.Println(i18n.T("startup.cached", ctl.Username(), res.FetchedAt.Format("2006-01-02 15:04")))
	}
	if prior := countDialogue(ctl.History()); prior > 0 {
		fmt.Println(i18n.T("startup.history", prior))
	}
}

func printStartFailure(username string, err error) {
	var notFound *reddit.NotFoundError
	if errors.As(err, &notFound) {
		fmt.Fprintln(os.Stderr, i18n.T("startup.not_found", notFound.Username))
		return
	}
	fmt.Fprintln(os.Stderr, i18n.T("startup.fetch_failed", username, err))
}

func applyFlagOverrides(cfg *config.Config, backend, model, lang string, limit int) {
	if s := strings.TrimSpace(backend); s != "" {
		cfg.Provider.Backend = s
	}
	if s := strings.TrimSpace(model); s != "" {
		cfg.Provider.Model = s
	}
	if s := strings.TrimSpace(lang); s != "" {
		cfg.UI.Language = s
	}
	if limit > 0 {
		cfg.Reddit.Limit = limit
	}
}

func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
