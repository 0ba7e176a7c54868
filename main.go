package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/example/studybuddy/internal/app"
	"github.com/example/studybuddy/internal/config"
	"github.com/example/studybuddy/internal/excel"
	"github.com/example/studybuddy/internal/logger"
)

const usage = `Usage: studybuddy [-config file] <command> [flags]

Commands:
  signup    -user NAME -password PW                 create an account
  add       -title T [-notes N] [-file PATH]        upload a material
  materials                                         list your materials
  show      ID                                      show summary, quiz and reviews
  due       [-date YYYY-MM-DD]                      list reviews due today
  done      REVIEW_ID                               mark a review as done
  quiz      ID                                      practice a material's quiz
  import    -file SHEET [-sheet NAME]               import materials from xlsx or csv
  serve                                             run the API, bot and reminders

Commands acting on your materials read -user/-password or
STUDYBUDDY_USER/STUDYBUDDY_PASSWORD.
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	global := flag.NewFlagSet("studybuddy", flag.ContinueOnError)
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	configPath := global.String("config", os.Getenv("STUDYBUDDY_CONFIG"), "YAML config file")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return fmt.Errorf("no command given")
	}
	command, rest := global.Arg(0), global.Args()[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	// Cancel on Ctrl+C so long commands and serve stop cleanly
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	creds := app.Credentials{}
	fs.StringVar(&creds.Username, "user", os.Getenv("STUDYBUDDY_USER"), "username")
	fs.StringVar(&creds.Password, "password", os.Getenv("STUDYBUDDY_PASSWORD"), "password")

	switch command {
	case "signup":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return a.Signup(ctx, stdout, creds.Username, creds.Password)

	case "add":
		title := fs.String("title", "", "material title")
		notes := fs.String("notes", "", "free-form notes")
		file := fs.String("file", "", "pdf, png, jpg, jpeg or txt file")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return a.AddMaterial(ctx, stdout, creds, *title, *notes, *file)

	case "materials":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return a.ListMaterials(ctx, stdout, creds)

	case "show", "done", "quiz":
		if err := fs.Parse(rest); err != nil {
			return err
		}
		id, err := idArg(fs)
		if err != nil {
			return err
		}
		switch command {
		case "show":
			return a.ShowMaterial(ctx, stdout, creds, id)
		case "done":
			return a.MarkDone(ctx, stdout, creds, id)
		default:
			return a.PracticeQuiz(ctx, stdin, stdout, creds, id)
		}

	case "due":
		date := fs.String("date", "", "day to list, today when empty")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		return a.ListDue(ctx, stdout, creds, *date)

	case "import":
		importCfg := excel.DefaultImportConfig()
		fs.StringVar(&importCfg.FilePath, "file", "", "xlsx or csv file")
		fs.StringVar(&importCfg.SheetName, "sheet", "", "sheet name, the first sheet when empty")
		fs.IntVar(&importCfg.StartRow, "start-row", importCfg.StartRow, "first data row (1-based)")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if importCfg.FilePath == "" {
			return fmt.Errorf("import needs -file")
		}
		return a.Import(ctx, stdout, creds, importCfg)

	case "serve":
		log.Info("starting, press Ctrl+C to stop")
		if err := a.Serve(ctx); err != nil {
			return err
		}
		log.Info("stopped")
		return nil

	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func idArg(fs *flag.FlagSet) (int64, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("%s needs exactly one id", fs.Name())
	}
	id, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", fs.Arg(0))
	}
	return id, nil
}
