package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quipper/poc/grader/internal/canvas"
	"github.com/quipper/poc/grader/internal/grading"
	"github.com/quipper/poc/grader/pkg/common/config"
	"github.com/quipper/poc/grader/pkg/common/logger"
)

var (
	loadConfigFunc = config.Load // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	out        io.Writer
	httpClient *http.Client
}

func (cli *commandLine) printUsage(fs *flag.FlagSet) {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  grader -token TOKEN -course COURSE_ID -assignment ASSIGNMENT_ID -logins LOGIN[,LOGIN...] GRADE")
	fmt.Fprintln(cli.out, "Flags:")
	fs.PrintDefaults()
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("grader", flag.ContinueOnError)
	fs.SetOutput(cli.out)
	token := fs.String("token", "", "Canvas API access token (sent as a Bearer token)")
	courseID := fs.String("course", "", "course ID")
	assignmentID := fs.String("assignment", "", "assignment ID")
	logins := fs.String("logins", "", "comma-separated student login IDs")
	configPath := fs.String("config", "", "YAML config file; must exist when given")
	baseURL := fs.String("base-url", "", "Canvas API root, e.g. https://canvas.example.edu/api/v1")
	maxPages := fs.Int("max-pages", 0, "maximum roster page requests (0 = unbounded)")
	perPage := fs.Int("per-page", 0, "roster page size requested from the API (0 = server default)")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	fs.Usage = func() { cli.printUsage(fs) }

	if len(args) > 0 {
		args = args[1:]
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	loginIDs := splitLogins(*logins)
	if *token == "" || *courseID == "" || *assignmentID == "" || len(loginIDs) == 0 || fs.NArg() != 1 {
		cli.printUsage(fs)
		return errHelp
	}
	grade := fs.Arg(0)

	cfg, err := loadConfigFunc(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base-url":
			cfg.Canvas.BaseURL = *baseURL
		case "max-pages":
			cfg.Canvas.MaxPages = *maxPages
		case "per-page":
			cfg.Canvas.PerPage = *perPage
		case "log-level":
			cfg.Logging.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Initialize(cfg.Logging.Level)

	opts := []canvas.Option{canvas.WithPerPage(cfg.Canvas.PerPage), canvas.WithUserAgent(cfg.Canvas.UserAgent)}
	if cli.httpClient != nil {
		opts = append(opts, canvas.WithHTTPClient(cli.httpClient))
	}
	client, err := canvas.NewClient(cfg.Canvas.BaseURL, *token, opts...)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	logger.Debug("run=%s base=%s course=%s assignment=%s logins=%d", runID, client.BaseURL(), *courseID, *assignmentID, len(loginIDs))
	submitter := grading.NewSubmitter(client, cfg.Canvas.MaxPages, grading.LogObserver{RunID: runID})
	res, err := submitter.Submit(ctx, grading.Submission{
		CourseID:     *courseID,
		AssignmentID: *assignmentID,
		LoginIDs:     loginIDs,
		Grade:        grade,
	})
	if err != nil {
		return err
	}

	if len(res.Unresolved) > 0 {
		fmt.Fprintf(cli.out, "warning: not enrolled as students, skipped: %s\n", strings.Join(res.Unresolved, ","))
	}
	fmt.Fprintf(cli.out, "graded %d of %d requested students (%d enrolled)\n", len(res.Resolved), len(loginIDs), res.Roster)
	fmt.Fprintln(cli.out, strings.TrimSpace(string(res.Response)))
	return nil
}

// splitLogins splits a comma-separated list, trimming blanks.
func splitLogins(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
