package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"edpuzzle-grade-check/internal/archive"
	"edpuzzle-grade-check/internal/config"
	"edpuzzle-grade-check/internal/grading"
	"edpuzzle-grade-check/internal/organize"
)

const defaultHistoryLimit = 10

// cli collects the flags shared by every command.
type cli struct {
	envFile    string
	date       string
	advisories string
	filesDir   string
	gradesDir  string
	templates  string
	exports    string
	archive    string
	logLevel   string

	cfg config.Config
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		exitWithError(err)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

func newRootCmd() *cobra.Command {
	return (&cli{}).rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	var (
		merge    bool
		strict   bool
		jsonPath string
		tag      string
	)

	root := &cobra.Command{
		Use:   "edpuzzle-grade-check [advisory]",
		Short: "Grade EdPuzzle completion exports per advisory",
		Long: `Reads the EdPuzzle CSV exports in files/input<Advisory>-<date>/, joins them per
student, averages completion over the videos each student has a value for and
converts the average to an SA grade (0, 50, 70, 85, 100).

With no argument every configured advisory is graded; a failing advisory is
reported and the others still run. Name one advisory to grade only that one.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if len(args) == 1 {
				cfg = cfg.Only(args[0])
			}
			mode := grading.MergePositional
			if strict {
				mode = grading.MergeKeyed
			}

			log.WithFields(log.Fields{"date": cfg.Date.Format(grading.DateLayout), "advisories": cfg.Advisories}).Info("grading advisories")
			outcomes := gradeAll(cfg, runOptions{Merge: merge, MergeMode: mode})
			printRunSummary(outcomes)

			failed, err := finishRun(cmd.Context(), cfg, outcomes, jsonPath, tag)
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d advisories failed", failed, len(outcomes))
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env", ".env", "Env file with EDPUZZLE_* settings")
	flags.StringVar(&c.date, "date", "", "Run date (YYYY-MM-DD), default today")
	flags.StringVar(&c.advisories, "advisories", "", "Comma-separated advisories to process")
	flags.StringVar(&c.filesDir, "files", "", "Folder holding the input<Advisory>-<date> folders")
	flags.StringVar(&c.gradesDir, "grades", "", "Folder for dated grade reports")
	flags.StringVar(&c.templates, "templates", "", "Folder holding <Advisory>-template.csv rosters")
	flags.StringVar(&c.exports, "exports", "", "Folder for merged SIS exports")
	flags.StringVar(&c.archive, "archive", "", "SQLite file recording every run")
	flags.StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	root.Flags().BoolVar(&merge, "merge", false, "Merge SA grades into each advisory's roster template")
	root.Flags().BoolVar(&strict, "strict", false, "Match template rows by student name instead of row order")
	root.Flags().StringVar(&jsonPath, "json", "", "Optional JSON output path for the run summary")
	root.Flags().StringVar(&tag, "tag", "", "Optional label stored with the archived run")

	root.AddCommand(c.organizeCmd(), c.checkCmd(), c.historyCmd())
	return root
}

// load resolves the run configuration: env file, EDPUZZLE_* variables, then flags.
func (c *cli) load() error {
	if err := config.LoadEnv(c.envFile); err != nil {
		return err
	}
	cfg, err := config.FromEnv(time.Now())
	if err != nil {
		return err
	}

	if c.date != "" {
		date, err := config.ParseDate(c.date)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		cfg.Date = date
	}
	if c.advisories != "" {
		cfg.Advisories = config.SplitList(c.advisories)
	}
	override(&cfg.FilesDir, c.filesDir)
	override(&cfg.GradesDir, c.gradesDir)
	override(&cfg.TemplatesDir, c.templates)
	override(&cfg.ExportsDir, c.exports)
	override(&cfg.ArchivePath, c.archive)
	override(&cfg.LogLevel, c.logLevel)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)

	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}

func (c *cli) organizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "organize",
		Short: "Strip spaces from dumped CSV names and sort them into dated advisory folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := organize.Run(organize.Options{
				FilesDir:   c.cfg.FilesDir,
				Advisories: c.cfg.Advisories,
				Date:       c.cfg.Date,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Renamed %d files, created %d folders\n", len(result.Renamed), len(result.Created))
			for _, advisory := range c.cfg.Advisories {
				fmt.Printf("%s: %d files -> %s\n", advisory, len(result.Moved[advisory]), organize.InputDir(c.cfg.FilesDir, advisory, c.cfg.Date))
			}
			return nil
		},
	}
}

func (c *cli) checkCmd() *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "check [advisory]",
		Short: "List students who watched enough of every video",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if len(args) == 1 {
				cfg = cfg.Only(args[0])
			}
			if cmd.Flags().Changed("threshold") {
				if threshold < 0 || threshold > 100 {
					return fmt.Errorf("--threshold %v must be between 0 and 100", threshold)
				}
				cfg.Threshold = threshold
			}

			failed := 0
			for _, advisory := range cfg.Advisories {
				tables, err := loadAdvisoryTables(cfg.FilesDir, advisory, cfg.Date)
				if err != nil {
					failed++
					failure.Printf("%s: %v\n", advisory, err)
					continue
				}
				printCompletionCheck(advisory, cfg.Threshold, grading.FullCompletion(tables, cfg.Threshold))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d advisories failed", failed, len(cfg.Advisories))
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", grading.DefaultCompletionThreshold, "Minimum percent watched on every video")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var (
		limit int
		runID string
	)
	cmd := &cobra.Command{
		Use:   "history <advisory>",
		Short: "Show archived grading runs for an advisory, or one run's student grades",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.ArchivePath == "" {
				return errors.New("archive path missing; set --archive or EDPUZZLE_ARCHIVE")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, err := archive.Open(ctx, c.cfg.ArchivePath)
			if err != nil {
				return err
			}
			defer store.Close()

			if runID != "" {
				grades, err := store.StudentGrades(ctx, runID, args[0])
				if err != nil {
					return err
				}
				if len(grades) == 0 {
					return fmt.Errorf("no archived grades for %s in run %s", args[0], runID)
				}
				printStudentGrades(args[0], runID, grades)
				return nil
			}

			entries, err := store.RecentResults(ctx, args[0], limit)
			if err != nil {
				return err
			}
			printHistory(args[0], entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Number of runs to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Show the student grades archived by this run id")
	return cmd
}
