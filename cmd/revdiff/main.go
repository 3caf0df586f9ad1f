// Command revdiff compares article revisions sentence by sentence and
// tracks who wrote which words.
//
// Usage:
//
//	revdiff diff old.txt new.txt
//	revdiff ingest --doc Paris revisions.jsonl
//	revdiff score --ontology concepts.yaml --topic hydrology
//	revdiff blame --doc Paris
//	revdiff export --out contributions.parquet
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dacharyc/revdiff"
	"github.com/dacharyc/revdiff/ingest"
	"github.com/dacharyc/revdiff/internal/logging"
	"github.com/dacharyc/revdiff/ontology"
	"github.com/dacharyc/revdiff/scoring"
	"github.com/dacharyc/revdiff/store"
)

// version is set at build time via -ldflags
var version = "dev"

// Exit codes
const (
	exitIdentical = 0 // revisions are identical
	exitDiffer    = 1 // revisions differ
	exitError     = 2 // error occurred
)

// errDiffer is returned by the diff command when the revisions differ.
var errDiffer = errors.New("revisions differ")

// app carries state shared by all commands.
type app struct {
	configPath string
	logLevel   string

	cfg    Config
	logger zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr, logger: zerolog.Nop()}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitIdentical
	case errors.Is(err, errDiffer):
		return exitDiffer
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "revdiff",
		Short: "Position-insensitive revision diffing and author credibility",
		Long: "revdiff diffs article revisions sentence by sentence regardless of where\n" +
			"sentences moved, stamps every word with the revision that created it, and\n" +
			"ranks authors by topical expertise weighted by how much of their text survives.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: $REVDIFF_CONFIG, ./revdiff.yaml, $XDG_CONFIG_HOME/revdiff/config.yaml, ~/.revdiff.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(a.diffCmd())
	root.AddCommand(a.ingestCmd())
	root.AddCommand(a.scoreCmd())
	root.AddCommand(a.blameCmd())
	root.AddCommand(a.revisionsCmd())
	root.AddCommand(a.exportCmd())
	root.AddCommand(a.versionCmd())
	return root
}

// setup loads the configuration and builds the logger.
func (a *app) setup() error {
	path, err := findConfigFile(a.configPath)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	cfg.Log.Console = a.stderr
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	if path != "" {
		a.logger.Debug().Str("path", path).Msg("loaded config")
	}
	return nil
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "revdiff version %s\n", version)
		},
	}
}

// diffFlags holds the diff command's flags. Flags left unset fall back to
// the config file.
type diffFlags struct {
	threshold         float64
	absoluteThreshold bool
	algorithm         string
	damerau           bool
	html              bool
	charDiff          bool
	showDistance      bool
	startDelete       string
	stopDelete        string
	startInsert       string
	stopInsert        string
	noColor           bool
	colorSpec         string
	statistics        bool
	noDeleted         bool
	noInserted        bool
	noCommon          bool
}

func (a *app) diffCmd() *cobra.Command {
	var f diffFlags
	defaults := defaultConfig()

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Diff two revisions of a text",
		Long: "Diff two revisions sentence by sentence. Moved sentences are not changes;\n" +
			"edited sentences are shown word by word.\n\n" +
			"Exit codes:\n" +
			"  0  revisions are identical\n" +
			"  1  revisions differ\n" +
			"  2  error occurred",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.apply(cmd.Flags(), &a.cfg)
			if a.cfg.Format.Color == "list" {
				showColorList(a.stdout)
				return nil
			}
			if err := validateConfig(&a.cfg); err != nil {
				return err
			}
			return a.runDiff(args[0], args[1], f)
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&f.threshold, "threshold", defaults.Diff.Threshold, "largest distance ratio (or word count with --absolute-threshold) still treated as an edit")
	fs.BoolVar(&f.absoluteThreshold, "absolute-threshold", false, "compare the raw word distance against --threshold")
	fs.StringVarP(&f.algorithm, "algorithm", "A", defaults.Diff.Algorithm, "sentence alignment: best (anchor words), greedy, positional")
	fs.BoolVar(&f.damerau, "damerau", false, "count swapped neighboring words as one edit")
	fs.BoolVar(&f.html, "html", false, "inputs are rendered HTML")
	fs.BoolVar(&f.charDiff, "char-diff", false, "show edited sentences character by character")
	fs.BoolVar(&f.showDistance, "show-distance", false, "annotate edited sentences with their distance")
	fs.StringVarP(&f.startDelete, "start-delete", "w", defaults.Format.StartDelete, "string to mark begin of deleted text")
	fs.StringVarP(&f.stopDelete, "stop-delete", "x", defaults.Format.StopDelete, "string to mark end of deleted text")
	fs.StringVarP(&f.startInsert, "start-insert", "y", defaults.Format.StartInsert, "string to mark begin of inserted text")
	fs.StringVarP(&f.stopInsert, "stop-insert", "z", defaults.Format.StopInsert, "string to mark end of inserted text")
	fs.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	fs.StringVarP(&f.colorSpec, "color", "c", "", "set colors for deleted/inserted text (format: del_fg[:del_bg],ins_fg[:ins_bg], or 'list')")
	fs.BoolVarP(&f.statistics, "statistics", "s", false, "print statistics")
	fs.BoolVarP(&f.noDeleted, "no-deleted", "1", false, "suppress printing of deleted words")
	fs.BoolVarP(&f.noInserted, "no-inserted", "2", false, "suppress printing of inserted words")
	fs.BoolVarP(&f.noCommon, "no-common", "3", false, "suppress printing of common words")
	fs.Lookup("color").NoOptDefVal = "default"
	return cmd
}

// apply copies the flags the user set over cfg.
func (f *diffFlags) apply(fs *pflag.FlagSet, cfg *Config) {
	set := func(name string, fn func()) {
		if fs.Changed(name) {
			fn()
		}
	}
	set("threshold", func() { cfg.Diff.Threshold = f.threshold })
	set("absolute-threshold", func() { cfg.Diff.AbsoluteThreshold = f.absoluteThreshold })
	set("algorithm", func() { cfg.Diff.Algorithm = f.algorithm })
	set("damerau", func() { cfg.Diff.Damerau = f.damerau })
	set("html", func() { cfg.Annotate.HTML = f.html })
	set("char-diff", func() { cfg.Format.CharDiff = f.charDiff })
	set("show-distance", func() { cfg.Format.ShowDistance = f.showDistance })
	set("start-delete", func() { cfg.Format.StartDelete = f.startDelete })
	set("stop-delete", func() { cfg.Format.StopDelete = f.stopDelete })
	set("start-insert", func() { cfg.Format.StartInsert = f.startInsert })
	set("stop-insert", func() { cfg.Format.StopInsert = f.stopInsert })
	set("no-color", func() { cfg.Format.NoColor = f.noColor })
	set("color", func() { cfg.Format.Color = f.colorSpec })
	set("statistics", func() { cfg.Format.Statistics = f.statistics })
}

func (a *app) runDiff(oldPath, newPath string, f diffFlags) error {
	cfg := a.cfg

	oldRev, err := a.readRevision(oldPath, 1)
	if err != nil {
		return err
	}
	newRev, err := a.readRevision(newPath, 2)
	if err != nil {
		return err
	}

	aligner, err := revdiff.AlignerByName(cfg.Diff.Algorithm, revdiff.AlignOptions{
		MinAnchors: cfg.Diff.MinAnchors,
		Damerau:    cfg.Diff.Damerau,
	})
	if err != nil {
		return err
	}
	differ := revdiff.NewDiffer(revdiff.Options{
		Threshold:         cfg.Diff.Threshold,
		AbsoluteThreshold: cfg.Diff.AbsoluteThreshold,
		Aligner:           aligner,
		Logger:            a.logger,
	})
	res := differ.Diff(oldRev, newRev)

	fmtOpts, err := a.formatOptions(f)
	if err != nil {
		return err
	}
	if out := revdiff.FormatResult(res, fmtOpts); out != "" {
		fmt.Fprintln(a.stdout, out)
	}

	if cfg.Format.Statistics {
		printStatistics(a.stderr, revdiff.ComputeStatistics(oldRev, newRev, res))
	}

	if res.HasChanges() {
		return errDiffer
	}
	return nil
}

// readRevision reads and annotates one input file.
func (a *app) readRevision(path string, id revdiff.RevisionID) (*revdiff.Revision, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	text := string(data)
	if a.cfg.Annotate.HTML {
		text, err = revdiff.ExtractHTMLText(strings.NewReader(text))
		if err != nil {
			return nil, fmt.Errorf("extracting text from %s: %w", path, err)
		}
	}
	return a.annotator().Annotate(text, id), nil
}

func (a *app) annotator() *revdiff.Annotator {
	return revdiff.NewAnnotator(revdiff.AnnotateOptions{
		Stem:        a.cfg.Annotate.Stem,
		Language:    a.cfg.Annotate.Language,
		StripMarkup: !a.cfg.Annotate.HTML,
	})
}

// formatOptions builds rendering options from config and flags.
func (a *app) formatOptions(f diffFlags) (revdiff.FormatOptions, error) {
	fc := a.cfg.Format
	opts := revdiff.DefaultFormatOptions()
	opts.StartDelete = fc.StartDelete
	opts.StopDelete = fc.StopDelete
	opts.StartInsert = fc.StartInsert
	opts.StopInsert = fc.StopInsert
	opts.NoDeleted = f.noDeleted
	opts.NoInserted = f.noInserted
	opts.NoCommon = f.noCommon
	opts.CharLevel = fc.CharDiff
	opts.ShowDistance = fc.ShowDistance

	if fc.Color != "" && fc.Color != "default" {
		del, ins, err := revdiff.ParseColorSpec(fc.Color)
		if err != nil {
			return opts, err
		}
		opts.DeleteColor, opts.InsertColor = del, ins
	}
	opts.UseColor = !fc.NoColor && os.Getenv("NO_COLOR") == "" && (isTerminal(a.stdout) || fc.Color != "")
	return opts, nil
}

// showColorList prints available colors
func showColorList(w io.Writer) {
	fmt.Fprintln(w, "Available colors:")
	colors := revdiff.ColorNames()
	if len(colors) > 8 {
		fmt.Fprintf(w, "  %s\n", strings.Join(colors[:8], ", "))
		fmt.Fprintf(w, "  %s\n", strings.Join(colors[8:], ", "))
	} else {
		fmt.Fprintf(w, "  %s\n", strings.Join(colors, ", "))
	}
	fmt.Fprintln(w, "\nUsage: -c delete_color[:delete_bg],insert_color[:insert_bg]")
	fmt.Fprintln(w, "Example: -c red,green")
}

// printStatistics prints diff statistics
func printStatistics(w io.Writer, st revdiff.DiffStatistics) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "old: %d words  %d %d%% common  %d %d%% deleted\n",
		st.OldWords,
		st.CommonWords, percent(st.CommonWords, st.OldWords),
		st.DeletedWords, percent(st.DeletedWords, st.OldWords))
	fmt.Fprintf(w, "new: %d words  %d %d%% common  %d %d%% inserted\n",
		st.NewWords,
		st.CommonWords, percent(st.CommonWords, st.NewWords),
		st.InsertedWords, percent(st.InsertedWords, st.NewWords))
	fmt.Fprintf(w, "sentences: %d matched  %d edited  %d replaced  %d added  %d deleted\n",
		st.MatchedSentences, st.EditedSentences, st.ReplacedSentences, st.AddedSentences, st.DeletedSentences)
}

// percent calculates percentage, handling division by zero
func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return (part * 100) / total
}

// isTerminal returns true if w is a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// openStore opens the database named by --db or the config.
func (a *app) openStore(dbPath string) (*store.Store, error) {
	if dbPath == "" {
		dbPath = a.cfg.Store.Path
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dbPath, err)
	}
	return s, nil
}

// loadOntology loads the ontology named by --ontology or the config. It
// returns nil when neither names one.
func (a *app) loadOntology(path string) (*ontology.Ontology, error) {
	if path == "" {
		path = a.cfg.Ontology.Path
	}
	if path == "" {
		return nil, nil
	}
	return ontology.Load(path)
}

func (a *app) ingestCmd() *cobra.Command {
	var dbPath, docID, ontologyPath string
	var html bool

	cmd := &cobra.Command{
		Use:   "ingest --doc ID FILE.jsonl",
		Short: "Ingest a document's revision history",
		Long: "Read revisions, one JSON object per line, in chronological order and record\n" +
			"which revision created each word. Use - to read from stdin. Revisions that\n" +
			"are already stored are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("html") {
				a.cfg.Annotate.HTML = html
			}
			return a.runIngest(cmd.Context(), dbPath, docID, ontologyPath, args[0])
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default from config)")
	cmd.Flags().StringVar(&docID, "doc", "", "document identifier")
	cmd.Flags().StringVar(&ontologyPath, "ontology", "", "ontology file for contributions (default from config)")
	cmd.Flags().BoolVar(&html, "html", false, "treat every revision as rendered HTML")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}

func (a *app) runIngest(ctx context.Context, dbPath, docID, ontologyPath, input string) error {
	onto, err := a.loadOntology(ontologyPath)
	if err != nil {
		return err
	}
	s, err := a.openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	var r io.Reader = os.Stdin
	if input != "-" {
		file, err := os.Open(input)
		if err != nil {
			return err
		}
		defer file.Close()
		r = file
	}

	aligner, err := revdiff.AlignerByName(a.cfg.Diff.Algorithm, revdiff.AlignOptions{
		MinAnchors: a.cfg.Diff.MinAnchors,
		Damerau:    a.cfg.Diff.Damerau,
	})
	if err != nil {
		return err
	}
	opts := ingest.Options{
		Differ: revdiff.NewDiffer(revdiff.Options{
			Threshold:         a.cfg.Diff.Threshold,
			AbsoluteThreshold: a.cfg.Diff.AbsoluteThreshold,
			Aligner:           aligner,
			Logger:            a.logger,
		}),
		Annotator: a.annotator(),
		Logger:    a.logger,
	}
	if onto != nil {
		opts.Index = onto
	}

	src := ingest.Source(ingest.NewJSONLSource(r))
	if a.cfg.Annotate.HTML {
		src = htmlSource{src}
	}

	sum, err := ingest.New(s, opts).Ingest(ctx, docID, src)
	fmt.Fprintf(a.stdout, "%s: %d revisions ingested, %d skipped, %d words added, %d deleted\n",
		docID, sum.Ingested, sum.Skipped, sum.Added, sum.Deleted)
	return err
}

// htmlSource marks every revision of a source as HTML.
type htmlSource struct {
	ingest.Source
}

func (s htmlSource) Next(ctx context.Context) (ingest.RawRevision, error) {
	raw, err := s.Source.Next(ctx)
	raw.HTML = true
	return raw, err
}

func (a *app) scoreCmd() *cobra.Command {
	var dbPath, ontologyPath string
	var topics []string
	var halfLifeDays float64
	var limit int

	cmd := &cobra.Command{
		Use:   "score --topic TOPIC",
		Short: "Rank authors by expertise in a topic",
		Long: "Rank authors by expertise in the topic concepts weighted by credibility.\n" +
			"A topic is a concept URI or a term the ontology knows.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("half-life-days") {
				a.cfg.Scoring.HalfLifeDays = halfLifeDays
			}
			if err := validateConfig(&a.cfg); err != nil {
				return err
			}
			return a.runScore(cmd.Context(), dbPath, ontologyPath, topics, limit)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default from config)")
	cmd.Flags().StringVar(&ontologyPath, "ontology", "", "ontology file (default from config)")
	cmd.Flags().StringSliceVarP(&topics, "topic", "t", nil, "topic concept or term (repeatable)")
	cmd.Flags().Float64Var(&halfLifeDays, "half-life-days", defaultConfig().Scoring.HalfLifeDays, "age in days at which a contribution counts half")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most N authors")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func (a *app) runScore(ctx context.Context, dbPath, ontologyPath string, topics []string, limit int) error {
	onto, err := a.loadOntology(ontologyPath)
	if err != nil {
		return err
	}
	if onto == nil {
		return errors.New("scoring needs an ontology (--ontology or ontology.path in the config)")
	}

	var concepts []string
	for _, topic := range topics {
		uris, err := onto.Resolve(topic)
		if err != nil {
			return fmt.Errorf("topic %q: %w", topic, err)
		}
		concepts = append(concepts, uris...)
	}

	s, err := a.openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	halfLife := time.Duration(a.cfg.Scoring.HalfLifeDays * float64(24*time.Hour))
	scores, err := scoring.NewScorer(s, onto, scoring.Options{HalfLife: halfLife, Logger: a.logger}).Rank(ctx, concepts)
	if err != nil {
		return err
	}
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AUTHOR\tSCORE\tEXPERTISE\tCREDIBILITY\tADDED")
	for _, sc := range scores {
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t%d\n", sc.Author, sc.Score, sc.Expertise, sc.Credibility, sc.Added)
	}
	return tw.Flush()
}

func (a *app) blameCmd() *cobra.Command {
	var dbPath, docID string
	var revision int64

	cmd := &cobra.Command{
		Use:   "blame --doc ID",
		Short: "Show who wrote each part of a revision",
		Long:  "Print a stored revision's text in runs of words created by the same revision.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBlame(cmd.Context(), dbPath, docID, revdiff.RevisionID(revision))
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default from config)")
	cmd.Flags().StringVar(&docID, "doc", "", "document identifier")
	cmd.Flags().Int64VarP(&revision, "revision", "r", 0, "revision to show (default latest)")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}

func (a *app) runBlame(ctx context.Context, dbPath, docID string, id revdiff.RevisionID) error {
	s, err := a.openStore(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()

	if id == 0 {
		latest, err := s.LatestRevision(ctx, docID)
		if err != nil {
			return err
		}
		if latest == nil {
			return fmt.Errorf("document %q: %w", docID, store.ErrNotFound)
		}
		id = latest.ID
	}

	history, err := s.WordHistory(ctx, docID, id)
	if err != nil {
		return err
	}
	for _, run := range blameRuns(history) {
		fmt.Fprintf(a.stdout, "r%-8d %-20s %s\n", run.revision, run.author, strings.Join(run.words, " "))
	}
	return nil
}

// blameRun is a stretch of consecutive words created by one revision.
type blameRun struct {
	revision revdiff.RevisionID
	author   string
	words    []string
}

func blameRuns(history []store.AttributedWord) []blameRun {
	var runs []blameRun
	for _, w := range history {
		if n := len(runs); n > 0 && runs[n-1].revision == w.CreatedIn {
			runs[n-1].words = append(runs[n-1].words, w.Surface)
			continue
		}
		runs = append(runs, blameRun{revision: w.CreatedIn, author: w.Author, words: []string{w.Surface}})
	}
	return runs
}

func (a *app) revisionsCmd() *cobra.Command {
	var dbPath, docID string

	cmd := &cobra.Command{
		Use:   "revisions --doc ID",
		Short: "List a document's ingested revisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			infos, err := s.Revisions(cmd.Context(), docID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "REVISION\tTIMESTAMP\tAUTHOR\tWORDS\tADDED\tDELETED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\n", info.ID, info.Timestamp.Format(time.RFC3339),
					info.Author, info.Words, info.Added, info.Deleted)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default from config)")
	cmd.Flags().StringVar(&docID, "doc", "", "document identifier")
	_ = cmd.MarkFlagRequired("doc")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var dbPath, out string

	cmd := &cobra.Command{
		Use:   "export --out FILE.parquet",
		Short: "Export contributions as Parquet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.openStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			file, err := os.Create(out)
			if err != nil {
				return err
			}
			n, err := s.ExportContributions(cmd.Context(), file)
			if cerr := file.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return fmt.Errorf("exporting to %s: %w", out, err)
			}
			a.logger.Info().Str("path", out).Int("rows", n).Msg("exported contributions")
			fmt.Fprintf(a.stdout, "%d contributions written to %s\n", n, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default from config)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
