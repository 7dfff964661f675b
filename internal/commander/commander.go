// Package commander is an interactive shell for declaring, inspecting and
// running pipeline evaluations.
package commander

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"mlpipeline/internal/config"
	"mlpipeline/internal/data"
	"mlpipeline/internal/pipeliner"
	"mlpipeline/internal/preprocessing"
	"mlpipeline/internal/progress"
	"mlpipeline/internal/report"
)

type Commander struct {
	cfg       *config.Config
	pipeliner *pipeliner.Pipeliner
	dataset   *loadedDataset
	results   *pipeliner.Results
	tracker   *progress.Tracker

	green  func(a ...any) string
	red    func(a ...any) string
	yellow func(a ...any) string
	cyan   func(a ...any) string
}

type loadedDataset struct {
	X          *data.Collection
	y          []int
	Encoder    *preprocessing.LabelEncoder
	SourceFile string
}

func NewCommander() *Commander {
	return &Commander{
		green:  color.New(color.FgGreen).SprintFunc(),
		red:    color.New(color.FgRed).SprintFunc(),
		yellow: color.New(color.FgYellow).SprintFunc(),
		cyan:   color.New(color.FgCyan).SprintFunc(),
	}
}

func (c *Commander) Start() {
	c.printWelcome()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(c.yellow("\nmlp> "))
		if !scanner.Scan() {
			if scanner.Err() != nil {
				fmt.Printf("\n%s Scanner error: %v\n", c.red("✗"), scanner.Err())
			}
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		command := strings.ToLower(parts[0])
		args := parts[1:]

		if command == "quit" || command == "exit" || command == "q" {
			fmt.Println(c.cyan("Bye."))
			return
		}

		c.ExecuteCommand(command, args)
	}
}

func (c *Commander) ExecuteCommand(command string, args []string) {
	switch command {
	case "help", "h":
		c.showHelp()
	case "config":
		if len(args) > 0 {
			c.loadConfig(args[0])
		} else {
			fmt.Println(c.red("Usage: config <filename>"))
		}
	case "load":
		if len(args) > 0 {
			c.loadData(args[0])
		} else {
			fmt.Println(c.red("Usage: load <filename>"))
		}
	case "plan":
		c.showPlan()
	case "run":
		c.run()
	case "results":
		c.showResults()
	case "best":
		c.showBest(args)
	case "log":
		c.showLog()
	case "export":
		if len(args) > 0 {
			c.export(args[0])
		} else {
			fmt.Println(c.red("Usage: export <filename>"))
		}
	case "plot":
		if len(args) > 1 {
			c.plot(args[0], args[1])
		} else {
			fmt.Println(c.red("Usage: plot <metric> <filename>"))
		}
	default:
		fmt.Printf("%s Unknown command: %s (try 'help')\n", c.red("✗"), command)
	}
}

func (c *Commander) printWelcome() {
	fmt.Println(c.cyan("Pipeline evaluation shell. Type 'help' for commands."))
}

func (c *Commander) showHelp() {
	fmt.Println(c.cyan("Commands:"))
	fmt.Println("  config <file>         Load a pipeline declaration (YAML)")
	fmt.Println("  load <file>           Load a CSV dataset (label in last column)")
	fmt.Println("  plan                  Show the evaluation plan")
	fmt.Println("  run                   Evaluate every plan row")
	fmt.Println("  results               Show the results table")
	fmt.Println("  best [metric]         Show the best pipeline for a metric")
	fmt.Println("  log                   Show the run log")
	fmt.Println("  export <file>         Export the results table as CSV")
	fmt.Println("  plot <metric> <file>  Save a bar chart of evaluation scores")
	fmt.Println("  quit                  Exit")
}

func (c *Commander) loadConfig(filename string) {
	cfg, err := config.Load(filename)
	if err != nil {
		fmt.Printf("%s %v\n", c.red("✗"), err)
		return
	}

	pl, err := cfg.Build()
	if err != nil {
		fmt.Printf("%s %v\n", c.red("✗"), err)
		return
	}

	c.cfg = cfg
	c.pipeliner = pl
	c.results = nil
	c.tracker = nil

	fmt.Printf("%s Loaded %s: %d steps, %d plan rows\n",
		c.green("✓"), filename, len(pl.StepNames()), len(pl.Plan()))
}

func (c *Commander) loadData(filename string) {
	ds, err := data.ReadCSV(filename)
	if err != nil {
		fmt.Printf("%s %v\n", c.red("✗"), err)
		return
	}

	encoder := preprocessing.NewLabelEncoder()
	y, err := encoder.FitTransform(ds.Labels)
	if err != nil {
		fmt.Printf("%s %v\n", c.red("✗"), err)
		return
	}

	validator := data.NewValidator()
	if err := validator.ValidateDataset(ds.X, y); err != nil {
		fmt.Printf("%s %v\n", c.red("✗"), err)
		return
	}
	if err := validator.ValidateLabels(y); err != nil {
		fmt.Printf("%s %v\n", c.red("✗"), err)
		return
	}

	c.dataset = &loadedDataset{
		X:          data.FromFeatures(ds.X),
		y:          y,
		Encoder:    encoder,
		SourceFile: filename,
	}
	c.results = nil

	fmt.Printf("%s Loaded %d samples, %d features, %d classes\n",
		c.green("✓"), len(ds.X), len(ds.Features), len(encoder.Classes()))
}

func (c *Commander) showPlan() {
	if c.pipeliner == nil {
		fmt.Println(c.red("No config loaded. Use: config <filename>"))
		return
	}
	c.pipeliner.PlanTable().Render(os.Stdout)
}

func (c *Commander) run() {
	if c.pipeliner == nil {
		fmt.Println(c.red("No config loaded. Use: config <filename>"))
		return
	}
	if c.dataset == nil {
		fmt.Println(c.red("No dataset loaded. Use: load <filename>"))
		return
	}

	c.tracker = progress.NewTracker(len(c.pipeliner.Plan()))

	results, err := c.pipeliner.GetResults(c.dataset.X, c.dataset.y, pipeliner.EvalOptions{
		Scoring:      c.cfg.Scoring,
		CachingSteps: c.cfg.CachingSteps,
		CollectN:     c.cfg.CollectN,
		Tracker:      c.tracker,
	})
	if err != nil {
		fmt.Printf("%s %v\n", c.red("✗"), err)
		if results != nil && len(results.Rows) > 0 {
			fmt.Printf("Completed %d rows before the failure.\n", len(results.Rows))
			c.results = results
		}
		return
	}

	c.results = results
	fmt.Printf("%s Evaluated %d rows in %v\n",
		c.green("✓"), len(results.Rows), c.tracker.Elapsed().Round(time.Millisecond))
}

func (c *Commander) showResults() {
	if c.results == nil {
		fmt.Println(c.red("No results yet. Use: run"))
		return
	}
	c.results.Table().Render(os.Stdout)
}

func (c *Commander) showBest(args []string) {
	if c.results == nil {
		fmt.Println(c.red("No results yet. Use: run"))
		return
	}

	metric := c.results.Scoring[0]
	if len(args) > 0 {
		metric = args[0]
	}

	best, ok := c.results.Best(metric)
	if !ok {
		fmt.Printf("%s No rows evaluated for metric %q\n", c.red("✗"), metric)
		return
	}

	m := best.Metrics[metric]
	fmt.Printf("%s %v\n", c.green("Best pipeline:"), best.Choices)
	fmt.Printf("%s: %.4f +/- %.4f", metric, m.EvalMean, m.EvalStd)
	if m.BestParamsStr != "" {
		fmt.Printf(" (%s)", m.BestParamsStr)
	}
	fmt.Println()
}

func (c *Commander) showLog() {
	if c.tracker == nil {
		fmt.Println(c.red("No run yet. Use: run"))
		return
	}
	for _, line := range c.tracker.Logs() {
		fmt.Println(line)
	}
}

func (c *Commander) export(filename string) {
	if c.results == nil {
		fmt.Println(c.red("No results yet. Use: run"))
		return
	}
	if err := c.results.Table().ExportCSV(filename); err != nil {
		fmt.Printf("%s %v\n", c.red("✗"), err)
		return
	}
	fmt.Printf("%s Results exported to %s\n", c.green("✓"), filename)
}

func (c *Commander) plot(metric, filename string) {
	if c.results == nil {
		fmt.Println(c.red("No results yet. Use: run"))
		return
	}
	if err := report.SaveBarChart(c.results, metric, filename); err != nil {
		fmt.Printf("%s %v\n", c.red("✗"), err)
		return
	}
	fmt.Printf("%s Plot saved to %s\n", c.green("✓"), filename)
}
