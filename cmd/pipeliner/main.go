package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"mlpipeline/internal/config"
	"mlpipeline/internal/data"
	"mlpipeline/internal/estimator"
	"mlpipeline/internal/persistence"
	"mlpipeline/internal/pipeliner"
	"mlpipeline/internal/preprocessing"
	"mlpipeline/internal/progress"
	"mlpipeline/internal/report"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

func main() {
	configFile := flag.String("config", "config/pipelines.yaml", "Path to pipeline declaration file")
	dataFile := flag.String("data", "", "Path to CSV dataset (label in last column)")
	outputDir := flag.String("output", "results", "Output directory for results")
	planOnly := flag.Bool("plan", false, "Print the evaluation plan and exit")
	plot := flag.Bool("plot", false, "Save a bar chart of evaluation scores")
	saveBest := flag.Bool("save-best", false, "Refit the best row on all data and save it")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pl, err := cfg.Build()
	if err != nil {
		log.Fatalf("Failed to build pipeliner: %v", err)
	}

	fmt.Printf("%s\n", cyan("Evaluation plan:"))
	pl.PlanTable().Render(os.Stdout)

	if *planOnly {
		return
	}

	if *dataFile == "" {
		fmt.Println("Usage:")
		fmt.Println("  go run cmd/pipeliner/main.go -config config/pipelines.yaml -data data/iris.csv")
		fmt.Println("\nOptions:")
		flag.PrintDefaults()
		os.Exit(1)
	}

	X, y, encoder := loadDataset(*dataFile)

	timestamp := time.Now().Format("20060102_150405")
	runDir := filepath.Join(*outputDir, fmt.Sprintf("run_%s", timestamp))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	logFile, err := os.Create(filepath.Join(runDir, "results.log"))
	if err != nil {
		log.Fatalf("Failed to create log file: %v", err)
	}
	defer logFile.Close()

	tracker := progress.NewTracker(len(pl.Plan()))

	results, err := pl.GetResults(X, y, pipeliner.EvalOptions{
		Scoring:      cfg.Scoring,
		CachingSteps: cfg.CachingSteps,
		CollectN:     cfg.CollectN,
		LogWriter:    logFile,
		Tracker:      tracker,
	})
	if err != nil {
		fmt.Printf("%s %v\n", red("Evaluation failed:"), err)
		if results != nil && len(results.Rows) > 0 {
			fmt.Printf("Completed %d rows before the failure:\n", len(results.Rows))
			results.Table().Render(os.Stdout)
		}
		os.Exit(1)
	}

	fmt.Printf("\n%s (%v)\n", cyan("Results:"), tracker.Elapsed().Round(time.Millisecond))
	results.Table().Render(os.Stdout)

	resultsCSV := filepath.Join(runDir, "results.csv")
	if err := results.Table().ExportCSV(resultsCSV); err != nil {
		log.Printf("Failed to export results: %v", err)
	} else {
		fmt.Printf("Results saved to: %s\n", resultsCSV)
	}

	metric := results.Scoring[0]
	best, ok := results.Best(metric)
	if !ok {
		fmt.Println(yellow("No evaluated rows to summarize."))
		return
	}

	bestMetric := best.Metrics[metric]
	fmt.Printf("\n%s %v\n", green("Best pipeline:"), best.Choices)
	fmt.Printf("%s: %.4f +/- %.4f", metric, bestMetric.EvalMean, bestMetric.EvalStd)
	if bestMetric.BestParamsStr != "" {
		fmt.Printf(" (%s)", bestMetric.BestParamsStr)
	}
	fmt.Println()

	if *plot {
		plotFile := filepath.Join(runDir, fmt.Sprintf("%s.png", metric))
		if err := report.SaveBarChart(results, metric, plotFile); err != nil {
			log.Printf("Failed to save plot: %v", err)
		} else {
			fmt.Printf("Plot saved to: %s\n", plotFile)
		}
	}

	if *saveBest {
		saveBestPipeline(pl, best, metric, X, y, encoder, *dataFile, runDir)
	}
}

func loadDataset(dataFile string) (*data.Collection, []int, *preprocessing.LabelEncoder) {
	ds, err := data.ReadCSV(dataFile)
	if err != nil {
		log.Fatalf("Failed to load data: %v", err)
	}

	encoder := preprocessing.NewLabelEncoder()
	y, err := encoder.FitTransform(ds.Labels)
	if err != nil {
		log.Fatalf("Failed to encode labels: %v", err)
	}

	validator := data.NewValidator()
	if err := validator.ValidateDataset(ds.X, y); err != nil {
		log.Fatalf("Data validation failed: %v", err)
	}
	if err := validator.ValidateLabels(y); err != nil {
		log.Fatalf("Label validation failed: %v", err)
	}

	fmt.Printf("Loaded %d samples with %d features\n", len(ds.X), len(ds.Features))

	return data.FromFeatures(ds.X), y, encoder
}

// saveBestPipeline refits the winning row on the full dataset and bundles
// its fitted classifier and scaler for later prediction.
func saveBestPipeline(pl *pipeliner.Pipeliner, best pipeliner.RowResult, metric string, X *data.Collection, y []int, encoder *preprocessing.LabelEncoder, dataFile, runDir string) {
	pipe, err := pl.Assemble(best.Choices)
	if err != nil {
		log.Printf("Failed to assemble best pipeline: %v", err)
		return
	}

	bestMetric := best.Metrics[metric]
	if len(bestMetric.BestParams) > 0 {
		if err := pipe.SetParams(bestMetric.BestParams); err != nil {
			log.Printf("Failed to set best params: %v", err)
			return
		}
	}

	if err := pipe.Fit(X, y); err != nil {
		log.Printf("Failed to refit best pipeline: %v", err)
		return
	}

	bundle := persistence.NewBundle(nil, persistence.Metadata{
		Choices:    best.Choices,
		Metric:     metric,
		BestParams: bestMetric.BestParams,
		EvalMean:   bestMetric.EvalMean,
		EvalStd:    bestMetric.EvalStd,
		Dataset:    dataFile,
	})
	bundle.LabelEncoder = encoder

	for _, step := range pipe.Steps {
		switch e := step.Estimator.(type) {
		case *preprocessing.Scaler:
			bundle.Scaler = e
		case estimator.Classifier:
			bundle.Classifier = e
		}
	}

	if bundle.Classifier == nil {
		log.Printf("Best pipeline has no classifier step to save")
		return
	}

	bundlePath := filepath.Join(runDir, "best.model")
	if err := bundle.Save(bundlePath); err != nil {
		log.Printf("Failed to save model: %v", err)
		return
	}
	fmt.Printf("Best model saved to: %s\n", bundlePath)

	metaPath := filepath.Join(runDir, "best.txt")
	if err := bundle.SaveMetadata(metaPath); err != nil {
		log.Printf("Failed to save metadata: %v", err)
	}
}
