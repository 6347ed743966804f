package cmd

import (
	"github.com/spf13/pflag"

	"github.com/KaramelBytes/samreport-cli/internal/dataset"
)

var (
	// input
	flagSheetName     string
	flagSheetIndex    int
	flagDelimiter     string
	flagMaxRows       int
	flagLearning      string
	flagLearningSheet string

	// output
	flagFormat string
	flagOutput string

	// model
	flagProvider string
	flagModel    string
	flagStream   bool
)

func addInputFlags(f *pflag.FlagSet) {
	f.StringVar(&flagSheetName, "sheet-name", "", "XLSX sheet name of the question file")
	f.IntVar(&flagSheetIndex, "sheet-index", 0, "1-based XLSX sheet index of the question file")
	f.StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: comma|semicolon|tab or a single character (default: sniff)")
	f.IntVar(&flagMaxRows, "max-rows", 0, "read at most this many data rows (0 = all)")
	f.StringVar(&flagLearning, "learning", "", "learning-history file (CSV/TSV/XLSX) with user_id and title columns")
	f.StringVar(&flagLearningSheet, "learning-sheet", "", "XLSX sheet name of the learning-history file")
}

func addOutputFlags(f *pflag.FlagSet) {
	f.StringVar(&flagFormat, "format", "markdown", "output format: markdown|json")
	f.StringVarP(&flagOutput, "output", "o", "", "write the report to this file instead of stdout")
}

func addModelFlags(f *pflag.FlagSet) {
	f.StringVar(&flagProvider, "provider", "", "LLM provider: openrouter|openai|ollama (default from config)")
	f.StringVar(&flagModel, "model", "", "model name (default from config or provider)")
	f.BoolVar(&flagStream, "stream", false, "echo LLM output to stderr as it is generated")
}

// readOptions builds the read options of the question file.
func readOptions() (dataset.ReadOptions, error) {
	d, err := dataset.ParseDelimiter(flagDelimiter)
	if err != nil {
		return dataset.ReadOptions{}, err
	}
	return dataset.ReadOptions{
		Delimiter:  d,
		SheetName:  flagSheetName,
		SheetIndex: flagSheetIndex,
		MaxRows:    flagMaxRows,
	}, nil
}

// learningOptions builds the read options of the learning-history file. The
// delimiter is always sniffed since the two files often come from different
// systems.
func learningOptions() dataset.ReadOptions {
	return dataset.ReadOptions{SheetName: flagLearningSheet}
}
