package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/phantomx-ai/phantomx/internal/classification"
	"github.com/phantomx-ai/phantomx/internal/deepfake"
	"github.com/phantomx-ai/phantomx/internal/intent"
	"github.com/phantomx-ai/phantomx/internal/pipeline"
	"github.com/phantomx-ai/phantomx/internal/signal"
)

var (
	classifyText        string
	classifyProbability float64
	classifySentiment   float64
	classifyJSON        bool
)

func init() {
	classifyCmd.Flags().StringVar(&classifyText, "text", "", "call transcript to classify (required)")
	classifyCmd.Flags().Float64Var(&classifyProbability, "deepfake-probability", 0, "probability in [0,1] that the voice is synthetic")
	classifyCmd.Flags().Float64Var(&classifySentiment, "sentiment-score", 0, "sentiment score in [-1,1]")
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "print the result as JSON")
	_ = classifyCmd.MarkFlagRequired("text")
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify a transcript offline",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(classifyText) == "" {
			return errors.New("--text must not be empty")
		}

		df := deepfake.Failed(deepfake.ErrNoScorer)
		if cmd.Flags().Changed("deepfake-probability") {
			df = deepfake.Scored(classifyProbability)
		}

		res := pipeline.ClassifyText(classifyText, intent.Hints{SentimentScore: classifySentiment}, df, time.Now())
		if classifyJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		renderResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func renderResult(out io.Writer, res classification.Result) {
	typeColor := color.New(color.Bold)
	switch res.Type {
	case signal.LabelSpam:
		typeColor.Add(color.FgRed)
	case signal.LabelBusiness:
		typeColor.Add(color.FgYellow)
	case signal.LabelSafe:
		typeColor.Add(color.FgGreen)
	default:
		typeColor.Add(color.FgMagenta)
	}
	label := color.New(color.Faint)

	fmt.Fprintf(out, "%s %s (%.2f%%)\n", typeColor.Sprint(strings.ToUpper(string(res.Type))), res.Intent, res.Confidence)
	fmt.Fprintf(out, "%s %s\n", label.Sprint("risk:          "), res.RiskLevel)
	fmt.Fprintf(out, "%s %s\n", label.Sprint("recommendation:"), res.Recommendation)
	fmt.Fprintf(out, "%s %s\n", label.Sprint("details:       "), res.Details)
	if len(res.Keywords) > 0 {
		fmt.Fprintf(out, "%s %s\n", label.Sprint("keywords:      "), strings.Join(res.Keywords, ", "))
	}
	if res.Scores != nil {
		fmt.Fprintf(out, "%s intent %.2f, deepfake %.2f\n", label.Sprint("scores:        "), res.Scores.IntentConfidence, res.Scores.DeepfakeConfidence)
	}
}
