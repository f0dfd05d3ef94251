package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/feever-health/feever/internal/extract"
	"github.com/feever-health/feever/internal/report"
)

var (
	analyzePrompt string
	analyzeAsJSON bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a medical bill from an image or extracted JSON",
	Long:  "Runs the anomaly analysis on a bill. Image files go through the extraction provider; .json files (or --json) are treated as already-extracted bill data.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		var rep *report.BillReport
		if analyzeAsJSON || strings.EqualFold(filepath.Ext(path), ".json") {
			rep, err = analyzeLocal(cmd, env, path)
		} else {
			rep, err = analyzeImage(cmd, env, path)
		}
		if err != nil {
			return err
		}

		encoded, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode report")
		}
		cmd.Println(string(encoded))
		return nil
	},
}

func analyzeLocal(cmd *cobra.Command, env *analysisEnv, path string) (*report.BillReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read bill data %s", path)
	}

	bill, err := extract.ParseBill(string(data))
	if err != nil {
		return nil, err
	}

	rep := env.localService().AnalyzeBill(cmd.Context(), bill)
	rep.FileName = filepath.Base(path)
	return rep, nil
}

func analyzeImage(cmd *cobra.Command, env *analysisEnv, path string) (*report.BillReport, error) {
	svc, err := env.newService()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open bill image %s", path)
	}
	defer f.Close() //nolint:errcheck

	return svc.AnalyzeUpload(cmd.Context(), filepath.Base(path), f, analyzePrompt)
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePrompt, "prompt", "", "override the extraction prompt")
	analyzeCmd.Flags().BoolVar(&analyzeAsJSON, "json", false, "treat the input file as extracted bill JSON")
	rootCmd.AddCommand(analyzeCmd)
}
