package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var emailPromptFile string

// defaultEmailPrompt is used when no prompt file is supplied. The analysis
// report replaces the placeholder before the workflow runs.
const defaultEmailPrompt = `You are helping a patient dispute questionable medical bill charges.
Write a polite, firm reassessment request email to the billing department
based on this analysis:

[JSON_DATA_HERE]

Reference the specific flagged items and amounts.`

var emailCmd = &cobra.Command{
	Use:   "email <report.json>",
	Short: "Draft a dispute email from an analysis report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read report %s", args[0])
		}

		var analysis any
		if err := json.Unmarshal(data, &analysis); err != nil {
			return eris.Wrapf(err, "parse report %s", args[0])
		}

		prompt := defaultEmailPrompt
		if emailPromptFile != "" {
			p, err := os.ReadFile(emailPromptFile)
			if err != nil {
				return eris.Wrapf(err, "read prompt %s", emailPromptFile)
			}
			prompt = string(p)
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		draft, err := env.localService().DraftEmail(cmd.Context(), prompt, analysis)
		if err != nil {
			return err
		}

		cmd.Println(draft)
		return nil
	},
}

func init() {
	emailCmd.Flags().StringVar(&emailPromptFile, "prompt-file", "", "file containing the drafting prompt ([JSON_DATA_HERE] is replaced with the report)")
	rootCmd.AddCommand(emailCmd)
}
