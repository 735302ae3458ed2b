package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hangil-labs/geoconv/internal/addr"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <address>",
	Short: "Classify one address without touching the network",
	Long:  "Runs the road/parcel heuristics (and the judge, if configured) on a single address and prints the decision. No geocoding request is made unless the judge is enabled.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		classifier := addr.NewClassifier(buildJudge(cfg.Judge))
		cls := classifier.Classify(cmd.Context(), args[0])

		fmt.Printf("address:    %s\n", addr.Normalize(args[0]))
		fmt.Printf("type:       %s\n", cls.Type)
		fmt.Printf("confidence: %.2f\n", cls.Confidence)
		fmt.Printf("reason:     %s\n", cls.Reason)
		return nil
	},
}

func init() { rootCmd.AddCommand(classifyCmd) }
