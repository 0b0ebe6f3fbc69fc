package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/smart-finance-import/internal/domain/categorization"
)

func newClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <description>...",
		Short: "Classify descriptions with the keyword rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := categorization.NewRuleClassifier(nil)
			out := cmd.OutOrStdout()
			for _, desc := range args {
				r := rules.Classify(desc)
				keyword := r.Keyword
				if keyword == "" {
					keyword = "-"
				}
				fmt.Fprintf(out, "%s\t%d\t%s\t%s\n", r.Category, r.Confidence, keyword, strings.TrimSpace(desc))
			}
			return nil
		},
	}
}
