package cli

import (
	"fmt"
	"strings"

	"github.com/ashureev/learnerbot/internal/completion"
	"github.com/spf13/cobra"
)

func init() {
	var filter string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models offered by the completion service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			models, err := completion.New(cfg.Completion).ListModels(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range models {
				if filter != "" && !strings.Contains(m, filter) {
					continue
				}
				marker := "  "
				if m == cfg.Completion.Model {
					marker = "* "
				}
				fmt.Fprintln(cmd.OutOrStdout(), marker+m)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "only show models whose id contains this text")
	RootCmd.AddCommand(cmd)
}
