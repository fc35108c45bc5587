package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"evcore/internal/selftest"
)

func newSelftestCmd(a *app) *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the built-in dispatcher scenarios and exit non-zero on failure",
		Example: "  evcore selftest\n" +
			"  evcore selftest --only high_before_normal,normal_overflow",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := pickScenarios(selftest.Scenarios(), only)
			if err != nil {
				return err
			}
			rep := selftest.Run(cmd.Context(), a.log, scenarios)
			out := cmd.OutOrStdout()
			for _, r := range rep.Results {
				status := "PASS"
				if r.Err != nil {
					status = "FAIL"
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", status, r.Name, r.Duration)
				if r.Err != nil {
					fmt.Fprintf(out, "\t%v\n", r.Err)
				}
			}
			fmt.Fprintf(out, "%d/%d passed\n", len(rep.Results)-rep.Failed(), len(rep.Results))
			return rep.Err()
		},
	}
	cmd.Flags().StringSliceVar(&only, "only", nil, "Run only these scenarios (comma-separated names)")
	return cmd
}

func pickScenarios(all []selftest.Scenario, names []string) ([]selftest.Scenario, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]selftest.Scenario, len(all))
	for _, sc := range all {
		byName[sc.Name] = sc
	}
	picked := make([]selftest.Scenario, 0, len(names))
	for _, n := range names {
		sc, ok := byName[strings.TrimSpace(n)]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", n)
		}
		picked = append(picked, sc)
	}
	return picked, nil
}
