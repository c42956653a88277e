package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/relief/core/simulation"
)

var simOpts struct {
	scenario  string
	intensity int
	persons   int
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run what-if simulations over a scenario",
}

var simDisasterCmd = &cobra.Command{
	Use:   "disaster <type> <zone>...",
	Short: "Estimate the impact of a disaster on zones",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runSimDisaster,
}

var simEvacuationCmd = &cobra.Command{
	Use:   "evacuation <origin> <destination>",
	Short: "Plan an evacuation between two zones",
	Args:  cobra.ExactArgs(2),
	RunE:  runSimEvacuation,
}

func init() {
	simulateCmd.PersistentFlags().StringVar(&simOpts.scenario, "scenario", "builtin", "scenario file, or builtin")
	simDisasterCmd.Flags().IntVar(&simOpts.intensity, "intensity", 5, "disaster intensity, 1 to 10")
	simEvacuationCmd.Flags().IntVar(&simOpts.persons, "persons", 100, "persons to evacuate")
	simulateCmd.AddCommand(simDisasterCmd, simEvacuationCmd)
	rootCmd.AddCommand(simulateCmd)
}

func runSimDisaster(cmd *cobra.Command, args []string) error {
	o, err := loadOffline(cmd.Context(), simOpts.scenario)
	if err != nil {
		return err
	}
	defer o.Close()

	zones := make([]string, 0, len(args)-1)
	for _, ref := range args[1:] {
		zones = append(zones, o.zoneID(ref))
	}
	res, err := o.SimulateDisaster(cmd.Context(), simulation.DisasterInput{
		Type:      args[0],
		Intensity: simOpts.intensity,
		Zones:     zones,
	})
	if err != nil {
		return fmt.Errorf("simulate disaster: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), res)
}

func runSimEvacuation(cmd *cobra.Command, args []string) error {
	o, err := loadOffline(cmd.Context(), simOpts.scenario)
	if err != nil {
		return err
	}
	defer o.Close()

	plan, err := o.PlanEvacuation(cmd.Context(), simulation.PlanInput{
		Origin:      o.zoneID(args[0]),
		Destination: o.zoneID(args[1]),
		Persons:     simOpts.persons,
	})
	if err != nil {
		return fmt.Errorf("plan evacuation: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), plan)
}
