package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/relief/core/routing"
)

var routeOpts struct {
	scenario     string
	metric       string
	alternatives int
	asJSON       bool
}

var routeCmd = &cobra.Command{
	Use:   "route <origin> <destination>",
	Short: "Compute the optimal route between two zones of a scenario",
	Args:  cobra.ExactArgs(2),
	RunE:  runRoute,
}

func init() {
	f := routeCmd.Flags()
	f.StringVar(&routeOpts.scenario, "scenario", "builtin", "scenario file, or builtin")
	f.StringVar(&routeOpts.metric, "metric", "", "distance or time (default from routing config)")
	f.IntVar(&routeOpts.alternatives, "alternatives", 0, "number of alternative routes to list")
	f.BoolVar(&routeOpts.asJSON, "json", false, "print JSON")
	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, args []string) error {
	o, err := loadOffline(cmd.Context(), routeOpts.scenario)
	if err != nil {
		return err
	}
	defer o.Close()

	origin, dest := o.zoneID(args[0]), o.zoneID(args[1])
	var paths []routing.Path
	if routeOpts.alternatives > 0 {
		paths, err = o.Alternatives(origin, dest, routeOpts.metric, routeOpts.alternatives+1)
	} else {
		var p routing.Path
		p, err = o.ShortestPath(origin, dest, routeOpts.metric)
		paths = []routing.Path{p}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if routeOpts.asJSON {
		return printJSON(out, paths)
	}
	for i, p := range paths {
		label := "optimal"
		if i > 0 {
			label = fmt.Sprintf("alternative %d", i)
		}
		if err := writePath(out, o, label, p); err != nil {
			return err
		}
	}
	return nil
}

func writePath(w io.Writer, o *offline, label string, p routing.Path) error {
	hops := []string{o.zoneName(p.Origin)}
	for _, s := range p.Segments {
		hops = append(hops, o.zoneName(s.To))
	}
	_, err := fmt.Fprintf(w, "%s: %s (%.1f km, %.1f h, capacity %.0f)\n",
		label, strings.Join(hops, " -> "), p.TotalDistanceKM, p.TotalTimeHours, p.Capacity)
	return err
}
