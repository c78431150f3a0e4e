// File: cmd/courses.go
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bmstoss13/HoleNOne/internal/courses"
	"github.com/bmstoss13/HoleNOne/internal/observability"
)

func newCoursesCmd(state *cliState) *cobra.Command {
	var q courses.NearbyQuery

	coursesCmd := &cobra.Command{
		Use:   "courses",
		Short: "List golf courses near a location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
				return fmt.Errorf("--lat and --lng are required")
			}
			if q.Offset < 0 {
				return fmt.Errorf("--offset must not be negative")
			}

			ctx := cmd.Context()
			components, err := state.factory.CreateCourses(ctx, state.cfg, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown(context.WithoutCancel(ctx))

			page, err := components.Courses.Nearby(ctx, q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}

	flags := coursesCmd.Flags()
	flags.Float64Var(&q.Center.Lat, "lat", 0, "latitude")
	flags.Float64Var(&q.Center.Lng, "lng", 0, "longitude")
	flags.Float64Var(&q.RadiusMiles, "radius", 0, "search radius in miles (default from config)")
	flags.IntVar(&q.Offset, "offset", 0, "number of results to skip")
	return coursesCmd
}
