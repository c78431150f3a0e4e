// File: cmd/agent.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/bmstoss13/HoleNOne/api/schemas"
	"github.com/bmstoss13/HoleNOne/internal/observability"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newDiscoverCmd(state *cliState) *cobra.Command {
	var req schemas.DiscoveryRequest

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Find available tee times on a course booking site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.TargetURL == "" && req.CourseID == "" {
				return errors.New("either --url or --course is required")
			}
			if req.Date == "" {
				req.Date = time.Now().Format("2006-01-02")
			}

			return runAgentCommand(cmd, state, func(ctx context.Context, agent agentRunner) (any, error) {
				return agent.Discover(ctx, req)
			})
		},
	}

	flags := discoverCmd.Flags()
	flags.StringVar(&req.TargetURL, "url", "", "booking site URL to start from")
	flags.StringVar(&req.CourseID, "course", "", "course identifier, resolved to its booking site")
	flags.StringVar(&req.Date, "date", "", "date to search (YYYY-MM-DD, default today)")
	flags.IntVar(&req.NumPlayers, "players", 1, "number of players")
	flags.StringVar(&req.SessionID, "session", "", "session id (a new one is generated when empty)")
	flags.StringVar(&req.UserMessage, "message", "", "free-form instruction passed to the agent")
	return discoverCmd
}

func newBookCmd(state *cliState) *cobra.Command {
	var req schemas.BookingRequest

	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Book a tee time on a course booking site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.TeeTime.BookingURL == "" {
				return errors.New("--url is required")
			}
			if req.TeeTime.Time == "" {
				return errors.New("--time is required")
			}

			return runAgentCommand(cmd, state, func(ctx context.Context, agent agentRunner) (any, error) {
				return agent.Book(ctx, req)
			})
		},
	}

	flags := bookCmd.Flags()
	flags.StringVar(&req.TeeTime.BookingURL, "url", "", "booking page URL for the tee time")
	flags.StringVar(&req.TeeTime.Time, "time", "", "tee time to book, as shown on the site (e.g. 7:30 AM)")
	flags.StringVar(&req.User.Name, "name", "", "golfer name")
	flags.StringVar(&req.User.Email, "email", "", "golfer email")
	flags.StringVar(&req.User.Phone, "phone", "", "golfer phone")
	flags.StringVar(&req.Date, "date", "", "date of the tee time (YYYY-MM-DD)")
	flags.IntVar(&req.NumPlayers, "players", 0, "number of players")
	flags.StringVar(&req.SessionID, "session", "", "session id (a new one is generated when empty)")
	return bookCmd
}

// agentRunner is the slice of the agent the CLI drives.
type agentRunner interface {
	Discover(ctx context.Context, req schemas.DiscoveryRequest) (*schemas.DiscoveryResponse, error)
	Book(ctx context.Context, req schemas.BookingRequest) (*schemas.BookingResponse, error)
}

// runAgentCommand builds the full component graph, runs fn and prints its result.
func runAgentCommand(cmd *cobra.Command, state *cliState, fn func(context.Context, agentRunner) (any, error)) error {
	ctx := cmd.Context()
	logger := observability.GetLogger()

	components, err := state.factory.Create(ctx, state.cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize components: %w", err)
	}
	// Release the browser even when ctx was cancelled by a signal.
	defer components.Shutdown(context.WithoutCancel(ctx))

	if components.Agent == nil {
		return errors.New("agent is not available")
	}

	result, err := fn(ctx, components.Agent)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
