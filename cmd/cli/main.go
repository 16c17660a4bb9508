package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/yourusername/halftunes/api/handlers"
	"github.com/yourusername/halftunes/internal/app"
	"github.com/yourusername/halftunes/internal/domain"
)

var (
	serverURL   string
	configFile  string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:           "halftunes",
		Short:         "halftunes CLI - search tracks and download previews",
		Long:          `A command-line interface for searching the track catalog and managing preview downloads.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8090", "Server URL")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file passed to an auto-started server")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	downloadCmd.Flags().String("name", "", "Track name, when the track is not part of the latest search")
	downloadCmd.Flags().String("artist", "", "Artist, when the track is not part of the latest search")
	historyCmd.Flags().StringP("outcome", "o", "", "Filter by outcome (completed, failed, canceled)")
	historyCmd.Flags().IntP("limit", "n", 20, "Maximum number of entries")
	configInitCmd.Flags().String("path", "", "Destination (default: ~/.halftunes/config.yaml)")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")
}

// ensureServer checks if server is running and starts it if needed (unless --no-auto-start)
func ensureServer(cmd *cobra.Command) {
	if noAutoStart {
		return
	}
	if err := ensureServerRunning(cmd.ErrOrStderr()); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
	}
}

var searchCmd = &cobra.Command{
	Use:   "search [term...]",
	Short: "Search the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer(cmd)

		var result struct {
			Query   string          `json:"query"`
			Count   int             `json:"count"`
			Results []app.TrackView `json:"results"`
		}
		query := url.Values{"q": {strings.Join(args, " ")}}
		if err := newAPIClient(serverURL).get("/api/v1/search", query, &result); err != nil {
			return err
		}

		printTracks(cmd.OutOrStdout(), result.Results)
		return nil
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Start downloading a preview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		artist, _ := cmd.Flags().GetString("artist")
		return sendCommand(cmd, "/api/v1/downloads", handlers.TrackRequest{
			SourceURL: args[0],
			Name:      name,
			Artist:    artist,
		}, "Download started", "Not started: a transfer already exists")
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause [url]",
	Short: "Pause a download, keeping partial data when possible",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, "/api/v1/downloads/pause", handlers.TrackRequest{SourceURL: args[0]},
			"Pause requested", "Not paused: no download in progress")
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [url]",
	Short: "Resume a paused download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, "/api/v1/downloads/resume", handlers.TrackRequest{SourceURL: args[0]},
			"Download resumed", "Not resumed: download is not paused")
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel [url]",
	Short: "Cancel a download and discard partial data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return sendCommand(cmd, "/api/v1/downloads/cancel", handlers.TrackRequest{SourceURL: args[0]},
			"Download cancelled", "Nothing to cancel")
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [url]",
	Short: "Show the download state of a track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer(cmd)

		var resp handlers.CommandResponse
		query := url.Values{"url": {args[0]}}
		if err := newAPIClient(serverURL).get("/api/v1/downloads/lookup", query, &resp); err != nil {
			return err
		}
		printStatus(cmd.OutOrStdout(), resp)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active downloads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer(cmd)

		var resp struct {
			Count     int                     `json:"count"`
			Transfers []handlers.TransferView `json:"transfers"`
		}
		if err := newAPIClient(serverURL).get("/api/v1/downloads", nil, &resp); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STATUS\tPROGRESS\tRECEIVED\tTRACK\tURL")
		for _, t := range resp.Transfers {
			received := t.Received
			if t.Expected != "" {
				received += " / " + t.Expected
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				t.Status,
				t.Percent,
				received,
				truncate(domain.NewTrack(t.TrackName, t.Artist, "").DisplayName(), 40),
				t.SourceURL)
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show how past downloads ended",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer(cmd)
		outcome, _ := cmd.Flags().GetString("outcome")
		limit, _ := cmd.Flags().GetInt("limit")

		query := url.Values{"limit": {strconv.Itoa(limit)}}
		if outcome != "" {
			query.Set("outcome", outcome)
		}

		var resp struct {
			Count   int                    `json:"count"`
			Entries []*domain.HistoryEntry `json:"entries"`
		}
		if err := newAPIClient(serverURL).get("/api/v1/history", query, &resp); err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FINISHED\tOUTCOME\tSIZE\tTRACK\tURL")
		for _, e := range resp.Entries {
			outcome := string(e.Outcome)
			if e.ErrorKind != domain.ErrorKindNone {
				outcome += " (" + string(e.ErrorKind) + ")"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				humanize.Time(e.FinishedAt),
				outcome,
				humanize.Bytes(uint64(e.BytesReceived)),
				truncate(domain.NewTrack(e.TrackName, e.Artist, "").DisplayName(), 40),
				e.SourceURL)
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download history statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer(cmd)

		var stats struct {
			domain.HistoryStats
			TotalBytesHuman string `json:"total_bytes_human"`
		}
		if err := newAPIClient(serverURL).get("/api/v1/history/stats", nil, &stats); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Download History:")
		fmt.Fprintf(out, "  Total:      %d\n", stats.Total)
		fmt.Fprintf(out, "  Completed:  %d\n", stats.Completed)
		fmt.Fprintf(out, "  Failed:     %d\n", stats.Failed)
		fmt.Fprintf(out, "  Canceled:   %d\n", stats.Canceled)
		fmt.Fprintf(out, "  Downloaded: %s\n", stats.TotalBytesHuman)
		return nil
	},
}

var pathCmd = &cobra.Command{
	Use:   "path [url]",
	Short: "Print where a track's preview is stored",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ensureServer(cmd)

		var resp struct {
			Path   string `json:"path"`
			Exists bool   `json:"exists"`
		}
		query := url.Values{"url": {args[0]}}
		if err := newAPIClient(serverURL).get("/api/v1/library/path", query, &resp); err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), resp.Path)
		if !resp.Exists {
			fmt.Fprintln(cmd.ErrOrStderr(), "(not downloaded)")
		}
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		force, _ := cmd.Flags().GetBool("force")
		if path == "" {
			path = app.DefaultConfigPath()
		}

		if _, err := os.Stat(path); err == nil && !force {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := app.SaveConfig(domain.DefaultConfig(), path); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

// sendCommand posts a track command; a 409 answer means the command had no effect
func sendCommand(cmd *cobra.Command, path string, req handlers.TrackRequest, done, noop string) error {
	ensureServer(cmd)

	var resp handlers.CommandResponse
	status, err := newAPIClient(serverURL).post(path, req, &resp, http.StatusOK, http.StatusConflict)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if status == http.StatusConflict {
		fmt.Fprintln(out, noop)
	} else {
		fmt.Fprintln(out, done)
	}
	printStatus(out, resp)
	return nil
}

func printTracks(out io.Writer, tracks []app.TrackView) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tNAME\tARTIST\tSTATE\tURL")
	for i, t := range tracks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			i+1,
			truncate(orDash(t.Name), 32),
			truncate(orDash(t.Artist), 24),
			trackState(t),
			t.SourceURL)
	}
	w.Flush()
}

func trackState(t app.TrackView) string {
	switch {
	case t.Transfer != nil:
		return handlers.NewTransferView(*t.Transfer).Percent + " " + string(t.Transfer.Status)
	case t.Downloaded:
		return "downloaded"
	default:
		return "-"
	}
}

func printStatus(out io.Writer, resp handlers.CommandResponse) {
	fmt.Fprintf(out, "  URL:        %s\n", resp.SourceURL)
	fmt.Fprintf(out, "  Downloaded: %t\n", resp.Downloaded)
	if t := resp.Transfer; t != nil {
		fmt.Fprintf(out, "  Status:     %s\n", t.Status)
		fmt.Fprintf(out, "  Progress:   %s\n", t.Percent)
		if t.Expected != "" {
			fmt.Fprintf(out, "  Received:   %s / %s\n", t.Received, t.Expected)
		} else {
			fmt.Fprintf(out, "  Received:   %s\n", t.Received)
		}
		if t.ErrorMessage != "" {
			fmt.Fprintf(out, "  Error:      %s\n", t.ErrorMessage)
		}
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
