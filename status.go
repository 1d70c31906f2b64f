package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/tabwarden/internal/bridge"
	"github.com/tonimelisma/tabwarden/internal/lifecycle"
)

// recentOverlayLimit caps the overlays shown in text output.
const recentOverlayLimit = 5

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show tracked tabs and their lifecycle state",
		Long: `Ask the running daemon for every tab it tracks.

Each tab is shown with its state (active, frozen, warned, grace), how long
it has been idle, how long it has been frozen, and when its dismissal grace
window ends. Recent close warnings are listed below the table.`,
		RunE: runStatus,
	}
}

// statusOutput is the JSON shape of "tabwarden status --json".
type statusOutput struct {
	PID int `json:"pid,omitempty"`
	*bridge.Status
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	st, err := cc.Bridge().Status(cmd.Context())
	if err != nil {
		return err
	}

	// The PID file is advisory; a daemon started elsewhere still answers.
	_, daemon, _ := runningDaemon(cc.pidPath)
	pid := daemon.PID

	if cc.Flags.JSON {
		return printJSON(os.Stdout, statusOutput{PID: pid, Status: st})
	}

	printStatusText(os.Stdout, st, pid)

	return nil
}

func printStatusText(w io.Writer, st *bridge.Status, pid int) {
	if pid > 0 {
		fmt.Fprintf(w, "Daemon: running (pid %d)\n", pid)
	} else {
		fmt.Fprintln(w, "Daemon: running")
	}

	fmt.Fprintf(w, "Tabs:   %d tracked (%d active, %d frozen, %d warned, %d grace)\n",
		len(st.Tabs),
		st.Count(lifecycle.StateActive),
		st.Count(lifecycle.StateFrozen),
		st.Count(lifecycle.StateWarned),
		st.Count(lifecycle.StateGrace),
	)

	if len(st.Tabs) > 0 {
		fmt.Fprintln(w)

		rows := make([][]string, 0, len(st.Tabs))
		for i := range st.Tabs {
			rows = append(rows, tabRow(st.Now, &st.Tabs[i]))
		}

		printTable(w, []string{"TAB", "STATE", "IDLE", "FROZEN", "GRACE"}, rows)
	}

	if len(st.Overlays) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recent warnings:")

	overlays := st.Overlays
	if len(overlays) > recentOverlayLimit {
		overlays = overlays[len(overlays)-recentOverlayLimit:]
	}

	for _, o := range overlays {
		fmt.Fprintf(w, "  %s ago  %q (tab %s, shown in %s)\n",
			formatSince(st.Now, o.RequestedAt), truncate(o.Title, 60), o.FrozenTab, o.Target)
	}
}

func tabRow(now time.Time, t *bridge.TabStatus) []string {
	grace := "-"
	if t.IgnoreUntil.After(now) {
		grace = formatAge(t.IgnoreUntil.Sub(now)) + " left"
	}

	return []string{
		t.ID.String(),
		t.State,
		formatSince(now, t.LastActiveAt),
		formatSince(now, t.FrozenAt),
		grace,
	}
}
