package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/tabwarden/internal/bridge"
	"github.com/tonimelisma/tabwarden/internal/store"
)

const defaultSessionListLimit = 10

var flagSessionLimit int

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Save or restore the set of open tabs",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Save every open tab as the latest session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendAction(cmd, bridge.Request{Action: bridge.ActionSaveSession})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore",
		Short: "Reopen the tabs of the latest saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendAction(cmd, bridge.Request{Action: bridge.ActionRestoreSession})
		},
	})

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved sessions, newest first",
		Args:  cobra.NoArgs,
		RunE:  runSessionList,
	}
	list.Flags().IntVarP(&flagSessionLimit, "limit", "n", defaultSessionListLimit, "maximum sessions to show")
	cmd.AddCommand(list)

	return cmd
}

func newGroupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage bookmarked tab groups",
		Long: `Bookmark the tabs of a browser group by name, reopen them later, or forget
them. Groups are derived from the browser's open tabs using grouping_mode.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List bookmarked groups",
		Args:  cobra.NoArgs,
		RunE:  runGroupList,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "current",
		Short: "Show how the open tabs group right now",
		Args:  cobra.NoArgs,
		RunE:  runGroupCurrent,
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "save NAME",
		Short: "Bookmark the tabs currently in group NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendAction(cmd, bridge.Request{Action: bridge.ActionBookmarkGroup, GroupName: args[0]})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restore NAME",
		Short: "Reopen the tabs of bookmarked group NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendAction(cmd, bridge.Request{Action: bridge.ActionRestoreGroup, GroupName: args[0]})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove NAME",
		Short: "Delete the bookmark for group NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sendAction(cmd, bridge.Request{Action: bridge.ActionRemoveGroupBookmark, GroupName: args[0]})
		},
	})

	return cmd
}

// sendAction forwards req to the daemon and reports the outcome.
func sendAction(cmd *cobra.Command, req bridge.Request) error {
	cc := mustCLIContext(cmd.Context())

	resp, err := cc.Bridge().Send(cmd.Context(), req)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(os.Stdout, resp)
	}

	if resp.Status != "" {
		fmt.Fprintln(os.Stdout, resp.Status)
	}

	return nil
}

func runGroupList(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	groups, err := fetchGroups(cmd.Context(), cc.Bridge())
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(os.Stdout, groups)
	}

	if len(groups) == 0 {
		cc.Statusf("No bookmarked groups.\n")
		return nil
	}

	printGroups(os.Stdout, groups)

	return nil
}

func fetchGroups(ctx context.Context, c *bridge.Client) ([]store.GroupBookmark, error) {
	resp, err := c.Send(ctx, bridge.Request{Action: bridge.ActionGetGroupBookmarks})
	if err != nil {
		return nil, err
	}

	if resp.Groups == nil {
		return []store.GroupBookmark{}, nil
	}

	return resp.Groups, nil
}

func printGroups(w io.Writer, groups []store.GroupBookmark) {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Name,
			strconv.Itoa(len(g.Tabs)),
			formatTime(g.UpdatedAt),
		})
	}

	printTable(w, []string{"GROUP", "TABS", "UPDATED"}, rows)
}

func runSessionList(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	sessions, err := cc.Bridge().Sessions(cmd.Context(), flagSessionLimit)
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(os.Stdout, sessions)
	}

	if len(sessions) == 0 {
		cc.Statusf("No saved sessions.\n")
		return nil
	}

	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{s.ID, formatTime(s.CreatedAt)})
	}

	printTable(os.Stdout, []string{"SESSION", "SAVED"}, rows)

	return nil
}

func runGroupCurrent(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	groups, err := cc.Bridge().OpenGroups(cmd.Context())
	if err != nil {
		return err
	}

	if cc.Flags.JSON {
		return printJSON(os.Stdout, groups)
	}

	if len(groups) == 0 {
		cc.Statusf("No open tabs to group.\n")
		return nil
	}

	printOpenGroups(os.Stdout, groups)

	return nil
}

func printOpenGroups(w io.Writer, groups []bridge.OpenGroup) {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}

		fmt.Fprintf(w, "%s (%d)\n", g.Name, len(g.Tabs))

		for _, t := range g.Tabs {
			title := t.Title
			if title == "" {
				title = t.URL
			}

			fmt.Fprintf(w, "  %s\n", truncate(title, 72))
		}
	}
}
