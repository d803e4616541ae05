package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Manage the list of recently loaded sources",
}

var recentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently loaded sources, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRecentList,
}

var recentRemoveCmd = &cobra.Command{
	Use:   "remove KEY",
	Short: "Forget one recent source",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecentRemove,
}

var recentClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every recent source",
	Args:  cobra.NoArgs,
	RunE:  runRecentClear,
}

func init() {
	recentCmd.AddCommand(recentListCmd)
	recentCmd.AddCommand(recentRemoveCmd)
	recentCmd.AddCommand(recentClearCmd)
}

func runRecentList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.store.List(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("list recent sources: %w", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No recent sources.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tKIND\tNAME\tLOADED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Key, e.Kind, e.Name, e.Timestamp.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func runRecentRemove(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Remove(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("remove %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}

func runRecentClear(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.store.Clear(commandContext(cmd)); err != nil {
		return fmt.Errorf("clear recent sources: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Cleared recent sources.")
	return nil
}
