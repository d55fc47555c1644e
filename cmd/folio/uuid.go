package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uuidCmd = &cobra.Command{
	Use:   "uuid",
	Short: "Resolve and cache uuids",
}

var uuidResolveCmd = &cobra.Command{
	Use:   "resolve UUID",
	Short: "Print the model a uuid points to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "ResolveUUID")
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.Find(args[0])
		if err != nil {
			return err
		}
		id := m.ID()
		if id == "" {
			id = "/"
		}
		fmt.Printf("%s %s\n", m.Kind(), id)
		return nil
	},
}

var uuidIndexCmd = &cobra.Command{
	Use:   "index",
	Short: "Cache the uuid of every page and file",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd, "IndexUUIDs")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.IndexUUIDs()
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %d model(s)\n", n)
		return nil
	},
}

var uuidClearCmd = &cobra.Command{
	Use:   "clear [UUID]",
	Short: "Remove cache entries; without a uuid the whole cache",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		ref := ""
		if len(args) > 0 {
			ref = args[0]
		}

		a, err := newApp(cmd, "ClearUUIDs")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ClearUUIDs(ref, recursive); err != nil {
			return err
		}
		if ref == "" {
			fmt.Println("Flushed uuid cache")
		} else {
			fmt.Printf("Cleared %s\n", ref)
		}
		return nil
	},
}

func init() {
	uuidCmd.AddCommand(uuidResolveCmd)
	uuidCmd.AddCommand(uuidIndexCmd)
	uuidCmd.AddCommand(uuidClearCmd)
	uuidClearCmd.Flags().BoolP("recursive", "r", false, "Also clear descendant pages and their files")
}
