package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m3rciful/trainingbot/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect program catalogs",
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a catalog file and print its programs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalog.Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		programs, workouts, exercises := c.Summary()
		fmt.Fprintf(out, "catalog ok: %d programs, %d workouts, %d exercises\n", programs, workouts, exercises)
		for _, name := range c.ProgramNames() {
			p, _ := c.Program(name)
			fmt.Fprintf(out, "%s: %v\n", name, p.ListWorkoutKinds())
		}
		return nil
	},
}

func init() {
	catalogCmd.AddCommand(catalogCheckCmd)
	rootCmd.AddCommand(catalogCmd)
}
