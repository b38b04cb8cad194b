package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "designengine",
	Short: "Phased system design document generator",
	Long:  "designengine turns project requirements into a reviewed system design document through clarification questions and LLM generation.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
