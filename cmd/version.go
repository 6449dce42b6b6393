package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wearcast version",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("wearcast version %s\n", version)
		},
	}
}
