package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the patchbrowser version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "patchbrowser %s (%s, %s/%s)\n",
				buildVersion, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
