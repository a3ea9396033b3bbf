// Command boardctl выгружает, загружает и проверяет документ доски проектов.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "boardctl",
		Short:         "Manage the Vibes Studios project board document",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	dsn := os.Getenv("DATABASE_URI")
	if dsn == "" {
		dsn = "file:vibestudio.db"
	}
	rootCmd.PersistentFlags().StringP("db", "d", dsn, "database URI: postgres://... or SQLite file")

	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(validateCmd())

	return rootCmd
}
