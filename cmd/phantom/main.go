package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/ClickHouse/clickhouse-go"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "phantom",
		Short:         "Export dashboards as Power BI projects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("env-file", ".env", "optional env file")

	root.AddCommand(
		newExportCommand(),
		newMeasuresCommand(),
		newRecipeCommand(),
		newServeCommand(),
	)

	return root
}
