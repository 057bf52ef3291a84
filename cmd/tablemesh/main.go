package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	// Format packages register their source/target adapter factories on
	// import; the CLI never imports delta/hudi directly.
	_ "github.com/tablemesh/tablemesh/internal/source/delta"
	_ "github.com/tablemesh/tablemesh/internal/source/hudi"
	_ "github.com/tablemesh/tablemesh/internal/target/delta"
	_ "github.com/tablemesh/tablemesh/internal/target/hudi"

	"github.com/tablemesh/tablemesh/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(cli.ExitCode(err))
}
