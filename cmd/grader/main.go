package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/quipper/poc/grader/pkg/common/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	cli := commandLine{out: os.Stdout, httpClient: http.DefaultClient}
	err := cli.run(ctx, os.Args)
	stop()
	if err != nil {
		if err != errHelp {
			logger.Error("%v", err)
		}
		os.Exit(1)
	}
}
