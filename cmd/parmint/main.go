package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	parmintcmd "parmint/internal/cli/cmd"
)

func main() {
	// A .env in the working directory may carry PARMINT_* settings.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := parmintcmd.Execute(ctx); err != nil {
		var ee *parmintcmd.ExitError
		if errors.As(err, &ee) {
			if ee.Err != nil {
				fmt.Fprintln(os.Stderr, ee.Err)
			}
			os.Exit(ee.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(parmintcmd.ExitCLIError)
	}
	os.Exit(parmintcmd.ExitOK)
}
