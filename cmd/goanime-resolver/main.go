package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alvarorichard/goanime-resolver/internal/util"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			_, _ = fmt.Fprintln(os.Stderr, util.ErrorHandler(err))
		}
		os.Exit(1)
	}
}
