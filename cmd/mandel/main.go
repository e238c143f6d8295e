// Command mandel renders a Mandelbrot image with one GPU compute dispatch
// and writes it to an image file.
//
// Usage:
//
//	mandel [--width 3200] [--height 2400] [--group-size 32] [--output mandelbrot.png]
//	mandel devices
//	mandel config
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mandel: %v\n", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}
