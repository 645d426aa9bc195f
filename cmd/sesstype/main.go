// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command sesstype runs the example services over session-typed channels.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"code.hybscloud.com/sesstype/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "sesstype:", err)
		stop()
		os.Exit(1)
	}
}
