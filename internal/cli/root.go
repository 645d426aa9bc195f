// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cli implements the sesstype command.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// RootOptions holds the global flags and the configuration they resolve to.
type RootOptions struct {
	ConfigPath string
	Config     Config

	// handler is built from Config.LogLevel before any subcommand runs.
	handler slog.Handler
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "sesstype",
		Short: "Run session-typed example services",
		Long: `Run the example services over session-typed channels.

Sessions run in process by default. With --carrier tcp both sides talk over
a loopback TCP connection, or one side only when --listen or --dial is set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	f.StringVar(&opts.Config.Carrier, "carrier", opts.Config.Carrier, "carrier kind (queue|tcp)")
	f.IntVar(&opts.Config.Capacity, "capacity", opts.Config.Capacity, "in-process queue capacity")
	f.StringVar(&opts.Config.Listen, "listen", "", "tcp: serve one session on this address")
	f.StringVar(&opts.Config.Dial, "dial", "", "tcp: connect to this address as the client")
	f.StringVar(&opts.Config.LogLevel, "log-level", opts.Config.LogLevel, "log level (debug|info|warn|error)")

	cmd.AddCommand(NewArithCommand(opts))
	cmd.AddCommand(NewATMCommand(opts))
	cmd.AddCommand(NewEchoCommand(opts))
	cmd.AddCommand(NewClipCommand(opts))
	cmd.AddCommand(NewDualCommand(opts))

	return cmd
}

// resolve loads the config file, lets explicitly set flags override it and
// builds the log handler.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if o.ConfigPath != "" {
		file, err := LoadConfig(o.ConfigPath)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if !f.Changed("carrier") {
			o.Config.Carrier = file.Carrier
		}
		if !f.Changed("capacity") {
			o.Config.Capacity = file.Capacity
		}
		if !f.Changed("listen") {
			o.Config.Listen = file.Listen
		}
		if !f.Changed("dial") {
			o.Config.Dial = file.Dial
		}
		if !f.Changed("log-level") {
			o.Config.LogLevel = file.LogLevel
		}
	}
	if err := o.Config.Validate(); err != nil {
		return err
	}
	level, _ := o.Config.Level()
	o.handler = slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	return nil
}
