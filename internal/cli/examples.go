// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cli

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"code.hybscloud.com/kont"
	"github.com/spf13/cobra"

	"code.hybscloud.com/sesstype"
	"code.hybscloud.com/sesstype/examples/arith"
	"code.hybscloud.com/sesstype/examples/atm"
	"code.hybscloud.com/sesstype/examples/echo"
	"code.hybscloud.com/sesstype/examples/planeclip"
	"code.hybscloud.com/sesstype/proto"
)

// NewArithCommand creates the arith command.
func NewArithCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "arith <request>...",
		Short: "Evaluate requests on the calculator service",
		Long: `Evaluate requests on the calculator service, all in one session.

A request is "add x y", "neg x" or "sqrt x".

Example:
  sesstype arith "add 42 1" "sqrt 16"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs := make([]arith.Request, len(args))
			for i, a := range args {
				r, err := arith.ParseRequest(a)
				if err != nil {
					return err
				}
				reqs[i] = r
			}
			var got []float64
			err := opts.connect(cmd.Context(), arith.Proto, arith.Serve, func(c *sesstype.Chan) error {
				var err error
				got, err = sesstype.Exec(c, arith.Eval(reqs))
				return err
			})
			if err != nil {
				return err
			}
			for i, v := range got {
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %g\n", args[i], v)
			}
			return nil
		},
	}
}

// ATMOptions holds flags for the atm command.
type ATMOptions struct {
	*RootOptions
	ID       string
	Deposit  uint64
	Withdraw uint64
}

// NewATMCommand creates the atm command.
func NewATMCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ATMOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "atm",
		Short: "Run one cash machine session",
		Long: `Run one cash machine session against a fresh bank.

Without --withdraw the client deposits. With --withdraw it withdraws, and
deposits the --deposit amount instead when the funds do not suffice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prog := atm.DepositClient(opts.ID, opts.Deposit)
			if opts.Withdraw > 0 {
				prog = atm.WithdrawClient(opts.ID, opts.Withdraw, opts.Deposit)
			}
			var got kont.Either[error, uint64]
			err := opts.connect(cmd.Context(), atm.Proto, atm.NewBank().Serve, func(c *sesstype.Chan) error {
				var err error
				got, err = sesstype.ExecError[error](c, prog)
				return err
			})
			if err != nil {
				return err
			}
			if err, ok := got.GetLeft(); ok {
				return err
			}
			balance, _ := got.GetRight()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: balance %d\n", opts.ID, balance)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "account id; empty ids are refused")
	cmd.Flags().Uint64Var(&opts.Deposit, "deposit", 200, "amount to deposit")
	cmd.Flags().Uint64Var(&opts.Withdraw, "withdraw", 0, "amount to withdraw")
	return cmd
}

// NewEchoCommand creates the echo command.
func NewEchoCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "echo",
		Short: "Send standard input lines to the echo server",
		Long:  `Send standard input lines to the echo server until a line "q" or end of input.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.connect(cmd.Context(), echo.Proto,
				echo.Server(cmd.OutOrStdout()), echo.Client(cmd.InOrStdin()))
		},
	}
}

// ClipOptions holds flags for the clip command.
type ClipOptions struct {
	*RootOptions
	Points int
	Planes int
	Seed   uint64
}

// NewClipCommand creates the clip command.
func NewClipCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClipOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "clip",
		Short: "Clip a random polygon against random planes",
		Long: `Clip a random polygon against random planes.

The client sends the polygon as a list session; the server clips it through
a pipeline with one stage per plane.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
			norm := func() float64 { return 10 * (r.Float64() - 0.5) }
			points := make([]planeclip.Point, opts.Points)
			for i := range points {
				points[i] = planeclip.Point{X: norm(), Y: norm(), Z: norm()}
			}
			planes := make([]planeclip.Plane, opts.Planes)
			for i := range planes {
				planes[i] = planeclip.Plane{A: norm(), B: norm(), C: norm(), D: norm()}
			}

			var clipped []planeclip.Point
			server := func(c *sesstype.Chan) error {
				in, err := planeclip.RecvList[planeclip.Point](c)
				if err != nil {
					return err
				}
				clipped, err = planeclip.Clip(planes, in, opts.sessionOptions()...)
				return err
			}
			client := func(c *sesstype.Chan) error {
				return planeclip.SendList(c, points)
			}
			p := proto.Dual(planeclip.ListProto[planeclip.Point]())
			if err := opts.connect(cmd.Context(), p, server, client); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "clip: %d of %d points and %d planes\n", len(clipped), opts.Points, opts.Planes)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.Points, "points", 100, "polygon vertices")
	cmd.Flags().IntVar(&opts.Planes, "planes", 5, "clipping planes")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 1, "random seed")
	return cmd
}

// builtins are the protocols the dual command knows, by name.
var builtins = map[string]*proto.Proto{
	"arith": arith.Proto,
	"atm":   atm.Proto,
	"echo":  echo.Proto,
	"list":  planeclip.ListProto[string](),
}

// NewDualCommand creates the dual command.
func NewDualCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dual <protocol>",
		Short: "Print a built-in protocol and its dual",
		Long:  "Print a built-in protocol and its dual. Known protocols: " + strings.Join(builtinNames(), ", ") + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := builtins[args[0]]
			if !ok {
				return fmt.Errorf("unknown protocol %q", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", p, proto.Dual(p))
			return nil
		},
	}
}

func builtinNames() []string {
	return []string{"arith", "atm", "echo", "list"}
}
