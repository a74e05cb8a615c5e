// Command weave is the host driver around the execution core: it
// assembles or loads a compiled Unit, wires the standard library into
// a Context, and runs it to completion, printing results and driving
// Await/Select/Yield halts the way an embedding program's scheduler
// would. It plays the role the teacher's cmd/smog entry point played,
// generalized from "run one .sg file" to the run/asm/disasm subcommand
// surface a bytecode-level runtime needs.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/kristofer/weave/pkg/asm"
	"github.com/kristofer/weave/pkg/bytecode"
	"github.com/kristofer/weave/pkg/context"
	"github.com/kristofer/weave/pkg/context/stdlib"
	"github.com/kristofer/weave/pkg/value"
	"github.com/kristofer/weave/pkg/vm"
)

const entryPointPath = "main"

func main() {
	app := &cli.App{
		Name:  "weave",
		Usage: "assemble, disassemble, and run weave bytecode units",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "enable step-level debug logging"},
		},
		Before: func(c *cli.Context) error {
			level := zerolog.InfoLevel
			if c.Bool("verbose") {
				level = zerolog.DebugLevel
			}
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)
			return nil
		},
		Commands: []*cli.Command{
			runCmd,
			asmCmd,
			disasmCmd,
			replCmd,
			versionCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "weave:", err)
		os.Exit(1)
	}
}

var asmCmd = &cli.Command{
	Name:      "asm",
	Usage:     "assemble a .wa text file into a .wu bytecode unit",
	ArgsUsage: "<input.wa> <output.wu>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 2 {
			return cli.Exit("asm requires exactly 2 arguments: <input.wa> <output.wu>", 1)
		}
		src, err := os.ReadFile(c.Args().Get(0))
		if err != nil {
			return err
		}
		unit, err := asm.Assemble(string(src))
		if err != nil {
			return err
		}
		out, err := os.Create(c.Args().Get(1))
		if err != nil {
			return err
		}
		defer out.Close()
		return unit.Write(out)
	},
}

var disasmCmd = &cli.Command{
	Name:      "disasm",
	Usage:     "disassemble a .wu bytecode unit to text",
	ArgsUsage: "<input.wu>",
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return cli.Exit("disasm requires exactly 1 argument: <input.wu>", 1)
		}
		unit, err := loadUnit(c.Args().Get(0))
		if err != nil {
			return err
		}
		fmt.Println(unit.Disassemble())
		return nil
	},
}

var versionCmd = &cli.Command{
	Name:  "version",
	Usage: "print the weave runtime version",
	Action: func(c *cli.Context) error {
		fmt.Println("weave 0.1.0")
		return nil
	},
}

// replCmd offers the one useful REPL shape for a bytecode-level
// runtime with no source language attached: each line is one assembly
// instruction (or label/directive), followed by an implicit RETURN
// unless the line already contains one, assembled and run
// from a fresh VM sharing one Context across the session. It is not a
// language REPL (there is no expression grammar to read) — it exists
// so a user can poke at opcodes interactively without writing a .wa
// file, the same niche the teacher's smog REPL filled for Smalltalk
// expressions.
var replCmd = &cli.Command{
	Name:  "repl",
	Usage: "interactively assemble and run one instruction per line",
	Action: func(c *cli.Context) error {
		ctx := buildContext()
		scanner := bufio.NewScanner(os.Stdin)
		fmt.Println("weave repl - one instruction per line, blank line to exit")
		for {
			fmt.Print("> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				return nil
			}
			src := line
			if !strings.Contains(strings.ToUpper(line), "RETURN") {
				src = line + "\nRETURN"
			}
			unit, err := asm.Assemble(src)
			if err != nil {
				fmt.Fprintln(os.Stderr, "asm error:", err)
				continue
			}
			machine := vm.New(unit, ctx)
			result, err := driveToCompletion(machine)
			if err != nil {
				fmt.Fprintln(os.Stderr, "error:", err)
				continue
			}
			fmt.Println(result.String())
		}
	},
}

var runCmd = &cli.Command{
	Name:      "run",
	Usage:     "run a compiled unit, calling the named entry function",
	ArgsUsage: "<input.wu|input.wa>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "entry", Value: entryPointPath, Usage: "fully-qualified path of the function to call"},
		&cli.IntFlag{Name: "budget", Value: 0, Usage: "instruction budget; 0 means unlimited"},
	},
	Action: func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return cli.Exit("run requires exactly 1 argument: <input.wu|input.wa>", 1)
		}
		unit, err := loadUnit(c.Args().Get(0))
		if err != nil {
			return err
		}

		ctx := buildContext()

		opts := []vm.Option{vm.WithDebugLogging(c.Bool("verbose"))}
		if budget := c.Int("budget"); budget > 0 {
			opts = append(opts, vm.WithInstructionBudget(budget))
		}
		machine := vm.New(unit, ctx, opts...)

		entry := value.HashString(c.String("entry"))
		if err := machine.Call(entry, nil); err != nil {
			return err
		}

		result, err := driveToCompletion(machine)
		if err != nil {
			return err
		}
		fmt.Println(result.String())
		return nil
	},
}

// driveToCompletion runs machine, resolving any Await/Select halts
// itself via vm.AwaitFuture — the same synchronous scheduling a host
// embedding the runtime performs when it has no reason to interleave
// other work — and reports the final Exited value. A Yield halt has no
// sensible top-level meaning for a plain function call (only Generator/
// Stream child VMs driven via DriveGenerator/DriveStream yield) so it
// is reported as an error here.
func driveToCompletion(machine *vm.VM) (value.Value, error) {
	halt, err := machine.Run()
	for err == nil {
		switch halt.Reason {
		case vm.HaltExited:
			return halt.Value, nil

		case vm.HaltAwaited:
			if len(halt.Select) > 0 {
				branch := halt.Select[0]
				bv, berr := vm.AwaitFuture(branch.Future)
				if berr != nil {
					return value.Value{}, berr
				}
				halt, err = machine.ResumeSelect(vm.ResumeSelect{Branch: branch.Index, Value: bv})
				continue
			}
			bv, berr := vm.AwaitFuture(halt.Future)
			if berr != nil {
				return value.Value{}, berr
			}
			halt, err = machine.Resume(bv)
			continue

		case vm.HaltLimited:
			return value.Value{}, fmt.Errorf("weave: instruction budget exhausted")

		default:
			return value.Value{}, fmt.Errorf("weave: unexpected halt %v at top level", halt.Reason)
		}
	}
	return value.Value{}, err
}

func buildContext() *context.Context {
	b := context.New()
	stdlib.Register(b, vm.AwaitFuture)
	return b.Build()
}

func loadUnit(path string) (*bytecode.Unit, error) {
	if hasSuffix(path, ".wa") {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return asm.Assemble(string(src))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return bytecode.Read(f)
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
