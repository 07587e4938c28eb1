package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"stylec/common"
	"stylec/convert"
	"stylec/misc"
	"stylec/state"
)

// beforeCommand runs after command line has been parsed. Help and version
// output do not need environment.
func beforeCommand(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		return ctx, nil
	}
	return ctx, state.EnvFromContext(ctx).Open(cmd.String("config"), cmd.Bool("debug"), os.Args)
}

func afterCommand(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	if env.Log != nil {
		env.Log.Debug("Command finished", zap.Strings("parsed args", cmd.Args().Slice()))
	}
	return env.Close()
}

// errLogged is set once failure made it into the log, so main does not
// print it again.
var errLogged bool

// onExitError runs before afterCommand closes the log.
func onExitError(ctx context.Context, _ *cli.Command, err error) {
	if env := state.EnvFromContext(ctx); env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errLogged = true
	}
}

// onUsageError keeps usage errors as regular errors, urfave/cli would print
// help and exit on its own otherwise.
func onUsageError(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func onCommandNotFound(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

// styleFlags are shared by every command compiling style-sheets.
func styleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "platform", Aliases: []string{"p"},
			Usage: "target `PLATFORM` (supported platforms: " + strings.Join(common.PlatformNames(), ", ") + "), overrides configuration"},
		&cli.BoolFlag{Name: "nesting", Usage: "resolve nested rules in style-sheets"},
		&cli.BoolFlag{Name: "fail-on-cycle", Usage: "stop when custom properties reference each other in a cycle"},
		&cli.StringFlag{Name: "charset",
			Usage: "decode style-sheets and markup from `ENCODING` instead of UTF-8 (see IANA.org for character set names)"},
		&cli.StringFlag{Name: "force-zip-cp",
			Usage: "Force `ENCODING` for ALL non UTF-8 file names in processed archives (see IANA.org for character set names)"},
	}
}

const sourcesHelp = `
SOURCE:
    style-sheet(s) to compile, in cascade order, following forms are supported:
        path to a file: "[path_to_file]file.css"
        path to a directory: "[path_to_directory]directory" - all css files under directory in lexical order (symbolic links are not followed)
        path to archive: "[path_to_archive]archive.zip" - all css files in archive order
        path to archive with path inside archive: "[path_to_archive]archive.zip[path_in_archive]" - all css files under archive path

	Archives inside archives are not supported.
`

func main() {

	// allow graceful shutdown on interrupt.
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "compiles CSS style-sheets into style objects of mobile UI runtimes",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          beforeCommand,
		After:           afterCommand,
		OnUsageError:    onUsageError,
		ExitErrHandler:  onExitError,
		CommandNotFound: onCommandNotFound,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "compile",
				Usage:        "Compiles style-sheet(s) and optional markup for target platform",
				OnUsageError: onUsageError,
				Action:       convert.Run,
				Flags: append(styleFlags(),
					&cli.StringFlag{Name: "markup", Aliases: []string{"m"}, Usage: "integrate styles into markup `FILE`"},
					&cli.StringFlag{Name: "to", Value: common.OutputFmtJson.String(),
						Usage: "style table output `TYPE` (supported types: " + strings.Join(common.OutputFmtNames(), ", ") + ")"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write results to `DIRECTORY`, if absent - current working directory"},
					&cli.BoolFlag{Name: "overwrite", Aliases: []string{"ow"}, Usage: "continue even if destination exits, overwrite files"},
				),
				ArgsUsage:          "SOURCE...",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourcesHelp,
			},
			{
				Name:         "styles",
				Usage:        "Compiles style-sheet(s) into style table only",
				OnUsageError: onUsageError,
				Action:       convert.RunStyles,
				Flags: append(styleFlags(),
					&cli.StringFlag{Name: "to", Value: common.OutputFmtJson.String(),
						Usage: "style table output `TYPE` (supported types: " + strings.Join(common.OutputFmtNames(), ", ") + ")"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "write style table to `FILE`, if absent - STDOUT"},
				),
				ArgsUsage:          "SOURCE...",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourcesHelp,
			},
			{
				Name:         "inspect",
				Usage:        "Dumps intermediate compiler structures for troubleshooting",
				OnUsageError: onUsageError,
				Action:       convert.RunInspect,
				Flags: append(styleFlags(),
					&cli.StringFlag{Name: "markup", Aliases: []string{"m"}, Usage: "also dump element tree of markup `FILE` before and after integration"},
				),
				ArgsUsage:          "SOURCE...",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourcesHelp,
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: onUsageError,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values wich is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	err := app.Run(ctx, os.Args)
	stop()
	if err == nil {
		return
	}
	// log is either not ready (bad arguments) or closed by now
	if !errLogged {
		fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
	}
	os.Exit(1)
}
