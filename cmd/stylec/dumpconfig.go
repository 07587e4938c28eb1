package main

import (
	"context"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"stylec/config"
	"stylec/state"
)

// outputConfiguration writes either embedded defaults or effective
// configuration as YAML.
func outputConfiguration(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)

	args := cmd.Args().Slice()
	if len(args) > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", args[1:]))
	}

	kind, data, err := "actual", []byte(nil), error(nil)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	var (
		out  io.Writer = os.Stdout
		name           = "STDOUT"
	)
	if len(args) > 0 && len(args[0]) > 0 {
		name = args[0]
		f, err := os.Create(name)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", name, err)
		}
		defer f.Close()
		out = f
	}

	env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", name))
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
