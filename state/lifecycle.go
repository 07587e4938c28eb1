package state

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"stylec/config"
	"stylec/misc"
)

// Open loads configuration and sets up logging and (if requested) debug
// report. Empty configFile means embedded defaults.
func (e *LocalEnv) Open(configFile string, withReport bool, args []string) error {
	var err error

	if e.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if withReport {
		if e.Rpt, err = e.Cfg.Reporting.Prepare(); err != nil {
			return fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		if len(configFile) > 0 {
			// effective configuration, after defaults and sanitizing
			if data, err := config.Dump(e.Cfg); err == nil {
				e.Rpt.StoreData("config/"+filepath.Base(configFile), data)
			}
		}
	}
	if e.Log, err = e.Cfg.Logging.Prepare(e.Rpt); err != nil {
		return fmt.Errorf("unable to prepare logs: %w", err)
	}
	e.RedirectStdLog()

	e.Log.Debug("Program started",
		zap.Strings("args", args),
		zap.String("ver", misc.GetVersion()),
		zap.String("runtime", runtime.Version()),
		zap.String("hash", misc.GetGitHash()))
	if e.Rpt != nil {
		e.Log.Info("Creating debug report", zap.String("location", e.Rpt.Name()))
	}
	if len(configFile) == 0 {
		e.Log.Info("Using defaults (no configuration file)")
	}
	return nil
}

// Close flushes logs, finalizes report and removes panic log if nothing
// crashed. After Close errors could only be reported to stderr.
func (e *LocalEnv) Close() (err error) {
	if e.Log != nil {
		e.Log.Debug("Program ended", zap.Duration("elapsed", e.Uptime()))
	}
	e.RestoreStdLog()

	if er := e.Rpt.Close(); er != nil {
		err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
	}
	if e.Cfg == nil || len(e.Cfg.Logging.FileLogger.Destination) == 0 {
		return err
	}

	debug.SetCrashOutput(nil, debug.CrashOptions{})
	fname := e.Cfg.Logging.PanicLogName()
	if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
		if er := os.Remove(fname); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
		}
	}
	return err
}
