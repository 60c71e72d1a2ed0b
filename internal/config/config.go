// Package config resolves run options with the precedence
// flag > PARMINT_* environment > config file > flag default.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"parmint/internal/dirs"
	"parmint/internal/model"
	"parmint/internal/streams"
)

const envPrefix = "PARMINT"

// Flag names double as config keys; PARMINT_OUT_DIR sets out-dir.
const (
	KeyOutDir    = "out-dir"
	KeyVerbose   = "verbose"
	KeyLogFormat = "log-format"
	KeyFFprobe   = "ffprobe"
	KeySplit     = "split"
	KeyFPS       = "fps"
	KeyCRF       = "crf"
	KeyAutoName  = "auto-name"
	KeyShutdown  = "shutdown"
	KeyEncoder   = "encoder"
	KeyMap       = "map"
	KeyDialect   = "dialect"
	KeyYes       = "yes"
	KeyJobs      = "jobs"
	KeyFailFast  = "fail-fast"
)

// Init wires v with the config search path, the environment and every flag
// of cmd. A missing config file is not an error; a malformed one is.
func Init(v *viper.Viper, cmd *cobra.Command) error {
	if cfgDir, err := dirs.ConfigDir(); err == nil {
		v.AddConfigPath(cfgDir)
	}
	v.SetConfigName("config") // supports config.{yaml|yml|json|toml}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Options assembles model.Options for input from v.
func Options(v *viper.Viper, input string) (model.Options, error) {
	mode, err := streams.ParseMode(v.GetString(KeyMap))
	if err != nil {
		return model.Options{}, err
	}
	o := model.Options{
		InputPath:   input,
		OutDir:      filepath.Clean(v.GetString(KeyOutDir)),
		Split:       v.GetInt(KeySplit),
		FPS:         v.GetInt(KeyFPS),
		CRF:         v.GetInt(KeyCRF),
		AutoName:    v.GetBool(KeyAutoName),
		Shutdown:    v.GetBool(KeyShutdown),
		MapMode:     mode,
		Encoder:     v.GetString(KeyEncoder),
		FFprobePath: v.GetString(KeyFFprobe),
		Dialect:     v.GetString(KeyDialect),
		Jobs:        v.GetInt(KeyJobs),
		FailFast:    v.GetBool(KeyFailFast),
		Yes:         v.GetBool(KeyYes),
		Verbose:     v.GetBool(KeyVerbose),
	}
	if o.OutDir == "." && v.GetString(KeyOutDir) == "" {
		o.OutDir = "output"
	}
	// Split count and fps are validated by the segment planner.
	if o.Jobs < 0 {
		return model.Options{}, fmt.Errorf("invalid --jobs: %d", o.Jobs)
	}
	if o.CRF < 0 || o.CRF > 63 {
		return model.Options{}, fmt.Errorf("invalid --crf: %d (valid: 0..63)", o.CRF)
	}
	return o, nil
}
