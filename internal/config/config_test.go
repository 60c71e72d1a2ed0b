package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"parmint/internal/model"
)

func newCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	fs := cmd.Flags()
	fs.String(KeyOutDir, "output", "")
	fs.Bool(KeyVerbose, false, "")
	fs.String(KeyFFprobe, "", "")
	fs.Int(KeySplit, 8, "")
	fs.Int(KeyFPS, 60, "")
	fs.Int(KeyCRF, 10, "")
	fs.Bool(KeyAutoName, false, "")
	fs.Bool(KeyShutdown, false, "")
	fs.String(KeyEncoder, "ffmpeg", "")
	fs.String(KeyMap, "first", "")
	fs.String(KeyDialect, "auto", "")
	fs.Bool(KeyYes, false, "")
	return cmd
}

func isolate(t *testing.T) string {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("config dir isolation relies on XDG_CONFIG_HOME")
	}
	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", base)
	return filepath.Join(base, "parmint")
}

func TestOptions_Defaults(t *testing.T) {
	isolate(t)
	v := viper.New()
	cmd := newCmd()
	if err := Init(v, cmd); err != nil {
		t.Fatalf("Init: %v", err)
	}
	o, err := Options(v, "in.mkv")
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	want := model.Options{
		InputPath: "in.mkv", OutDir: "output", Split: 8, FPS: 60, CRF: 10,
		MapMode: model.MapFirstOfEachType, Encoder: "ffmpeg", Dialect: "auto",
	}
	if o != want {
		t.Errorf("Options = %+v\nwant      %+v", o, want)
	}
}

func TestOptions_Precedence(t *testing.T) {
	cfgDir := isolate(t)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := "fps: 48\nsplit: 3\nmap: all-av\nencoder: ffmpeg -hide_banner\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PARMINT_SPLIT", "5")
	t.Setenv("PARMINT_AUTO_NAME", "true")

	v := viper.New()
	cmd := newCmd()
	if err := cmd.Flags().Set(KeyFPS, "120"); err != nil {
		t.Fatal(err)
	}
	if err := Init(v, cmd); err != nil {
		t.Fatalf("Init: %v", err)
	}
	o, err := Options(v, "in.mkv")
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if o.FPS != 120 {
		t.Errorf("FPS = %d, flag should win", o.FPS)
	}
	if o.Split != 5 {
		t.Errorf("Split = %d, env should beat the config file", o.Split)
	}
	if !o.AutoName {
		t.Error("AutoName should come from PARMINT_AUTO_NAME")
	}
	if o.MapMode != model.MapAllAudioVideo || o.Encoder != "ffmpeg -hide_banner" {
		t.Errorf("config file values not applied: %+v", o)
	}
}

func TestOptions_Invalid(t *testing.T) {
	isolate(t)
	for _, kv := range [][2]string{{KeyMap, "subs-only"}, {KeyCRF, "-1"}, {KeyCRF, "99"}} {
		v := viper.New()
		cmd := newCmd()
		if err := cmd.Flags().Set(kv[0], kv[1]); err != nil {
			t.Fatal(err)
		}
		if err := Init(v, cmd); err != nil {
			t.Fatal(err)
		}
		if _, err := Options(v, "in.mkv"); err == nil {
			t.Errorf("--%s=%s: expected error", kv[0], kv[1])
		}
	}
}

func TestInit_MalformedConfig(t *testing.T) {
	cfgDir := isolate(t)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("split: [unclosed\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Init(viper.New(), newCmd()); err == nil {
		t.Error("expected error for malformed config")
	}
}

func TestOptions_LosslessCRF(t *testing.T) {
	isolate(t)
	v := viper.New()
	cmd := newCmd()
	if err := cmd.Flags().Set(KeyCRF, "0"); err != nil {
		t.Fatal(err)
	}
	if err := Init(v, cmd); err != nil {
		t.Fatal(err)
	}
	o, err := Options(v, "in.mkv")
	if err != nil {
		t.Fatalf("--crf 0: %v", err)
	}
	if o.CRF != 0 {
		t.Errorf("CRF = %d, want 0", o.CRF)
	}
}
