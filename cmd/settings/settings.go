// Package settings implements the "speechplay settings" commands.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/GiGurra/cmder"
	"github.com/atotto/clipboard"
	"github.com/gigurra/speechplay/cmd/common"
	"github.com/gigurra/speechplay/cmd/settings/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var clipboardWriteAll = clipboard.WriteAll

func Cmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "settings",
		Short: "Inspect and change speechplay settings",
		SubCmds: []*cobra.Command{
			GetCmd(),
			SetCmd(),
			PathsCmd(),
			LanguageCmd(),
			FFmpegCmd(),
			WatchCmd(),
		},
	}.ToCobra()
}

type GetParams struct {
	Key      string `pos:"true" optional:"true" help:"Dotted settings key, e.g. whisper.model. Lists all keys when omitted."`
	Copy     bool   `short:"c" long:"copy" help:"Also copy the output to the clipboard."`
	JSON     bool   `long:"json" help:"Output as JSON."`
	Settings string `long:"settings" optional:"true" help:"Settings file (default ~/.speechplay/settings.yaml)."`
}

func GetCmd() *cobra.Command {
	return boa.CmdT[GetParams]{
		Use:         "get",
		Short:       "Print a setting",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *GetParams, cmd *cobra.Command, args []string) {
			common.Exit("settings get", runGet(params, os.Stdout))
		},
	}.ToCobra()
}

func runGet(params *GetParams, stdout io.Writer) error {
	s, err := common.OpenSettings(params.Settings)
	if err != nil {
		return err
	}

	var out string
	if params.Key == "" {
		out, err = formatAll(s, params.JSON)
	} else {
		v, ok := s.Get(params.Key)
		if !ok {
			return fmt.Errorf("%s is not set", params.Key)
		}
		out, err = formatValue(v, params.JSON)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, out)
	if params.Copy {
		if err := clipboardWriteAll(out); err != nil {
			return fmt.Errorf("failed to write to clipboard: %w", err)
		}
	}
	return nil
}

func formatAll(s *store.Store, asJSON bool) (string, error) {
	keys := s.Keys()
	if asJSON {
		all := make(map[string]any, len(keys))
		for _, k := range keys {
			all[k], _ = s.Get(k)
		}
		data, err := json.MarshalIndent(all, "", "  ")
		return string(data), err
	}

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		v, _ := s.Get(k)
		lines = append(lines, fmt.Sprintf("%s = %v", k, v))
	}
	return strings.Join(lines, "\n"), nil
}

func formatValue(v any, asJSON bool) (string, error) {
	if asJSON {
		data, err := json.MarshalIndent(v, "", "  ")
		return string(data), err
	}
	switch v.(type) {
	case map[string]any, []any:
		data, err := yaml.Marshal(v)
		return strings.TrimSpace(string(data)), err
	default:
		return fmt.Sprint(v), nil
	}
}

type SetParams struct {
	Key      string `pos:"true" required:"true" help:"Dotted settings key."`
	Value    string `pos:"true" required:"true" help:"Value, parsed as YAML (3, true, {a: 1}, ...)."`
	Settings string `long:"settings" optional:"true" help:"Settings file (default ~/.speechplay/settings.yaml)."`
}

func SetCmd() *cobra.Command {
	return boa.CmdT[SetParams]{
		Use:         "set",
		Short:       "Change a setting",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *SetParams, cmd *cobra.Command, args []string) {
			common.Exit("settings set", runSet(params, os.Stdout))
		},
	}.ToCobra()
}

func runSet(params *SetParams, stdout io.Writer) error {
	s, err := common.OpenSettings(params.Settings)
	if err != nil {
		return err
	}

	switch params.Key {
	case "library":
		dir, err := s.SetLibrary(params.Value)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "library = %s\n", dir)
		return nil
	case "language":
		return s.SwitchLanguage(params.Value)
	}
	return s.Set(params.Key, store.ParseValue(params.Value))
}

type PathsParams struct {
	Settings string `long:"settings" optional:"true" help:"Settings file (default ~/.speechplay/settings.yaml)."`
}

func PathsCmd() *cobra.Command {
	return boa.CmdT[PathsParams]{
		Use:         "paths",
		Short:       "Show library, cache, database and model locations",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *PathsParams, cmd *cobra.Command, args []string) {
			common.Exit("settings paths", runPaths(params, os.Stdout))
		},
	}.ToCobra()
}

func runPaths(params *PathsParams, stdout io.Writer) error {
	s, err := common.OpenSettings(params.Settings)
	if err != nil {
		return err
	}

	rows := []struct {
		name string
		fn   func() (string, error)
	}{
		{"settings", func() (string, error) { return s.Path(), nil }},
		{"library", s.LibraryPath},
		{"cache", s.CachePath},
		{"user data", s.UserDataPath},
		{"database", s.DBPath},
		{"whisper models", s.WhisperModelsPath},
		{"whisper model", s.WhisperModelPath},
		{"llama models", s.LlamaModelsPath},
		{"llama model", s.LlamaModelPath},
	}

	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Path"})
	for _, r := range rows {
		p, err := r.fn()
		if err != nil {
			t.AppendRow(table.Row{r.name, text.FgHiBlack.Sprint(err.Error())})
			continue
		}
		t.AppendRow(table.Row{r.name, p})
	}
	t.Render()
	return nil
}

type LanguageParams struct {
	Language string `pos:"true" optional:"true" help:"Language to switch to. Prints the current one when omitted."`
	Settings string `long:"settings" optional:"true" help:"Settings file (default ~/.speechplay/settings.yaml)."`
}

func LanguageCmd() *cobra.Command {
	return boa.CmdT[LanguageParams]{
		Use:         "language",
		Short:       "Print or switch the UI language",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *LanguageParams, cmd *cobra.Command, args []string) {
			common.Exit("settings language", runLanguage(params, os.Stdout))
		},
	}.ToCobra()
}

func runLanguage(params *LanguageParams, stdout io.Writer) error {
	s, err := common.OpenSettings(params.Settings)
	if err != nil {
		return err
	}
	if params.Language != "" {
		return s.SwitchLanguage(params.Language)
	}
	lang, err := s.Language()
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, lang)
	return nil
}

type FFmpegParams struct {
	FFmpeg   string `long:"ffmpeg" optional:"true" help:"Path to the ffmpeg binary to store."`
	FFprobe  string `long:"ffprobe" optional:"true" help:"Path to the ffprobe binary to store."`
	JSON     bool   `long:"json" help:"Output as JSON."`
	Settings string `long:"settings" optional:"true" help:"Settings file (default ~/.speechplay/settings.yaml)."`
}

func FFmpegCmd() *cobra.Command {
	return boa.CmdT[FFmpegParams]{
		Use:         "ffmpeg",
		Short:       "Show or set where ffmpeg and ffprobe are found",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *FFmpegParams, cmd *cobra.Command, args []string) {
			common.Exit("settings ffmpeg", runFFmpeg(params, os.Stdout))
		},
	}.ToCobra()
}

func runFFmpeg(params *FFmpegParams, stdout io.Writer) error {
	s, err := common.OpenSettings(params.Settings)
	if err != nil {
		return err
	}
	if params.FFmpeg != "" || params.FFprobe != "" {
		if err := s.SetFFmpegConfig(params.FFmpeg, params.FFprobe); err != nil {
			return err
		}
	}

	cfg, err := s.FFmpegConfig()
	if err != nil {
		return err
	}
	if params.JSON {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	ready := text.FgHiRed.Sprint("no")
	if cfg.Ready {
		ready = text.FgGreen.Sprint("yes")
	}
	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"platform", cfg.OS + "/" + cfg.Arch},
		{"on PATH", cfg.CommandExists},
		{"ffmpeg", cfg.FFmpegPath},
		{"ffprobe", cfg.FFprobePath},
		{"ready", ready},
	})
	if cfg.Ready {
		t.AppendRow(table.Row{"version", ffmpegVersion(context.Background(), cfg)})
	}
	t.Render()
	return nil
}

// ffmpegVersion returns the first line of "ffmpeg -version", preferring the
// configured binary over the one on PATH.
func ffmpegVersion(ctx context.Context, cfg store.FFmpeg) string {
	bin := cfg.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}
	res := cmder.New(bin, "-version").
		WithAttemptTimeout(5 * time.Second).
		Run(ctx)
	if res.Err != nil {
		return text.FgHiBlack.Sprint(res.Err.Error())
	}
	line, _, _ := strings.Cut(strings.TrimSpace(res.StdOut), "\n")
	return line
}

type WatchParams struct {
	Settings string `long:"settings" optional:"true" help:"Settings file (default ~/.speechplay/settings.yaml)."`
}

func WatchCmd() *cobra.Command {
	return boa.CmdT[WatchParams]{
		Use:         "watch",
		Short:       "Print settings whenever the file changes",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *WatchParams, cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			common.Exit("settings watch", runWatch(ctx, params, os.Stdout))
		},
	}.ToCobra()
}

func runWatch(ctx context.Context, params *WatchParams, stdout io.Writer) error {
	s, err := common.OpenSettings(params.Settings)
	if err != nil {
		return err
	}

	changes := make(chan error, 1)
	w, err := s.Watch(func(err error) {
		select {
		case changes <- err:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	fmt.Fprintf(stdout, "watching %s\n", s.Path())
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-changes:
			if err != nil {
				fmt.Fprintf(stdout, "%s\n", text.FgHiRed.Sprint(err.Error()))
				continue
			}
			out, _ := formatAll(s, false)
			fmt.Fprintf(stdout, "--- %s\n%s\n", s.Path(), out)
		}
	}
}
