package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/speechplay/cmd/common"
	"github.com/gigurra/speechplay/cmd/speech/player"
	"github.com/gigurra/speechplay/cmd/speech/waveform"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

type InfoParams struct {
	Sources  []string `pos:"true" required:"true" help:"Audio files or http(s) URLs (wav or mp3)."`
	JSON     bool     `long:"json" help:"Output as JSON."`
	Timeout  int      `short:"t" long:"timeout" optional:"true" help:"Seconds to wait for each download and decode." default:"60"`
	Verbose  bool     `short:"v" long:"verbose" help:"Debug logging to stderr."`
	Settings string   `long:"settings" optional:"true" help:"Settings file (default ~/.speechplay/settings.yaml)."`
}

func InfoCmd() *cobra.Command {
	return boa.CmdT[InfoParams]{
		Use:         "info",
		Short:       "Show duration, sample rate and pitch range of recordings",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *InfoParams, cmd *cobra.Command, args []string) {
			common.SetupStderrLogging(common.LogLevel(params.Verbose))
			common.Exit("info", runInfo(params, os.Stdout))
		},
	}.ToCobra()
}

// Info summarizes one decoded recording.
type Info struct {
	Source     string  `json:"source"`
	Session    string  `json:"session,omitempty"`
	Duration   float64 `json:"durationSeconds"`
	SampleRate int     `json:"sampleRate"`
	Frames     int     `json:"contourFrames"`
	Voiced     float64 `json:"voicedRatio"`
	PitchLow   float64 `json:"pitchLowHz,omitempty"`
	PitchHigh  float64 `json:"pitchHighHz,omitempty"`
	CachedAt   string  `json:"cachedAt,omitempty"`
	Error      string  `json:"error,omitempty"`
}

func runInfo(params *InfoParams, stdout io.Writer) error {
	cache := cacheDir(params.Settings)
	timeout := time.Duration(max(1, params.Timeout)) * time.Second

	infos := make([]Info, 0, len(params.Sources))
	for _, src := range params.Sources {
		infos = append(infos, inspect(src, cache, timeout))
	}

	if params.JSON {
		data, err := json.MarshalIndent(infos, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(data))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Recording", "Duration", "Rate", "Frames", "Voiced", "Pitch"})
	for _, in := range infos {
		if in.Error != "" {
			t.AppendRow(table.Row{sourceTitle(in.Source), text.FgHiRed.Sprint(in.Error), "", "", "", ""})
			continue
		}
		pitch := "-"
		if in.PitchHigh > 0 {
			pitch = fmt.Sprintf("%.0f-%.0f Hz", in.PitchLow, in.PitchHigh)
		}
		t.AppendRow(table.Row{
			sourceTitle(in.Source),
			secondsToTimestamp(time.Duration(in.Duration * float64(time.Second))),
			in.SampleRate,
			in.Frames,
			fmt.Sprintf("%.0f%%", in.Voiced*100),
			pitch,
		})
	}
	t.Render()
	return nil
}

func inspect(source, cache string, timeout time.Duration) Info {
	in := Info{Source: source, CachedAt: player.CachePathFor(cache, source)}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	p, err := loadOnce(ctx, source, waveform.NewCanvas(1, 1), player.Options{
		CacheDir: cache,
		Sink:     player.SilentSink(),
	})
	if err != nil {
		in.Error = err.Error()
		return in
	}
	defer p.Close()

	s := p.Session()
	c := s.Contour()
	in.Session = s.ID.String()
	in.Duration = s.Duration().Seconds()
	in.SampleRate = s.SampleRate()
	in.Frames = c.Len()
	if c.Len() > 0 {
		in.Voiced = float64(len(c.Voiced())) / float64(c.Len())
	}
	if low, high, ok := c.PitchRange(); ok {
		in.PitchLow, in.PitchHigh = low, high
	}
	return in
}
