package speech

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/speechplay/cmd/common"
	"github.com/gigurra/speechplay/cmd/speech/player"
	"github.com/gigurra/speechplay/cmd/speech/waveform"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type RenderParams struct {
	Source   string `pos:"true" required:"true" help:"Audio file or http(s) URL (wav or mp3)."`
	Width    int    `short:"w" long:"width" optional:"true" help:"Columns to render (0 = terminal width)." default:"0"`
	Height   int    `short:"H" long:"height" optional:"true" help:"Rows to render." default:"8"`
	Plain    bool   `long:"plain" help:"Print without colors."`
	Timeout  int    `short:"t" long:"timeout" optional:"true" help:"Seconds to wait for download and decode." default:"60"`
	Verbose  bool   `short:"v" long:"verbose" help:"Debug logging to stderr."`
	Settings string `long:"settings" optional:"true" help:"Settings file (default ~/.speechplay/settings.yaml)."`
}

func RenderCmd() *cobra.Command {
	return boa.CmdT[RenderParams]{
		Use:         "render",
		Short:       "Print the waveform and pitch contour of a recording",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *RenderParams, cmd *cobra.Command, args []string) {
			common.SetupStderrLogging(common.LogLevel(params.Verbose))
			common.Exit("render", runRender(params, os.Stdout))
		},
	}.ToCobra()
}

func runRender(params *RenderParams, stdout io.Writer) error {
	width := params.Width
	if width <= 0 {
		width = termWidth()
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(max(1, params.Timeout))*time.Second)
	defer cancel()

	canvas := waveform.NewCanvas(width, max(1, params.Height))
	p, err := loadOnce(ctx, params.Source, canvas, player.Options{
		CacheDir: cacheDir(params.Settings),
		Sink:     player.SilentSink(),
	})
	if err != nil {
		return err
	}
	defer p.Close()

	s := p.Session()
	fmt.Fprintf(stdout, "%s  %s\n", sourceTitle(params.Source), secondsToTimestamp(s.Duration()))
	if params.Plain {
		fmt.Fprintln(stdout, canvas.Plain())
	} else {
		fmt.Fprintln(stdout, canvas.View(0))
	}
	return nil
}

func termWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
