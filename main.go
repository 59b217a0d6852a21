package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/speechplay/cmd/settings"
	"github.com/gigurra/speechplay/cmd/speech"
	"github.com/spf13/cobra"
)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "speechplay",
		Short:   "Speech recordings with waveform and pitch contour in the terminal",
		Version: appVersion(),
		SubCmds: []*cobra.Command{
			speech.PlayCmd(),
			speech.RenderCmd(),
			speech.InfoCmd(),
			settings.Cmd(),
		},
	}.Run()
}

func appVersion() string {
	bi, hasBuildInfo := debug.ReadBuildInfo()
	if !hasBuildInfo {
		return "unknown-(no build info)"
	}

	versionString := bi.Main.Version
	if versionString == "" {
		versionString = "unknown-(no version)"
	}

	return versionString
}
