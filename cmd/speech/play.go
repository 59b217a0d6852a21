package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gigurra/speechplay/cmd/common"
	"github.com/gigurra/speechplay/cmd/speech/player"
	"github.com/gigurra/speechplay/cmd/speech/visibility"
	"github.com/gigurra/speechplay/cmd/speech/waveform"
	"github.com/spf13/cobra"
)

type PlayParams struct {
	Sources  []string `pos:"true" required:"true" help:"Audio files or http(s) URLs (wav or mp3)."`
	Height   int      `short:"H" long:"height" optional:"true" help:"Waveform height in rows." default:"5"`
	Verbose  bool     `short:"v" long:"verbose" help:"Write debug logs to the log file in the cache directory."`
	Settings string   `long:"settings" optional:"true" help:"Settings file (default ~/.speechplay/settings.yaml)."`
}

func PlayCmd() *cobra.Command {
	return boa.CmdT[PlayParams]{
		Use:   "play",
		Short: "Play speech recordings with waveform and pitch contour",
		Long: `Show a scrollable list of speech players.

A player only loads its audio once it is fully on screen. Space or enter
plays and pauses the selected recording.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *PlayParams, cmd *cobra.Command, args []string) {
			common.Exit("play", runPlay(params))
		},
	}.ToCobra()
}

func runPlay(params *PlayParams) error {
	cache := cacheDir(params.Settings)
	logs := common.SetupFileLogging(cache, common.LogLevel(params.Verbose))
	defer logs.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := newPlayModel(ctx, params.Sources, params.Height, player.Options{CacheDir: cache})
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	m.close()
	return err
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	skeletonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// noAudioNote is shown in builds without an audio backend, where playback is silent.
const noAudioNote = "(no audio output in this build)"

type tickMsg time.Time

type loopMsg struct{}

type item struct {
	source string
	title  string
	canvas *waveform.Canvas
	player *player.Player
	gate   *visibility.Gate
	err    error // last playback error, cleared by a successful toggle
}

type playModel struct {
	ctx     context.Context
	sources []string
	rows    int
	opts    player.Options
	loop    *player.Loop

	items  []*item
	cursor int
	offset int // first visible line of the list
	width  int
	height int
}

func newPlayModel(ctx context.Context, sources []string, rows int, opts player.Options) *playModel {
	loop := player.NewLoop()
	opts.Dispatch = loop.Dispatch
	opts.Height = max(1, rows)
	return &playModel{
		ctx:     ctx,
		sources: sources,
		rows:    opts.Height,
		opts:    opts,
		loop:    loop,
	}
}

func (m *playModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitLoop(m.loop))
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitLoop turns the next dispatch into a message, so player work runs inside Update.
func waitLoop(l *player.Loop) tea.Cmd {
	return func() tea.Msg {
		<-l.Wake()
		return loopMsg{}
	}
}

func (m *playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.items == nil {
			m.createItems()
		}
		m.updateVisibility()
	case loopMsg:
		m.loop.RunPending()
		return m, waitLoop(m.loop)
	case tickMsg:
		return m, tickCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.close()
			return m, tea.Quit
		case "up", "k":
			m.moveCursor(-1)
		case "down", "j":
			m.moveCursor(1)
		case "home", "g":
			m.moveCursor(-len(m.items))
		case "end", "G":
			m.moveCursor(len(m.items))
		case " ", "enter":
			m.toggleSelected()
		}
	}
	return m, nil
}

func (m *playModel) createItems() {
	width := max(1, m.width-2)
	for _, src := range m.sources {
		canvas := waveform.NewCanvas(width, m.rows)
		m.items = append(m.items, &item{
			source: src,
			title:  sourceTitle(src),
			canvas: canvas,
			player: player.New(m.ctx, canvas, m.opts),
			gate:   visibility.NewGate(visibility.FullyVisible),
		})
	}
	for _, it := range m.items {
		it.player.SetSource(it.source)
	}
}

// itemLines is the height of one player: title, waveform rows and a spacer.
func (m *playModel) itemLines() int {
	return m.rows + 2
}

// listLines is the height available to the player list below the header and above the help line.
func (m *playModel) listLines() int {
	return max(0, m.height-2)
}

func (m *playModel) updateVisibility() {
	viewport := visibility.Rect{W: m.width, H: m.listLines()}
	for i, it := range m.items {
		r := visibility.Rect{Y: i*m.itemLines() - m.offset, W: m.width, H: m.itemLines() - 1}
		if visible, changed := it.gate.Observe(r, viewport); changed {
			it.player.SetVisible(visible)
		}
	}
}

func (m *playModel) moveCursor(delta int) {
	if len(m.items) == 0 {
		return
	}
	m.cursor = min(len(m.items)-1, max(0, m.cursor+delta))

	top := m.cursor * m.itemLines()
	bottom := top + m.itemLines() - 2
	switch {
	case top < m.offset:
		m.offset = top
	case bottom >= m.offset+m.listLines():
		m.offset = bottom - m.listLines() + 1
	}
	m.updateVisibility()
}

func (m *playModel) toggleSelected() {
	if m.cursor >= len(m.items) {
		return
	}
	// Only one recording plays at a time.
	for i, it := range m.items {
		if i != m.cursor {
			it.player.Pause()
		}
	}
	it := m.items[m.cursor]
	err := it.player.Toggle()
	if errors.Is(err, player.ErrNotReady) {
		return
	}
	if err != nil {
		slog.Warn("failed to toggle playback", "source", it.source, "error", err)
	}
	it.err = err
}

func (m *playModel) close() {
	for _, it := range m.items {
		it.player.Close()
		it.gate.Detach()
	}
}

func (m *playModel) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var lines []string
	for i, it := range m.items {
		lines = append(lines, m.titleLine(i, it))
		lines = append(lines, strings.Split(m.body(it), "\n")...)
		lines = append(lines, "")
	}

	end := min(len(lines), m.offset+m.listLines())
	start := min(m.offset, end)
	visible := lines[start:end]

	header := titleStyle.Render(fmt.Sprintf("speechplay · %d recordings", len(m.items)))
	if !player.AudioAvailable {
		header += " " + errorStyle.Render(noAudioNote)
	}
	help := helpStyle.Render("↑/↓ select · space play/pause · q quit")
	return header + "\n" + strings.Join(visible, "\n") + "\n" + help
}

func (m *playModel) titleLine(i int, it *item) string {
	icon := "▶"
	var elapsed, total time.Duration
	if s := it.player.Session(); s != nil {
		if s.State() == player.StatePlaying {
			icon = "⏸"
		}
		elapsed, total = s.CurrentTime(), s.Duration()
	}
	stamp := timeStyle.Render(secondsToTimestamp(elapsed) + " / " + secondsToTimestamp(total))

	room := m.width - lipgloss.Width(stamp) - 4
	title := icon + " " + truncate(it.title, room-2)
	if i == m.cursor {
		title = selectedStyle.Render(title)
	} else {
		title = titleStyle.Render(title)
	}
	gap := max(1, m.width-lipgloss.Width(title)-lipgloss.Width(stamp))
	return title + strings.Repeat(" ", gap) + stamp
}

// body renders the waveform once the player is initialized and a placeholder before that.
func (m *playModel) body(it *item) string {
	width, height := it.canvas.Size()
	s := it.player.Session()
	switch {
	case it.err != nil:
		msg := truncate("playback failed: "+it.err.Error(), width)
		return " " + errorStyle.Render(msg) + strings.Repeat("\n", height-1)
	case s != nil && s.Initialized():
		return " " + strings.ReplaceAll(it.canvas.View(s.Progress()), "\n", "\n ")
	case it.player.Err() != nil:
		msg := truncate("failed to load: "+it.player.Err().Error(), width)
		return " " + errorStyle.Render(msg) + strings.Repeat("\n", height-1)
	default:
		bar := skeletonStyle.Render(strings.Repeat("░", width))
		rows := make([]string, height)
		for y := range rows {
			rows[y] = " " + bar
		}
		return strings.Join(rows, "\n")
	}
}
