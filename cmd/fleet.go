// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2026 the botgate authors

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dotbot-org/botgate/pkg/gateway"
	"github.com/dotbot-org/botgate/pkg/protocol"
	"github.com/dotbot-org/botgate/pkg/registry"
)

const (
	fleetMaxLogEntries = 100
	fleetMoveSpeed     = 60
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Interactive fleet dashboard and remote control",
	Long: `Open the gateway link and drive the fleet from an interactive terminal UI.

Key bindings:
  up/down      select a bot
  w/a/s/d      drive the selected bot (manual mode)
  space        stop the selected bot
  l            set the LED color (hex, e.g. ff0000)
  m            toggle manual/auto mode
  c            start calibration, 0-3 sample reference points, A apply
  q            quit`,
	RunE: runFleet,
}

func init() {
	rootCmd.AddCommand(fleetCmd)
}

func runFleet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	gwAddr, err := cfg.GatewayAddress()
	if err != nil {
		return err
	}
	swarmID, err := cfg.SwarmID()
	if err != nil {
		return err
	}

	conn, _, err := openConnection(cfg)
	if err != nil {
		return err
	}

	ctrl := gateway.New(gateway.Config{
		Address:         gwAddr,
		SwarmID:         swarmID,
		CalibrationPath: cfg.Gateway.CalibrationPath,
	}, conn, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctrlDone := make(chan error, 1)
	go func() { ctrlDone <- ctrl.Run(ctx) }()

	events, unsubscribe := ctrl.Hub().Subscribe(64)
	defer unsubscribe()

	p := tea.NewProgram(newFleetModel(ctrl, events), tea.WithAltScreen())
	go func() {
		// A dead link takes the dashboard down with it.
		if err := <-ctrlDone; err != nil {
			p.Send(linkLostMsg{err: err})
		}
	}()

	_, err = p.Run()
	return err
}

// Log entry shown in the events pane.
type fleetLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// Messages
type fleetTickMsg time.Time
type hubEventMsg gateway.Event
type linkLostMsg struct{ err error }

// botItem adapts a registry snapshot to the bubbles list.
type botItem struct {
	bot registry.Bot
}

func (i botItem) FilterValue() string { return protocol.FormatAddress(i.bot.Address) }

func (i botItem) Title() string {
	marker := map[registry.Status]string{
		registry.StatusAlive: "●",
		registry.StatusLost:  "◍",
		registry.StatusDead:  "○",
	}[i.bot.Status]
	return fmt.Sprintf("%s %s [%s]", marker, protocol.FormatAddress(i.bot.Address), i.bot.Application)
}

func (i botItem) Description() string {
	parts := []string{i.bot.Status.String(), i.bot.Mode.String()}
	if i.bot.Position != nil {
		if i.bot.Position.Kind == registry.PositionGPS {
			parts = append(parts, fmt.Sprintf("lat=%.6f lon=%.6f", i.bot.Position.X, i.bot.Position.Y))
		} else {
			parts = append(parts, fmt.Sprintf("x=%.3f y=%.3f", i.bot.Position.X, i.bot.Position.Y))
		}
	}
	if i.bot.Direction != nil {
		parts = append(parts, fmt.Sprintf("%d°", *i.bot.Direction))
	}
	return strings.Join(parts, " | ")
}

// fleetModel is the TUI state.
type fleetModel struct {
	ctrl   *gateway.Controller
	events <-chan gateway.Event

	bots       list.Model
	colorInput textinput.Model
	editing    bool

	log      []fleetLogEntry
	width    int
	height   int
	quitting bool
	linkErr  error
}

func newFleetModel(ctrl *gateway.Controller, events <-chan gateway.Event) fleetModel {
	delegate := list.NewDefaultDelegate()
	bots := list.New(nil, delegate, 80, 14)
	bots.Title = "Fleet"
	bots.SetShowStatusBar(false)
	bots.SetFilteringEnabled(false)
	bots.SetShowHelp(false)

	colorInput := textinput.New()
	colorInput.Placeholder = "rrggbb"
	colorInput.CharLimit = 6
	colorInput.Width = 10

	return fleetModel{
		ctrl:       ctrl,
		events:     events,
		bots:       bots,
		colorInput: colorInput,
	}
}

func (m fleetModel) Init() tea.Cmd {
	return tea.Batch(fleetTickCmd(), m.waitForEvent())
}

func fleetTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return fleetTickMsg(t)
	})
}

func (m fleetModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.events
		if !ok {
			return nil
		}
		return hubEventMsg(e)
	}
}

// selected returns the address of the highlighted bot.
func (m fleetModel) selected() (uint64, bool) {
	item, ok := m.bots.SelectedItem().(botItem)
	if !ok {
		return 0, false
	}
	return item.bot.Address, true
}

func (m *fleetModel) refreshBots() {
	bots := m.ctrl.Registry().List()
	items := make([]list.Item, len(bots))
	for i, b := range bots {
		items[i] = botItem{bot: b}
	}
	m.bots.SetItems(items)
}

func (m *fleetModel) addLog(message string, isError bool) {
	m.log = append(m.log, fleetLogEntry{timestamp: time.Now(), message: message, isError: isError})
	if len(m.log) > fleetMaxLogEntries {
		m.log = m.log[len(m.log)-fleetMaxLogEntries:]
	}
}

// command runs a controller call and logs its outcome.
func (m *fleetModel) command(desc string, fn func() error) {
	if err := fn(); err != nil {
		m.addLog(fmt.Sprintf("%s: %v", desc, err), true)
		return
	}
	m.addLog(desc, false)
}

func (m *fleetModel) drive(leftY, rightY int) {
	addr, ok := m.selected()
	if !ok {
		return
	}
	m.command(fmt.Sprintf("move (%d, %d) -> %s", leftY, rightY, protocol.FormatAddress(addr)),
		func() error { return m.ctrl.MoveRaw(addr, 0, leftY, 0, rightY) })
}

func (m fleetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bots.SetSize(msg.Width-4, msg.Height/2)
		return m, nil

	case fleetTickMsg:
		m.refreshBots()
		return m, fleetTickCmd()

	case hubEventMsg:
		m.refreshBots()
		e := gateway.Event(msg)
		if e.Kind == gateway.EventCalibration {
			m.addLog(fmt.Sprintf("calibration: %s", e.CalibrationState), false)
		} else if e.Bot != nil && e.Bot.Type == registry.EventBotStatusChanged {
			m.addLog(fmt.Sprintf("%s is %s", protocol.FormatAddress(e.Bot.Address), e.Bot.Status), false)
		}
		return m, m.waitForEvent()

	case linkLostMsg:
		m.linkErr = msg.err
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		if m.editing {
			return m.updateColorInput(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "w":
			m.drive(fleetMoveSpeed, fleetMoveSpeed)
		case "s":
			m.drive(-fleetMoveSpeed, -fleetMoveSpeed)
		case "a":
			m.drive(-fleetMoveSpeed, fleetMoveSpeed)
		case "d":
			m.drive(fleetMoveSpeed, -fleetMoveSpeed)
		case " ":
			m.drive(0, 0)
		case "m":
			if addr, ok := m.selected(); ok {
				mode := protocol.ControlModeManual
				if b, found := m.ctrl.Registry().Get(addr); found && b.Mode == protocol.ControlModeManual {
					mode = protocol.ControlModeAuto
				}
				m.command(fmt.Sprintf("mode %s -> %s", mode, protocol.FormatAddress(addr)),
					func() error { return m.ctrl.SetMode(addr, mode) })
			}
		case "l":
			if _, ok := m.selected(); ok {
				m.editing = true
				m.colorInput.SetValue("")
				return m, m.colorInput.Focus()
			}
		case "c":
			m.ctrl.StartCalibration()
		case "0", "1", "2", "3":
			index, _ := strconv.Atoi(msg.String())
			m.command(fmt.Sprintf("calibration point %d", index),
				func() error { return m.ctrl.AddCalibrationPoint(index) })
		case "A":
			m.command("calibration apply", func() error { return m.ctrl.ApplyCalibration() })
		}
	}

	var cmd tea.Cmd
	m.bots, cmd = m.bots.Update(msg)
	return m, cmd
}

func (m fleetModel) updateColorInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.colorInput.Blur()
		return m, nil
	case "enter":
		m.editing = false
		m.colorInput.Blur()
		addr, ok := m.selected()
		if !ok {
			return m, nil
		}
		value, err := strconv.ParseUint(m.colorInput.Value(), 16, 32)
		if err != nil || len(m.colorInput.Value()) != 6 {
			m.addLog(fmt.Sprintf("invalid color %q", m.colorInput.Value()), true)
			return m, nil
		}
		red := uint8(value >> 16)
		green := uint8(value >> 8)
		blue := uint8(value)
		m.command(fmt.Sprintf("led #%06x -> %s", value, protocol.FormatAddress(addr)),
			func() error { return m.ctrl.RGBLed(addr, red, green, blue) })
		return m, nil
	}
	var cmd tea.Cmd
	m.colorInput, cmd = m.colorInput.Update(msg)
	return m, cmd
}

func (m fleetModel) View() string {
	if m.quitting {
		if m.linkErr != nil {
			return fmt.Sprintf("Link lost: %v\n", m.linkErr)
		}
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("BOTGATE - FLEET"))
	s.WriteString("\n")

	stats := m.ctrl.Stats().Snapshot()
	s.WriteString(headerStyle.Render(fmt.Sprintf(
		"calibration: %s | frames: %d | positions: %d | w/a/s/d drive, l led, m mode, q quit",
		m.ctrl.CalibrationState(), stats.Frames, stats.Positions)))
	s.WriteString("\n\n")

	s.WriteString(m.bots.View())
	s.WriteString("\n")

	if m.editing {
		s.WriteString(labelStyle.Render("LED color: "))
		s.WriteString(m.colorInput.View())
		s.WriteString("\n")
	}

	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - m.bots.Height() - 10
	if logHeight < 3 {
		logHeight = 3
	}
	startIdx := len(m.log) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	logContent := strings.Builder{}
	if len(m.log) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.log); i++ {
			entry := m.log[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			style := valueStyle
			if entry.isError {
				style = errorStyle
			}
			logContent.WriteString(fmt.Sprintf("%s %s\n",
				headerStyle.Render(timestamp), style.Render(entry.message)))
		}
	}
	width := m.width - 4
	if width < 20 {
		width = 76
	}
	s.WriteString(boxStyle.Width(width).Render(logContent.String()))

	return s.String()
}
