package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tltb-go/types"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live terminal dashboard",
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

type snapshotMsg types.Snapshot

type frameErrMsg struct{ err error }

type linkDownMsg struct{ err error }

type tickMsg time.Time

type monitorModel struct {
	snap     *types.Snapshot
	lastSeen time.Time

	frames  uint64
	dropped uint64
	log     []string

	width    int
	height   int
	quitting bool
	linkErr  error
}

func runMonitor(cmd *cobra.Command, args []string) error {
	port, err := openPort()
	if err != nil {
		return err
	}
	defer port.Close()

	p := tea.NewProgram(monitorModel{width: 80, height: 24})

	go func() {
		err := readFrames(port,
			func(s types.Snapshot) { p.Send(snapshotMsg(s)) },
			func(err error) { p.Send(frameErrMsg{err}) })
		p.Send(linkDownMsg{err})
	}()

	_, err = p.Run()
	return err
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.EnterAltScreen)
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tickCmd()

	case snapshotMsg:
		prev := m.snap
		s := types.Snapshot(msg)
		m.snap = &s
		m.lastSeen = time.Now()
		m.frames++
		m.logLatchEdges(prev, s)

	case frameErrMsg:
		m.dropped++
		m.addLog(fmt.Sprintf("dropped frame: %v", msg.err))

	case linkDownMsg:
		m.linkErr = msg.err
		m.addLog(fmt.Sprintf("serial link lost: %v", msg.err))
	}
	return m, nil
}

func (m *monitorModel) logLatchEdges(prev *types.Snapshot, s types.Snapshot) {
	if prev == nil {
		return
	}
	edge := func(was, is bool, name string) {
		if !was && is {
			m.addLog(name + " latched")
		}
		if was && !is {
			m.addLog(name + " cleared")
		}
	}
	edge(prev.OcpLatched, s.OcpLatched, "OCP")
	edge(prev.CoilLatched, s.CoilLatched, "COIL")
	edge(prev.LvpLatched, s.LvpLatched, "LVP")
	edge(prev.OutvLatched, s.OutvLatched, "OUTV")
	if !prev.CooldownActive && s.CooldownActive {
		m.addLog("cooldown engaged")
	}
	if prev.CooldownActive && !s.CooldownActive {
		m.addLog("cooldown released")
	}
}

func (m *monitorModel) addLog(line string) {
	m.log = append(m.log, time.Now().Format("15:04:05")+" "+line)
	if len(m.log) > 50 {
		m.log = m.log[len(m.log)-50:]
	}
}

var relayNames = [types.RelayCount]string{"LEFT", "RIGHT", "BRAKE", "TAIL", "MARK", "AUX", "EN"}

func (m monitorModel) View() string {
	if m.quitting {
		return "bye\n"
	}

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	value := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	alarm := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	warn := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var b strings.Builder
	b.WriteString(title.Render("TLTB monitor  "+portName) + "\n")
	b.WriteString(label.Render(fmt.Sprintf("frames %d  dropped %d", m.frames, m.dropped)))
	if m.linkErr != nil {
		b.WriteString("  " + alarm.Render("LINK DOWN"))
	} else if m.snap != nil && time.Since(m.lastSeen) > time.Second {
		b.WriteString("  " + warn.Render("stale"))
	}
	b.WriteString("\n\n")

	if m.snap == nil {
		b.WriteString(label.Render("waiting for first frame...") + "\n")
		return b.String()
	}
	s := *m.snap

	var rows []string
	rows = append(rows, label.Render("mode    ")+value.Render(strings.ToUpper(s.Mode.String())))

	var relays []string
	for r := types.Relay(0); r < types.RelayCount; r++ {
		name := relayNames[r]
		if s.Relays.Has(r) {
			relays = append(relays, value.Render("["+name+"]"))
		} else {
			relays = append(relays, label.Render(" "+name+" "))
		}
	}
	rows = append(rows, label.Render("relays  ")+strings.Join(relays, " "))

	rows = append(rows, label.Render("source  ")+reading(value, s.SrcV, "%6.2f V"))
	rows = append(rows, label.Render("load    ")+reading(value, s.LoadA, "%6.2f A"))
	rows = append(rows, label.Render("output  ")+reading(value, s.OutV, "%6.2f V"))
	rows = append(rows, label.Render("coil    ")+reading(value, s.CoilA, "%6.3f A"))
	b.WriteString(box.Render(strings.Join(rows, "\n")) + "\n")

	var state []string
	latch := func(on bool, name string, bypass bool) string {
		switch {
		case on && bypass:
			return warn.Render(name + " latched (bypassed)")
		case on:
			return alarm.Render(name + " LATCHED")
		case bypass:
			return warn.Render(name + " bypassed")
		default:
			return label.Render(name + " ok")
		}
	}
	state = append(state, latch(s.OcpLatched, "OCP", false))
	state = append(state, latch(s.CoilLatched, "COIL", false))
	state = append(state, latch(s.LvpLatched, "LVP", s.LvpBypass))
	state = append(state, latch(s.OutvLatched, "OUTV", s.OutvBypass))
	if s.StartupGuard {
		state = append(state, warn.Render("startup guard: turn selector to ALL OFF"))
	}
	if s.CooldownActive {
		state = append(state, warn.Render(fmt.Sprintf("cooldown: %ds remaining", s.CooldownSecsLeft)))
	}
	if s.OcpLatched && s.OcpTripRelay >= 0 && int(s.OcpTripRelay) < len(relayNames) {
		state = append(state, label.Render("trip circuit: "+relayNames[s.OcpTripRelay]))
	}
	if s.CoilLatched && s.CoilFaultRelay >= 0 && int(s.CoilFaultRelay) < len(relayNames) {
		state = append(state, label.Render("coil fault: "+relayNames[s.CoilFaultRelay]))
	}
	b.WriteString(box.Render(strings.Join(state, "\n")) + "\n")

	// Most recent events at the bottom, clipped to the window.
	logLines := m.log
	avail := m.height - strings.Count(b.String(), "\n") - 2
	if avail > 0 && len(logLines) > avail {
		logLines = logLines[len(logLines)-avail:]
	}
	for _, l := range logLines {
		b.WriteString(label.Render(l) + "\n")
	}
	return b.String()
}

// reading renders a sensor value, or "absent" for the NaN a missing
// monitor reports.
func reading(st lipgloss.Style, v float32, format string) string {
	if v != v {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("absent")
	}
	return st.Render(fmt.Sprintf(format, v))
}
