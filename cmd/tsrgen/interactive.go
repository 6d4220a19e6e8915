package main

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/image"
	"github.com/jfabienke/3com-packet-driver-sub011/installer"
	"github.com/jfabienke/3com-packet-driver-sub011/pipeline"
	"github.com/jfabienke/3com-packet-driver-sub011/registry"
)

var (
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#005F87"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87CEEB"))
)

type modelState int

const (
	stateSelectNIC modelState = iota
	stateSelectCPU
	stateToggleFlags
	stateInputValues
	stateShowResult
)

type flagOption struct {
	name  string
	set   bool
	apply func(*hardware.Description)
}

type interactiveModel struct {
	reg    *registry.Registry
	state  modelState
	cursor int

	nics  []hardware.NICGeneration
	cpus  []hardware.CPUTier
	flags []flagOption

	nic hardware.NICGeneration
	cpu hardware.CPUTier

	inputs   []textinput.Model
	focusIdx int

	result *pipeline.Result
	err    error
}

func newInteractiveModel(reg *registry.Registry) *interactiveModel {
	m := &interactiveModel{
		reg: reg,
		nics: []hardware.NICGeneration{
			hardware.NICEtherLinkIII, hardware.NICCorkscrew, hardware.NICVortex,
			hardware.NICBoomerang, hardware.NICCyclone, hardware.NICTornado,
		},
		cpus: []hardware.CPUTier{
			hardware.Tier8086, hardware.Tier286, hardware.Tier386,
			hardware.Tier486, hardware.TierPentium,
		},
	}
	m.flags = []flagOption{
		{name: "chipset DMA safe", apply: func(d *hardware.Description) { d.Platform |= hardware.PlatformDMASafe }},
		{name: "PCI bus present", apply: func(d *hardware.Description) { d.Platform |= hardware.PlatformPCIPresent }},
		{name: "ISA DMA controller", apply: func(d *hardware.Description) { d.Platform |= hardware.PlatformISADMA }},
		{name: "VDS services", apply: func(d *hardware.Description) { d.Platform |= hardware.PlatformVDSAvailable }},
		{name: "write-back cache", apply: func(d *hardware.Description) { d.Platform |= hardware.PlatformWriteBackCache }},
		{name: "request bus mastering", apply: func(d *hardware.Description) { d.BusMasterRequested = true }},
		{name: "bounce buffers needed", apply: func(d *hardware.Description) { d.BounceBuffersNeeded = true }},
		{name: "CPU has CPUID", apply: func(d *hardware.Description) { d.CPUFeatures |= hardware.FeatureCPUID }},
		{name: "CPU has CLFLUSH", apply: func(d *hardware.Description) { d.CPUFeatures |= hardware.FeatureCLFLUSH }},
	}
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) prepareInputs() {
	fields := []struct{ prompt, value string }{
		{"io base (hex): ", "300"},
		{"irq: ", "5"},
		{"mac: ", "00:60:8C:00:00:01"},
	}
	m.inputs = make([]textinput.Model, len(fields))
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = f.prompt
		ti.SetValue(f.value)
		ti.Width = 24
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) listLen() int {
	switch m.state {
	case stateSelectNIC:
		return len(m.nics)
	case stateSelectCPU:
		return len(m.cpus)
	case stateToggleFlags:
		return len(m.flags)
	}
	return 0
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputValues || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.cursor > 0 && m.state != stateInputValues {
				m.cursor--
			}

		case "down", "j":
			if m.cursor < m.listLen()-1 && m.state != stateInputValues {
				m.cursor++
			}

		case " ":
			if m.state == stateToggleFlags {
				m.flags[m.cursor].set = !m.flags[m.cursor].set
				return m, nil
			}

		case "tab":
			if m.state == stateInputValues && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
				return m, nil
			}

		case "enter":
			switch m.state {
			case stateSelectNIC:
				m.nic = m.nics[m.cursor]
				m.state = stateSelectCPU
				m.cursor = 2 // 386 is the common case

			case stateSelectCPU:
				m.cpu = m.cpus[m.cursor]
				m.state = stateToggleFlags
				m.cursor = 0

			case stateToggleFlags:
				m.prepareInputs()
				m.state = stateInputValues

			case stateInputValues:
				return m, m.runPipeline

			case stateShowResult:
				m.state = stateSelectNIC
				m.cursor = 0
				m.result = nil
				m.err = nil
			}

		case "esc":
			switch m.state {
			case stateSelectCPU:
				m.state = stateSelectNIC
			case stateToggleFlags:
				m.state = stateSelectCPU
			case stateInputValues:
				m.state = stateToggleFlags
			case stateShowResult:
				m.state = stateSelectNIC
				m.result = nil
				m.err = nil
			}
			m.cursor = 0
		}

	case resultMsg:
		m.result = msg.res
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputValues {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}
	return m, nil
}

type resultMsg struct {
	res *pipeline.Result
	err error
}

func (m *interactiveModel) runPipeline() tea.Msg {
	desc := hardware.Description{CPU: m.cpu, NIC: m.nic}
	for _, f := range m.flags {
		if f.set {
			f.apply(&desc)
		}
	}

	ioBase, err := strconv.ParseUint(strings.TrimPrefix(m.inputs[0].Value(), "0x"), 16, 16)
	if err != nil {
		return resultMsg{err: fmt.Errorf("bad io base %q", m.inputs[0].Value())}
	}
	irq, err := strconv.ParseUint(m.inputs[1].Value(), 10, 8)
	if err != nil || irq > 15 {
		return resultMsg{err: fmt.Errorf("bad irq %q", m.inputs[1].Value())}
	}
	var mac [6]byte
	if s := m.inputs[2].Value(); s != "" {
		hw, err := net.ParseMAC(s)
		if err != nil || len(hw) != 6 {
			return resultMsg{err: fmt.Errorf("bad mac %q", s)}
		}
		copy(mac[:], hw)
	}
	vals := hardware.ValuesFrom(desc, uint16(ioBase), uint8(irq), hardware.NoDMAChannel, mac, 16)

	res, err := pipeline.Run(pipeline.Request{
		Registry: m.reg,
		Hardware: desc,
		Values:   vals,
		Image:    image.Config{IRQ: uint8(irq)},
		Host:     installer.NewMemHost(0x60000),
		Vectors:  installer.NewMemVectors(),
	})
	return resultMsg{res: res, err: err}
}

func (m *interactiveModel) View() string {
	var b strings.Builder
	b.WriteString(headStyle.Render("TSR image synthesizer"))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectNIC:
		b.WriteString("Detected NIC generation:\n\n")
		for i, g := range m.nics {
			m.writeItem(&b, i, g.String())
		}
		b.WriteString("\n" + dimStyle.Render("↑/↓ select • enter next • q quit"))

	case stateSelectCPU:
		b.WriteString("Detected CPU:\n\n")
		for i, c := range m.cpus {
			m.writeItem(&b, i, c.String())
		}
		b.WriteString("\n" + dimStyle.Render("↑/↓ select • enter next • esc back"))

	case stateToggleFlags:
		b.WriteString("Platform flags:\n\n")
		for i, f := range m.flags {
			mark := "[ ]"
			if f.set {
				mark = "[x]"
			}
			m.writeItem(&b, i, mark+" "+f.name)
		}
		b.WriteString("\n" + dimStyle.Render("space toggle • enter next • esc back"))

	case stateInputValues:
		b.WriteString(fmt.Sprintf("%s %s on %s\n\n",
			labelStyle.Render("building for"), m.nic, m.cpu))
		for _, in := range m.inputs {
			b.WriteString(in.View())
			b.WriteString("\n")
		}
		b.WriteString("\n" + dimStyle.Render("tab next field • enter build • esc back"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errStyle.Render(fmt.Sprintf("Build failed: %v", m.err)))
		} else {
			hdr := m.result.Layout.Header()
			b.WriteString(okStyle.Render("Build succeeded") + "\n\n")
			b.WriteString(fmt.Sprintf("  modules    %d\n", m.result.Selection.Len()))
			b.WriteString(fmt.Sprintf("  image      %d bytes\n", hdr.ImageSize))
			b.WriteString(fmt.Sprintf("  patches    %d (+%d relocations)\n",
				m.result.PatchCount, m.result.RelocCount))
			b.WriteString(fmt.Sprintf("  installed  base 0x%05X, %d vectors\n",
				m.result.Install.Block.Base(), len(m.result.Install.Vectors)))
			b.WriteString("\n  " + labelStyle.Render("hardware modules") + "\n")
			for _, p := range m.result.Layout.Placements() {
				d := m.reg.Lookup(p.ID)
				if d.Category == registry.CategoryCore {
					continue
				}
				b.WriteString(fmt.Sprintf("    %-18s %-7s 0x%04X\n", p.ID, d.Category, p.Dst))
			}
		}
		b.WriteString("\n\n" + dimStyle.Render("enter restart • q quit"))
	}
	return b.String()
}

func (m *interactiveModel) writeItem(b *strings.Builder, i int, text string) {
	if i == m.cursor {
		b.WriteString(selectedStyle.Render("> " + text))
	} else {
		b.WriteString("  " + text)
	}
	b.WriteString("\n")
}

func runInteractive(reg *registry.Registry) error {
	p := tea.NewProgram(newInteractiveModel(reg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
