package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jfabienke/3com-packet-driver-sub011/hardware"
	"github.com/jfabienke/3com-packet-driver-sub011/image"
	"github.com/jfabienke/3com-packet-driver-sub011/installer"
	"github.com/jfabienke/3com-packet-driver-sub011/pipeline"
	"github.com/jfabienke/3com-packet-driver-sub011/registry"
	"github.com/jfabienke/3com-packet-driver-sub011/selection"
)

var (
	headStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#005F87")).
			Padding(0, 1)

	okStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#90EE90"))
	errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
)

func main() {
	var (
		catalogDir  = flag.String("catalog", "", "Catalog directory (default: built-in catalog)")
		genDir      = flag.String("gen", "", "Write the built-in catalog to a directory and exit")
		hwFile      = flag.String("hw", "", "Hardware profile YAML")
		outFile     = flag.String("o", "", "Write the finished image to a file")
		doInstall   = flag.Bool("install", false, "Simulate the resident install after building")
		dump        = flag.Bool("dump", false, "Dump catalog module headers and exit")
		verbose     = flag.Bool("v", false, "Verbose logging")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	if *verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer log.Sync()
		registry.SetLogger(log.Named("registry"))
		selection.SetLogger(log.Named("selection"))
		image.SetLogger(log.Named("image"))
		installer.SetLogger(log.Named("installer"))
		pipeline.SetLogger(log.Named("pipeline"))
	}

	if *genDir != "" {
		if err := generate(*genDir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	reg, err := loadRegistry(*catalogDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *dump {
		dumpCatalog(reg)
		return
	}

	if *interactive {
		if err := runInteractive(reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *hwFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: tsrgen -hw <profile.yaml> [-catalog dir] [-o image.bin] [-install]")
		fmt.Fprintln(os.Stderr, "       tsrgen -gen <dir>      (write the built-in catalog)")
		fmt.Fprintln(os.Stderr, "       tsrgen -dump           (dump module headers)")
		fmt.Fprintln(os.Stderr, "       tsrgen -i              (interactive mode)")
		os.Exit(1)
	}

	if err := build(reg, *hwFile, *outFile, *doInstall); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func loadRegistry(dir string) (*registry.Registry, error) {
	if dir == "" {
		return registry.NewSynthetic()
	}
	return registry.Load(dir)
}

func generate(dir string) error {
	descs, err := registry.SyntheticCatalog()
	if err != nil {
		return err
	}
	if err := registry.Save(dir, descs); err != nil {
		return err
	}
	fmt.Printf("Wrote %d modules to %s\n", len(descs), dir)
	return nil
}

func build(reg *registry.Registry, hwFile, outFile string, doInstall bool) error {
	profile, err := hardware.LoadProfile(hwFile)
	if err != nil {
		return err
	}
	desc, err := profile.Description()
	if err != nil {
		return err
	}
	vals, err := profile.Values()
	if err != nil {
		return err
	}

	req := pipeline.Request{
		Registry: reg,
		Hardware: desc,
		Values:   vals,
		Image:    image.Config{IRQ: profile.IRQ},
	}
	if doInstall {
		req.Host = installer.NewMemHost(0x60000)
		req.Vectors = installer.NewMemVectors()
	}
	req.Progress = stageProgress(doInstall)

	res, err := pipeline.Run(req)
	if err != nil {
		return err
	}

	printSummary(reg, res)

	if outFile != "" {
		if err := os.WriteFile(outFile, res.Image, 0o644); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
		fmt.Printf("Wrote %d bytes to %s\n", len(res.Image), outFile)
	}
	return nil
}

// stageProgress renders a progress bar over the pipeline states when stdout
// is a terminal.
func stageProgress(withInstall bool) pipeline.Progress {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return nil
	}
	stages := 6
	if withInstall {
		stages = 7
	}
	bar := progressbar.NewOptions(stages,
		progressbar.OptionSetDescription("synthesizing"),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetWidth(24),
	)
	return func(s pipeline.State) {
		if s == pipeline.StateAborted {
			bar.Clear()
			return
		}
		bar.Describe(s.String())
		bar.Add(1)
	}
}

func printSummary(reg *registry.Registry, res *pipeline.Result) {
	fmt.Println(headStyle.Render("Resident image"))
	hdr := res.Layout.Header()
	fmt.Printf("  modules   %d\n", res.Selection.Len())
	fmt.Printf("  size      %d bytes (%d padding)\n", hdr.ImageSize, res.Layout.PaddingTotal())
	fmt.Printf("  patches   %d sites, %d relocations\n", res.PatchCount, res.RelocCount)
	fmt.Printf("  api       int 0x%02X -> 0x%04X\n", hdr.IntNumber, hdr.API)
	fmt.Printf("  irq       %d -> 0x%04X\n", hdr.IRQNumber, hdr.IRQ)
	if hdr.Idle != 0 {
		fmt.Printf("  idle      int 0x%02X -> 0x%04X\n", installer.IdleVector, hdr.Idle)
	}

	fmt.Println(dimStyle.Render("  placements"))
	for _, p := range res.Layout.Placements() {
		d := reg.Lookup(p.ID)
		fmt.Printf("    %-18s %-7s 0x%04X  %5d bytes\n", p.ID, d.Category, p.Dst, p.HotSize)
	}

	if res.Install != nil {
		fmt.Println(okStyle.Render(fmt.Sprintf(
			"Installed at 0x%05X, %d vectors live", res.Install.Block.Base(), len(res.Install.Vectors))))
	}
}

func dumpCatalog(reg *registry.Registry) {
	fmt.Println(headStyle.Render("Module catalog"))

	var ids []string
	reg.All(func(d *registry.Descriptor) bool {
		ids = append(ids, string(d.ID))
		return true
	})
	sort.Strings(ids)

	for _, id := range ids {
		d := reg.Lookup(registry.ID(id))
		h := d.Module.Header
		fmt.Printf("%-18s ref=%-3d %-7s cpu=%-7s nic=%-9s caps=0x%04X\n",
			d.ID, d.Ref, d.Category, d.MinCPU, d.NIC, uint16(d.Caps))
		fmt.Printf("  %s hot [0x%04X,0x%04X) cold [0x%04X,0x%04X) patches=%d size=%d\n",
			dimStyle.Render("sections"),
			h.HotStart, h.HotEnd, h.ColdStart, h.ColdEnd, h.PatchCount, h.ModuleSize)
		if len(d.Exports) > 0 {
			var names []string
			for name := range d.Exports {
				names = append(names, string(name))
			}
			sort.Strings(names)
			var parts []string
			for _, n := range names {
				exp := d.Exports[registry.Entry(n)]
				parts = append(parts, fmt.Sprintf("%s@0x%04X", n, exp.Offset))
			}
			fmt.Printf("  %s %s\n", dimStyle.Render("exports"), strings.Join(parts, " "))
		}
	}
}
