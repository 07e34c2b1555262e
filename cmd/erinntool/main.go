// erinntool is a CLI utility for inspecting and exporting client world regions.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/Faultbox/erinn/internal/config"
	"github.com/Faultbox/erinn/internal/export"
	"github.com/Faultbox/erinn/internal/logger"
	"github.com/Faultbox/erinn/internal/session"
	"github.com/Faultbox/erinn/pkg/formats"
)

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(cfg, args)
	case "dump":
		cmdDump(cfg, args)
	case "data":
		cmdData(cfg)
	case "terrain":
		cmdTerrain(cfg, args)
	case "props":
		cmdProps(cfg, args)
	case "tex":
		cmdTex(args)
	case "export":
		cmdExport(cfg, args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`erinntool - world region utility

Usage:
  erinntool [flags] <command> [args]

Commands:
  info [file.rgn]              Show region summary
  dump [file.rgn] [area]       Dump the decoded region tree
  data                         Load the data folder and report each database
  terrain [file.rgn]           Build terrain batches and report materials
  props [file.rgn]             Place props and report models
  tex <file.dds>               Show texture header
  export [file.rgn] <out.glb>  Export terrain and props to glTF

Flags:
  -config <file>   Config file
  -data <dir>      Client data folder
  -region <file>   Default region file
  -scale <f>       World scale
  -uv <mode>       Terrain UV mode: quarter, grid or stored
  -events          Also place event props
  -disabled        Also place props of disabled features
  -debug           Debug logging

Examples:
  erinntool info world/uladh/tir.rgn
  erinntool -data ./data terrain world/uladh/tir.rgn
  erinntool -data ./data -events export world/uladh/tir.rgn tir.glb`)
}

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", a...)
	os.Exit(1)
}

// regionArg returns args[0] or the configured region.
func regionArg(cfg *config.Config, args []string) (string, []string) {
	if len(args) > 0 && strings.EqualFold(filepath.Ext(args[0]), ".rgn") {
		return args[0], args[1:]
	}
	if cfg.Data.Region == "" {
		fail("no region given")
	}
	return cfg.Data.Region, args
}

func readRegion(path string) *formats.Region {
	region, err := formats.ParseRegionFile(path)
	if err != nil {
		fail("%v", err)
	}
	return region
}

func cmdInfo(cfg *config.Config, args []string) {
	path, _ := regionArg(cfg, args)
	region := readRegion(path)

	fmt.Printf("Region:   %s\n", region.Name)
	fmt.Printf("Revision: %s\n", region.Version)
	fmt.Printf("Areas:    %d\n", len(region.Areas))
	fmt.Printf("Props:    %d\n", region.PropCount())
	fmt.Println()

	for i := range region.Areas {
		a := &region.Areas[i]
		hidden, flat := 0, 0
		for j := range a.AreaPlanes {
			switch {
			case a.AreaPlanes[j].Hidden():
				hidden++
			case a.AreaPlanes[j].Flat():
				flat++
			}
		}
		fmt.Printf("  %-24s %3dx%-3d planes=%-5d hidden=%-4d flat=%-4d props=%d\n",
			a.Name, a.PlaneX, a.PlaneY, len(a.AreaPlanes), hidden, flat, len(a.Props))
	}
}

func cmdDump(cfg *config.Config, args []string) {
	path, rest := regionArg(cfg, args)
	region := readRegion(path)

	dumper := spew.NewDefaultConfig()
	dumper.DisableCapacities = true
	dumper.DisablePointerAddresses = true
	dumper.Indent = "  "

	if len(rest) == 0 {
		fmt.Print(dumper.Sdump(region))
		return
	}
	for i := range region.Areas {
		if strings.EqualFold(region.Areas[i].Name, rest[0]) {
			fmt.Print(dumper.Sdump(&region.Areas[i]))
			return
		}
	}
	fail("area %q not found", rest[0])
}

func openSession(cfg *config.Config) *session.Session {
	if cfg.Data.Root == "" {
		fail("%v: use -data or set data.root", session.ErrNoDataPath)
	}
	s, err := session.New(cfg, logger.Named("session"))
	if err != nil {
		fail("%v", err)
	}
	report, err := s.LoadData(cfg.Data.Root)
	if err != nil {
		fail("%v", err)
	}
	for source, err := range report.Failed {
		logger.Warn("data source failed", zap.String("source", source), zap.Error(err))
	}
	return s
}

func cmdData(cfg *config.Config) {
	s := openSession(cfg)
	defer s.Close()
	dbs := s.Databases()

	fmt.Printf("Data:  %s\n", s.DataRoot())
	if setting, ok := dbs.Features.Selected(); ok {
		fmt.Printf("Setting: %s (%s)\n", setting.Name, setting.Locale)
	}
	fmt.Println()
	fmt.Printf("  %-16s %d\n", "props", dbs.Props.Len())
	fmt.Printf("  %-16s %d\n", "materials", dbs.Materials.Len())
	fmt.Printf("  %-16s %d\n", "render states", dbs.RenderStates.Len())
	materials, states, texMats := dbs.Render.Counts()
	fmt.Printf("  %-16s %d/%d/%d\n", "render tables", materials, states, texMats)
	fmt.Printf("  %-16s %d\n", "tiles", dbs.Tiles.Len())
	fmt.Printf("  %-16s %d\n", "features", dbs.Features.Len())
	fmt.Printf("  %-16s %d\n", "localization", dbs.Local.Len())
	fmt.Printf("  %-16s %d\n", "minimaps", dbs.MiniMaps.Len())
	w, h := dbs.Palette.Size()
	fmt.Printf("  %-16s %dx%d\n", "palette", w, h)
}

func loadRegion(cfg *config.Config, args []string) (*session.Session, []string) {
	path, rest := regionArg(cfg, args)
	s := openSession(cfg)
	if err := s.LoadRegion(path); err != nil {
		fail("%v", err)
	}
	return s, rest
}

func cmdTerrain(cfg *config.Config, args []string) {
	s, _ := loadRegion(cfg, args)
	defer s.Close()

	batches, err := s.BuildTerrain()
	if err != nil {
		fail("%v", err)
	}

	flat, tris := 0, 0
	materials := make(map[string]int)
	for i := range batches {
		if batches[i].Flat {
			flat++
		}
		tris += batches[i].TriangleCount()
		name := "(none)"
		if m := batches[i].Material; m != nil {
			name = m.Name
		}
		materials[name]++
	}

	fmt.Printf("Batches:   %d (%d flat)\n", len(batches), flat)
	fmt.Printf("Triangles: %d\n", tris)
	fmt.Println()
	fmt.Println("Materials:")
	names := make([]string, 0, len(materials))
	for name := range materials {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return materials[names[i]] > materials[names[j]]
	})
	for _, name := range names {
		fmt.Printf("  %-32s %d\n", name, materials[name])
	}

	stats := s.Materials().Stats()
	fmt.Println()
	fmt.Printf("Resolved %d materials, %d textures, %d misses\n", stats.Materials, stats.Textures, stats.Misses)
}

func cmdProps(cfg *config.Config, args []string) {
	s, _ := loadRegion(cfg, args)
	defer s.Close()

	report, err := s.SpawnProps(s.SpawnOptions())
	if err != nil {
		fail("%v", err)
	}

	fmt.Printf("Instances: %d\n", len(report.Instances))
	fmt.Printf("Models:    %d loaded, %d cloned\n", report.Loaded, report.Cloned)
	fmt.Printf("Skipped:   %d unknown, %d filtered, %d failed\n", report.Unknown, report.Filtered, report.Failed)
}

func cmdTex(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: erinntool tex <file.dds>")
		os.Exit(1)
	}
	tex, err := formats.ParseDDSFile(args[0])
	if err != nil {
		fail("%v", err)
	}
	fmt.Printf("Size:    %dx%d\n", tex.Width, tex.Height)
	fmt.Printf("Format:  %s (codec %q)\n", tex.Format, tex.Codec)
	fmt.Printf("Payload: %d bytes (top level %d)\n", len(tex.Payload), tex.ExpectedPayloadSize())
}

func cmdExport(cfg *config.Config, args []string) {
	s, rest := loadRegion(cfg, args)
	defer s.Close()
	if len(rest) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: erinntool export [file.rgn] <out.glb>")
		os.Exit(1)
	}
	out := rest[0]

	batches, err := s.BuildTerrain()
	if err != nil {
		fail("%v", err)
	}
	report, err := s.SpawnProps(s.SpawnOptions())
	if err != nil {
		fail("%v", err)
	}

	w := export.NewWriter(export.Options{DoubleSided: cfg.Export.DoubleSided})
	w.AddTerrain(batches)
	w.AddProps(report.Instances)

	binary := cfg.Export.Binary
	switch strings.ToLower(filepath.Ext(out)) {
	case ".glb":
		binary = true
	case ".gltf":
		binary = false
	}
	if err := w.Save(out, binary); err != nil {
		fail("%v", err)
	}
	logger.Info("exported",
		zap.String("file", out),
		zap.Int("batches", len(batches)),
		zap.Int("props", len(report.Instances)))
}
