package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagData     = flag.String("data", "", "Client data folder")
	flagRegion   = flag.String("region", "", "Region file")
	flagScale    = flag.Float64("scale", 0, "World scale (source millimetres to scene units)")
	flagUV       = flag.String("uv", "", "Terrain UV mode: quarter, grid or stored")
	flagEvents   = flag.Bool("events", false, "Also place event props")
	flagDisabled = flag.Bool("disabled", false, "Also place props of disabled features")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// Args returns the arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagData != "" {
		cfg.Data.Root = *flagData
	}
	if *flagRegion != "" {
		cfg.Data.Region = *flagRegion
	}
	if *flagScale > 0 {
		cfg.Terrain.WorldScale = float32(*flagScale)
	}
	if *flagUV != "" {
		cfg.Terrain.UVMode = *flagUV
	}
	if *flagEvents {
		cfg.Props.SpawnEvent = true
	}
	if *flagDisabled {
		cfg.Props.SpawnDisabled = true
	}
}
