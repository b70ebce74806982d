package main

import (
	"flag"

	"github.com/mxfidx/gomxf"
)

var (
	configPath  = flag.String("config", "", "path to a YAML config file; explicit flags below override its values")
	n           = flag.Int("n", -1, "klv elements to read")
	showFill    = flag.Bool("f", false, "show Fill-Item")
	showUnKnown = flag.Bool("u", false, "show Unknown KLV")
	roi         = flag.Int("roi", -1, "region of interest: dump a single klv by index")
	showRaw     = flag.Bool("raw", false, "show raw bytes for the region of interest")
	asSets      = flag.Bool("sets", false, "parse the region of interest as local sets")
	index       = flag.Int64("index", -1, "edit unit to look up in the file's index table")
	subItem     = flag.Int("sub", 0, "sub-item to resolve when looking up an edit unit")
	reorder     = flag.Bool("reorder", true, "apply temporal reordering when looking up an edit unit")
)

func main() {
	flag.Parse()
	filename := flag.Arg(0)

	var cfg *gomxf.Config
	if *configPath != "" {
		loaded, err := gomxf.LoadConfig(*configPath)
		if err != nil {
			panic(err)
		}
		cfg = loaded
	} else {
		cfg = gomxf.DefaultConfig()
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "n":
			cfg.NRead = *n
		case "u":
			cfg.ShowUnKnown = *showUnKnown
		case "f":
			cfg.ShowFill = *showFill
		case "roi":
			cfg.ROI = *roi
		case "raw":
			cfg.ShowRaw = *showRaw
		case "sets":
			cfg.AsSets = *asSets
		case "index":
			cfg.Index = *index
		case "sub":
			cfg.SubItem = *subItem
		case "reorder":
			cfg.Reorder = *reorder
		}
	})

	if err := gomxf.View(filename, cfg); err != nil {
		panic(err)
	}
}
