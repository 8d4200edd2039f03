// Command mimgload is a demonstration and integration-test harness for
// the loader package: it simulates a multiboot environment, places a
// memory image file into a flat physical address space as the sole
// boot module, validates it, and runs the load algorithm. It never
// transfers control to the loaded entry point — that belongs to the
// assembly stub a real bootstrap would provide.
package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/zipwith/lc-baremetal/loader"
	"github.com/zipwith/lc-baremetal/physmem"
)

func main() {
	var (
		module     = flag.String("module", "", "path to the memory image to load")
		base       = flag.Uint("base", 0x100000, "physical address the module is placed at")
		memSize    = flag.Uint("memsize", 0x2000000, "size in bytes of the simulated physical address space")
		lowerKB    = flag.Uint("lower", 640, "MBI mem_lower, in KiB")
		upperKB    = flag.Uint("upper", 0, "MBI mem_upper, in KiB (0 means derive from -memsize)")
		cmdline    = flag.String("cmdline", "", "kernel command line reported in the boot-data block")
		modCmdline = flag.String("modcmdline", "", "boot module command line reported in the boot-data block")
		textStart  = flag.Uint("loader-text", 0, "start of the loader's own footprint, for collision checks")
		bssEnd     = flag.Uint("loader-bss-end", 0, "end of the loader's own footprint, for collision checks")
	)
	flag.Parse()

	if *module == "" {
		log.Fatal("-module not specified")
	}

	raw, err := os.ReadFile(*module)
	if err != nil {
		log.Fatalf("reading %s: %v", *module, err)
	}
	if uint(len(raw)) > *memSize-*base {
		log.Fatalf("module of %d bytes does not fit at 0x%x in a %d-byte space", len(raw), *base, *memSize)
	}

	mem := physmem.New(uint32(*memSize))
	if err := mem.WriteAt(uint32(*base), raw); err != nil {
		log.Fatalf("placing module: %v", err)
	}

	upper := uint32(*upperKB)
	if upper == 0 {
		upper = (uint32(*memSize) - 0x100000) / 1024
	}

	info := loader.Info{
		Flags:      loader.FlagMemValid | loader.FlagModsValid,
		MemLowerKB: uint32(*lowerKB),
		MemUpperKB: upper,
		Modules: []loader.Module{
			// End is the raw, exclusive mod_end a bootstrap would report;
			// ResolveModule converts it to an inclusive finish below.
			{Start: uint32(*base), End: uint32(*base) + uint32(len(raw)), CmdLine: *modCmdline},
		},
	}
	if *cmdline != "" {
		info.Flags |= loader.FlagCmdValid
		info.CmdLine = *cmdline
	}

	mmap, err := loader.MemoryMap(info)
	if err != nil {
		log.Fatalf("computing memory map: %v", err)
	}
	available := loader.AvailableRegions(mmap)

	mod, err := loader.ResolveModule(info)
	if err != nil {
		log.Fatalf("resolving boot module: %v", err)
	}

	fp := loader.Footprint{TextStart: uint32(*textStart), BssEnd: uint32(*bssEnd)}

	entry, err := loader.Validate(mem, mod.Start, mod.End, available, fp)
	if err != nil {
		log.Fatalf("validating image: %v", err)
	}
	log.Infof("image valid, entry point 0x%x", entry)

	boot := loader.BootContext{
		MMap:          mmap,
		CmdLine:       info.CmdLine,
		ModuleCmdLine: mod.CmdLine,
	}
	if err := loader.Load(mem, mod.Start, mod.End, boot); err != nil {
		log.Fatalf("loading image: %v", err)
	}

	log.Infof("loaded %d mmap entries, %d bytes of module at 0x%x", len(mmap), len(raw), mod.Start)
	log.Info("not transferring control: mimgload only validates and loads")
}
