// Command mimgbuild packages ELF32 executables and raw data files into
// a single memory image, ready to be carried as a multiboot module.
package main

import (
	"flag"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/zipwith/lc-baremetal/builder"
)

func main() {
	var (
		out     = flag.String("o", "", "path to write the memory image")
		verbose = flag.Bool("v", false, "log a description of the image after building it")
	)
	flag.Usage = func() {
		os.Stderr.WriteString("usage: mimgbuild -o OUTPUT [entry@ADDR] [FILE|FILE@ADDR|noload:FILE|zero:FIRST-LAST|bootdata:FIRST-LAST|reserved:FIRST-LAST] ...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *out == "" {
		log.Fatal("-o not specified")
	}

	img := builder.NewImage()
	if err := builder.ProcessArgs(img, flag.Args(), os.ReadFile); err != nil {
		log.Fatalf("building image: %v", err)
	}

	raw, err := img.Serialize()
	if err != nil {
		log.Fatalf("serializing image: %v", err)
	}

	if *verbose {
		log.Info(img.Describe())
	}

	if err := os.WriteFile(*out, raw, 0666); err != nil {
		log.Fatalf("writing %s: %v", *out, err)
	}

	log.Infof("wrote %s (%d bytes)", *out, len(raw))
}
