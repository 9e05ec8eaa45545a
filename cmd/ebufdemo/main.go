// Command ebufdemo exercises the buffer engine end to end: create a
// buffer, load a file (or seed it with sample text), edit it, print
// line/column positions, undo, and dump the final page layout. Modeled
// on the teacher's cmd/catalog_demo, a narrated walkthrough rather than
// a production tool.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/qemacs/ebuf/buffer"
	"github.com/qemacs/ebuf/config"
)

func main() {
	path := flag.String("file", "", "file to load (otherwise seeded with sample text)")
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("ebufdemo: %v", err)
		}
	}
	cfg.Apply()

	fmt.Println("=== ebuf text buffer engine demo ===")

	buf := buffer.New("scratch", buffer.FlagSaveLog)
	buf.SetCharset(cfg.Charset())

	if *path != "" {
		fmt.Printf("\n1. Loading %s...\n", *path)
		if err := buf.LoadFile(*path); err != nil {
			log.Fatalf("ebufdemo: load: %v", err)
		}
	} else {
		fmt.Println("\n1. Seeding sample text...")
		sample := []byte("hello, world\nsecond line\n")
		if err := buf.Insert(0, sample); err != nil {
			log.Fatalf("ebufdemo: insert: %v", err)
		}
	}
	fmt.Printf("   size=%d bytes\n", buf.TotalSize())

	fmt.Println("\n2. Registry listing:")
	for _, b := range buffer.DefaultRegistry().List() {
		fmt.Printf("   - %s (%d bytes)\n", b.Name(), b.TotalSize())
	}

	fmt.Println("\n3. Editing: insert \"EDIT \" at offset 7...")
	if err := buf.Insert(7, []byte("EDIT ")); err != nil {
		log.Fatalf("ebufdemo: insert: %v", err)
	}
	preview := make([]byte, buf.TotalSize())
	n := buf.Read(0, preview)
	fmt.Printf("   contents: %q\n", preview[:n])

	line, col := buf.GetPos(12)
	fmt.Printf("\n4. Position of offset 12: line=%d col=%d\n", line, col)

	fmt.Println("\n5. Undoing last edit...")
	cursor, err := buffer.Undo(buf)
	if err != nil {
		log.Fatalf("ebufdemo: undo: %v", err)
	}
	n = buf.Read(0, preview)
	fmt.Printf("   cursor hint=%d contents: %q\n", cursor, preview[:n])

	fmt.Println("\n6. Final dump:")
	buf.Dump(os.Stdout)

	buf.Free()
}
