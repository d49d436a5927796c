// Command gifstack encodes raw pixel dumps as GIF images.
//
// Usage:
//
//	gifstack gif -in terminal.rgba -width 720 -height 400 -layout rgba -out terminal.gif
//	gifstack stack -dir push-data -layout rgba -out dynamic.gif
//
// Pixel dumps may be zstd-compressed.
package main

import (
	"cmp"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"

	"github.com/gogpu/gifstack"
	"github.com/gogpu/gifstack/internal/pixel"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "gif":
		err = runGif(args)
	case "stack":
		err = runStack(args)
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		log.Printf("unknown command %q", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("gifstack: %v", err)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: gifstack <gif|stack> [flags]\n")
	fmt.Fprintf(os.Stderr, "run 'gifstack <command> -h' for command flags\n")
}

// commonFlags are shared by both commands.
type commonFlags struct {
	layout      string
	out         string
	transparent string
	maxColors   int
	verbose     bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.layout, "layout", "rgba", "pixel layout: rgb, bgr, rgba or bgra")
	fs.StringVar(&c.out, "out", "", "output GIF file")
	fs.StringVar(&c.transparent, "transparent", "", "transparency color as rrggbb")
	fs.IntVar(&c.maxColors, "colors", 256, "maximum palette size (2-256)")
	fs.BoolVar(&c.verbose, "v", false, "enable debug logging")
}

// setup installs the logger and returns the parsed layout and options.
func (c *commonFlags) setup() (gifstack.Layout, []gifstack.Option, error) {
	if c.verbose {
		gifstack.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}
	if c.out == "" {
		return 0, nil, fmt.Errorf("-out is required")
	}

	layout, err := gifstack.ParseLayout(c.layout)
	if err != nil {
		return 0, nil, err
	}

	opts := []gifstack.Option{gifstack.WithMaxColors(c.maxColors)}
	if c.transparent != "" {
		v, err := strconv.ParseUint(c.transparent, 16, 32)
		if err != nil || len(c.transparent) != 6 {
			return 0, nil, fmt.Errorf("invalid -transparent %q: want rrggbb", c.transparent)
		}
		k := pixel.Unpack(uint32(v))
		opts = append(opts, gifstack.WithTransparencyColor(k.R, k.G, k.B))
	}
	return layout, opts, nil
}

func runGif(args []string) error {
	var (
		c      commonFlags
		fs     = flag.NewFlagSet("gif", flag.ExitOnError)
		in     = fs.String("in", "", "raw pixel dump")
		width  = fs.Int("width", 0, "image width")
		height = fs.Int("height", 0, "image height")
		async  = fs.Bool("async", false, "encode on the worker pool")
	)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	layout, opts, err := c.setup()
	if err != nil {
		return err
	}

	data, err := pixel.LoadRaw(*in)
	if err != nil {
		return err
	}
	g, err := gifstack.NewGif(data, *width, *height, layout, opts...)
	if err != nil {
		return err
	}

	var out []byte
	if *async {
		r := <-g.EncodeAsync()
		out, err = r.Data, r.Err
	} else {
		out, err = g.EncodeSync()
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(c.out, out, 0o644); err != nil {
		return err
	}
	log.Printf("GIF saved to %s (%dx%d, %d bytes)", c.out, *width, *height, len(out))
	return nil
}

// patchName matches N-<layout>-x-y-w-h.dat, optionally with .zst.
var patchName = regexp.MustCompile(`^(\d+)-([A-Za-z]+)-(\d+)-(\d+)-(\d+)-(\d+)\.dat(\.zst)?$`)

type patch struct {
	seq        int
	path       string
	x, y, w, h int
	data       []byte
	err        error
}

func parsePatchName(dir, name string) (patch, bool) {
	m := patchName.FindStringSubmatch(name)
	if m == nil {
		return patch{}, false
	}
	n := make([]int, 5)
	for i, s := range []string{m[1], m[3], m[4], m[5], m[6]} {
		v, err := strconv.Atoi(s)
		if err != nil {
			return patch{}, false
		}
		n[i] = v
	}
	return patch{seq: n[0], path: filepath.Join(dir, name), x: n[1], y: n[2], w: n[3], h: n[4]}, true
}

func runStack(args []string) error {
	var (
		c   commonFlags
		fs  = flag.NewFlagSet("stack", flag.ExitOnError)
		dir = fs.String("dir", "push-data", "directory of N-<layout>-x-y-w-h.dat patches")
	)
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	layout, opts, err := c.setup()
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(*dir)
	if err != nil {
		return err
	}
	var patches []patch
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if p, ok := parsePatchName(*dir, e.Name()); ok {
			patches = append(patches, p)
		}
	}
	slices.SortStableFunc(patches, func(a, b patch) int { return cmp.Compare(a.seq, b.seq) })

	// Load and inflate the dumps in parallel; push order stays sequential.
	pool := gifstack.NewPool(0)
	defer pool.Close()
	jobs := make([]func(), len(patches))
	for i := range patches {
		p := &patches[i]
		jobs[i] = func() { p.data, p.err = pixel.LoadRaw(p.path) }
	}
	pool.ExecuteAll(jobs)

	s, err := gifstack.NewDynamicStack(layout, append(opts, gifstack.WithPool(pool))...)
	if err != nil {
		return err
	}
	for _, p := range patches {
		if p.err != nil {
			return p.err
		}
		if err := s.Push(p.data, p.x, p.y, p.w, p.h); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p.path), err)
		}
	}

	out, err := s.EncodeSync()
	if err != nil {
		return err
	}
	if err := os.WriteFile(c.out, out, 0o644); err != nil {
		return err
	}

	d := s.Dimensions()
	fmt.Printf("GIF located at (%d,%d) with width %d and height %d\n", d.X, d.Y, d.Width, d.Height)
	return nil
}
