// kcltool is a CLI utility for working with KCL track collision files.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/Faultbox/kcltool/internal/config"
	"github.com/Faultbox/kcltool/internal/logger"
	"github.com/Faultbox/kcltool/pkg/kcl"
	"github.com/Faultbox/kcltool/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "query", "q":
		cmdQuery(args)
	case "drop":
		cmdDrop(args)
	case "rebuild":
		cmdRebuild(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`kcltool - KCL track collision file utility

Usage:
  kcltool <command> [options]

Commands:
  info <file.kcl>                 Show mesh and spatial index information
  query <file.kcl> <x> <y> <z>    List prisms containing a point
  drop <file.kcl> <x> <y> <z>     Find the surface below a point
  rebuild <in.kcl> <out.kcl>      Rebuild the spatial index and re-encode

Examples:
  kcltool info course.kcl
  kcltool query course.kcl 1024 50 -2048
  kcltool drop course.kcl 1024 500 -2048
  kcltool rebuild course.kcl course-out.kcl -leaf 8`)
}

func openMesh(path string) *kcl.Mesh {
	m, err := kcl.DecodeFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return m
}

func parsePoint(fs *flag.FlagSet, first int) math.Vec3 {
	var coords [3]float64
	for i := range coords {
		v, err := strconv.ParseFloat(fs.Arg(first+i), 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bad coordinate %q: %v\n", fs.Arg(first+i), err)
			os.Exit(1)
		}
		coords[i] = v
	}
	return math.Vec3{X: float32(coords[0]), Y: float32(coords[1]), Z: float32(coords[2])}
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: kcltool info <file.kcl>")
		os.Exit(1)
	}

	m := openMesh(args[0])

	fmt.Printf("File:       %s\n", args[0])
	fmt.Printf("Positions:  %d\n", len(m.Positions))
	fmt.Printf("Normals:    %d\n", len(m.Normals))
	fmt.Printf("Prisms:     %d\n", len(m.Prisms))
	fmt.Printf("Thickness:  %g\n", m.Thickness)
	fmt.Printf("Radius:     %g\n", m.SphereRadius)

	box := m.BoundingBox()
	fmt.Printf("Bounds:     (%g, %g, %g) .. (%g, %g, %g)\n",
		box.Min.X, box.Min.Y, box.Min.Z, box.Max.X, box.Max.Y, box.Max.Z)

	nx, ny, nz := m.Index.RootDims()
	fmt.Println()
	fmt.Println("Spatial index:")
	fmt.Printf("  Origin:     (%g, %g, %g)\n", m.Index.Origin.X, m.Index.Origin.Y, m.Index.Origin.Z)
	fmt.Printf("  Root grid:  %dx%dx%d cells of %d units\n", nx, ny, nz, uint32(1)<<m.Index.CoordShift)
	fmt.Printf("  Depth:      %d\n", m.Index.Depth())

	if len(m.Prisms) == 0 {
		return
	}

	// Type histogram, largest first.
	counts := m.CountByType()
	type typeStat struct {
		t     kcl.CollisionType
		count int
	}
	var stats []typeStat
	for t, count := range counts {
		stats = append(stats, typeStat{t, count})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].t < stats[j].t
	})

	fmt.Println()
	fmt.Println("Prisms by type:")
	for _, s := range stats {
		fmt.Printf("  %-26s %d\n", s.t, s.count)
	}
}

func cmdQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 4 {
		fmt.Fprintln(os.Stderr, "Usage: kcltool query <file.kcl> <x> <y> <z>")
		os.Exit(1)
	}

	m := openMesh(fs.Arg(0))
	p := parsePoint(fs, 1)

	hits := m.PrismsContaining(p)
	if len(hits) == 0 {
		fmt.Fprintln(os.Stderr, "No prisms contain this point")
		return
	}

	for _, i := range hits {
		pr := m.Prisms[i]
		fmt.Printf("prism %-6d %-26s attr 0x%04X\n", i, pr.Type(), pr.Attribute)
	}
	fmt.Fprintf(os.Stderr, "\n(%d prisms)\n", len(hits))
}

func cmdDrop(args []string) {
	fs := flag.NewFlagSet("drop", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 4 {
		fmt.Fprintln(os.Stderr, "Usage: kcltool drop <file.kcl> <x> <y> <z>")
		os.Exit(1)
	}

	m := openMesh(fs.Arg(0))
	p := parsePoint(fs, 1)

	hit, ok := m.NearestSurface(p, math.Vec3{Y: -1})
	if !ok {
		fmt.Fprintln(os.Stderr, "No surface below this point")
		os.Exit(1)
	}

	pr := m.Prisms[hit.Prism]
	fmt.Printf("prism:    %d (%s, attr 0x%04X)\n", hit.Prism, pr.Type(), pr.Attribute)
	fmt.Printf("point:    (%g, %g, %g)\n", hit.Point.X, hit.Point.Y, hit.Point.Z)
	fmt.Printf("normal:   (%g, %g, %g)\n", hit.Normal.X, hit.Normal.Y, hit.Normal.Z)
	fmt.Printf("distance: %g\n", hit.Distance)
}

func cmdRebuild(args []string) {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	leaf := fs.Int("leaf", 0, "Max prisms per leaf before splitting")
	depth := fs.Int("depth", 0, "Max subdivision depth")
	cell := fs.Uint("cell", 0, "Target root cell width in world units")
	padding := fs.Float64("padding", 0, "Prism bounding box padding")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: kcltool rebuild <in.kcl> <out.kcl> [options]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts := cfg.BuildOptions()
	if *leaf > 0 {
		opts.MaxLeafPrisms = *leaf
	}
	if *depth > 0 {
		opts.MaxDepth = *depth
	}
	if *cell > 0 {
		opts.RootCellWidth = uint32(*cell)
	}
	if *padding > 0 {
		opts.Padding = float32(*padding)
	}

	m := openMesh(fs.Arg(0))
	logger.Info("decoded mesh",
		zap.String("file", fs.Arg(0)),
		zap.Int("prisms", len(m.Prisms)))

	m.RebuildIndex(opts)
	logger.Info("rebuilt spatial index",
		zap.Int("depth", m.Index.Depth()),
		zap.Int("roots", len(m.Index.Roots)))

	data, err := m.Encode()
	if err != nil {
		logger.Error("encode failed", zap.Error(err))
		os.Exit(1)
	}
	if err := os.WriteFile(fs.Arg(1), data, 0644); err != nil {
		logger.Error("write failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("wrote KCL file",
		zap.String("file", fs.Arg(1)),
		zap.Int("bytes", len(data)))
}
