package main

import (
	"flag"
	"fmt"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"github.com/paddlefish-ml/paddlefish/backends"
	_ "github.com/paddlefish-ml/paddlefish/backends/default"
	"github.com/paddlefish-ml/paddlefish/pkg/core/dtypes"
	"github.com/paddlefish-ml/paddlefish/pkg/core/ops"
	"github.com/paddlefish-ml/paddlefish/pkg/core/shapes"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"time"
)

var (
	flagBackend = flag.String("backend", "", "Backend configuration to use, e.g. \"cpu\". "+
		"It takes precedence over the PADDLEFISH_BACKEND environment variable.")
	flagBench = flag.Bool("bench", false, "Micro-benchmark each kernel of the selected backend "+
		"instead of listing the operator registry.")
	flagSize = flag.Int("size", 1_000_000, "Number of elements of the benchmark tensors, "+
		"rounded down to a square matrix.")
	flagReps = flag.Int("reps", 16, "Repetitions per kernel in the benchmark.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if flag.NArg() > 0 {
		klog.Errorf("Unexpected arguments %q. See 'paddlefish_ops -help'.", flag.Args())
		os.Exit(1)
	}

	var backend backends.Backend
	if *flagBackend != "" {
		backend = backends.NewWithConfig(*flagBackend)
	} else {
		backend = backends.New()
	}
	defer backend.Finalize()

	if *flagBench {
		bench(backend)
		return
	}
	listOperators(backend)
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == 1 {
				s = headerRowStyle
				return
			}
			switch {
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

func listOperators(backend backends.Backend) {
	fmt.Println(titleStyle.Render("Registered Operators"))
	table := newPlainTable(true)
	table.Row("Operator", "Inputs", "Outputs", "Attributes", "Gradient")
	for _, name := range ops.List() {
		def := ops.MustGet(name)
		grad := "-"
		if def.HasGrad() {
			grad = "yes"
		}
		table.Row(name,
			strings.Join(def.Inputs, ", "),
			strings.Join(def.Outputs, ", "),
			strings.Join(def.Attrs, ", "),
			grad)
	}
	fmt.Println(table.Render())
	fmt.Printf("Backend: %s\n", backend.Description())
}

// benchCase is one kernel measured by the -bench report. Each run produces a fresh output
// buffer, returned so the driver can finalize it between repetitions.
type benchCase struct {
	name     string
	elements int
	bytes    int
	run      func() (backends.Buffer, error)
}

func bench(backend backends.Backend) {
	// Square inputs so Transpose and MatMul have a natural layout to work on.
	dim := int(math.Sqrt(float64(*flagSize)))
	if dim < 2 {
		klog.Errorf("-size=%d is too small to benchmark, need at least 4 elements.", *flagSize)
		os.Exit(1)
	}
	elements := dim * dim
	mmDim := min(dim, 256)

	x := randomBuffer(backend, dim, dim)
	y := randomBuffer(backend, dim, dim)
	a := randomBuffer(backend, mmDim, mmDim)
	b := randomBuffer(backend, mmDim, mmDim)
	defer func() {
		for _, buffer := range []backends.Buffer{x, y, a, b} {
			must.M(backend.BufferFinalize(buffer))
		}
	}()

	const f32Bytes = 4
	cases := []benchCase{
		{"Reshape", elements, 2 * f32Bytes * elements,
			func() (backends.Buffer, error) { return backend.Reshape(x, elements) }},
		{"Transpose", elements, 2 * f32Bytes * elements,
			func() (backends.Buffer, error) { return backend.Transpose(x, 1, 0) }},
		{"Add", elements, 3 * f32Bytes * elements,
			func() (backends.Buffer, error) { return backend.Add(x, y) }},
		{"Mul", elements, 3 * f32Bytes * elements,
			func() (backends.Buffer, error) { return backend.Mul(x, y) }},
		{"Scale", elements, 2 * f32Bytes * elements,
			func() (backends.Buffer, error) { return backend.Scale(x, 1.0001, 0.5) }},
		{"Exp", elements, 2 * f32Bytes * elements,
			func() (backends.Buffer, error) { return backend.Exp(x) }},
		{"ReduceSum", elements, f32Bytes * (elements + 1),
			func() (backends.Buffer, error) { return backend.ReduceSum(x) }},
		{"MatMul", mmDim * mmDim, 3 * f32Bytes * mmDim * mmDim,
			func() (backends.Buffer, error) { return backend.MatMul(a, b, false, false) }},
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Kernel benchmark: %s elements (%s), %d reps, backend %q",
		humanize.Comma(int64(elements)), humanize.Bytes(uint64(f32Bytes*elements)), *flagReps, backend.Name())))
	bar := progressbar.Default(int64(len(cases)**flagReps), "Benchmarking kernels")
	elapsed := make([]time.Duration, len(cases))
	for caseIdx, bc := range cases {
		for rep := 0; rep < *flagReps; rep++ {
			start := time.Now()
			out := must.M1(bc.run())
			elapsed[caseIdx] += time.Since(start)
			must.M(backend.BufferFinalize(out))
			_ = bar.Add(1)
		}
	}
	_ = bar.Finish()

	table := newPlainTable(true)
	table.Row("Kernel", "Elements/op", "Time/op", "Throughput", "Bandwidth")
	for caseIdx, bc := range cases {
		perOp := elapsed[caseIdx] / time.Duration(*flagReps)
		perSecond := float64(bc.elements) / perOp.Seconds()
		bandwidth := float64(bc.bytes) / perOp.Seconds()
		table.Row(bc.name,
			humanize.Comma(int64(bc.elements)),
			perOp.Round(time.Microsecond).String(),
			humanize.SI(perSecond, "el/s"),
			humanize.Bytes(uint64(bandwidth))+"/s")
	}
	fmt.Println(table.Render())
}

// randomBuffer creates a Float32 device buffer of the given dimensions filled with uniform
// values in [0, 1).
func randomBuffer(backend backends.Backend, dimensions ...int) backends.Buffer {
	shape := shapes.Make(dtypes.Float32, dimensions...)
	flat := make([]float32, shape.Size())
	for idx := range flat {
		flat[idx] = rand.Float32()
	}
	return must.M1(backend.BufferFromFlatData(0, flat, shape))
}
