package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/mandel"
	"github.com/gogpu/mandel/internal/config"
)

// app holds what the subcommands share.
type app struct {
	v       *viper.Viper
	cfgFile string
	stdout  io.Writer
	stderr  io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: config.New(), stdout: stdout, stderr: stderr}
	def := mandel.DefaultConfig()

	root := &cobra.Command{
		Use:   "mandel",
		Short: "Render a Mandelbrot image on the GPU",
		Long: `mandel renders a Mandelbrot image with a single Vulkan compute dispatch.

The kernel writes one float RGBA value per pixel into a host-visible
storage buffer; after the completion fence signals the buffer is
mapped and encoded as PNG, BMP or TIFF. Every render uses a new seed.

Settings come from flags, MANDEL_* environment variables and a YAML
config file (mandel.yaml in the working directory or --config).`,
		Version:       mandel.Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runRender,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default ./mandel.yaml)")
	pf.Int("width", def.Width, "image width in pixels")
	pf.Int("height", def.Height, "image height in pixels")
	pf.Int("group-size", def.GroupSize, "work-group edge length the kernel was built for")
	pf.String("kernel", def.Kernel, "kernel file (.spv or .wgsl); empty uses the built-in kernel")
	pf.String("entry-point", def.EntryPoint, "kernel entry point")
	pf.StringP("output", "o", def.Output, "output image (.png, .bmp, .tif, .tiff)")
	pf.String("format", def.Format, "output format, overriding the extension")
	pf.Bool("validation", def.Validation, "enable the Vulkan validation layer")
	pf.Duration("timeout", def.FenceTimeout, "maximum wait for the dispatch to complete (0 uses the default)")
	pf.String("backend", def.Backend, "device backend: vulkan or sim")
	pf.BoolP("verbose", "v", false, "log debug messages")

	for key, flag := range map[string]string{
		config.KeyWidth:        "width",
		config.KeyHeight:       "height",
		config.KeyGroupSize:    "group-size",
		config.KeyKernel:       "kernel",
		config.KeyEntryPoint:   "entry-point",
		config.KeyOutput:       "output",
		config.KeyFormat:       "format",
		config.KeyValidation:   "validation",
		config.KeyFenceTimeout: "timeout",
		config.KeyBackend:      "backend",
		config.KeyVerbose:      "verbose",
	} {
		if err := a.v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(a.devicesCmd(), a.configCmd())
	return root
}

// load resolves the configuration and installs the logger.
func (a *app) load() (config.File, error) {
	f, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return config.File{}, err
	}
	level := slog.LevelInfo
	if f.Verbose {
		level = slog.LevelDebug
	}
	mandel.SetLogger(slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level})))
	return f, nil
}

func (a *app) runRender(cmd *cobra.Command, _ []string) error {
	f, err := a.load()
	if err != nil {
		return err
	}
	cfg := f.Render()

	rep, err := mandel.Render(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	printReport(a.stdout, cfg, rep)
	return nil
}

func printReport(w io.Writer, cfg mandel.Config, rep mandel.Report) {
	p := message.NewPrinter(language.English)
	p.Fprintf(w, "device:   %s (%s, API %s), queue family %d\n",
		rep.Device.Name, rep.Device.Type, rep.Device.APIVersionString(), rep.QueueFamily)
	p.Fprintf(w, "grid:     %d x %d x %d work-groups of %d x %d\n",
		rep.Grid.X, rep.Grid.Y, rep.Grid.Z, cfg.GroupSize, cfg.GroupSize)
	p.Fprintf(w, "buffer:   %d bytes\n", rep.BufferBytes)
	p.Fprintf(w, "pixels:   %d\n", rep.Pixels)
	p.Fprintf(w, "seed:     %d\n", rep.Seed)
	p.Fprintf(w, "elapsed:  %v\n", rep.Elapsed.Round(1e6))
	fmt.Fprintf(w, "wrote %s\n", cfg.Output)
}
