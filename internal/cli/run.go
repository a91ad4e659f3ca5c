package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"unwbridge/pkg/conncomp"
	"unwbridge/pkg/raster"
	"unwbridge/pkg/stitch"
	"unwbridge/pkg/visualization"
)

type runOptions struct {
	mask     string
	phase    string
	rsc      string
	output   string
	refY     int
	refX     int
	minArea  float64
	erosion  int
	workers  int
	tree     string
	radius   int
	ramp     string
	noReport bool
	plot     bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	opts := &runOptions{refY: -1, refX: -1}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Bridge the regions of an unwrapped phase file",
		Long: `Label the valid regions of the mask, connect them along a minimum spanning
tree of shortest bridges and remove the 2π offsets between them.

The phase file is little-endian float32, either single-band or ROI_PAC
two-band line interleaved (amplitude, phase), in which case only the phase
band is read. The output is always single-band. The size and optional
reference pixel (REF_Y, REF_X) come from the ROI_PAC style resource file,
<phase>.rsc by default. The mask is an image (PNG, JPEG, TIFF) or a raw
one-byte-per-pixel file such as a SNAPHU .conncomp.`,
		Example: `  unwbridge run --mask filt.conncomp --phase filt.unw
  unwbridge run --mask mask.png --phase filt.unw --ramp linear --plot -o bridged.unw`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("min-area") {
				cfg.Labeling.MinArea = opts.minArea
			}
			if flags.Changed("erosion-size") {
				cfg.Labeling.ErosionSize = opts.erosion
			}
			if flags.Changed("workers") {
				cfg.Bridging.Workers = opts.workers
			}
			if flags.Changed("spanning-tree") {
				cfg.Bridging.SpanningTree = opts.tree
			}
			if flags.Changed("radius") {
				cfg.Stitching.Radius = opts.radius
			}
			if flags.Changed("ramp") {
				cfg.Stitching.RampType = opts.ramp
			}
			if flags.Changed("no-report") {
				cfg.Output.SaveReport = !opts.noReport
			}
			if flags.Changed("plot") {
				cfg.Output.SavePlot = opts.plot
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runBridging(cmd, opts, cfg.Params(), cfg.Output.SaveReport, cfg.Output.SavePlot)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.mask, "mask", "m", "", "validity mask (image or raw byte file)")
	f.StringVarP(&opts.phase, "phase", "p", "", "unwrapped phase (float32)")
	f.StringVar(&opts.rsc, "rsc", "", "resource file (default: <phase>.rsc)")
	f.StringVarP(&opts.output, "output", "o", "", "output phase file (default: <phase>_bridged<ext>)")
	f.IntVar(&opts.refY, "ref-y", -1, "reference pixel row, overrides the resource file")
	f.IntVar(&opts.refX, "ref-x", -1, "reference pixel column, overrides the resource file")
	f.Float64Var(&opts.minArea, "min-area", 0, "smallest region kept, in pixels")
	f.IntVar(&opts.erosion, "erosion-size", 0, "side of the square erosion element")
	f.IntVar(&opts.workers, "workers", 0, "goroutines comparing region pairs")
	f.StringVar(&opts.tree, "spanning-tree", "", "MST algorithm: kruskal or prim")
	f.IntVar(&opts.radius, "radius", 0, "half size of the phase sampling window")
	f.StringVar(&opts.ramp, "ramp", "", "ramp removed before stitching: linear, quadratic, linear_range, ...")
	f.BoolVar(&opts.noReport, "no-report", false, "do not write the YAML report")
	f.BoolVar(&opts.plot, "plot", false, "write a PNG plot of regions and bridges")
	_ = cmd.MarkFlagRequired("mask")
	_ = cmd.MarkFlagRequired("phase")

	return cmd
}

func runBridging(cmd *cobra.Command, opts *runOptions, params conncomp.Params, saveReport, savePlot bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	start := time.Now()

	meta, err := loadMetadata(opts)
	if err != nil {
		return err
	}
	mask, err := loadMask(opts.mask, &meta)
	if err != nil {
		return err
	}
	if opts.refY >= 0 || opts.refX >= 0 {
		if opts.refY < 0 || opts.refX < 0 {
			return fmt.Errorf("--ref-y and --ref-x must be given together")
		}
		meta.SetReference(raster.Point{Y: opts.refY, X: opts.refX})
	}

	field, err := raster.ReadField(opts.phase, meta.Length, meta.Width)
	if err != nil {
		return err
	}
	logger.Info("loaded inputs", "phase", opts.phase, "mask", opts.mask, "size", fmt.Sprintf("%dx%d", meta.Length, meta.Width))

	params.Logger = logger
	cc, err := conncomp.NewConnectComponent(mask, meta, params)
	if err != nil {
		return err
	}
	res, runErr := cc.Process(ctx, field)
	if res == nil {
		return runErr
	}

	output := opts.output
	if output == "" {
		ext := filepath.Ext(opts.phase)
		output = strings.TrimSuffix(opts.phase, ext) + "_bridged" + ext
	}
	if err := writeOutputs(cc, res, meta, output, saveReport, savePlot); err != nil {
		return errors.Join(runErr, err)
	}

	logger.Info("bridging complete", "output", output, "regions", cc.NumLabel(),
		"bridges", len(cc.Bridges()), "elapsed", time.Since(start).Round(time.Millisecond))
	return runErr
}

func loadMetadata(opts *runOptions) (raster.Metadata, error) {
	path := opts.rsc
	if path == "" {
		path = opts.phase + ".rsc"
	}
	attrs, err := raster.ReadRSC(path)
	if err != nil {
		if opts.rsc == "" && errors.Is(err, os.ErrNotExist) {
			// Shape will come from an image mask.
			return raster.Metadata{}, nil
		}
		return raster.Metadata{}, fmt.Errorf("failed to read resource file: %w", err)
	}
	return raster.ParseMetadata(attrs)
}

// loadMask reads an image mask, or a raw byte mask sized by meta. meta gets
// the image size when it has none.
func loadMask(path string, meta *raster.Metadata) (*raster.Mask, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		mask, err := raster.ReadMaskImage(path)
		if err != nil {
			return nil, err
		}
		if meta.Length == 0 && meta.Width == 0 {
			meta.Length, meta.Width = mask.Length, mask.Width
			meta.Attributes = map[string]string{
				"LENGTH": strconv.Itoa(mask.Length),
				"WIDTH":  strconv.Itoa(mask.Width),
			}
		}
		return mask, nil
	default:
		if meta.Length == 0 || meta.Width == 0 {
			return nil, fmt.Errorf("raw mask %s needs a resource file with LENGTH and WIDTH", path)
		}
		return raster.ReadMaskRaw(path, meta.Length, meta.Width)
	}
}

func writeOutputs(cc *conncomp.ConnectComponent, res *stitch.Result, meta raster.Metadata, output string, saveReport, savePlot bool) error {
	if err := raster.WriteField(output, res.Field); err != nil {
		return err
	}
	if meta.Attributes != nil {
		if err := raster.WriteRSC(output+".rsc", meta.Attributes); err != nil {
			return err
		}
	}

	base := strings.TrimSuffix(output, filepath.Ext(output))
	if saveReport {
		data, err := yaml.Marshal(cc.Report(res))
		if err != nil {
			return fmt.Errorf("error marshaling report: %w", err)
		}
		if err := os.WriteFile(base+"_report.yaml", data, 0644); err != nil {
			return fmt.Errorf("error writing report: %w", err)
		}
	}
	if savePlot {
		v := visualization.NewViewer(cc.Labels(), cc.Bridges(), res.Radius, meta.Ref)
		if err := visualization.SaveImage(v.Render(), base+"_bridges.png"); err != nil {
			return fmt.Errorf("error writing plot: %w", err)
		}
		phase := v.Overlay(visualization.RenderPhase(res.Field))
		if err := visualization.SaveImage(phase, base+"_phase.png"); err != nil {
			return fmt.Errorf("error writing plot: %w", err)
		}
	}
	return nil
}
