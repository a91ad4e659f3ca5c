// Package conncomp runs the complete region bridging workflow over one
// unwrapped interferogram: it labels the valid regions, bridges them along a
// minimum spanning tree rooted at the reference region, and removes the
// integer-cycle offsets between them.
//
// The workflow consists of three steps, each exposed as a method so callers
// can inspect intermediate results:
// 1. Label: clean up the validity mask into regions and their boundaries
// 2. FindMSTBridge: find the shortest bridges and order them from the reference region
// 3. UnwrapConnComp: apply the phase corrections along the bridges
package conncomp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"unwbridge/internal/models"
	"unwbridge/pkg/bridge"
	"unwbridge/pkg/labeling"
	"unwbridge/pkg/ramp"
	"unwbridge/pkg/raster"
	"unwbridge/pkg/stitch"
)

// ErrNotLabeled indicates a step was called before its prerequisite.
var ErrNotLabeled = errors.New("conncomp: regions not labeled yet")

// ErrNoBridges indicates UnwrapConnComp was called before FindMSTBridge.
var ErrNoBridges = errors.New("conncomp: bridges not computed yet")

// Params holds the bridging parameters.
type Params struct {
	// MinArea is the smallest region kept during cleanup, in pixels.
	// The effective threshold is min(MinArea, 0.3% of the image).
	MinArea float64

	// ErosionSize is the side of the square element used to drop thin regions
	// and to pull bridge endpoints inside each region.
	ErosionSize int

	// Workers is the number of goroutines used to compare region pairs.
	Workers int

	// SpanningTree selects the MST algorithm, "kruskal" (default) or "prim".
	SpanningTree string

	// Radius is the requested half size of the phase sampling window.
	Radius int

	// RampType, when set, removes a ramp fitted over the reference region
	// before stitching and restores it afterwards.
	RampType string

	// Logger receives stage progress. Nil discards.
	Logger *log.Logger
}

// DefaultParams returns the standard bridging parameters.
func DefaultParams() Params {
	lo := labeling.DefaultOptions()
	bo := bridge.DefaultOptions()
	so := stitch.DefaultOptions()
	return Params{
		MinArea:      lo.MinArea,
		ErosionSize:  lo.ErosionSize,
		Workers:      bo.Workers,
		SpanningTree: "kruskal",
		Radius:       so.Radius,
	}
}

// ConnectComponent holds one bridging run and its intermediate results.
type ConnectComponent struct {
	params Params
	logger *log.Logger

	mask *raster.Mask
	meta raster.Metadata

	// set by Label
	labeled  *labeling.Result
	refLabel int

	// set by FindMSTBridge
	graph   *bridge.Graph
	bridges []bridge.Bridge
}

// NewConnectComponent prepares a run over mask. meta supplies the image
// shape and, optionally, the reference pixel.
func NewConnectComponent(mask *raster.Mask, meta raster.Metadata, params Params) (*ConnectComponent, error) {
	if mask == nil {
		return nil, labeling.ErrInvalidMask
	}
	if meta.Length == 0 && meta.Width == 0 {
		meta.Length, meta.Width = mask.Length, mask.Width
	}
	if !raster.SameShape(meta.Length, meta.Width, mask.Length, mask.Width) {
		return nil, fmt.Errorf("%w: metadata %dx%d, mask %dx%d", raster.ErrShape,
			meta.Length, meta.Width, mask.Length, mask.Width)
	}
	logger := params.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &ConnectComponent{
		params: params,
		logger: logger,
		mask:   mask,
		meta:   meta,
	}, nil
}

// Label cleans up the mask into regions and picks the reference region.
func (c *ConnectComponent) Label(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	c.logger.Info("Step 1: labeling regions", "size", fmt.Sprintf("%dx%d", c.mask.Length, c.mask.Width))

	res, err := labeling.Label(c.mask, labeling.Options{
		MinArea:     c.params.MinArea,
		ErosionSize: c.params.ErosionSize,
		Logger:      c.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to label regions: %w", err)
	}
	if res.NumLabel == 0 {
		return labeling.ErrNoRegions
	}

	ref, err := labeling.ReferenceLabel(res.Labels, c.meta)
	if err != nil {
		return fmt.Errorf("failed to pick reference region: %w", err)
	}

	c.labeled = res
	c.refLabel = ref
	c.graph = nil
	c.bridges = nil
	c.logger.Info("labeled regions", "regions", res.NumLabel, "dropped", len(res.Dropped),
		"reference", ref, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// FindMSTBridge finds the closest boundary pixels between every pair of
// regions and orders the minimum spanning tree bridges from the reference region.
func (c *ConnectComponent) FindMSTBridge(ctx context.Context) error {
	if c.labeled == nil {
		return ErrNotLabeled
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	c.logger.Info("Step 2: finding bridges", "regions", c.labeled.NumLabel, "method", c.spanningTreeName())

	span, err := bridge.SpanningTreeByName(c.params.SpanningTree)
	if err != nil {
		return err
	}

	g, err := bridge.FindAll(ctx, c.labeled.Boundary, c.labeled.NumLabel, bridge.Options{
		Workers: c.params.Workers,
		Index:   bridge.NewKDIndex,
	})
	if err != nil {
		return fmt.Errorf("failed to measure region distances: %w", err)
	}

	bridges, err := bridge.Order(g, c.refLabel, span)
	if err != nil {
		return fmt.Errorf("failed to order bridges: %w", err)
	}

	c.graph = g
	c.bridges = bridges
	for _, b := range bridges {
		c.logger.Debug("bridge", "bridge", b.String(), "distance", c.distance(b))
	}
	c.logger.Info("found bridges", "bridges", len(bridges), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// UnwrapConnComp corrects field along the bridges. The reference pixel from
// the metadata, if any, is used for normalization. On undefined corrections
// the result is returned together with the error.
func (c *ConnectComponent) UnwrapConnComp(ctx context.Context, field *raster.Field) (*stitch.Result, error) {
	if c.labeled == nil {
		return nil, ErrNotLabeled
	}
	if c.bridges == nil {
		return nil, ErrNoBridges
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	c.logger.Info("Step 3: stitching regions", "bridges", len(c.bridges))

	res, err := stitch.Stitch(field, c.labeled.Labels, c.bridges, stitch.Options{
		Radius:         c.params.Radius,
		RampType:       c.params.RampType,
		Reference:      c.meta.Ref,
		ReferenceLabel: c.refLabel,
		Deramp:         ramp.Deramp,
		Metadata:       &c.meta,
		Logger:         c.logger,
	})
	if res == nil {
		return nil, fmt.Errorf("failed to stitch regions: %w", err)
	}
	if err != nil {
		c.logger.Warn("some regions were not corrected", "failed", res.Failed)
	}
	c.logger.Info("stitched regions", "radius", res.Radius, "elapsed", time.Since(start).Round(time.Millisecond))
	return res, err
}

// Process runs all three steps over field.
func (c *ConnectComponent) Process(ctx context.Context, field *raster.Field) (*stitch.Result, error) {
	if err := c.Label(ctx); err != nil {
		return nil, err
	}
	if err := c.FindMSTBridge(ctx); err != nil {
		return nil, err
	}
	return c.UnwrapConnComp(ctx, field)
}

// Labels returns the cleaned label image, or nil before Label.
func (c *ConnectComponent) Labels() *raster.Labels {
	if c.labeled == nil {
		return nil
	}
	return c.labeled.Labels
}

// Boundary returns the boundary image, or nil before Label.
func (c *ConnectComponent) Boundary() *raster.Labels {
	if c.labeled == nil {
		return nil
	}
	return c.labeled.Boundary
}

// NumLabel returns the number of regions after cleanup.
func (c *ConnectComponent) NumLabel() int {
	if c.labeled == nil {
		return 0
	}
	return c.labeled.NumLabel
}

// ReferenceLabel returns the region all others are corrected against.
func (c *ConnectComponent) ReferenceLabel() int { return c.refLabel }

// Bridges returns the ordered bridges, or nil before FindMSTBridge.
func (c *ConnectComponent) Bridges() []bridge.Bridge { return c.bridges }

// Metadata returns the run metadata.
func (c *ConnectComponent) Metadata() raster.Metadata { return c.meta }

func (c *ConnectComponent) spanningTreeName() string {
	if c.params.SpanningTree == "" {
		return "kruskal"
	}
	return c.params.SpanningTree
}

func (c *ConnectComponent) distance(b bridge.Bridge) float64 {
	if c.graph == nil {
		return 0
	}
	return c.graph.Records[bridge.MakePair(b.Label0, b.Label1)].Distance
}

// Report summarizes the run. res may be nil if stitching did not run.
func (c *ConnectComponent) Report(res *stitch.Result) *models.Report {
	r := &models.Report{
		Length:         c.meta.Length,
		Width:          c.meta.Width,
		NumLabel:       c.NumLabel(),
		ReferenceLabel: c.refLabel,
		SpanningTree:   c.spanningTreeName(),
		RampType:       c.params.RampType,
		Bridges:        []models.BridgeEntry{},
	}
	if c.meta.Ref != nil {
		r.Reference = &models.Pixel{Y: c.meta.Ref.Y, X: c.meta.Ref.X}
	}
	if c.labeled != nil {
		for _, d := range c.labeled.Dropped {
			r.Dropped = append(r.Dropped, models.DroppedRegion{Label: d.Label, Area: d.Area, Reason: string(d.Reason)})
		}
	}

	jumps := make(map[int]stitch.Jump)
	if res != nil {
		r.Radius = res.Radius
		r.Failed = res.Failed
		for _, j := range res.Jumps {
			jumps[j.Label1] = j
		}
	}
	for _, b := range c.bridges {
		e := models.BridgeEntry{
			Label0:   b.Label0,
			Label1:   b.Label1,
			From:     models.Pixel{Y: b.Y0, X: b.X0},
			To:       models.Pixel{Y: b.Y1, X: b.X1},
			Distance: c.distance(b),
		}
		if j, ok := jumps[b.Label1]; ok {
			e.Diff = j.Diff
			e.NumJump = j.NumJump
			e.Applied = true
		}
		r.TotalDistance += e.Distance
		r.Bridges = append(r.Bridges, e)
	}
	return r
}
