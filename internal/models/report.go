package models

// Pixel is a (row, column) image position
type Pixel struct {
	Y int `yaml:"y"`
	X int `yaml:"x"`
}

// DroppedRegion is a region removed during label cleanup
type DroppedRegion struct {
	// Label is the id the region had when it was removed
	Label int `yaml:"label"`

	// Area is the region size in pixels
	Area int `yaml:"area"`

	// Reason is either "small-area" or "erosion"
	Reason string `yaml:"reason"`
}

// BridgeEntry describes one bridge and the correction applied across it
type BridgeEntry struct {
	Label0   int     `yaml:"label0"`
	Label1   int     `yaml:"label1"`
	From     Pixel   `yaml:"from"`
	To       Pixel   `yaml:"to"`
	Distance float64 `yaml:"distance"`

	// Diff is the median phase difference (child - parent) before correction
	Diff float64 `yaml:"diff"`

	// NumJump is the number of 2π cycles added to the child region
	NumJump int `yaml:"numJump"`

	// Applied is false when the correction was undefined and skipped
	Applied bool `yaml:"applied"`
}

// Report summarizes one bridging run
type Report struct {
	Length int `yaml:"length"`
	Width  int `yaml:"width"`

	// NumLabel is the number of regions left after cleanup
	NumLabel int `yaml:"numLabel"`

	// ReferenceLabel is the region all others are corrected against
	ReferenceLabel int `yaml:"referenceLabel"`

	// Reference is the reference pixel, if the metadata carried one
	Reference *Pixel `yaml:"reference,omitempty"`

	SpanningTree string `yaml:"spanningTree"`
	Radius       int    `yaml:"radius"`
	RampType     string `yaml:"rampType,omitempty"`

	// TotalDistance is the summed length of all bridges in pixels
	TotalDistance float64 `yaml:"totalDistance"`

	Dropped []DroppedRegion `yaml:"dropped,omitempty"`
	Bridges []BridgeEntry   `yaml:"bridges"`

	// Failed lists regions whose correction was undefined
	Failed []int `yaml:"failed,omitempty"`
}
