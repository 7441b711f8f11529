package native

// ChartOptions control chart generation. Field order follows xatlas::ChartOptions.
type ChartOptions struct {
	// Don't grow charts larger than this. 0 means no limit.
	MaxChartArea float32 `yaml:"max_chart_area"`
	// Don't grow charts to have a longer boundary than this. 0 means no limit.
	MaxBoundaryLength float32 `yaml:"max_boundary_length"`

	// Weights determine chart growth. Higher weights mean higher cost for that metric.
	NormalDeviationWeight float32 `yaml:"normal_deviation_weight"`
	RoundnessWeight       float32 `yaml:"roundness_weight"`
	StraightnessWeight    float32 `yaml:"straightness_weight"`
	NormalSeamWeight      float32 `yaml:"normal_seam_weight"`
	TextureSeamWeight     float32 `yaml:"texture_seam_weight"`

	// If total of all metrics * weights > MaxCost, don't grow chart. Lower values result in more charts.
	MaxCost float32 `yaml:"max_cost"`
	// Number of iterations of the chart growing and seeding phases.
	MaxIterations uint32 `yaml:"max_iterations"`

	// Use the input mesh's UVs as charts instead of generating them.
	UseInputMeshUvs bool `yaml:"use_input_mesh_uvs"`
	// Enforce consistent texture coordinate winding.
	FixWinding bool `yaml:"fix_winding"`
}

// DefaultChartOptions returns the xatlas defaults.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{
		NormalDeviationWeight: 2,
		RoundnessWeight:       0.01,
		StraightnessWeight:    6,
		NormalSeamWeight:      4,
		TextureSeamWeight:     0.5,
		MaxCost:               2,
		MaxIterations:         1,
	}
}

// PackOptions control chart packing. Field order follows xatlas::PackOptions.
type PackOptions struct {
	// Charts larger than this will be scaled down. 0 means no limit.
	MaxChartSize uint32 `yaml:"max_chart_size"`
	// Number of pixels to pad charts with.
	Padding uint32 `yaml:"padding"`
	// Unit to texel scale. 0 estimates a value matching Resolution.
	TexelsPerUnit float32 `yaml:"texels_per_unit"`
	// If 0, generate a single atlas sized by TexelsPerUnit.
	Resolution uint32 `yaml:"resolution"`
	// Leave space around charts for texels that would be sampled by bilinear filtering.
	Bilinear bool `yaml:"bilinear"`
	// Align charts to 4x4 blocks.
	BlockAlign bool `yaml:"block_align"`
	// Slower, but gives the best result.
	BruteForce bool `yaml:"brute_force"`
	// Create Atlas.Images.
	CreateImage bool `yaml:"create_image"`
	// Rotate charts to the axis of their convex hull.
	RotateChartsToAxis bool `yaml:"rotate_charts_to_axis"`
	// Rotate charts to improve packing.
	RotateCharts bool `yaml:"rotate_charts"`
}

// DefaultResolution is the atlas resolution used when none is configured.
const DefaultResolution = 2048

// DefaultPackOptions returns the xatlas defaults with a 2048 resolution.
func DefaultPackOptions() PackOptions {
	return PackOptions{
		Resolution:         DefaultResolution,
		Bilinear:           true,
		RotateChartsToAxis: true,
		RotateCharts:       true,
	}
}
