package windowed

// Axis is the linear axis items are laid out on.
type Axis int

const (
	// Vertical lays items out top to bottom; extents are heights.
	Vertical Axis = iota
	// Horizontal lays items out left to right; extents are widths.
	Horizontal
)

// Align controls where ScrollToIndex places the target item in the viewport.
type Align int

const (
	AlignStart Align = iota
	AlignCenter
	AlignEnd
)

const (
	defaultOverscan       = 2
	defaultFrameRate      = 60
	defaultEstimateExtent = 10.0
	defaultEpsilon        = 0.5
)

type confOptions struct {
	estimate  func(index int) float64
	overscan  int
	axis      Axis
	keyFn     func(index int) string
	epsilon   float64
	renderer  Renderer
	ticks     TickSource
	frameRate int
	viewport  float64
	onWindow  func(Window)
}

// Option configures an Engine.
type Option func(*confOptions)

// WithEstimator sets the extent estimator used for items that have not been
// measured yet.
func WithEstimator(fn func(index int) float64) Option {
	return func(o *confOptions) {
		o.estimate = fn
	}
}

// WithOverscan sets how many extra items are materialized beyond the
// strictly visible range at each edge. Negative values clamp to zero.
func WithOverscan(overscan int) Option {
	return func(o *confOptions) {
		o.overscan = overscan
	}
}

// WithAxis sets the scrolling axis.
func WithAxis(axis Axis) Option {
	return func(o *confOptions) {
		o.axis = axis
	}
}

// WithKeyFunc sets the stable identity key for each index. Without it,
// identity is positional.
func WithKeyFunc(fn func(index int) string) Option {
	return func(o *confOptions) {
		o.keyFn = fn
	}
}

// WithEpsilon sets the minimum extent change a measurement must carry before
// it is written back into the index.
func WithEpsilon(epsilon float64) Option {
	return func(o *confOptions) {
		o.epsilon = epsilon
	}
}

// WithRenderer sets the renderer collaborator the slot pool mounts into.
func WithRenderer(r Renderer) Option {
	return func(o *confOptions) {
		o.renderer = r
	}
}

// WithViewportSize sets the visible viewport size along the scrolling axis.
func WithViewportSize(size float64) Option {
	return func(o *confOptions) {
		o.viewport = size
	}
}

// WithTickSource replaces the display refresh tick source. Mostly useful in
// tests, where ticks are driven manually.
func WithTickSource(src TickSource) Option {
	return func(o *confOptions) {
		o.ticks = src
	}
}

// WithFrameRate sets the tick rate of the default frame ticker.
func WithFrameRate(fps int) Option {
	return func(o *confOptions) {
		o.frameRate = fps
	}
}

// WithOnWindowChanged sets the callback invoked whenever a recompute pass
// produces a window different from the previous one.
func WithOnWindowChanged(fn func(Window)) Option {
	return func(o *confOptions) {
		o.onWindow = fn
	}
}
