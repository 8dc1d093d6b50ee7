package inline

// Options configures the greedy inliner.
type Options struct {
	// ModuleGrowth caps the module size at initial*(100+ModuleGrowth)/100.
	ModuleGrowth int64
	// MaxNondeclaredInlineCallee rejects callees of at least this many
	// instructions that are not declared inline.
	MaxNondeclaredInlineCallee int64
	// MaxDeclaredInlineCallee does the same for declared inline callees; 0
	// disables the check.
	MaxDeclaredInlineCallee int64
	// SmallFunc is the growth under which a site may ignore the size cap.
	SmallFunc int64
	// MaxDepthIgnoreGrowthLimit is the deepest site allowed to ignore the cap.
	MaxDepthIgnoreGrowthLimit int
	// RelaxSmallFuncCanBeRemoved multiplies SmallFunc when the callee dies
	// after inlining.
	RelaxSmallFuncCanBeRemoved int64
	// RelaxSmallFuncDeclaredInline multiplies SmallFunc for declared inline
	// callees at frequently executed sites.
	RelaxSmallFuncDeclaredInline int64

	EnableIgnoreGrowthLimit        bool
	AllowNondeclaredInlineSizeGrow bool
	InlineToAllCallers             bool

	// MaxDepth bounds the nesting of inlined call sites.
	MaxDepth int
	// MaxRecursionLevel allows that many self-recursive inlines per function.
	MaxRecursionLevel int
	// HugeFuncInsns keeps a callee from being inlined everywhere when one of
	// its callers would exceed it.
	HugeFuncInsns int64

	// Comments brackets spliced bodies with begin/end comments.
	Comments bool
	// RemoveDead deletes callees left without callers once inlining is done.
	RemoveDead bool

	Policy Policy
}

// DefaultOptions returns the default inliner configuration.
func DefaultOptions() Options {
	return Options{
		ModuleGrowth:                 10,
		MaxNondeclaredInlineCallee:   400,
		MaxDeclaredInlineCallee:      1000,
		SmallFunc:                    15,
		MaxDepthIgnoreGrowthLimit:    2,
		RelaxSmallFuncCanBeRemoved:   3,
		RelaxSmallFuncDeclaredInline: 3,
		EnableIgnoreGrowthLimit:      true,
		InlineToAllCallers:           true,
		MaxDepth:                     10,
		HugeFuncInsns:                1800,
		Comments:                     true,
		RemoveDead:                   true,
		Policy:                       DefaultPolicy(),
	}
}

// Policy holds the tuning constants of the size and badness heuristics.
// None of them affects correctness.
type Policy struct {
	// Badness scaling.
	DeclaredInlineFactor float64
	HotSiteFactor        float64
	UnlikelyFactor       float64
	RemovableFactor      float64
	TimeSavedBoundary    float64
	OverallSmallGrowth   int64

	// Tiny callees inlined into small callers at depth 0.
	TinyCallee int64
	TinyCaller int64

	// Inline-to-all-callers.
	AllCallersGrowth   int64
	AllCallersSites    int
	AllCallersHotSites int
	SizeGrowMaxCallers int

	// Size growth of callees not declared inline.
	NeverIgnoreCaller   int64
	ObviousCaller       int64
	ObviousCallee       int64
	ObviousNonStatic    int64
	BigFreq             float64
	BigFreqCaller       int64
	BigFreqCallee       int64
	GrowthLimit         int64
	BigSpeedup          float64
	MaxAllowBadness     float64
	FreqLimit           float64
	FreqBonus           float64
	TinyGrowth          int64
	SmallGrowth         int64
	TinyGrowthBonus     int
	SmallGrowthBonus    int
	DefaultRelaxInline  int64
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() Policy {
	return Policy{
		DeclaredInlineFactor: 4,
		HotSiteFactor:        2000,
		UnlikelyFactor:       10,
		RemovableFactor:      2,
		TimeSavedBoundary:    1024,
		OverallSmallGrowth:   256,

		TinyCallee: 22,
		TinyCaller: 9,

		AllCallersGrowth:   91,
		AllCallersSites:    2,
		AllCallersHotSites: 5,
		SizeGrowMaxCallers: 6,

		NeverIgnoreCaller:  2000,
		ObviousCaller:      170,
		ObviousCallee:      40,
		ObviousNonStatic:   10,
		BigFreq:            14,
		BigFreqCaller:      800,
		BigFreqCallee:      65,
		GrowthLimit:        46,
		BigSpeedup:         0.09,
		MaxAllowBadness:    -1e-8,
		FreqLimit:          0.4,
		FreqBonus:          10,
		TinyGrowth:         21,
		SmallGrowth:        33,
		TinyGrowthBonus:    3,
		SmallGrowthBonus:   2,
		DefaultRelaxInline: 2,
	}
}
