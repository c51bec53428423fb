package search

// BroadenedLimits holds the three budgets that grow monotonically with the
// UI-requested expansion level.
type BroadenedLimits struct {
	ResultLimit int
	SeedLimit   int
	RerankCap   int
}

// Broaden applies expansion level L against the base limits, clamping the
// final result limit to maxReturn.
func Broaden(level, defaultResultLimit, seedLimit, rerankCap, resultStep, seedStep, rerankStep, maxReturn int) BroadenedLimits {
	result := defaultResultLimit + level*resultStep
	if result > maxReturn {
		result = maxReturn
	}
	return BroadenedLimits{
		ResultLimit: result,
		SeedLimit:   seedLimit + level*seedStep,
		RerankCap:   rerankCap + level*rerankStep,
	}
}
