package simulate

// Worker configuration constants.
const (
	defaultWorkers = 4
)

// Generator constants.
const (
	percentChance   = 4 // one in percentChance completions carries a percent
	minPercent      = 50
	percentRange    = 51
	repeatVideoOdds = 10 // one in repeatVideoOdds completions reuses a video, which must be a duplicate
	nameIDLength    = 8
	shuffleFactor   = 2 // random moves per published level
)

// reportFilePermission is the mode of the JSON report.
const reportFilePermission = 0600
