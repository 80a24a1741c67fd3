package config

import "twcpi/pkg/contracts"

// Application constants
const (
	// Application Info
	AppName    = "twcpi"
	AppVersion = contracts.Version

	// EnvPrefix namespaces environment variables, e.g. CPI_PIPELINE_BASE_DATE
	EnvPrefix = "CPI"

	// File Paths (relative to the working directory)
	DefaultDataDir    = "data"
	DefaultImagesDir  = "images"
	DefaultLogsDir    = "logs"
	DefaultInputPath  = "data/cpi_taiwan.csv"
	DefaultOutputPath = "images/cpi_indexed_2021_04.png"

	// DGBAS export layout
	DefaultHeaderRow      = 3
	DefaultPeriodColumn   = "統計期"
	DefaultMetadataMarker = "指數基期"

	// Rebasing
	DefaultBaseDate       = "2021-04"
	DefaultDiagnosticDate = "2020-01"

	// Chart
	DefaultChartTitle = "台灣 CPI：主要類別走勢 (基準期：%s=100)"

	// Log Settings
	DefaultLogLevel = "info"
)

// DefaultCategories are the series drawn when none are configured, in
// legend order.
var DefaultCategories = []string{
	"總指數",
	"一.食物類",
	"三.居住類",
	"四.交通及通訊類",
}
