// Package batch holds the batch jobs run by the analysis engine. Importing it
// registers them.
package batch

import "github.com/jengzang/regps-supervision-go/internal/analysis"

func init() {
	analysis.RegisterAnalyzer(SkillDailyMetrics, NewDailyMetricsAnalyzer)
	analysis.RegisterAnalyzer(SkillRouteSegments, NewRouteSegmentsAnalyzer)
	analysis.RegisterAnalyzer(SkillAnomalyScan, NewAnomalyScanAnalyzer)
}
