// Package chart draws rebased CPI series as a PNG line chart with go-chart.
//
// One line is drawn per requested category, in the requested order, with a
// dashed reference line at 100 and optional event annotations placed at the
// anchor category's point for the event month. Events whose anchor has no
// value at that month are skipped and logged at debug level.
//
// Chinese titles and labels need a CJK TrueType font; set Options.FontPath.
// The PNG is written to a temporary file beside the output and renamed into
// place, so a failed render never leaves a partial image.
package chart
