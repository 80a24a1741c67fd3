// Package exporter writes the rebased CPI table for auditing.
//
// CSVWriter streams UTF-8 CSV with a BOM for Excel compatibility.
// WorkbookWriter writes the same columns to an XLSX sheet named "rebased".
// Both write the columns in RebasedHeaders:
//
//	date,category,value,base_value,index_100
//
// Example usage:
//
//	if err := exporter.NewCSVWriter(logger).WriteRebased("reports/rebased.csv", table); err != nil {
//	    return err
//	}
//	if err := exporter.NewWorkbookWriter(logger).WriteRebased("reports/rebased.xlsx", table); err != nil {
//	    return err
//	}
package exporter
