// Package shared holds code used across packages that belongs to no single
// pipeline stage.
//
// # Test Utilities
//
// The testutil subpackage provides:
//
//	- BufferedSlogHandler for asserting on log output
//	- CPIExport fixtures shaped like the DGBAS consumer price index download
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, handler := testutil.NewTestLogger(t)
//	    path := testutil.WriteCPIExport(t, []string{"總指數"}, 16)
//	    // run code under test with logger and path
//	    testutil.AssertNoErrors(t, handler)
//	}
package shared
