// Command tractfilter filters tractograms with ROI masks, counts the fibers
// kept and rejected by every filter and writes a report.
package main

func main() {
	Execute()
}
