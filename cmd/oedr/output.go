package main

import "github.com/fatih/color"

// Color helpers, grounded on the teacher's cmd/cobra_cli.go palette, pared
// down to the handful of states a batch research run actually reports.
var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)
