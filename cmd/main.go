// Package main provides the entry point for the transparency portal agent.
//
// The agent serves a local web page that simulates searching, analyzing and
// downloading data from municipal transparency portals. All results are
// randomly generated placeholders.
//
// Usage:
//
//	transparencia [--addr :8080] [--config file] [--no-delay] [--seed N]
package main

func main() {
	Execute()
}
