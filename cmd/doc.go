// Package cmd implements the wearcast command line interface: connecting and
// disconnecting calendar providers, printing the merged today view, querying
// weather, and running the local API daemon.
package cmd
