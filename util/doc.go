// Package util holds small helpers shared across livescribe packages:
// human-readable size parsing and secret masking for log output.
package util
