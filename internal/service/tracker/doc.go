// Package tracker consumes decoded events and raises one notification per
// alarm onset for the configured event classes.
package tracker
