// Package config provides configuration structures and utilities for sitewatch.
// It defines the watched source list, fetch settings, state and history
// locations, and report output preferences.
package config
