package main

const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (not a repository, invalid paths)
	ExitDataError     = 3 // Data error (malformed input, validation failure)
	ExitNoAPIKey      = 4 // Classifier API key not configured
	ExitIndexNotFound = 5 // Semantic index missing or stale
	ExitAborted       = 6 // Detection run aborted mid-flight
)
