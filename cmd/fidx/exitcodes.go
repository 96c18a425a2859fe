package main

// Exit codes returned by fidx commands.
const (
	ExitSuccess     = 0   // Success
	ExitError       = 1   // General error (invalid arguments, runtime failure)
	ExitConfigError = 2   // Configuration error (unreadable or invalid config)
	ExitDataError   = 3   // Data error (missing roster, corrupt catalog)
	ExitAPIError    = 4   // Graph API error (auth failure, not found)
	ExitInterrupted = 130 // Interrupted by SIGINT/SIGTERM
)
