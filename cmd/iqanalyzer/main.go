// iqanalyzer analyzes SQL queries for performance problems using an LLM
// with automatic provider fallback.
//
// Usage:
//
//	# Start the HTTP service
//	iqanalyzer run --config config.yaml
//
//	# Analyze one query from the command line
//	iqanalyzer analyze --query "SELECT * FROM users WHERE email = 'a@b.c'"
//
//	# Analyze a file, adding schema context from Postgres
//	iqanalyzer analyze --file slow.sql --dsn postgres://localhost/app
//
//	# Probe every configured provider
//	iqanalyzer health
//
//	# Check a configuration file
//	iqanalyzer validate --config config.yaml
//
//	# Show recorded analyses
//	iqanalyzer history list --limit 20
package main

func main() {
	Execute()
}
