// Package logging configures log/slog for the analyzer.
//
// # Usage
//
//	logger, err := logging.SetDefault(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
//	if err != nil {
//	    return err
//	}
//
//	logger.Info("provider attempt failed",
//	    "provider", "ollama",
//	    "attempt", 2,
//	    "api_key", key, // written as ***
//	)
//
//	ctx = logging.WithRequestID(ctx, id)
//	logging.FromContext(ctx).Info("analysis complete") // includes request_id
//
// # Redaction
//
// Attributes named api_key, authorization, password, dsn, secret or token
// (or ending in _<name>) are replaced with ***. String and error values are
// scanned for sk- keys, bearer tokens, URL passwords and password=...
// pairs, which are masked in place.
package logging
