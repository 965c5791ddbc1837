// Package analyzer ties the pipeline together.
//
// A request flows through:
//
//  1. validation against the configured limits
//  2. optional schema context from a live database
//  3. prompt construction
//  4. the fallback orchestrator (retry per provider, then fallback)
//  5. response extraction into an AnalysisResult
//  6. history and metrics
//
// Engine holds everything derived from one configuration. Service keeps
// the current Engine behind an atomic pointer so a configuration reload
// never disturbs requests that are already running:
//
//	engine, err := analyzer.NewEngine(ctx, cfg, collector)
//	if err != nil {
//	    return err
//	}
//	svc := analyzer.New(engine, analyzer.WithMetrics(collector))
//	result, err := svc.Analyze(ctx, analysis.AnalysisRequest{Query: q})
package analyzer
