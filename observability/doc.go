// Package observability wires apikit into OpenTelemetry.
//
// Every request opens an http.request span on the global tracer provider
// and, when the client was built with WithMetrics, records request
// counters and durations. Applications install exporters once:
//
//	cfg := observability.Config{ServiceName: "billing-worker", Insecure: true}
//	tp, err := observability.InitTracer(ctx, cfg)
//	defer tp.Shutdown(ctx)
//
//	mp, err := observability.InitMeter(ctx, cfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewGlobalMetrics()
//	client, err := httpclient.New(apiCfg, httpclient.WithMetrics(metrics))
package observability
