// Package component defines the lifecycle interface shared by apikit's
// long-lived parts and a registry that starts, stops and health-checks
// them in order.
//
//	reg := component.NewRegistry()
//	_ = reg.Register(httpclient.NewComponent(cfg))
//	if err := reg.StartAll(ctx); err != nil {
//	    return err
//	}
//	defer reg.StopAll(context.Background())
package component
