// Package security holds the client TLS settings of the API transport.
//
//	cfg := security.TLSConfig{
//	    CAFile:   "/etc/apikit/ca.pem",
//	    CertFile: "/etc/apikit/client.pem",
//	    KeyFile:  "/etc/apikit/client-key.pem",
//	}
//	tlsConfig, err := cfg.Build()
package security
