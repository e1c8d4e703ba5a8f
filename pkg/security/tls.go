package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/halo-hpc/halo/pkg/config"
)

// loadCertPool reads a PEM CA bundle into a fresh cert pool.
func loadCertPool(caPath string) (*x509.CertPool, error) {
	caPEM, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate %q: %w", caPath, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("no usable certificates in %q", caPath)
	}
	return pool, nil
}

// ServerTLSConfig builds the remote agent's TLS configuration. The agent
// presents the server certificate and requires a client certificate signed by
// the shared CA.
func ServerTLSConfig(defaults config.Defaults) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(defaults.ServerCert, defaults.ServerKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	pool, err := loadCertPool(defaults.CACert)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ClientTLSConfig builds the manager's TLS configuration for dialing remote
// agents. The manager presents the client certificate and verifies the
// agent's certificate against the shared CA under the configured server
// domain name.
func ClientTLSConfig(defaults config.Defaults) (*tls.Config, error) {
	if defaults.ServerDomain == "" {
		return nil, fmt.Errorf("HALO_SERVER_DOMAIN_NAME must be set when mTLS is enabled")
	}

	cert, err := tls.LoadX509KeyPair(defaults.ClientCert, defaults.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	pool, err := loadCertPool(defaults.CACert)
	if err != nil {
		return nil, err
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		ServerName:   defaults.ServerDomain,
		MinVersion:   tls.VersionTLS13,
	}, nil
}
