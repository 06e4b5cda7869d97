package apihelpers

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
)

type CertificatePaths struct {
	ServerCertPath string `json:"server_cert_path" yaml:"server_cert_path"`
	ServerKeyPath  string `json:"server_key_path" yaml:"server_key_path"`
	CACertPath     string `json:"ca_cert_path" yaml:"ca_cert_path"`
}

// LoadTLSConfig builds a server config requiring client certificates signed by the CA.
func LoadTLSConfig(paths CertificatePaths) (*tls.Config, error) {
	serverCert, err := tls.LoadX509KeyPair(paths.ServerCertPath, paths.ServerKeyPath)
	if err != nil {
		return nil, err
	}

	caCert, err := os.ReadFile(paths.CACertPath)
	if err != nil {
		return nil, err
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("no CA certificate found in " + paths.CACertPath)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    caCertPool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// LoadClientTLSConfig builds a client config presenting the certificate pair and trusting
// servers signed by the CA.
func LoadClientTLSConfig(paths CertificatePaths) (*tls.Config, error) {
	clientCert, err := tls.LoadX509KeyPair(paths.ServerCertPath, paths.ServerKeyPath)
	if err != nil {
		return nil, err
	}

	caCert, err := os.ReadFile(paths.CACertPath)
	if err != nil {
		return nil, err
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("no CA certificate found in " + paths.CACertPath)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{clientCert},
		RootCAs:      caCertPool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
