package webapp_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cwrdd/cwrdd-make/internal/webapp"
)

func TestConfigurationSanitize(testInstance *testing.T) {
	testCases := []struct {
		name          string
		configuration webapp.Configuration
		expected      webapp.Configuration
	}{
		{
			name:          "defaults",
			configuration: webapp.Configuration{},
			expected:      webapp.Configuration{Address: "0.0.0.0:8443", CertificatePath: "/app/certs/cert.pem", KeyPath: "/app/certs/key.pem"},
		},
		{
			name:          "trimmed_overrides",
			configuration: webapp.Configuration{Address: " 127.0.0.1:9443 ", CertificatePath: " /tmp/cert.pem", KeyPath: "/tmp/key.pem "},
			expected:      webapp.Configuration{Address: "127.0.0.1:9443", CertificatePath: "/tmp/cert.pem", KeyPath: "/tmp/key.pem"},
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, testCase.configuration.Sanitize())
		})
	}
}

func TestNewServerRequiresOutput(testInstance *testing.T) {
	_, serverError := webapp.NewServer(webapp.Dependencies{})
	require.ErrorIs(testInstance, serverError, webapp.ErrOutputNotConfigured)
}

func TestServerRunFailsWithoutKeyPair(testInstance *testing.T) {
	directory := testInstance.TempDir()
	server, serverError := webapp.NewServer(webapp.Dependencies{
		Configuration: webapp.Configuration{
			Address:         "127.0.0.1:0",
			CertificatePath: filepath.Join(directory, "cert.pem"),
			KeyPath:         filepath.Join(directory, "key.pem"),
		},
		Output: io.Discard,
	})
	require.NoError(testInstance, serverError)

	runError := server.Run(context.Background())
	require.Error(testInstance, runError)
	require.Contains(testInstance, runError.Error(), "unable to load TLS key pair")
	require.ErrorIs(testInstance, runError, os.ErrNotExist)
}

func TestServerServesTLSUntilCancelled(testInstance *testing.T) {
	certificatePath, keyPath := writeSelfSignedKeyPair(testInstance)
	certificate, loadError := tls.LoadX509KeyPair(certificatePath, keyPath)
	require.NoError(testInstance, loadError)

	output := &bytes.Buffer{}
	server, serverError := webapp.NewServer(webapp.Dependencies{
		Configuration: webapp.Configuration{CertificatePath: certificatePath, KeyPath: keyPath},
		Output:        output,
	})
	require.NoError(testInstance, serverError)

	listener, listenError := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(testInstance, listenError)
	address := listener.Addr().String()

	executionContext, cancel := context.WithCancel(context.Background())
	serveResult := make(chan error, 1)
	go func() {
		serveResult <- server.Serve(executionContext, listener, certificate)
	}()

	client := &http.Client{
		Timeout:   5 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
	}
	response, requestError := client.Get("https://" + address + "/api/greeting")
	require.NoError(testInstance, requestError)
	body, readError := io.ReadAll(response.Body)
	require.NoError(testInstance, readError)
	require.NoError(testInstance, response.Body.Close())
	require.Equal(testInstance, http.StatusOK, response.StatusCode)
	require.Contains(testInstance, string(body), "Hello from the server!")

	cancel()
	select {
	case result := <-serveResult:
		require.NoError(testInstance, result)
	case <-time.After(10 * time.Second):
		testInstance.Fatal("server did not stop after cancellation")
	}
	require.Contains(testInstance, output.String(), "Server running at https://"+address)
}

func writeSelfSignedKeyPair(testInstance *testing.T) (string, string) {
	testInstance.Helper()

	privateKey, keyError := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(testInstance, keyError)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	certificateBytes, certificateError := x509.CreateCertificate(rand.Reader, template, template, &privateKey.PublicKey, privateKey)
	require.NoError(testInstance, certificateError)
	keyBytes, marshalError := x509.MarshalECPrivateKey(privateKey)
	require.NoError(testInstance, marshalError)

	directory := testInstance.TempDir()
	certificatePath := filepath.Join(directory, "cert.pem")
	keyPath := filepath.Join(directory, "key.pem")
	require.NoError(testInstance, os.WriteFile(certificatePath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certificateBytes}), 0o600))
	require.NoError(testInstance, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes}), 0o600))
	return certificatePath, keyPath
}
