package webapp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAddressConstant               = "0.0.0.0:8443"
	defaultCertificatePathConstant       = "/app/certs/cert.pem"
	defaultKeyPathConstant               = "/app/certs/key.pem"
	shutdownTimeoutConstant              = 5 * time.Second
	readHeaderTimeoutConstant            = 10 * time.Second
	certificateLoadErrorTemplateConstant = "unable to load TLS key pair (%s, %s): %w"
	listenErrorTemplateConstant          = "unable to listen on %s: %w"
	serverRunningMessageConstant         = "🚀 Server running at https://%s\n"
	serverStartedLogConstant             = "server started"
	serverStoppingLogConstant            = "server shutting down"
	networkConstant                      = "tcp"
	addressFieldConstant                 = "address"
	certificatePathFieldConstant         = "certificate_path"
	serverOutputMissingErrorConstant     = "server output writer not configured"
)

// ErrOutputNotConfigured indicates a Server was constructed without a writer for the startup banner.
var ErrOutputNotConfigured = errors.New(serverOutputMissingErrorConstant)

// Configuration describes the listening address and the TLS key pair read at startup.
type Configuration struct {
	Address         string
	CertificatePath string
	KeyPath         string
}

// DefaultConfiguration matches the container layout the compose file mounts certificates into.
func DefaultConfiguration() Configuration {
	return Configuration{
		Address:         defaultAddressConstant,
		CertificatePath: defaultCertificatePathConstant,
		KeyPath:         defaultKeyPathConstant,
	}
}

// Sanitize trims values and restores defaults for anything left empty.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := Configuration{
		Address:         strings.TrimSpace(configuration.Address),
		CertificatePath: strings.TrimSpace(configuration.CertificatePath),
		KeyPath:         strings.TrimSpace(configuration.KeyPath),
	}
	if len(sanitized.Address) == 0 {
		sanitized.Address = defaults.Address
	}
	if len(sanitized.CertificatePath) == 0 {
		sanitized.CertificatePath = defaults.CertificatePath
	}
	if len(sanitized.KeyPath) == 0 {
		sanitized.KeyPath = defaults.KeyPath
	}
	return sanitized
}

// Dependencies describes the collaborators required by the server.
type Dependencies struct {
	Configuration Configuration
	Handler       http.Handler
	Output        io.Writer
	Logger        *zap.Logger
}

// Server serves the application over HTTPS until its context is cancelled.
type Server struct {
	configuration Configuration
	handler       http.Handler
	output        io.Writer
	logger        *zap.Logger
}

// NewServer validates dependencies and constructs a Server. A nil handler selects NewRouter.
func NewServer(dependencies Dependencies) (*Server, error) {
	if dependencies.Output == nil {
		return nil, ErrOutputNotConfigured
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	handler := dependencies.Handler
	if handler == nil {
		router, routerError := NewRouter(logger)
		if routerError != nil {
			return nil, routerError
		}
		handler = router
	}
	return &Server{
		configuration: dependencies.Configuration.Sanitize(),
		handler:       handler,
		output:        dependencies.Output,
		logger:        logger,
	}, nil
}

// Run loads the key pair, listens on the configured address, and serves until executionContext is done.
func (server *Server) Run(executionContext context.Context) error {
	certificate, certificateError := tls.LoadX509KeyPair(server.configuration.CertificatePath, server.configuration.KeyPath)
	if certificateError != nil {
		return fmt.Errorf(certificateLoadErrorTemplateConstant, server.configuration.CertificatePath, server.configuration.KeyPath, certificateError)
	}

	listener, listenError := net.Listen(networkConstant, server.configuration.Address)
	if listenError != nil {
		return fmt.Errorf(listenErrorTemplateConstant, server.configuration.Address, listenError)
	}
	return server.Serve(executionContext, listener, certificate)
}

// Serve runs HTTPS on an existing listener with the provided certificate.
func (server *Server) Serve(executionContext context.Context, listener net.Listener, certificate tls.Certificate) error {
	httpServer := &http.Server{
		Handler:           server.handler,
		ReadHeaderTimeout: readHeaderTimeoutConstant,
		TLSConfig: &tls.Config{
			Certificates: []tls.Certificate{certificate},
			MinVersion:   tls.VersionTLS12,
		},
	}

	fmt.Fprintf(server.output, serverRunningMessageConstant, listener.Addr().String())
	server.logger.Info(serverStartedLogConstant, zap.String(addressFieldConstant, listener.Addr().String()), zap.String(certificatePathFieldConstant, server.configuration.CertificatePath))

	serveErrors := make(chan error, 1)
	go func() {
		serveErrors <- httpServer.ServeTLS(listener, "", "")
	}()

	select {
	case serveError := <-serveErrors:
		if errors.Is(serveError, http.ErrServerClosed) {
			return nil
		}
		return serveError
	case <-executionContext.Done():
		server.logger.Info(serverStoppingLogConstant)
		shutdownContext, cancel := context.WithTimeout(context.Background(), shutdownTimeoutConstant)
		defer cancel()
		if shutdownError := httpServer.Shutdown(shutdownContext); shutdownError != nil {
			return shutdownError
		}
		if serveError := <-serveErrors; serveError != nil && !errors.Is(serveError, http.ErrServerClosed) {
			return serveError
		}
		return nil
	}
}
