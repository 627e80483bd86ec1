package bind

import (
	"errors"

	"github.com/spf13/cobra"

	srv "github.com/vulntor/fpintake/pkg/server"
)

// ServerOptions holds the server start flags that are checked before the
// configuration is assembled.
type ServerOptions struct {
	Port    int
	TLSCert string
	TLSKey  string
}

// BindServerOptions extracts and validates server command flags.
//
// Flags read:
//   - --port: Server listen port (1-65535)
//   - --tls-cert, --tls-key: PEM files; both or neither
//
// Values from the config file and environment are validated later with the
// merged configuration.
func BindServerOptions(cmd *cobra.Command) (ServerOptions, error) {
	port, _ := cmd.Flags().GetInt("port")
	tlsCert, _ := cmd.Flags().GetString("tls-cert")
	tlsKey, _ := cmd.Flags().GetString("tls-key")

	if cmd.Flags().Changed("port") && (port < 1 || port > 65535) {
		return ServerOptions{}, srv.NewInvalidPortError(port)
	}

	if (tlsCert == "") != (tlsKey == "") {
		return ServerOptions{}, srv.WrapInvalidConfig(errors.New("--tls-cert and --tls-key must be set together"))
	}

	return ServerOptions{
		Port:    port,
		TLSCert: tlsCert,
		TLSKey:  tlsKey,
	}, nil
}
