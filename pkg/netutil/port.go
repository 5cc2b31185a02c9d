package netutil

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// GetAvailablePortForAddress returns an open port on the specified address
func GetAvailablePortForAddress(address string) (int32, error) {
	server, err := net.Listen("tcp", net.JoinHostPort(address, "0"))
	if err != nil {
		return 0, errors.Wrapf(err, "failed to listen on %s", address)
	}
	defer server.Close()

	_, portString, err := net.SplitHostPort(server.Addr().String())
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(portString)
	return int32(port), err
}
