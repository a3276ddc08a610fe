// Package hwid derives a stable fingerprint for the current machine.
package hwid

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"strings"
)

var machineIDPaths = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// seams for tests
var (
	readFile = os.ReadFile
	hostname = os.Hostname
)

// ErrNoSource is returned when neither a machine id nor a hostname is
// available.
var ErrNoSource = errors.New("hwid: no machine id or hostname")

// Compute returns the hex SHA-256 of the machine id and hostname.
func Compute() (string, error) {
	var machineID string
	for _, p := range machineIDPaths {
		b, err := readFile(p)
		if err == nil {
			if id := strings.TrimSpace(string(b)); id != "" {
				machineID = id
				break
			}
		}
	}

	host, err := hostname()
	if err != nil {
		host = ""
	}

	if machineID == "" && host == "" {
		return "", ErrNoSource
	}

	sum := sha256.Sum256([]byte(machineID + "|" + host))
	return hex.EncodeToString(sum[:]), nil
}

// Resolve returns override when set, otherwise Compute().
func Resolve(override string) (string, error) {
	if o := strings.TrimSpace(override); o != "" {
		return o, nil
	}
	return Compute()
}
