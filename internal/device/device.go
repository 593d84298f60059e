// Package device derives a short, stable identifier for the host.
package device

import (
	"crypto/md5"
	"encoding/hex"
	"net"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// NamePrefix is prepended to the ID to form the device name.
const NamePrefix = "Strobbie_"

// ID is a six digit upper case hex identifier.
type ID string

// Name returns the display name of the device.
func (id ID) Name() string {
	return NamePrefix + string(id)
}

// IDFromMAC derives the ID from a MAC address. The address is hashed in its
// upper case colon separated form and the last six hex digits of the MD5 sum
// are kept.
func IDFromMAC(mac net.HardwareAddr) ID {
	return hashID(strings.ToUpper(mac.String()))
}

func hashID(s string) ID {
	sum := md5.Sum([]byte(s))
	digest := hex.EncodeToString(sum[:])
	return ID(strings.ToUpper(digest[len(digest)-6:]))
}

// PrimaryMAC returns the hardware address of the first interface that is up,
// is not a loopback and has a MAC address.
func PrimaryMAC() (net.HardwareAddr, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, errors.Wrap(err, "failed to list network interfaces")
	}
	return pickMAC(ifaces)
}

func pickMAC(ifaces []net.Interface) (net.HardwareAddr, error) {
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if len(iface.HardwareAddr) > 0 {
			return iface.HardwareAddr, nil
		}
	}
	return nil, errors.New("no interface with a hardware address")
}

// Identify returns the ID of this host. If no MAC address is available, the
// hostname is hashed instead.
func Identify() (ID, error) {
	mac, err := PrimaryMAC()
	if err == nil {
		return IDFromMAC(mac), nil
	}

	hostname, herr := os.Hostname()
	if herr != nil {
		return "", errors.Wrap(err, "cannot identify device")
	}
	return hashID(hostname), nil
}
