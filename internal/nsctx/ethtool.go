package nsctx

import (
	"fmt"
	"net"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Ethtool ioctl command codes and struct layout from §6. Unlike the
// rtnetlink families, these are ioctls the spec defines directly rather
// than delegating to the netlink collaborator, so they're implemented
// here with golang.org/x/sys/unix the same way the teacher repo reaches
// for unix syscalls directly (internal/tunnel/netlink.go).
const (
	sizeofIfreq = 40 // sizeof(struct ifreq) on amd64/arm64

	ethtoolGDrvInfo  = 0x00000003
	ethtoolGPermAddr = 0x00000020
)

// ethtoolDrvInfo mirrors the GDRVINFO struct layout from §6:
//
//	u32 cmd; char driver[32]; char version[32]; char fw_version[32];
//	char bus_info[32]; char reserved1[32]; char reserved2[12];
//	u32 n_priv_flags; u32 n_stats; u32 testinfo_len; u32 eedump_len;
//	u32 regdump_len;
type ethtoolDrvInfo struct {
	Cmd         uint32
	Driver      [32]byte
	Version     [32]byte
	FwVersion   [32]byte
	BusInfo     [32]byte
	Reserved1   [32]byte
	Reserved2   [12]byte
	NPrivFlags  uint32
	NStats      uint32
	TestInfoLen uint32
	EedumpLen   uint32
	RegdumpLen  uint32
}

// ethtoolPermAddr mirrors ethtool_perm_addr: a command header followed by
// a declared size and a variable-length address buffer. 32 bytes is ample
// for any L2 address the kernel reports (§6 "returns a 6-byte L2 address").
type ethtoolPermAddr struct {
	Cmd  uint32
	Size uint32
	Data [32]byte
}

func doEthtoolIoctl(ifname string, cmd unsafe.Pointer) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("opening ioctl socket: %w", err)
	}
	defer unix.Close(fd)

	var ifreq struct {
		Name [unix.IFNAMSIZ]byte
		Data unsafe.Pointer
	}
	copy(ifreq.Name[:], ifname)
	ifreq.Data = cmd

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.SIOCETHTOOL), uintptr(unsafe.Pointer(&ifreq)))
	if errno != 0 {
		return fmt.Errorf("SIOCETHTOOL on %s: %w", ifname, errno)
	}
	return nil
}

// BusInfo retrieves the ethtool-reported bus-info string for ifname via
// ETHTOOL_GDRVINFO (§4.1 businfo, §6).
func BusInfo(ifname string) (string, error) {
	info := ethtoolDrvInfo{Cmd: ethtoolGDrvInfo}
	if err := doEthtoolIoctl(ifname, unsafe.Pointer(&info)); err != nil {
		return "", err
	}
	return cString(info.BusInfo[:]), nil
}

// PermAddr retrieves the ethtool-reported permanent hardware address via
// ETHTOOL_GPERMADDR (§4.1 permaddr, §6). An all-zero result is treated as
// absent per §6.
func PermAddr(ifname string) (net.HardwareAddr, error) {
	pa := ethtoolPermAddr{Cmd: ethtoolGPermAddr, Size: uint32(len(ethtoolPermAddr{}.Data))}
	if err := doEthtoolIoctl(ifname, unsafe.Pointer(&pa)); err != nil {
		return nil, err
	}
	n := pa.Size
	if n > uint32(len(pa.Data)) {
		n = uint32(len(pa.Data))
	}
	addr := net.HardwareAddr(pa.Data[:n])
	if isZeroAddr(addr) {
		return nil, nil
	}
	return addr, nil
}

func isZeroAddr(addr net.HardwareAddr) bool {
	for _, b := range addr {
		if b != 0 {
			return false
		}
	}
	return true
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
