//go:build linux && arm64

package enforcer

// arm64 syscall numbers for the syscalls the network filter can deny.
// arm64 has no separate sendmsg/recvmsg entry points distinct from the
// generic socketcall path on older ABIs, but the modern arm64 syscall
// table (used since the initial upstream port) assigns these directly.
var syscallNumbers = map[string]uint32{
	"socket":   198,
	"connect":  203,
	"sendto":   206,
	"recvfrom": 207,
	"sendmsg":  211,
	"recvmsg":  212,
}

func syscallNumber(name string) (uint32, bool) {
	n, ok := syscallNumbers[name]
	return n, ok
}
