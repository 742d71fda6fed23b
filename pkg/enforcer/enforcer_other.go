//go:build !linux

package enforcer

import (
	"fmt"
	"runtime"

	"github.com/KamalSDhami/zencube/pkg/policy"
)

// Enforce is unsupported outside Linux: rlimits, chroot, and seccomp
// are all Linux-specific kernel facilities.
func Enforce(p policy.Policy) (Coverage, error) {
	return Coverage{}, fmt.Errorf("zencube enforcer: unsupported on %s", runtime.GOOS)
}

func ExecTarget(argv []string) error {
	return fmt.Errorf("zencube enforcer: unsupported on %s", runtime.GOOS)
}
