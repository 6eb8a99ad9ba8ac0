package dbprovisioner

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/raptor-panel/raptor/internal/apierror"
)

// NextKeyValueSlot chooses the lowest integer in [0, 10000) not present in
// used, per spec.md §4.L5 "Redis ... choose the lowest integer N ... not
// used on this server" and the "Key-value slot allocation" scenario in
// spec.md §8 (existing {"0","1","3"} ⇒ next is "2").
func NextKeyValueSlot(used map[int]bool) (int, error) {
	for n := 0; n < keyValueMaxSlot; n++ {
		if !used[n] {
			return n, nil
		}
	}
	return 0, apierror.BadRequest("no key-value database slots remain on this server")
}

// ensureRedisACLSeed writes the seed ACL file spec.md §4.L5 requires to
// exist before the redis server container first starts:
// "user default off\nuser admin on ><root> ~* +@all\n".
func ensureRedisACLSeed(dataVolume, rootPassword string) error {
	path := filepath.Join(dataVolume, "users.acl")
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	contents := fmt.Sprintf("user default off\nuser admin on >%s ~* +@all\n", rootPassword)
	return os.WriteFile(path, []byte(contents), 0o600)
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// freeHostPort asks the OS for an ephemeral port and releases it
// immediately, accepting the small race to a concurrent bind.
func freeHostPort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
