// Package sysuser enumerates local accounts from a passwd(5) file.
package sysuser

import (
	"fmt"
	"io"
	"strings"

	"github.com/moby/sys/user"

	"nh-go/internal/nh"
)

// DefaultPasswdPath is the system account database.
const DefaultPasswdPath = "/etc/passwd"

// ReadPasswd reads every account from the passwd file at path.
func ReadPasswd(path string) ([]nh.UserAccount, error) {
	users, err := user.ParsePasswdFileFilter(path, isAccount)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return toAccounts(users), nil
}

// ParsePasswd parses passwd(5) lines. Comments, blank lines, NIS entries and
// entries without a home directory are ignored.
func ParsePasswd(r io.Reader) ([]nh.UserAccount, error) {
	users, err := user.ParsePasswdFilter(r, isAccount)
	if err != nil {
		return nil, err
	}
	return toAccounts(users), nil
}

// isAccount drops what the parser does not: comment lines and NIS
// compat entries come through as users named "#..." or "+...".
func isAccount(u user.User) bool {
	if u.Name == "" || strings.ContainsAny(u.Name[:1], "#+-") {
		return false
	}
	return u.Home != "" && u.Uid >= 0
}

func toAccounts(users []user.User) []nh.UserAccount {
	accounts := make([]nh.UserAccount, 0, len(users))
	for _, u := range users {
		accounts = append(accounts, nh.UserAccount{
			Name: u.Name,
			UID:  uint32(u.Uid),
			Home: u.Home,
		})
	}
	return accounts
}
