package dbconn

import (
	"github.com/go-ini/ini"
)

// OptionFile holds credentials loaded from the [client] section of a
// my.cnf-style defaults file, so passwords can stay off the command line.
// Zero-value fields mean "not set in the file".
type OptionFile struct {
	Host     string
	Port     int
	User     string
	Password *string // pointer so an explicitly empty password is representable
	Database string
}

// LoadOptionFile reads a defaults file. An empty path returns an empty
// OptionFile rather than an error, so callers can thread the flag
// through unconditionally.
func LoadOptionFile(path string) (*OptionFile, error) {
	params := &OptionFile{}
	if path == "" {
		return params, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	if f.HasSection("client") {
		client := f.Section("client")
		params.Host = client.Key("host").String()
		params.Port = client.Key("port").MustInt()
		params.User = client.Key("user").String()
		params.Database = client.Key("database").String()
		if client.HasKey("password") {
			pw := client.Key("password").String()
			params.Password = &pw
		}
	}
	return params, nil
}
