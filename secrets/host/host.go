package host

import (
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/crashstats/crashstorage/secrets"
)

const (
	SourceEnv     = "env"
	SourceCommand = "command"
	SourcePath    = "path"
	SourceValue   = "value"
)

var _ secrets.Store = &SecretStore{}

// SecretStore resolves secrets from the local host. Values read from a
// command or a file lose their trailing newline.
type SecretStore struct{}

func (h *SecretStore) Resolve(keyName string, keyValue string) (string, error) {
	switch strings.ToLower(keyName) {
	case SourceCommand:
		data, err := execCmd(keyValue)
		if err != nil {
			return "", errors.Wrapf(err, "secret command %q failed", keyValue)
		}
		return trimNewline(data), nil
	case SourcePath:
		data, err := os.ReadFile(os.ExpandEnv(keyValue))
		if err != nil {
			return "", err
		}
		return trimNewline(data), nil
	case SourceEnv:
		data, ok := os.LookupEnv(keyValue)
		if !ok {
			return "", errors.Errorf("environment variable %s is not defined", keyValue)
		}
		return data, nil
	case SourceValue:
		return keyValue, nil
	default:
		return "", errors.Errorf("invalid secret source: %s", keyName)
	}
}

func execCmd(cmd string) ([]byte, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return nil, errors.New("empty command")
	}
	return exec.Command(parts[0], parts[1:]...).Output()
}

func trimNewline(data []byte) string {
	return strings.TrimRight(string(data), "\r\n")
}
