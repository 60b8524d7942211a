package workspace

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
)

// CredentialKind tags which authentication strategy a Workspace uses for
// every clone and fetch. The strategy is selected once at workspace
// construction and reused; the go-git auth method itself is built afresh
// from it by each Initialize and Fetch call.
type CredentialKind int

const (
	CredAnonymous CredentialKind = iota
	CredPasswordInURL
	CredSSHKey
)

// Credentials is the resolved, tagged choice of authentication strategy:
// { PasswordInUrl(user, pw) | SshKey(path) | Anonymous }.
type Credentials struct {
	Kind       CredentialKind
	User       string
	Password   string
	SSHKeyPath string
}

// SelectCredentials implements the credential selection policy: a password
// embedded in the URL wins; otherwise a reachable ssh key path is used;
// otherwise the workspace authenticates anonymously. Returns the resolved
// credentials, the URL with its branch fragment stripped (and, when a
// password is embedded, its userinfo stripped too; otherwise any username
// is kept), and the branch named by the URL fragment (empty if none) —
// go-git's HTTP transport takes auth out-of-band, and plumbing.Revision has
// no use for a "#branch" suffix.
func SelectCredentials(rawURL, sshKeyPath string) (Credentials, string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Credentials{}, "", "", fmt.Errorf("parse configs url: %w", err)
	}
	branch := u.Fragment
	u.Fragment = ""

	if u.User != nil {
		if pw, ok := u.User.Password(); ok && pw != "" {
			user := u.User.Username()
			cleaned := *u
			cleaned.User = nil
			return Credentials{Kind: CredPasswordInURL, User: user, Password: pw}, cleaned.String(), branch, nil
		}
	}

	if sshKeyPath != "" {
		expanded := expandTilde(sshKeyPath)
		if _, statErr := os.Stat(expanded); statErr == nil {
			user := "git"
			if u.User != nil && u.User.Username() != "" {
				user = u.User.Username()
			}
			return Credentials{Kind: CredSSHKey, User: user, SSHKeyPath: expanded}, u.String(), branch, nil
		}
	}

	return Credentials{Kind: CredAnonymous}, u.String(), branch, nil
}

func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// AuthMethod builds the go-git transport.AuthMethod for these credentials,
// or nil for anonymous access.
func (c Credentials) AuthMethod() (transport.AuthMethod, error) {
	switch c.Kind {
	case CredPasswordInURL:
		return &githttp.BasicAuth{Username: c.User, Password: c.Password}, nil
	case CredSSHKey:
		auth, err := ssh.NewPublicKeysFromFile(c.User, c.SSHKeyPath, "")
		if err != nil {
			return nil, fmt.Errorf("load ssh key: %w", err)
		}
		return auth, nil
	default:
		return nil, nil
	}
}
