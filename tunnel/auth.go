package tunnel

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

var (
	errNoTerminal = errors.New("stdin is not a terminal")
	errNoAuth     = errors.New("no SSH credentials found; pass --ssh-key, --ssh-agent or --ssh-password")
)

// discoverKeys are the ~/.ssh files tried when nothing is configured.
var discoverKeys = []string{"id_ed25519", "id_ecdsa", "id_rsa"}

type authSource struct {
	name string
	load func() (ssh.AuthMethod, error)
}

// BuildAuthMethods returns the gateway credentials in the order the
// server should try them.  An explicitly requested source that fails is
// an error; with nothing requested the agent and ~/.ssh are probed.
func BuildAuthMethods(cfg *SSHConfig) ([]ssh.AuthMethod, error) {
	var sources []authSource
	if cfg.KeyPath != "" {
		sources = append(sources, authSource{"key " + cfg.KeyPath, func() (ssh.AuthMethod, error) {
			s, err := loadSigner(cfg.KeyPath, true)
			if err != nil {
				return nil, err
			}
			return ssh.PublicKeys(s), nil
		}})
	}
	if cfg.UseAgent {
		sources = append(sources, authSource{"ssh-agent", agentAuth})
	}
	if cfg.PromptPass {
		sources = append(sources, authSource{"password", func() (ssh.AuthMethod, error) {
			pass, err := readSecret(fmt.Sprintf("%s@%s's password: ", cfg.User, cfg.Host))
			if err != nil {
				return nil, err
			}
			return ssh.Password(string(pass)), nil
		}})
	}

	if len(sources) == 0 {
		if found := discover(); len(found) > 0 {
			return found, nil
		}
		return nil, errNoAuth
	}

	methods := make([]ssh.AuthMethod, 0, len(sources))
	for _, src := range sources {
		m, err := src.load()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.name, err)
		}
		methods = append(methods, m)
	}
	return methods, nil
}

// loadSigner parses a private key file.  Encrypted keys prompt for a
// passphrase only when interactive is set.
func loadSigner(path string, interactive bool) (ssh.Signer, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(pem)
	var locked *ssh.PassphraseMissingError
	if !errors.As(err, &locked) {
		return signer, err
	}
	if !interactive {
		return nil, err
	}
	pass, err := readSecret(fmt.Sprintf("Enter passphrase for %s: ", path))
	if err != nil {
		return nil, fmt.Errorf("passphrase: %w", err)
	}
	return ssh.ParsePrivateKeyWithPassphrase(pem, pass)
}

func agentAuth() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, errors.New("SSH_AUTH_SOCK is not set")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", sock, err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

// discover collects the running agent and any unencrypted default
// keys.  The keys share one method so the server sees a single
// publickey attempt per key.
func discover() []ssh.AuthMethod {
	var found []ssh.AuthMethod
	if m, err := agentAuth(); err == nil {
		found = append(found, m)
	}

	dir, err := sshDir()
	if err != nil {
		return found
	}
	var signers []ssh.Signer
	for _, name := range discoverKeys {
		if s, err := loadSigner(filepath.Join(dir, name), false); err == nil {
			signers = append(signers, s)
		}
	}
	if len(signers) > 0 {
		found = append(found, ssh.PublicKeys(signers...))
	}
	return found
}

// readSecret prompts on stderr and reads one line without echo.
func readSecret(prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errNoTerminal
	}
	fmt.Fprint(os.Stderr, prompt)
	defer fmt.Fprintln(os.Stderr)
	return term.ReadPassword(fd)
}

func sshDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ssh"), nil
}

// hostKeyCallback verifies the gateway against known_hosts when strict
// checking is on and accepts any key otherwise.
func hostKeyCallback(cfg *SSHConfig) (ssh.HostKeyCallback, error) {
	if !cfg.StrictHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	path := cfg.KnownHosts
	if path == "" {
		dir, err := sshDir()
		if err != nil {
			return nil, fmt.Errorf("known_hosts: %w", err)
		}
		path = filepath.Join(dir, "known_hosts")
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("known_hosts %s: %w", path, err)
	}
	return cb, nil
}
