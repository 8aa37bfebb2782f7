// Package shell is a line-oriented command interpreter over a simfs.FS.
//
// All state lives in a Session; command handlers receive the session
// explicitly and only call documented facade and tree operations.
package shell

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"

	"simfs/internal/logging"
	"simfs/internal/simfs"
)

var (
	shellLogger = logging.GetLogger().WithPrefix("shell")
)

// DefaultPrompt is formatted with the working directory path.
const DefaultPrompt = "(%s)> "

const welcomeMessage = "welcome to the simfs shell! type 'help' for a list of commands."

// Store persists a filesystem between runs.
type Store interface {
	Save(fs *simfs.FS) error
}

// Option configures a Session.
type Option func(*Session)

// WithHost sets the host filesystem used by disksave and diskload.
func WithHost(fsys afero.Fs) Option {
	return func(s *Session) {
		s.host = fsys
	}
}

// WithStore enables the save command.
func WithStore(store Store) Option {
	return func(s *Session) {
		s.store = store
	}
}

// WithPrompt sets the prompt format. It must contain one %s verb for the
// working directory.
func WithPrompt(format string) Option {
	return func(s *Session) {
		if format != "" {
			s.prompt = format
		}
	}
}

// WithFSOptions sets the options used when diskload builds a new FS.
func WithFSOptions(opts ...simfs.Option) Option {
	return func(s *Session) {
		s.fsOpts = opts
	}
}

// WithWelcome controls the banner printed when Run starts.
func WithWelcome(show bool) Option {
	return func(s *Session) {
		s.welcome = show
	}
}

// Session is one interactive shell over a filesystem.
type Session struct {
	fs      *simfs.FS
	out     io.Writer
	host    afero.Fs
	store   Store
	prompt  string
	fsOpts  []simfs.Option
	welcome bool
	styles  styles
}

// NewSession creates a session over fs writing to out. Styling follows the
// color support detected on out.
func NewSession(fs *simfs.FS, out io.Writer, opts ...Option) *Session {
	s := &Session{
		fs:      fs,
		out:     out,
		host:    afero.NewOsFs(),
		prompt:  DefaultPrompt,
		welcome: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.styles = newStyles(lipgloss.NewRenderer(out))
	return s
}

// FS returns the filesystem the session currently works on. diskload
// replaces it.
func (s *Session) FS() *simfs.FS { return s.fs }

// Prompt renders the prompt for the current working directory.
func (s *Session) Prompt() string {
	return fmt.Sprintf(s.prompt, s.fs.CwdPath())
}

func (s *Session) println(a ...interface{}) {
	fmt.Fprintln(s.out, a...)
}

func (s *Session) printf(format string, a ...interface{}) {
	fmt.Fprintf(s.out, format, a...)
}

func (s *Session) success(format string, a ...interface{}) {
	s.println(s.styles.success.Render(fmt.Sprintf(format, a...)))
}

func (s *Session) errorf(format string, a ...interface{}) {
	s.println(s.styles.err.Render("error: " + fmt.Sprintf(format, a...)))
}
