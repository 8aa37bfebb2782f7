package shell

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"simfs/internal/simfs"
	"simfs/internal/tree"
)

type command struct {
	name  string
	usage string
	help  string
	run   func(s *Session, args string)
}

var (
	commands     []command
	commandIndex map[string]command
)

func init() {
	commands = []command{
		{"ls", "ls [path]", "list files in cwd or path", cmdList},
		{"cd", "cd [path]", "change directory by path", cmdChangeDir},
		{"pwd", "pwd", "print the working directory", cmdPwd},
		{"mkdir", "mkdir {dirname}", "create directory {dirname}", cmdMakeDir},
		{"delete", "delete {name}", "delete resource {name}", cmdDelete},
		{"rename", "rename {name} {newname}", "rename resource {name}", cmdRename},
		{"tree", "tree [path]", "print the tree below cwd or path", cmdTree},
		{"cf", "cf {filename} {contents}", "create file {filename} with contents {contents}", cmdCreateFile},
		{"wr", "wr {filename} {contents}", "write to file {filename} with contents {contents}", cmdWrite},
		{"cat", "cat {filename}", "print contents of file {filename}", cmdCat},
		{"serialize", "serialize [name] [--string|--debug|--token]", "print the encoded bytes of a resource", cmdSerialize},
		{"disksave", "disksave {path}", "write the tree to a host directory", cmdDiskSave},
		{"diskload", "diskload {path}", "replace the tree with a host directory", cmdDiskLoad},
		{"save", "save", "write the tree to the state file", cmdSave},
		{"clear", "clear", "clear the screen", cmdClear},
		{"help", "help", "show this message", cmdHelp},
	}
	commandIndex = make(map[string]command, len(commands))
	for _, c := range commands {
		commandIndex[c.name] = c
	}
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Session) Exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	name, args, _ := strings.Cut(line, " ")
	args = strings.TrimLeft(args, " ")

	if name == "exit" || name == "quit" {
		return true
	}
	c, ok := commandIndex[name]
	if !ok {
		s.errorf("unknown command %q, type 'help' for a list of commands", name)
		return false
	}
	shellLogger.Debug("exec %s %q", name, args)
	c.run(s, args)
	return false
}

func (s *Session) usage(name string) {
	s.errorf("usage: %s", commandIndex[name].usage)
}

// directoryArg resolves an optional path argument to a directory,
// defaulting to the working directory.
func (s *Session) directoryArg(arg string) (*tree.Directory, bool) {
	if arg == "" {
		return s.fs.Cwd(), true
	}
	d, ok := s.fs.Lookup(arg).(*tree.Directory)
	if !ok {
		s.errorf("directory does not exist")
	}
	return d, ok
}

// fileArg resolves a path argument to a file, printing the same messages
// for a missing file or a directory that cat and wr always have.
func (s *Session) fileArg(arg string) (*tree.File, bool) {
	switch r := s.fs.Lookup(arg).(type) {
	case nil:
		s.println("File not found")
	case *tree.Directory:
		s.errorf("not a file")
	case *tree.File:
		return r, true
	}
	return nil, false
}

func cmdList(s *Session, args string) {
	dir, ok := s.directoryArg(args)
	if !ok {
		return
	}
	children := dir.Children()
	if len(children) == 0 {
		s.println("No files in directory")
		return
	}
	for _, child := range children {
		switch child := child.(type) {
		case *tree.Directory:
			s.println(s.styles.directory.Render(child.Name() + "/"))
		case *tree.File:
			s.println(child.Name())
		}
	}
}

func cmdChangeDir(s *Session, args string) {
	var ok bool
	switch {
	case args == "":
		ok = s.fs.Chdir("/")
	case strings.HasPrefix(args, "/"):
		ok = s.fs.Chdir(args)
	default:
		ok = s.fs.Cd(strings.Split(args, "/"))
	}
	if !ok {
		s.errorf("directory does not exist")
	}
}

func cmdPwd(s *Session, _ string) {
	s.println(s.fs.CwdPath())
}

func cmdMakeDir(s *Session, args string) {
	if args == "" {
		s.usage("mkdir")
		return
	}
	if _, err := s.fs.Cwd().CreateDirectory(args); err != nil {
		if errors.Is(err, tree.ErrAlreadyExists) {
			s.errorf("directory already exists")
			return
		}
		s.errorf("%v", err)
	}
}

func cmdCreateFile(s *Session, args string) {
	name, contents, _ := strings.Cut(args, " ")
	if name == "" {
		s.usage("cf")
		return
	}
	if _, err := s.fs.Cwd().CreateFileString(name, contents); err != nil {
		if errors.Is(err, tree.ErrAlreadyExists) {
			s.errorf("file already exists")
			return
		}
		s.errorf("%v", err)
	}
}

func cmdDelete(s *Session, args string) {
	if args == "" {
		s.usage("delete")
		return
	}
	cwd := s.fs.Cwd()
	if cwd.Get(args) == nil {
		s.println("File not found")
		return
	}
	if err := cwd.Delete(args); err != nil {
		s.errorf("%v", err)
		return
	}
	// Nothing in the session keeps handles across commands.
	s.fs.Tree().Prune()
}

func cmdRename(s *Session, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		s.usage("rename")
		return
	}
	if err := s.fs.Cwd().Rename(fields[0], fields[1]); err != nil {
		if errors.Is(err, tree.ErrNotFound) {
			s.println("File not found")
			return
		}
		s.errorf("%v", err)
	}
}

func cmdWrite(s *Session, args string) {
	name, contents, _ := strings.Cut(args, " ")
	if name == "" {
		s.usage("wr")
		return
	}
	f, ok := s.fileArg(name)
	if !ok {
		return
	}
	if err := f.WriteString(contents); err != nil {
		s.errorf("%v", err)
		return
	}
	s.success("wrote successfully")
}

func cmdCat(s *Session, args string) {
	if args == "" {
		s.usage("cat")
		return
	}
	if f, ok := s.fileArg(args); ok {
		s.println(f.String())
	}
}

func cmdTree(s *Session, args string) {
	dir, ok := s.directoryArg(args)
	if !ok {
		return
	}
	base := 0
	if !dir.IsRoot() {
		base = strings.Count(dir.Path(), "/")
	}

	s.println(s.styles.directory.Render(dir.Path()))
	_ = dir.Walk(func(p string, r tree.Resource) error {
		indent := strings.Repeat("  ", strings.Count(p, "/")-base)
		switch r := r.(type) {
		case *tree.Directory:
			s.println(indent + s.styles.directory.Render(r.Name()+"/"))
		case *tree.File:
			s.println(indent + r.Name() + s.styles.muted.Render(fmt.Sprintf(" (%d bytes)", r.Size())))
		}
		return nil
	})
}

func cmdSerialize(s *Session, args string) {
	var name, mode string
	for _, field := range strings.Fields(args) {
		switch field {
		case "--string", "--debug", "--token":
			mode = field
		default:
			if strings.HasPrefix(field, "--") {
				s.errorf("unknown flag %s", field)
				return
			}
			name = field
		}
	}

	if mode == "--token" {
		if name != "" {
			s.errorf("--token always serializes the whole tree")
			return
		}
		token, err := s.fs.SerializeToken()
		if err != nil {
			s.errorf("%v", err)
			return
		}
		s.println(token)
		return
	}

	var r tree.Resource = s.fs.Cwd()
	if name != "" {
		if r = s.fs.Lookup(name); r == nil {
			s.println("File not found")
			return
		}
	}
	b, err := r.Serialize()
	if err != nil {
		s.errorf("%v", err)
		return
	}

	switch mode {
	case "--string":
		s.println(tree.DecodeString(b))
	case "--debug":
		s.println(joinBytes(b, "\t"))
		s.println(strings.Join(strings.Split(tree.DecodeString(b), ""), "\t"))
	default:
		s.println(joinBytes(b, " "))
	}
}

func joinBytes(b []byte, sep string) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = strconv.Itoa(int(c))
	}
	return strings.Join(parts, sep)
}

func cmdDiskSave(s *Session, args string) {
	if args == "" {
		s.usage("disksave")
		return
	}
	if err := s.fs.Save(s.host, args); err != nil {
		s.errorf("%v", err)
		return
	}
	s.success("saved to %s", args)
}

func cmdDiskLoad(s *Session, args string) {
	if args == "" {
		s.usage("diskload")
		return
	}
	fs, err := simfs.Load(s.host, args, s.fsOpts...)
	if err != nil {
		s.errorf("%v", err)
		return
	}
	s.fs = fs
	s.success("loaded %d resources from %s", fs.Tree().Len()-1, args)
}

func cmdSave(s *Session, _ string) {
	if s.store == nil {
		s.errorf("no state file configured")
		return
	}
	if err := s.store.Save(s.fs); err != nil {
		s.errorf("%v", err)
		return
	}
	s.success("saved")
}

func cmdClear(s *Session, _ string) {
	s.printf("\033[H\033[2J")
}

func cmdHelp(s *Session, _ string) {
	s.println(s.styles.heading.Render("commands:"))
	for _, c := range commands {
		s.printf("  %-44s %s\n", c.usage, c.help)
	}
	s.printf("  %-44s %s\n", "exit", "exits the shell")
}
