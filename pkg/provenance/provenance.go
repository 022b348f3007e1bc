// Package provenance writes the .rec logs kept next to every converted file. A log names
// the command that produced the file, who ran it where, checksums of the inputs and the
// logs of any inputs that carried one.
package provenance

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"strings"
	"time"

	"github.com/jpfielding/rtss.go/pkg/util"
)

// Ext is appended to the file a log describes
const Ext = ".rec"

// Input is one file or directory read by the command
type Input struct {
	Path string
	MD5  string // empty for directories
}

// History is the log of an input that had one
type History struct {
	Path string
	Log  string
}

// Record is the content of one .rec file
type Record struct {
	ID      string
	Time    time.Time
	Command []string
	GitSHA  string
	User    string
	Host    string
	Inputs  []Input
	History []History
}

// New describes a run of args over inputs
func New(args []string, gitsha string, inputs ...string) (*Record, error) {
	r := &Record{
		Time:    time.Now().UTC().Truncate(time.Second),
		Command: args,
		GitSHA:  gitsha,
		User:    currentUser(),
	}
	r.Host, _ = os.Hostname()

	for _, in := range inputs {
		fi, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("provenance of %s: %w", in, err)
		}
		input := Input{Path: in}
		if fi.Mode().IsRegular() {
			if input.MD5, err = util.Md5File(in); err != nil {
				return nil, err
			}
		}
		r.Inputs = append(r.Inputs, input)

		log, err := Read(in + Ext)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			r.History = append(r.History, History{Path: in, Log: log})
		}
	}
	r.ID = util.HashUUID(r)
	return r, nil
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return os.Getenv("USER")
}

// String renders the record in the .rec text layout
func (r *Record) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (Git hash: %s)\n", r.Time.Format(time.RFC3339), strings.Join(r.Command, " "), r.GitSHA)
	fmt.Fprintf(&b, "run: %s\n", r.ID)
	fmt.Fprintf(&b, "user: %s\n", r.User)
	fmt.Fprintf(&b, "node: %s\n", r.Host)
	for _, in := range r.Inputs {
		if in.MD5 == "" {
			fmt.Fprintf(&b, "input: %s\n", in.Path)
			continue
		}
		fmt.Fprintf(&b, "input: %s md5=%s\n", in.Path, in.MD5)
	}
	for _, h := range r.History {
		fmt.Fprintf(&b, "\nHistory of %s:\n", h.Path)
		for _, line := range strings.Split(strings.TrimRight(h.Log, "\n"), "\n") {
			fmt.Fprintf(&b, "  %s\n", line)
		}
	}
	return b.String()
}

// Write stores the record beside the file it describes and returns the log path
func (r *Record) Write(target string) (string, error) {
	path := target + Ext
	if err := os.WriteFile(path, []byte(r.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing provenance: %w", err)
	}
	return path, nil
}

// Read returns the content of a .rec file
func Read(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
