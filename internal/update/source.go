package update

import (
	"context"
	"fmt"
	"net/url"
	"os"
)

// Source is where an orchestrated run gets its plan from.
type Source interface {
	// Describe names the source for logs.
	Describe() string
	load(ctx context.Context, o *Orchestrator) (*Plan, []Entry, error)
}

type manifestSource struct {
	url string
}

// ManifestSource reads the plan from the manifest at url.
func ManifestSource(url string) Source {
	return manifestSource{url: url}
}

func (s manifestSource) Describe() string { return s.url }

func (s manifestSource) load(ctx context.Context, o *Orchestrator) (*Plan, []Entry, error) {
	return o.reader.Read(ctx, s.url)
}

type argsSource struct {
	args []string
}

// ArgsSource builds the plan from a command line of the form
// <launch-executable> <url-1> <file-1> <url-2> <file-2> ...
// without fetching a manifest.
func ArgsSource(args []string) Source {
	return argsSource{args: args}
}

func (s argsSource) Describe() string { return "command line" }

func (s argsSource) load(_ context.Context, o *Orchestrator) (*Plan, []Entry, error) {
	return EntriesFromArgs(s.args, o.selfName)
}

// EntriesFromArgs applies the manifest pairing rules to command-line arguments.
func EntriesFromArgs(args []string, selfName string) (*Plan, []Entry, error) {
	if len(args) == 0 {
		return nil, nil, ErrNoManifestSource
	}

	plan := &Plan{LaunchExecutable: args[0]}
	rest := args[1:]
	if len(rest)%2 != 0 {
		return nil, nil, fmt.Errorf("command line: %w: %q has no destination file", ErrUnevenManifest, rest[len(rest)-1])
	}
	if len(rest) == 0 {
		return nil, nil, fmt.Errorf("command line: %w", ErrEmptyManifest)
	}

	entries := make([]Entry, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		if rest[i] == "" || rest[i+1] == "" {
			return nil, nil, fmt.Errorf("command line: %w: empty URL or file at argument %d", ErrUnevenManifest, i+2)
		}
		entries = append(entries, NewEntry(rest[i], rest[i+1], selfName))
	}
	return plan, entries, nil
}

// IsAbsoluteURL reports whether s is an absolute URL with a host.
func IsAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}

// DiscoverSource returns the first argument that is an absolute URL and not
// an existing local path. Launchers may pass other arguments alongside the
// manifest address, so position alone cannot be trusted.
func DiscoverSource(args []string, exists func(string) bool) (string, error) {
	if exists == nil {
		exists = pathExists
	}
	for _, arg := range args {
		if IsAbsoluteURL(arg) && !exists(arg) {
			return arg, nil
		}
	}
	return "", ErrNoManifestSource
}

// SelectSource picks the bootstrap mode for args. With argsMode set the
// arguments are always read as a command-line plan. Otherwise arguments shaped
// like "<exe> <url> <file> [<url> <file>...]" are a command-line plan and
// anything else goes through manifest discovery. It returns nil when nothing
// usable was found.
func SelectSource(args []string, argsMode bool, exists func(string) bool) Source {
	if argsMode || looksLikeArgsPlan(args) {
		if len(args) == 0 {
			return nil
		}
		return ArgsSource(args)
	}
	if u, err := DiscoverSource(args, exists); err == nil {
		return ManifestSource(u)
	}
	return nil
}

func looksLikeArgsPlan(args []string) bool {
	if len(args) < 3 || len(args)%2 == 0 || IsAbsoluteURL(args[0]) {
		return false
	}
	for i := 1; i < len(args); i += 2 {
		if !IsAbsoluteURL(args[i]) {
			return false
		}
	}
	return true
}

func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
