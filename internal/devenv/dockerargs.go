// SPDX-License-Identifier: MPL-2.0

package devenv

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"

	"github.com/devlayer/devlayer/internal/config"
)

// DockerArgsFileName is the per-user and shared docker arguments file name.
const DockerArgsFileName = ".devlayer-dockerargs"

const realpathPrefix = "`realpath "

// RealpathFunc resolves a path to its canonical absolute form.
type RealpathFunc func(path string) (string, error)

// DockerArgsCandidates lists the docker arguments files in load order:
// $DOCKER_ARGS_FILE, the user's home file, then the first shared file found
// among config.DefaultCandidates.
func DockerArgsCandidates(getenv func(string) string, home, binaryDir string) []string {
	var files []string
	if f := getenv(config.EnvDockerArgsFile); f != "" {
		files = append(files, expandHome(f, home))
	}
	if home != "" {
		files = append(files, filepath.Join(home, DockerArgsFileName))
	}
	if shared, ok := config.FindFirst(config.DefaultCandidates(DockerArgsFileName, getenv, binaryDir)); ok {
		files = append(files, shared)
	}
	return files
}

// ParseDockerArgs reads one or more docker run arguments per line. Blank
// lines and # comments are skipped, a quoted line has its outer quotes
// removed, "`realpath P`" is replaced by the quoted canonical path, and the
// line is split into words with $VAR expansion from env.
func ParseDockerArgs(r io.Reader, env func(string) string, realpath RealpathFunc) ([]string, error) {
	var args []string
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = stripOuterQuotes(line)

		line, err := substituteRealpath(line, realpath)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		fields, err := shell.Fields(line, env)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		args = append(args, fields...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return args, nil
}

// LoadDockerArgs parses every existing file in paths, in order.
func LoadDockerArgs(paths []string, env func(string) string, realpath RealpathFunc) (args, used []string, err error) {
	for _, p := range paths {
		info, statErr := os.Stat(p)
		if statErr != nil || !info.Mode().IsRegular() {
			continue
		}
		f, openErr := os.Open(p)
		if openErr != nil {
			return nil, nil, openErr
		}
		fileArgs, parseErr := ParseDockerArgs(f, env, realpath)
		f.Close()
		if parseErr != nil {
			return nil, nil, fmt.Errorf("%s: %w", p, parseErr)
		}
		args = append(args, fileArgs...)
		used = append(used, p)
	}
	return args, used, nil
}

func stripOuterQuotes(line string) string {
	if len(line) >= 2 {
		first, last := line[0], line[len(line)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return line[1 : len(line)-1]
		}
	}
	return line
}

func substituteRealpath(line string, realpath RealpathFunc) (string, error) {
	for {
		start := strings.Index(line, realpathPrefix)
		if start < 0 {
			return line, nil
		}
		rest := line[start+len(realpathPrefix):]
		end := strings.IndexByte(rest, '`')
		if end < 0 {
			return "", fmt.Errorf("unterminated realpath expression")
		}
		resolved, err := realpath(strings.TrimSpace(rest[:end]))
		if err != nil {
			return "", err
		}
		quoted, err := syntax.Quote(resolved, syntax.LangBash)
		if err != nil {
			return "", err
		}
		line = line[:start] + quoted + rest[end+1:]
	}
}

// HostRealpath expands a leading ~ and resolves symlinks.
func HostRealpath(home string) RealpathFunc {
	return func(p string) (string, error) {
		abs, err := filepath.Abs(expandHome(p, home))
		if err != nil {
			return "", err
		}
		return filepath.EvalSymlinks(abs)
	}
}

func expandHome(p, home string) string {
	if home == "" {
		return p
	}
	if p == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		return filepath.Join(home, rest)
	}
	return p
}
