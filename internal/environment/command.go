package environment

import (
	"context"
	"fmt"
	"io"
	"regexp"
)

// variableRef matches "{{name}}" template placeholders. The original uses
// Handlebars; no library in the corpus offers flat variable substitution
// without pulling in a templating engine far larger than this need, so a
// small regex substitution stands in for it (see DESIGN.md).
var variableRef = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Command accumulates a shell script line by line without running
// anything; Send materializes and executes it against an Environment. This
// "describe now, run later" shape lets a Transform build up staging steps
// and a build script using the same fluent API before handing it to the
// scheduler's retry loop.
type Command struct {
	ID          string
	Interpreter string
	Lines       []string
	Variables   map[string]string
}

// NewCommand returns a Command using "bash" as its interpreter, matching
// the teacher-and-original default.
func NewCommand(id string) *Command {
	return &Command{ID: id, Interpreter: "bash", Variables: map[string]string{}}
}

// Set stores a template variable after substituting any already-known
// variables into its value, so variables can build on each other.
func (c *Command) Set(key, value string) {
	c.Variables[key] = c.sub(value)
}

// sub replaces every {{name}} in line with its current variable value,
// leaving unknown placeholders untouched.
func (c *Command) sub(line string) string {
	return variableRef.ReplaceAllStringFunc(line, func(m string) string {
		name := variableRef.FindStringSubmatch(m)[1]
		if v, ok := c.Variables[name]; ok {
			return v
		}
		return m
	})
}

func (c *Command) push(line string) {
	c.Lines = append(c.Lines, c.sub(line))
}

func (c *Command) Chdir(path string)               { c.push(fmt.Sprintf("cd %q", path)) }
func (c *Command) Pushd(path string)                { c.push(fmt.Sprintf("pushd %q", path)) }
func (c *Command) Popd()                            { c.push("popd") }
func (c *Command) CreateNamedDir(name, path string) { c.push(fmt.Sprintf("mkdir -p %q # %s", path, name)) }
func (c *Command) CreateDir(path string)            { c.push(fmt.Sprintf("mkdir -p %q", path)) }
func (c *Command) RemoveDir(path string)            { c.push(fmt.Sprintf("rm -rf %q", path)) }
func (c *Command) RemoveFile(path string)           { c.push(fmt.Sprintf("rm -f %q", path)) }
func (c *Command) Mv(from, to string)               { c.push(fmt.Sprintf("mv %q %q", from, to)) }
func (c *Command) Copy(from, to string)             { c.push(fmt.Sprintf("cp -r %q %q", from, to)) }

// Run appends a raw line to the script, for whatever shell invocation a
// transform needs that the helpers above don't cover.
func (c *Command) Run(line string) { c.push(line) }

// Script renders the accumulated lines as a shebang script, ready to be
// written out and executed.
func (c *Command) Script() string {
	out := "#!/usr/bin/env " + c.Interpreter + "\n"
	for _, l := range c.Lines {
		out += l + "\n"
	}
	return out
}

// Send expands dir within env, writes the rendered script, and runs it,
// returning an error if the environment reports a non-zero exit.
func (c *Command) Send(ctx context.Context, env Environment, log io.Writer, dir string) error {
	expanded, err := env.Expand(dir)
	if err != nil {
		return fmt.Errorf("environment: expanding %q: %w", dir, err)
	}
	ok, err := env.Run(ctx, log, c.ID, expanded, c)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("environment: command %q exited non-zero", c.ID)
	}
	return nil
}
