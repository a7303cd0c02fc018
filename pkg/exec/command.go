package exec

// Command is a leaf opcode: it wraps a function of ctx to Outcome or
// error. Every Command's prologue increments the current frame's action
// counter exactly once, and fails if the frame stack is empty (spec
// §4.3's "Command (leaf opcode)").
type Command struct {
	Name string
	Fn   func(ctx *Context) (Outcome, error)
}

// NewCommand wraps fn as a named leaf opcode.
func NewCommand(name string, fn func(ctx *Context) (Outcome, error)) *Command {
	return &Command{Name: name, Fn: fn}
}

// Execute runs the command's prologue, then its wrapped function.
func (c *Command) Execute(ctx *Context) (Outcome, error) {
	if err := ctx.Frames.IncrementAction(); err != nil {
		return 0, Newf("%s: %s", c.Name, err.Error())
	}
	outcome, err := c.Fn(ctx)
	if err != nil {
		if rerr, ok := err.(*RuntimeError); ok {
			return 0, rerr
		}
		return 0, Newf("%s: %s", c.Name, err.Error())
	}
	return outcome, nil
}
