package notice

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ConsoleChannel prints notices to a writer. The chime kind is rendered with
// a BEL byte so a terminal-attached kitchen display actually beeps.
type ConsoleChannel struct {
	out io.Writer
}

func NewConsoleChannel() *ConsoleChannel {
	return &ConsoleChannel{out: os.Stdout}
}

func NewConsoleChannelWithWriter(out io.Writer) *ConsoleChannel {
	return &ConsoleChannel{out: out}
}

func (c *ConsoleChannel) Name() string {
	return "console"
}

func (c *ConsoleChannel) Send(_ context.Context, n Notice) error {
	prefix := ""
	if n.Kind == KindChime {
		prefix = "\a"
	}
	_, err := fmt.Fprintf(c.out, "%s[%s] %s: %s\n", prefix, n.Level, n.Title, n.Message)
	return err
}
