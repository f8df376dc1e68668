package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/harun/warden/pkg/agent"
)

// printer renders run events on stdout.
type printer struct {
	out     io.Writer
	verbose bool
}

func (p *printer) observe(ev agent.Event) {
	switch {
	case ev.Usage != nil:
		if p.verbose {
			fmt.Fprintf(p.out, "Prompt tokens: %d\n", ev.Usage.InputTokens)
			fmt.Fprintf(p.out, "Response tokens: %d\n", ev.Usage.OutputTokens)
		}
	case ev.Call != nil && ev.Result == nil:
		if p.verbose {
			fmt.Fprintf(p.out, "Calling function: %s(%s)\n", ev.Call.Name, compactJSON(ev.Call.Arguments))
		} else {
			fmt.Fprintf(p.out, " - Calling function: %s\n", ev.Call.Name)
		}
	case ev.Result != nil:
		if p.verbose {
			fmt.Fprintf(p.out, "-> %s\n", compactJSON(ev.Result.Envelope()))
		}
	}
}

func (p *printer) answer(result agent.RunResult) {
	fmt.Fprintln(p.out, "Response:")
	fmt.Fprintln(p.out, result.Answer)
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
