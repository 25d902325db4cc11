// Package mapping verifies or creates the remote index schema at startup,
// refusing to proceed against an index whose shape does not match exactly.
package mapping

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/ChristianF88/logarchivist/esclient"
)

// requiredHealthKeys are the top-level keys a genuine index server's root
// response must mostly contain; the check passes at 3 of 5.
var requiredHealthKeys = []string{"name", "cluster_name", "cluster_uuid", "version", "tagline"}

const healthKeyThreshold = 3

// Prompter asks the operator a yes/no/quit question when the index is
// missing, returning one of 'y', 'n', 'q'.
type Prompter interface {
	Prompt(question string) (rune, error)
}

// StdPrompter reads y/n/q answers from an io.Reader (normally os.Stdin).
type StdPrompter struct {
	In  io.Reader
	Out io.Writer
}

func (p StdPrompter) Prompt(question string) (rune, error) {
	fmt.Fprintf(p.Out, "%s (y/n/q) ", question)
	reader := bufio.NewReader(p.In)
	for {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return 0, fmt.Errorf("reading operator response: %w", err)
		}
		for _, r := range line {
			switch r {
			case 'y', 'Y':
				return 'y', nil
			case 'n', 'N':
				return 'n', nil
			case 'q', 'Q':
				return 'q', nil
			}
		}
		fmt.Fprint(p.Out, "please answer y, n, or q: ")
	}
}

// SchemaMismatchError is fatal: the process must not proceed against an
// index whose property set does not match exactly.
type SchemaMismatchError struct {
	Missing []string
	Extra   []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("index mapping mismatch: missing=%v extra=%v", e.Missing, e.Extra)
}

// NotIndexServerError means the health-check at / failed to look like a
// genuine document store.
type NotIndexServerError struct {
	Found int
}

func (e *NotIndexServerError) Error() string {
	return fmt.Sprintf("endpoint does not look like an index server: found %d/%d expected health keys", e.Found, len(requiredHealthKeys))
}

// DeclinedError is returned when the operator answers 'n' or 'q' to the
// create-index prompt.
type DeclinedError struct {
	Quit bool
}

func (e *DeclinedError) Error() string {
	if e.Quit {
		return "operator requested termination"
	}
	return "operator declined index creation"
}

// EnsureIndex runs the three-step startup check from the mapping manager
// design: health-check, mapping comparison, and (on a missing index)
// interactive creation.
func EnsureIndex(ctx context.Context, client *esclient.Client, prompter Prompter) error {
	if err := checkHealth(ctx, client); err != nil {
		return err
	}

	schema, exists, err := client.GetMapping(ctx)
	if err != nil {
		return fmt.Errorf("fetching index mapping: %w", err)
	}

	if exists {
		return compareSchema(schema)
	}

	answer, err := prompter.Prompt("index does not exist; create it now?")
	if err != nil {
		return fmt.Errorf("prompting operator: %w", err)
	}
	switch answer {
	case 'y':
		ack, err := client.CreateIndex(ctx)
		if err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
		if !ack {
			return fmt.Errorf("index creation was not acknowledged")
		}
		return nil
	case 'q':
		return &DeclinedError{Quit: true}
	default:
		return &DeclinedError{}
	}
}

func checkHealth(ctx context.Context, client *esclient.Client) error {
	health, err := client.Health(ctx)
	if err != nil {
		return fmt.Errorf("health-checking endpoint: %w", err)
	}
	found := 0
	for _, key := range requiredHealthKeys {
		if _, ok := health[key]; ok {
			found++
		}
	}
	if found < healthKeyThreshold {
		return &NotIndexServerError{Found: found}
	}
	return nil
}

func compareSchema(got esclient.Schema) error {
	want := esclient.PropertyNames()
	gotNames := make(map[string]struct{}, len(got.Mappings.Properties))
	for name := range got.Mappings.Properties {
		gotNames[name] = struct{}{}
	}

	var missing, extra []string
	for name := range want {
		if _, ok := gotNames[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range gotNames {
		if _, ok := want[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		return &SchemaMismatchError{Missing: missing, Extra: extra}
	}
	return nil
}
