package llm

import (
	"context"
	"fmt"
	"sync"

	"pagecraft/internal/extract"
)

// Response is one canned reply for a Scripted client.
type Response struct {
	Text   string
	Object map[string]any
	Err    error
}

// Scripted replays a fixed queue of responses and records every prompt it
// receives. It backs tests and the CLI dry-run mode. Scripted implements
// Client and StreamingClient; wrap it in ScriptedStructured when the
// structured-output capability should be visible.
type Scripted struct {
	mu sync.Mutex

	// Queue is consumed front to back, one entry per call.
	Queue []Response

	// FragmentSize splits streamed responses into chunks of this many
	// bytes. Zero streams each response as a single fragment.
	FragmentSize int

	// Prompts records every prompt in call order.
	Prompts []string
}

// Model returns a fixed placeholder id.
func (s *Scripted) Model() string { return "scripted" }

func (s *Scripted) next(prompt string) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if len(s.Queue) == 0 {
		return Response{}, fmt.Errorf("scripted client exhausted after %d calls", len(s.Prompts)-1)
	}
	resp := s.Queue[0]
	s.Queue = s.Queue[1:]
	return resp, nil
}

// Generate pops the next scripted response.
func (s *Scripted) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := s.next(prompt)
	if err != nil {
		return "", err
	}
	if resp.Err != nil {
		return "", resp.Err
	}
	return resp.Text, nil
}

// GenerateStream pops the next scripted response and replays it as
// fragments.
func (s *Scripted) GenerateStream(ctx context.Context, prompt string, fn func(fragment string) error) (string, error) {
	resp, err := s.next(prompt)
	if err != nil {
		return "", err
	}
	if resp.Err != nil {
		return "", resp.Err
	}

	size := s.FragmentSize
	if size <= 0 {
		size = len(resp.Text)
	}
	for i := 0; i < len(resp.Text); i += size {
		end := i + size
		if end > len(resp.Text) {
			end = len(resp.Text)
		}
		if fn != nil {
			if err := fn(resp.Text[i:end]); err != nil {
				return resp.Text[:end], err
			}
		}
	}
	return resp.Text, nil
}

// ScriptedStructured adds the structured-output capability to a Scripted
// client.
type ScriptedStructured struct {
	*Scripted
}

// GenerateStructured pops the next scripted response and returns its
// object. A text-only response is decoded the way a real structured client
// would decode it, so scripts can replay malformed structured output.
func (s *ScriptedStructured) GenerateStructured(ctx context.Context, prompt string, schema map[string]any) (map[string]any, error) {
	resp, err := s.next(prompt)
	if err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	if resp.Object == nil {
		return extract.Object(resp.Text)
	}
	return resp.Object, nil
}
