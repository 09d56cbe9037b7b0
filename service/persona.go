package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Turn is one entry of the client-supplied dialogue history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Persona names a system directive plus the bits of presentation the clients
// render on their selection screen.
type Persona struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Greeting  string `json:"greeting"`
	Directive string `json:"-"`
}

var builtinPersonas = []Persona{
	{
		ID:       "socrates",
		Name:     "Socrates",
		Greeting: "Greetings. I am Socrates. What shall we ponder today?",
		Directive: "You are Socrates, the Athenian philosopher. Never lecture. " +
			"Answer every statement with probing questions that expose hidden " +
			"assumptions, and guide the interlocutor toward examining their own " +
			"beliefs about virtue, knowledge and the good life. Keep replies short, " +
			"conversational and in character.",
	},
	{
		ID:       "nietzsche",
		Name:     "Friedrich Nietzsche",
		Greeting: "So, you seek to converse with Nietzsche? Very well. What weighty matter burdens your thoughts?",
		Directive: "You are Friedrich Nietzsche. Challenge conventional morality, " +
			"praise intellectual courage, and speak in a forceful aphoristic voice. " +
			"Draw on the will to power, eternal recurrence and the revaluation of " +
			"values. Keep replies short and in character.",
	},
	{
		ID:       "kant",
		Name:     "Immanuel Kant",
		Greeting: "I am Immanuel Kant. Let us reason together. What subject calls for our examination?",
		Directive: "You are Immanuel Kant. Reason carefully and systematically about " +
			"duty, the categorical imperative and the limits of human understanding. " +
			"Be precise, measured and courteous. Keep replies short and in character.",
	},
}

// PersonaRegistry holds the selectable personas and the default used when a
// request names none or an unknown one.
type PersonaRegistry struct {
	personas  map[string]Persona
	order     []string
	defaultID string
}

// LoadPersonas builds the registry from the built-in set, overlaying any
// <id>_prompt.txt files found in dir. A default persona without a directive is
// a configuration error: the caller is expected to treat it as fatal.
func LoadPersonas(dir, defaultID string) (*PersonaRegistry, error) {
	registry := &PersonaRegistry{
		personas:  make(map[string]Persona),
		defaultID: defaultID,
	}
	for _, p := range builtinPersonas {
		registry.personas[p.ID] = p
		registry.order = append(registry.order, p.ID)
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read persona dir %s: %w", dir, err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, "_prompt.txt") {
				continue
			}
			id := strings.TrimSuffix(name, "_prompt.txt")
			data, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				return nil, fmt.Errorf("failed to read persona prompt %s: %w", name, err)
			}
			if p, ok := registry.personas[id]; ok {
				p.Directive = strings.TrimSpace(string(data))
				registry.personas[id] = p
			} else {
				registry.personas[id] = Persona{
					ID:        id,
					Name:      titleCase(id),
					Directive: strings.TrimSpace(string(data)),
				}
				registry.order = append(registry.order, id)
			}
		}
	}

	def, ok := registry.personas[defaultID]
	if !ok || def.Directive == "" {
		return nil, fmt.Errorf("default persona %q has no directive", defaultID)
	}
	return registry, nil
}

// Resolve returns the persona for id, falling back to the default for unknown
// or empty ids. The returned persona's ID is the effective one.
func (r *PersonaRegistry) Resolve(id string) Persona {
	if p, ok := r.personas[id]; ok && p.Directive != "" {
		return p
	}
	return r.personas[r.defaultID]
}

func (r *PersonaRegistry) DefaultID() string {
	return r.defaultID
}

// List returns the personas in registration order, for the clients' selection
// screen.
func (r *PersonaRegistry) List() []Persona {
	out := make([]Persona, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.personas[id])
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// WindowTurns keeps the most recent max turns in their original order. No
// summarizing, just a suffix cut.
func WindowTurns(turns []Turn, max int) []Turn {
	if max <= 0 || len(turns) <= max {
		return turns
	}
	return turns[len(turns)-max:]
}
