package chat

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// previewLength is the number of characters kept by Preview
const previewLength = 60

// Prefix is a saved block of standing instructions prepended to outgoing messages
type Prefix struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Content   string    `json:"content" yaml:"content"`
	CreatedAt time.Time `json:"createdAt" yaml:"created_at"`
}

// Registry holds the saved prefixes and the active-prefix reference.
// The active reference is a lookup key and may dangle; reads re-resolve it.
// Registry is not safe for concurrent use; App serializes access.
type Registry struct {
	store    SettingsStore
	prefixes []Prefix
	activeID string

	now   func() time.Time
	newID func() string
}

// LoadRegistry reads prefixes and the active reference from store. The
// built-in prefixes are seeded when the store has never held a prefix list.
func LoadRegistry(store SettingsStore) (*Registry, error) {
	r := &Registry{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}

	raw, ok, err := store.GetSetting(KeyPrefixes)
	if err != nil {
		return nil, fmt.Errorf("failed to read prefixes: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &r.prefixes); err != nil {
			return nil, fmt.Errorf("failed to parse prefixes: %w", err)
		}
	}

	active, _, err := store.GetSetting(KeyActivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to read active prefix: %w", err)
	}
	r.activeID = active

	if !ok && len(r.prefixes) == 0 {
		if err := r.persist(defaultPrefixes(r.now())); err != nil {
			return nil, fmt.Errorf("failed to seed default prefixes: %w", err)
		}
	}

	return r, nil
}

// List returns a copy of the prefixes in insertion order
func (r *Registry) List() []Prefix {
	out := make([]Prefix, len(r.prefixes))
	copy(out, r.prefixes)
	return out
}

// Get returns the prefix with the given id
func (r *Registry) Get(id string) (Prefix, bool) {
	if i := r.indexOf(id); i >= 0 {
		return r.prefixes[i], true
	}
	return Prefix{}, false
}

// Create validates and appends a new prefix
func (r *Registry) Create(name, content string) (Prefix, error) {
	name, content, err := validatePrefix(name, content)
	if err != nil {
		return Prefix{}, err
	}

	p := Prefix{
		ID:        r.newID(),
		Name:      name,
		Content:   content,
		CreatedAt: r.now(),
	}

	next := append(r.List(), p)
	if err := r.persist(next); err != nil {
		return Prefix{}, err
	}
	return p, nil
}

// Update replaces name and content of an existing prefix, keeping its id and creation time
func (r *Registry) Update(id, name, content string) (Prefix, error) {
	i := r.indexOf(id)
	if i < 0 {
		return Prefix{}, &NotFoundError{Kind: "prefix", ID: id}
	}
	name, content, err := validatePrefix(name, content)
	if err != nil {
		return Prefix{}, err
	}

	next := r.List()
	next[i].Name = name
	next[i].Content = content
	if err := r.persist(next); err != nil {
		return Prefix{}, err
	}
	return next[i], nil
}

// Delete removes a prefix and clears the active reference if it pointed at it
func (r *Registry) Delete(id string) error {
	i := r.indexOf(id)
	if i < 0 {
		return &NotFoundError{Kind: "prefix", ID: id}
	}

	next := make([]Prefix, 0, len(r.prefixes)-1)
	next = append(next, r.prefixes[:i]...)
	next = append(next, r.prefixes[i+1:]...)
	if err := r.persist(next); err != nil {
		return err
	}

	if r.activeID == id {
		return r.SetActive("")
	}
	return nil
}

// SetActive sets the active reference. The id is not validated.
func (r *Registry) SetActive(id string) error {
	if err := r.store.SetSetting(KeyActivePrefix, id); err != nil {
		return fmt.Errorf("failed to save active prefix: %w", err)
	}
	r.activeID = id
	return nil
}

// ActiveID returns the raw active reference, which may dangle
func (r *Registry) ActiveID() string {
	return r.activeID
}

// Active resolves the active reference
func (r *Registry) Active() (Prefix, bool) {
	if r.activeID == "" {
		return Prefix{}, false
	}
	return r.Get(r.activeID)
}

// ActiveContent returns the active prefix content, or "" when none resolves
func (r *Registry) ActiveContent() string {
	p, ok := r.Active()
	if !ok {
		return ""
	}
	return p.Content
}

// Preview shortens prefix content for quick-pick lists
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= previewLength {
		return content
	}
	return string(runes[:previewLength]) + "..."
}

func (r *Registry) indexOf(id string) int {
	for i, p := range r.prefixes {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the full list and only then adopts it in memory
func (r *Registry) persist(next []Prefix) error {
	if next == nil {
		next = []Prefix{}
	}
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal prefixes: %w", err)
	}
	if err := r.store.SetSetting(KeyPrefixes, string(data)); err != nil {
		return fmt.Errorf("failed to save prefixes: %w", err)
	}
	r.prefixes = next
	return nil
}

func validatePrefix(name, content string) (string, string, error) {
	name = strings.TrimSpace(name)
	content = strings.TrimSpace(content)
	if name == "" {
		return "", "", &ValidationError{Field: "name", Reason: "prefix name must not be empty"}
	}
	if content == "" {
		return "", "", &ValidationError{Field: "content", Reason: "prefix content must not be empty"}
	}
	return name, content, nil
}
