// Package providers defines the capability interfaces the pipeline stages
// are written against, and the registry that resolves configured provider
// names to adapters. Stage logic never branches on a provider name; swapping
// providers is purely a configuration change.
package providers

import (
	"context"
	"sync"

	"clipforge/types"
)

// Capability identifies one pluggable seam of the pipeline.
type Capability string

const (
	CapLLM        Capability = "llm"
	CapSearch     Capability = "search"
	CapPageFetch  Capability = "pagefetch"
	CapScreenshot Capability = "screenshot"
	CapVoice      Capability = "voice"
	CapEncoder    Capability = "encoder"
)

// CompleteRequest is one LLM call.
type CompleteRequest struct {
	System    string `json:"system,omitempty"`
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

// LLM is a text-completion provider.
type LLM interface {
	Name() string
	Complete(ctx context.Context, req CompleteRequest) (string, error)
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

// Search is a web search provider.
type Search interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

// PageFetcher extracts readable text from a URL.
type PageFetcher interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// CaptureRequest is one headless-browser screenshot.
type CaptureRequest struct {
	URL       string `json:"url"`
	FocusText string `json:"focus_text,omitempty"`
	// ScrollIndex distinguishes repeated captures of the same URL; each
	// scrolls further down the page.
	ScrollIndex int `json:"scroll_index"`
}

// Screenshot captures a rendered page as PNG bytes.
type Screenshot interface {
	Name() string
	Capture(ctx context.Context, req CaptureRequest) ([]byte, error)
}

// Voice synthesizes narration audio for one text segment.
type Voice interface {
	Name() string
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// TitleCardSpec describes a rendered fallback/title visual.
type TitleCardSpec struct {
	Title       string
	SegmentType string
	Accent      string
}

// AssembleRequest is the final encode: timeline plus narration track.
type AssembleRequest struct {
	Timeline   []types.TimelineInterval
	AudioPath  string
	OutputPath string
}

// Encoder turns stills and audio into the final video and measures media
// durations.
type Encoder interface {
	Name() string
	RenderTitleCard(ctx context.Context, spec TitleCardSpec, outPath string) error
	ConcatAudio(ctx context.Context, paths []string, outPath string) error
	Assemble(ctx context.Context, req AssembleRequest) (string, error)
	// Probe returns the measured duration of a media file in seconds.
	Probe(ctx context.Context, mediaPath string) (float64, error)
}

// Registry resolves (capability, name) pairs to adapters. Populated once at
// startup from the resolved configuration.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Capability]map[string]interface{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[Capability]map[string]interface{})}
}

func (r *Registry) register(cap Capability, name string, adapter interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.adapters[cap] == nil {
		r.adapters[cap] = make(map[string]interface{})
	}
	r.adapters[cap][name] = adapter
}

func (r *Registry) resolve(cap Capability, name string) (interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[cap][name]
	if !ok {
		return nil, &UnknownProviderError{Capability: cap, Name: name}
	}
	return adapter, nil
}

// RegisterLLM adds an LLM adapter under its name.
func (r *Registry) RegisterLLM(p LLM) { r.register(CapLLM, p.Name(), p) }

// RegisterSearch adds a search adapter under its name.
func (r *Registry) RegisterSearch(p Search) { r.register(CapSearch, p.Name(), p) }

// RegisterPageFetcher adds a page-fetch adapter under its name.
func (r *Registry) RegisterPageFetcher(p PageFetcher) { r.register(CapPageFetch, p.Name(), p) }

// RegisterScreenshot adds a screenshot adapter under its name.
func (r *Registry) RegisterScreenshot(p Screenshot) { r.register(CapScreenshot, p.Name(), p) }

// RegisterVoice adds a voice adapter under its name.
func (r *Registry) RegisterVoice(p Voice) { r.register(CapVoice, p.Name(), p) }

// RegisterEncoder adds an encoder adapter under its name.
func (r *Registry) RegisterEncoder(p Encoder) { r.register(CapEncoder, p.Name(), p) }

// LLM resolves a configured LLM provider name.
func (r *Registry) LLM(name string) (LLM, error) {
	a, err := r.resolve(CapLLM, name)
	if err != nil {
		return nil, err
	}
	return a.(LLM), nil
}

// Search resolves a configured search provider name.
func (r *Registry) Search(name string) (Search, error) {
	a, err := r.resolve(CapSearch, name)
	if err != nil {
		return nil, err
	}
	return a.(Search), nil
}

// PageFetcher resolves a configured page-fetch provider name.
func (r *Registry) PageFetcher(name string) (PageFetcher, error) {
	a, err := r.resolve(CapPageFetch, name)
	if err != nil {
		return nil, err
	}
	return a.(PageFetcher), nil
}

// Screenshot resolves a configured screenshot provider name.
func (r *Registry) Screenshot(name string) (Screenshot, error) {
	a, err := r.resolve(CapScreenshot, name)
	if err != nil {
		return nil, err
	}
	return a.(Screenshot), nil
}

// Voice resolves a configured voice provider name.
func (r *Registry) Voice(name string) (Voice, error) {
	a, err := r.resolve(CapVoice, name)
	if err != nil {
		return nil, err
	}
	return a.(Voice), nil
}

// Encoder resolves a configured encoder provider name.
func (r *Registry) Encoder(name string) (Encoder, error) {
	a, err := r.resolve(CapEncoder, name)
	if err != nil {
		return nil, err
	}
	return a.(Encoder), nil
}
