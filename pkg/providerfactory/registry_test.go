package providerfactory

import (
	"errors"
	"reflect"
	"testing"

	"iqtoolkit/analyzer/internal/routing"
	"iqtoolkit/analyzer/pkg/providers"
)

func mockBuilder(config providers.ProviderConfig) (providers.Provider, error) {
	return routing.NewMockProvider(config.Name), nil
}

func TestNewRegistry_SkipsDisabled(t *testing.T) {
	configs := []providers.ProviderConfig{
		{Name: "ollama", Enabled: true},
		{Name: "openai", Enabled: false},
		{Name: "local", Enabled: true},
	}

	r, err := NewRegistryWithBuilder(configs, mockBuilder)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	defer r.Close()

	if r.Len() != 2 {
		t.Errorf("expected 2 providers, got %d", r.Len())
	}
	if !reflect.DeepEqual(r.Names(), []string{"local", "ollama"}) {
		t.Errorf("unexpected names %v", r.Names())
	}
	if r.Has("openai") {
		t.Error("disabled provider should not be registered")
	}
}

func TestNewRegistry_NoEnabledProviders(t *testing.T) {
	configs := []providers.ProviderConfig{{Name: "ollama", Enabled: false}}

	_, err := NewRegistryWithBuilder(configs, mockBuilder)
	if !errors.Is(err, ErrNoEnabledProviders) {
		t.Fatalf("expected ErrNoEnabledProviders, got %v", err)
	}

	if _, err := NewRegistryWithBuilder(nil, mockBuilder); !errors.Is(err, ErrNoEnabledProviders) {
		t.Fatalf("expected ErrNoEnabledProviders for empty config, got %v", err)
	}
}

func TestNewRegistry_DuplicateAndEmptyNames(t *testing.T) {
	dup := []providers.ProviderConfig{
		{Name: "a", Enabled: true},
		{Name: "a", Enabled: true},
	}
	var ce *providers.ConfigError
	if _, err := NewRegistryWithBuilder(dup, mockBuilder); !errors.As(err, &ce) {
		t.Errorf("expected ConfigError for duplicate names, got %v", err)
	}

	empty := []providers.ProviderConfig{{Name: "", Enabled: true}}
	if _, err := NewRegistryWithBuilder(empty, mockBuilder); !errors.As(err, &ce) {
		t.Errorf("expected ConfigError for empty name, got %v", err)
	}
}

func TestNewRegistry_BuilderError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewRegistryWithBuilder(
		[]providers.ProviderConfig{{Name: "a", Enabled: true}},
		func(providers.ProviderConfig) (providers.Provider, error) { return nil, boom },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("expected builder error, got %v", err)
	}
}

func TestRegistry_Get(t *testing.T) {
	r, err := NewRegistryFromProviders(routing.NewMockProvider("ollama"))
	if err != nil {
		t.Fatalf("NewRegistryFromProviders failed: %v", err)
	}

	p, err := r.Get("ollama")
	if err != nil || p.GetName() != "ollama" {
		t.Fatalf("Get(ollama) = %v, %v", p, err)
	}

	if _, err := r.Get("missing"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestRegistry_ProvidersReturnsCopy(t *testing.T) {
	r, _ := NewRegistryFromProviders(routing.NewMockProvider("a"), routing.NewMockProvider("b"))

	m := r.Providers()
	delete(m, "a")
	if !r.Has("a") {
		t.Error("mutating the returned map changed the registry")
	}
}

func TestRegistry_HealthDetails(t *testing.T) {
	a := routing.NewMockProvider("a")
	b := routing.NewMockProvider("b")
	b.SetHealthy(false)
	r, _ := NewRegistryFromProviders(a, b)

	details := r.HealthDetails()
	if len(details) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(details))
	}
	if !details["a"].IsHealthy || details["b"].IsHealthy {
		t.Errorf("unexpected details %+v", details)
	}
}

func TestNewRegistry_RealAdapters(t *testing.T) {
	configs := []providers.ProviderConfig{
		{Name: "ollama", Protocol: providers.ProtocolGenerate, BaseURL: "http://localhost:11434", Model: "llama2:13b", Enabled: true},
		{Name: "openai", Protocol: providers.ProtocolChat, BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini", APIKey: "k", Enabled: true},
	}

	r, err := NewRegistry(configs)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	defer r.Close()

	p, _ := r.Get("ollama")
	if p.GetProtocol() != providers.ProtocolGenerate {
		t.Errorf("ollama protocol = %s", p.GetProtocol())
	}
}
