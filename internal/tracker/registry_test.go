package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/tkc/taskdeck/internal/domain"
	"gopkg.in/yaml.v3"
)

// stubRepo はシリアライズ確認用の最小コネクタ
type stubRepo struct {
	Label string `yaml:"name"`
	Addr  string `yaml:"addr"`
}

func (r *stubRepo) Type() string       { return "stub" }
func (r *stubRepo) Name() string       { return r.Label }
func (r *stubRepo) URL() string        { return r.Addr }
func (r *stubRepo) IsConfigured() bool { return r.Addr != "" }

func (r *stubRepo) GetIssues(ctx context.Context, query string, max int, since time.Time) ([]domain.Issue, error) {
	return nil, nil
}

func (r *stubRepo) FindIssue(ctx context.Context, id string) (*domain.Issue, error) {
	return nil, nil
}

func (r *stubRepo) ExtractID(id string) string { return "" }

func (r *stubRepo) TestConnection(ctx context.Context) error { return nil }

func init() {
	RegisterType("stub", func() Repository { return &stubRepo{} })
}

func TestTypeNames(t *testing.T) {
	found := false
	for _, name := range TypeNames() {
		if name == "stub" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected registered type names to include stub, got %v", TypeNames())
	}
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	repo := &stubRepo{Label: "main", Addr: "https://tracker.example"}

	saved, err := MarshalRepositories([]Repository{repo})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(saved) != 1 || saved[0].Type != "stub" {
		t.Fatalf("Expected 1 saved entry of type stub, got %v", saved)
	}

	restored := UnmarshalRepositories(saved)
	if len(restored) != 1 {
		t.Fatalf("Expected 1 restored repository, got %d", len(restored))
	}
	got, ok := restored[0].(*stubRepo)
	if !ok {
		t.Fatalf("Expected a *stubRepo, got %T", restored[0])
	}
	if got.Label != repo.Label || got.Addr != repo.Addr {
		t.Errorf("Expected %+v, got %+v", repo, got)
	}
}

func TestUnmarshalDropsUnknownType(t *testing.T) {
	var spec yaml.Node
	if err := spec.Encode(&stubRepo{Label: "orphan"}); err != nil {
		t.Fatal(err)
	}

	restored := UnmarshalRepositories([]Saved{
		{Type: "no-such-type", Spec: spec},
		{Type: "stub", Spec: spec},
	})
	if len(restored) != 1 {
		t.Fatalf("Expected the unknown type to be dropped, got %d repositories", len(restored))
	}
	if restored[0].Name() != "orphan" {
		t.Errorf("Expected the surviving entry, got %s", restored[0].Name())
	}
}

func TestUnmarshalDropsBrokenSpec(t *testing.T) {
	var broken yaml.Node
	if err := broken.Encode("not a mapping"); err != nil {
		t.Fatal(err)
	}

	restored := UnmarshalRepositories([]Saved{{Type: "stub", Spec: broken}})
	if len(restored) != 0 {
		t.Errorf("Expected the broken entry to be dropped, got %d repositories", len(restored))
	}
}
