package resolver

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PNdlovu/writecarenotes-sub002/internal/models"
)

// ErrUnknownPolicy возвращается при разборе неизвестного имени политики.
var ErrUnknownPolicy = errors.New("unknown resolution policy")

// Kind тип политики разрешения конфликтов.
type Kind int

const (
	KindRemoteWins Kind = iota
	KindLocalWins
	KindFieldMerge
	KindManual
)

// Policy names as they appear in configuration.
const (
	NameRemoteWins = "remote_wins"
	NameLocalWins  = "local_wins"
	NameFieldMerge = "field_merge"
	NameManual     = "manual"
)

// MergeFunc combines a local mutation with the current remote entity.
// remote is nil when the entity does not exist on the server.
type MergeFunc func(local *models.MutationRecord, remote *models.EntitySnapshot) ([]byte, error)

// Policy выбирает победителя при конфликте.
type Policy struct {
	Merge MergeFunc // используется только для KindFieldMerge
	Kind  Kind
}

// RemoteWins отбрасывает локальное изменение в пользу сервера.
func RemoteWins() Policy { return Policy{Kind: KindRemoteWins} }

// LocalWins переигрывает локальное изменение поверх новой версии сервера.
func LocalWins() Policy { return Policy{Kind: KindLocalWins} }

// Manual оставляет конфликт человеку.
func Manual() Policy { return Policy{Kind: KindManual} }

// FieldMerge применяет результат функции слияния.
func FieldMerge(fn MergeFunc) Policy { return Policy{Kind: KindFieldMerge, Merge: fn} }

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p.Kind {
	case KindRemoteWins:
		return NameRemoteWins
	case KindLocalWins:
		return NameLocalWins
	case KindFieldMerge:
		return NameFieldMerge
	case KindManual:
		return NameManual
	default:
		return fmt.Sprintf("policy(%d)", int(p.Kind))
	}
}

// ParsePolicy builds a policy from its configuration name.
// preserveFields is only used by field_merge, which keeps the named
// top-level fields from the local payload on top of the remote document.
func ParsePolicy(name string, preserveFields []string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameRemoteWins, "":
		return RemoteWins(), nil
	case NameLocalWins:
		return LocalWins(), nil
	case NameManual, "manual_required":
		return Manual(), nil
	case NameFieldMerge:
		if len(preserveFields) == 0 {
			return Policy{}, fmt.Errorf("%w: field_merge requires preserve_fields", ErrUnknownPolicy)
		}
		return FieldMerge(PreserveLocalFields(preserveFields...)), nil
	default:
		return Policy{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Registry хранит политики по типам сущностей.
type Registry struct {
	policies map[string]Policy
	fallback Policy
	mu       sync.RWMutex
}

// NewRegistry creates a registry that answers fallback for unregistered types.
func NewRegistry(fallback Policy) *Registry {
	return &Registry{
		policies: make(map[string]Policy),
		fallback: fallback,
	}
}

// Register sets the policy for an entity type.
func (r *Registry) Register(entityType string, p Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.policies[entityType] = p
}

// For returns the policy for an entity type.
func (r *Registry) For(entityType string) Policy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if p, ok := r.policies[entityType]; ok {
		return p
	}
	return r.fallback
}

// PolicyConfig описывает политику в конфигурации.
type PolicyConfig struct {
	Policy         string   `mapstructure:"policy"`
	PreserveFields []string `mapstructure:"preserve_fields"`
}

// NewRegistryFromConfig builds a registry from the default policy name and
// the per-entity-type map.
func NewRegistryFromConfig(defaultPolicy string, entities map[string]PolicyConfig) (*Registry, error) {
	fallback, err := ParsePolicy(defaultPolicy, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse default policy: %w", err)
	}

	registry := NewRegistry(fallback)
	for entityType, cfg := range entities {
		p, err := ParsePolicy(cfg.Policy, cfg.PreserveFields)
		if err != nil {
			return nil, fmt.Errorf("failed to parse policy for %s: %w", entityType, err)
		}
		registry.Register(entityType, p)
	}

	return registry, nil
}
