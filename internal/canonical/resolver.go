// Package canonical maintains the registry of canonical field mappings:
// semantic names (plus aliases) bound to the actual extracted field name in
// each document template. The resolver mirrors the backing store in an
// in-memory cache that is refreshed synchronously after every write, so
// resolution is read-consistent within a process.
package canonical

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/doclens/doclens/internal/models"
)

// Store defines the data access methods the resolver depends on.
type Store interface {
	ListMappings(ctx context.Context, tenantID string) ([]models.CanonicalFieldMapping, error)
	CreateMapping(ctx context.Context, tenantID string, m models.CanonicalFieldMapping) (*models.CanonicalFieldMapping, error)
	UpdateMapping(ctx context.Context, tenantID string, m models.CanonicalFieldMapping) (*models.CanonicalFieldMapping, error)
	DeleteMapping(ctx context.Context, tenantID, id string) error
}

// registry is one tenant's resolved view of the mapping table.
type registry struct {
	byID    map[string]*models.CanonicalFieldMapping
	byName  map[string]*models.CanonicalFieldMapping // lowercased canonical names
	byAlias map[string]*models.CanonicalFieldMapping // lowercased aliases
}

// Resolver resolves semantic field names and owns mapping CRUD.
type Resolver struct {
	store Store
	log   *logrus.Logger

	mu       sync.RWMutex
	byTenant map[string]*registry
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store Store, log *logrus.Logger) *Resolver {
	return &Resolver{
		store:    store,
		log:      log,
		byTenant: make(map[string]*registry),
	}
}

// Resolve returns the canonical name for a name or alias, or "" when the
// input is not a known canonical field. Exact canonical names win over
// aliases; both lookups are case-insensitive. Callers treat "" as "not a
// canonical field" and fall back to a literal field lookup.
func (r *Resolver) Resolve(ctx context.Context, tenantID, nameOrAlias string) (string, error) {
	reg, err := r.registryFor(ctx, tenantID)
	if err != nil {
		return "", err
	}

	key := strings.ToLower(strings.TrimSpace(nameOrAlias))
	if key == "" {
		return "", nil
	}

	if m, ok := reg.byName[key]; ok && m.IsActive {
		return m.CanonicalName, nil
	}
	if m, ok := reg.byAlias[key]; ok && m.IsActive {
		return m.CanonicalName, nil
	}

	return "", nil
}

// FieldsFor returns the union of every template's mapped field for the given
// canonical name (or alias), sorted and deduplicated. Callers use this to
// build cross-template aggregation expressions.
func (r *Resolver) FieldsFor(ctx context.Context, tenantID, nameOrAlias string) ([]string, error) {
	m, err := r.Mapping(ctx, tenantID, nameOrAlias)
	if err != nil || m == nil {
		return nil, err
	}

	set := make(map[string]struct{}, len(m.FieldMappings))
	for _, field := range m.FieldMappings {
		set[field] = struct{}{}
	}

	fields := make([]string, 0, len(set))
	for f := range set {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	return fields, nil
}

// Mapping returns the full mapping for a canonical name or alias, or nil when
// unknown.
func (r *Resolver) Mapping(ctx context.Context, tenantID, nameOrAlias string) (*models.CanonicalFieldMapping, error) {
	reg, err := r.registryFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	key := strings.ToLower(strings.TrimSpace(nameOrAlias))

	if m, ok := reg.byName[key]; ok && m.IsActive {
		return m, nil
	}
	if m, ok := reg.byAlias[key]; ok && m.IsActive {
		return m, nil
	}

	return nil, nil
}

// List returns all mappings for the tenant, sorted by canonical name.
func (r *Resolver) List(ctx context.Context, tenantID string) ([]models.CanonicalFieldMapping, error) {
	reg, err := r.registryFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	out := make([]models.CanonicalFieldMapping, 0, len(reg.byID))
	for _, m := range reg.byID {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })

	return out, nil
}

// CanonicalNames returns the active canonical names for the tenant, sorted.
// The translator includes these in its prompt so the LLM can pick
// canonical_field over field where one applies.
func (r *Resolver) CanonicalNames(ctx context.Context, tenantID string) ([]string, error) {
	reg, err := r.registryFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(reg.byName))
	for _, m := range reg.byName {
		if m.IsActive {
			names = append(names, m.CanonicalName)
		}
	}
	sort.Strings(names)

	return names, nil
}

// Create registers a new mapping. The canonical name and every alias must be
// unique across the registry (names and aliases of all existing mappings).
func (r *Resolver) Create(
	ctx context.Context, tenantID string, req models.CreateCanonicalFieldRequest,
) (*models.CanonicalFieldMapping, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reg, err := r.registryFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	m := models.CanonicalFieldMapping{
		CanonicalName:   req.CanonicalName,
		FieldMappings:   req.FieldMappings,
		AggregationType: req.AggregationType,
		Aliases:         req.Aliases,
		IsActive:        true,
	}

	if err := checkUnique(reg, &m, ""); err != nil {
		return nil, err
	}

	created, err := r.store.CreateMapping(ctx, tenantID, m)
	if err != nil {
		return nil, fmt.Errorf("creating canonical mapping: %w", err)
	}

	if err := r.Refresh(ctx, tenantID); err != nil {
		return nil, err
	}

	r.log.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"canonical_name": created.CanonicalName,
	}).Info("canonical.create")

	return created, nil
}

// Update edits an existing mapping. System mappings only accept extensions:
// additional aliases and additional template field mappings.
func (r *Resolver) Update(
	ctx context.Context, tenantID, id string, req models.UpdateCanonicalFieldRequest,
) (*models.CanonicalFieldMapping, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	reg, err := r.registryFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	existing, ok := reg.byID[id]
	if !ok {
		return nil, models.ErrMappingNotFound
	}

	updated := *existing
	updated.FieldMappings = cloneMap(existing.FieldMappings)

	for template, field := range req.FieldMappings {
		updated.FieldMappings[template] = field
	}

	if len(req.Aliases) > 0 {
		if existing.IsSystem {
			// Extend rather than replace so system aliases survive edits.
			updated.Aliases = mergeAliases(existing.Aliases, req.Aliases)
		} else {
			updated.Aliases = req.Aliases
		}
	}

	if req.AggregationType != nil && !existing.IsSystem {
		updated.AggregationType = *req.AggregationType
	}

	if req.IsActive != nil && !existing.IsSystem {
		updated.IsActive = *req.IsActive
	}

	if err := checkUnique(reg, &updated, id); err != nil {
		return nil, err
	}

	stored, err := r.store.UpdateMapping(ctx, tenantID, updated)
	if err != nil {
		return nil, fmt.Errorf("updating canonical mapping: %w", err)
	}

	if err := r.Refresh(ctx, tenantID); err != nil {
		return nil, err
	}

	return stored, nil
}

// Delete removes a user-created mapping. System mappings are protected.
func (r *Resolver) Delete(ctx context.Context, tenantID, id string) error {
	reg, err := r.registryFor(ctx, tenantID)
	if err != nil {
		return err
	}

	existing, ok := reg.byID[id]
	if !ok {
		return models.ErrMappingNotFound
	}

	if existing.IsSystem {
		return models.ErrSystemMapping
	}

	if err := r.store.DeleteMapping(ctx, tenantID, id); err != nil {
		return fmt.Errorf("deleting canonical mapping: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"canonical_name": existing.CanonicalName,
	}).Info("canonical.delete")

	return r.Refresh(ctx, tenantID)
}

// Refresh reloads the tenant's registry from the backing store. Called
// synchronously after every write; other processes reload on their own
// schedule.
func (r *Resolver) Refresh(ctx context.Context, tenantID string) error {
	mappings, err := r.store.ListMappings(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("refreshing canonical mappings: %w", err)
	}

	reg := buildRegistry(mappings)

	r.mu.Lock()
	r.byTenant[tenantID] = reg
	r.mu.Unlock()

	return nil
}

// registryFor returns the cached registry for a tenant, loading it from the
// store on first use.
func (r *Resolver) registryFor(ctx context.Context, tenantID string) (*registry, error) {
	r.mu.RLock()
	reg, ok := r.byTenant[tenantID]
	r.mu.RUnlock()

	if ok {
		return reg, nil
	}

	if err := r.Refresh(ctx, tenantID); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byTenant[tenantID], nil
}

func buildRegistry(mappings []models.CanonicalFieldMapping) *registry {
	reg := &registry{
		byID:    make(map[string]*models.CanonicalFieldMapping, len(mappings)),
		byName:  make(map[string]*models.CanonicalFieldMapping, len(mappings)),
		byAlias: make(map[string]*models.CanonicalFieldMapping),
	}

	for i := range mappings {
		m := &mappings[i]
		reg.byID[m.ID] = m
		reg.byName[strings.ToLower(m.CanonicalName)] = m
		for _, a := range m.Aliases {
			reg.byAlias[strings.ToLower(a)] = m
		}
	}

	return reg
}

// checkUnique enforces global uniqueness of canonical names and aliases
// across the registry, ignoring the mapping being updated.
func checkUnique(reg *registry, m *models.CanonicalFieldMapping, selfID string) error {
	for _, name := range m.Names() {
		if other, ok := reg.byName[name]; ok && other.ID != selfID {
			return models.ErrNameTaken
		}
		if other, ok := reg.byAlias[name]; ok && other.ID != selfID {
			return models.ErrNameTaken
		}
	}

	return nil
}

func cloneMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func mergeAliases(existing, extra []string) []string {
	seen := make(map[string]struct{}, len(existing))
	out := append([]string(nil), existing...)
	for _, a := range existing {
		seen[strings.ToLower(a)] = struct{}{}
	}
	for _, a := range extra {
		if _, ok := seen[strings.ToLower(a)]; !ok {
			out = append(out, a)
			seen[strings.ToLower(a)] = struct{}{}
		}
	}
	return out
}
