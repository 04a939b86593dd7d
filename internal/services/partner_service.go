package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baselineanalytics/portal/internal/cache"
	"github.com/baselineanalytics/portal/internal/layout"
	"github.com/baselineanalytics/portal/internal/models"
	"github.com/baselineanalytics/portal/pkg/logger"
	"github.com/baselineanalytics/portal/pkg/metrics"
)

const (
	// DefaultConnectionKind labels connections created without a kind.
	DefaultConnectionKind = "partner"
	// DefaultConnectionStrength is applied when no strength is supplied.
	DefaultConnectionStrength = 1.0
	// MaxConnectionStrength bounds connection weights.
	MaxConnectionStrength = 10.0

	partnerNetworkCacheKey = "partners:network"
	defaultNetworkCacheTTL = 5 * time.Minute
)

// CreatePartnerInput captures a new partner node.
type CreatePartnerInput struct {
	Name        string
	Category    string
	Description string
	Website     string
	LogoURL     string
}

// UpdatePartnerInput describes mutable partner fields.
type UpdatePartnerInput struct {
	Name        *string
	Category    *string
	Description *string
	Website     *string
	LogoURL     *string
}

// CreateConnectionInput describes a new edge between partners.
type CreateConnectionInput struct {
	SourceID string
	TargetID string
	Kind     string
	Strength *float64
}

// PartnerNetwork is the full graph returned to viewers.
type PartnerNetwork struct {
	Partners    []models.Partner             `json:"partners"`
	Connections []models.PartnerConnection   `json:"connections"`
	Positions   []models.PartnerNodePosition `json:"positions"`
}

// PartnerService manages the partner network graph and its layout.
type PartnerService struct {
	db       *gorm.DB
	layout   layout.Options
	cache    cache.Store
	cacheTTL time.Duration
	log      *zap.Logger
}

// PartnerOption customises a PartnerService.
type PartnerOption func(*PartnerService)

// WithNetworkCache keeps the assembled network in store for ttl. Every
// mutation drops the entry, so readers never see a graph older than the
// last write made through any instance sharing the store.
func WithNetworkCache(store cache.Store, ttl time.Duration) PartnerOption {
	return func(s *PartnerService) {
		if ttl <= 0 {
			ttl = defaultNetworkCacheTTL
		}
		s.cache = store
		s.cacheTTL = ttl
	}
}

// NewPartnerService constructs a PartnerService.
func NewPartnerService(db *gorm.DB, opts layout.Options, options ...PartnerOption) (*PartnerService, error) {
	if db == nil {
		return nil, errors.New("partner service: db is required")
	}
	svc := &PartnerService{db: db, layout: opts, log: logger.WithModule("partners")}
	for _, opt := range options {
		opt(svc)
	}
	return svc, nil
}

// Network returns every partner, connection and saved position, served from
// the network cache when one is configured.
func (s *PartnerService) Network(ctx context.Context) (*PartnerNetwork, error) {
	ctx = ensureContext(ctx)

	if network, ok := s.cachedNetwork(ctx); ok {
		metrics.CacheLookups.WithLabelValues(partnerNetworkCacheKey, "hit").Inc()
		return network, nil
	}
	if s.cache != nil {
		metrics.CacheLookups.WithLabelValues(partnerNetworkCacheKey, "miss").Inc()
	}
	network, err := s.loadNetwork(ctx)
	if err != nil {
		return nil, err
	}
	s.storeNetwork(ctx, network)
	return network, nil
}

func (s *PartnerService) loadNetwork(ctx context.Context) (*PartnerNetwork, error) {
	network := &PartnerNetwork{}
	db := s.db.WithContext(ctx)
	if err := db.Order("name ASC").Find(&network.Partners).Error; err != nil {
		return nil, fmt.Errorf("partner service: list partners: %w", err)
	}
	if err := db.Order("created_at ASC").Order("id ASC").Find(&network.Connections).Error; err != nil {
		return nil, fmt.Errorf("partner service: list connections: %w", err)
	}
	if err := db.Order("partner_id ASC").Find(&network.Positions).Error; err != nil {
		return nil, fmt.Errorf("partner service: list positions: %w", err)
	}
	return network, nil
}

func (s *PartnerService) cachedNetwork(ctx context.Context) (*PartnerNetwork, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, ok, err := s.cache.Get(ctx, partnerNetworkCacheKey)
	if err != nil {
		s.log.Warn("read network cache", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var network PartnerNetwork
	if err := json.Unmarshal(raw, &network); err != nil {
		s.log.Warn("decode network cache", zap.Error(err))
		return nil, false
	}
	return &network, true
}

func (s *PartnerService) storeNetwork(ctx context.Context, network *PartnerNetwork) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(network)
	if err == nil {
		err = s.cache.Set(ctx, partnerNetworkCacheKey, raw, s.cacheTTL)
	}
	if err != nil {
		s.log.Warn("write network cache", zap.Error(err))
	}
}

// invalidate drops the cached network after a successful mutation.
func (s *PartnerService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, partnerNetworkCacheKey); err != nil {
		s.log.Warn("invalidate network cache", zap.Error(err))
	}
}

// Get loads a partner by id.
func (s *PartnerService) Get(ctx context.Context, id string) (*models.Partner, error) {
	ctx = ensureContext(ctx)

	var partner models.Partner
	err := s.db.WithContext(ctx).Take(&partner, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPartnerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("partner service: get partner: %w", err)
	}
	return &partner, nil
}

// Create registers a partner.
func (s *PartnerService) Create(ctx context.Context, input CreatePartnerInput) (*models.Partner, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, &ValidationError{Err: ErrInvalidPartner, Fields: FieldErrors{"name": "name is required"}}
	}

	partner := &models.Partner{
		Name:        name,
		Category:    strings.TrimSpace(input.Category),
		Description: strings.TrimSpace(input.Description),
		Website:     strings.TrimSpace(input.Website),
		LogoURL:     strings.TrimSpace(input.LogoURL),
	}
	if err := s.db.WithContext(ctx).Create(partner).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrPartnerExists
		}
		return nil, fmt.Errorf("partner service: create partner: %w", err)
	}
	s.invalidate(ctx)
	return partner, nil
}

// Update modifies partner metadata.
func (s *PartnerService) Update(ctx context.Context, id string, input UpdatePartnerInput) (*models.Partner, error) {
	ctx = ensureContext(ctx)

	partner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, &ValidationError{Err: ErrInvalidPartner, Fields: FieldErrors{"name": "name is required"}}
		}
		if name != partner.Name {
			updates["name"] = name
		}
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Website != nil {
		updates["website"] = strings.TrimSpace(*input.Website)
	}
	if input.LogoURL != nil {
		updates["logo_url"] = strings.TrimSpace(*input.LogoURL)
	}
	if len(updates) == 0 {
		return partner, nil
	}

	if err := s.db.WithContext(ctx).Model(partner).Updates(updates).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrPartnerExists
		}
		return nil, fmt.Errorf("partner service: update partner: %w", err)
	}
	s.invalidate(ctx)
	return s.Get(ctx, id)
}

// Delete removes a partner together with its connections and position.
func (s *PartnerService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source_id = ? OR target_id = ?", id, id).Delete(&models.PartnerConnection{}).Error; err != nil {
			return fmt.Errorf("partner service: delete connections: %w", err)
		}
		if err := tx.Where("partner_id = ?", id).Delete(&models.PartnerNodePosition{}).Error; err != nil {
			return fmt.Errorf("partner service: delete position: %w", err)
		}
		result := tx.Delete(&models.Partner{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("partner service: delete partner: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrPartnerNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Connect creates an edge between two distinct existing partners.
func (s *PartnerService) Connect(ctx context.Context, input CreateConnectionInput) (*models.PartnerConnection, error) {
	ctx = ensureContext(ctx)

	source := strings.TrimSpace(input.SourceID)
	target := strings.TrimSpace(input.TargetID)
	if source == "" || target == "" || source == target {
		return nil, ErrInvalidConnection
	}

	strength := DefaultConnectionStrength
	if input.Strength != nil {
		strength = *input.Strength
	}
	if strength <= 0 || strength > MaxConnectionStrength {
		return nil, ErrInvalidStrength
	}

	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if kind == "" {
		kind = DefaultConnectionKind
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Partner{}).Where("id IN ?", []string{source, target}).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("partner service: check partners: %w", err)
	}
	if count != 2 {
		return nil, ErrInvalidConnection
	}

	connection := &models.PartnerConnection{
		SourceID: source,
		TargetID: target,
		Kind:     kind,
		Strength: strength,
	}
	if err := s.db.WithContext(ctx).Create(connection).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrConnectionExists
		}
		return nil, fmt.Errorf("partner service: create connection: %w", err)
	}
	s.invalidate(ctx)
	return connection, nil
}

// Disconnect removes an edge.
func (s *PartnerService) Disconnect(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).Delete(&models.PartnerConnection{}, "id = ?", strings.TrimSpace(id))
	if result.Error != nil {
		return fmt.Errorf("partner service: delete connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrConnectionNotFound
	}
	s.invalidate(ctx)
	return nil
}

// SavePositions upserts node coordinates. Every id must name a partner.
func (s *PartnerService) SavePositions(ctx context.Context, positions []layout.Position) ([]models.PartnerNodePosition, error) {
	ctx = ensureContext(ctx)
	if len(positions) == 0 {
		return []models.PartnerNodePosition{}, nil
	}

	ids := make([]string, 0, len(positions))
	rows := make([]models.PartnerNodePosition, 0, len(positions))
	now := time.Now()
	for _, p := range positions {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return nil, ErrPartnerNotFound
		}
		ids = append(ids, id)
		rows = append(rows, models.PartnerNodePosition{PartnerID: id, X: p.X, Y: p.Y, UpdatedAt: now})
	}
	ids = normaliseIDs(ids)
	if len(ids) != len(rows) {
		return nil, ErrInvalidPositions
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Partner{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return fmt.Errorf("partner service: check partners: %w", err)
		}
		if int(count) != len(ids) {
			return ErrPartnerNotFound
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "partner_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"x", "y", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		if errors.Is(err, ErrPartnerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("partner service: save positions: %w", err)
	}
	s.invalidate(ctx)
	return rows, nil
}

// ComputeLayout runs the force simulation from the saved positions,
// persists the result and returns it.
func (s *PartnerService) ComputeLayout(ctx context.Context) ([]layout.Position, error) {
	ctx = ensureContext(ctx)

	network, err := s.Network(ctx)
	if err != nil {
		return nil, err
	}
	if len(network.Partners) == 0 {
		return []layout.Position{}, nil
	}

	saved := make(map[string]models.PartnerNodePosition, len(network.Positions))
	for _, p := range network.Positions {
		saved[p.PartnerID] = p
	}

	nodes := make([]layout.Node, 0, len(network.Partners))
	for _, partner := range network.Partners {
		node := layout.Node{ID: partner.ID}
		if p, ok := saved[partner.ID]; ok {
			node.X, node.Y, node.HasPosition = p.X, p.Y, true
		}
		nodes = append(nodes, node)
	}
	edges := make([]layout.Edge, 0, len(network.Connections))
	for _, c := range network.Connections {
		edges = append(edges, layout.Edge{Source: c.SourceID, Target: c.TargetID, Strength: c.Strength})
	}

	positions := layout.Compute(nodes, edges, s.layout)
	if _, err := s.SavePositions(ctx, positions); err != nil {
		return nil, err
	}
	return positions, nil
}
