package storage

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/eugenenazirov/carton-cost-optimizer/internal/costing"
)

const maxCartons = 200

var (
	// ErrCartonNotFound indicates the requested carton id is unknown.
	ErrCartonNotFound = costing.ErrCartonNotFound
	// ErrDuplicateCarton indicates a carton with the same id already exists.
	ErrDuplicateCarton = errors.New("carton id already exists")
	// ErrTooManyCartons indicates the session already holds the maximum number of cartons.
	ErrTooManyCartons = fmt.Errorf("a session holds at most %d cartons", maxCartons)
	// ErrUnknownProvider indicates a rate card name that is not registered.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrInvalidConfiguration indicates the cost configuration violates validation rules.
	ErrInvalidConfiguration = errors.New("invalid cost configuration")
)

var defaultRateCards = map[string]costing.RateCard{
	"provider-a": {
		CartonHandling:       0.45,
		CartonUnloading:      0.25,
		PalletStoragePerWeek: 1.80,
		PalletHandling:       4.50,
		PalletLTL:            55,
		TruckFTL:             850,
		PalletsPerTruck:      26,
	},
	"provider-b": {
		CartonHandling:       0.40,
		CartonUnloading:      0.30,
		PalletStoragePerWeek: 2.10,
		PalletHandling:       4.00,
		PalletLTL:            48,
		TruckFTL:             900,
		PalletsPerTruck:      24,
	},
	"provider-c": {
		CartonHandling:       0.55,
		CartonUnloading:      0.20,
		PalletStoragePerWeek: 1.50,
		PalletHandling:       5.25,
		PalletLTL:            60,
		TruckFTL:             780,
		PalletsPerTruck:      33,
	},
}

// Storage holds the session snapshot the cost engine is evaluated against.
type Storage interface {
	ListCartons() ([]costing.Carton, error)
	GetCarton(id string) (costing.Carton, error)
	AddCarton(carton costing.Carton) (costing.Carton, error)
	UpdateCarton(carton costing.Carton) (costing.Carton, error)
	DeleteCarton(id string) error

	SelectedCartonID() (string, error)
	SelectCarton(id string) error

	RateCards() (map[string]costing.RateCard, error)
	SetRateCard(name string, card costing.RateCard) error
	ReplaceRateCards(cards map[string]costing.RateCard) error

	Configuration() (costing.CostConfiguration, error)
	SetConfiguration(cfg costing.CostConfiguration) error
}

// MemoryStorage keeps the session in memory and guards access with a RWMutex.
// Cartons are kept in insertion order.
type MemoryStorage struct {
	mu         sync.RWMutex
	cartons    []costing.Carton
	selectedID string
	rateCards  map[string]costing.RateCard
	config     costing.CostConfiguration
}

// NewMemoryStorage initialises storage with the default rate cards and configuration.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		cartons:   []costing.Carton{},
		rateCards: DefaultRateCards(),
		config:    DefaultConfiguration(),
	}
}

// DefaultRateCards returns a copy of the built-in provider rate cards.
func DefaultRateCards() map[string]costing.RateCard {
	return maps.Clone(defaultRateCards)
}

// DefaultConfiguration returns the configuration used before any user edits.
func DefaultConfiguration() costing.CostConfiguration {
	return costing.CostConfiguration{
		ActiveProvider: "provider-a",
		Rates:          defaultRateCards["provider-a"],
		StorageWeeks:   4,
		TotalDemand:    10000,
		TransportMode:  costing.TransportAuto,
		DisplayMode:    costing.DisplayPerUnit,
	}
}

// ListCartons returns a copy of every carton in insertion order.
func (s *MemoryStorage) ListCartons() ([]costing.Carton, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]costing.Carton, len(s.cartons))
	copy(out, s.cartons)
	return out, nil
}

func (s *MemoryStorage) GetCarton(id string) (costing.Carton, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return costing.FindCarton(s.cartons, id)
}

// AddCarton validates and stores a new carton. A UUID is assigned when the id is empty.
func (s *MemoryStorage) AddCarton(carton costing.Carton) (costing.Carton, error) {
	carton = normalizeCarton(carton)
	if carton.ID == "" {
		carton.ID = uuid.NewString()
	}
	if err := carton.Validate(); err != nil {
		return costing.Carton{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(carton.ID) >= 0 {
		return costing.Carton{}, fmt.Errorf("%w: %s", ErrDuplicateCarton, carton.ID)
	}
	if len(s.cartons) >= maxCartons {
		return costing.Carton{}, ErrTooManyCartons
	}
	s.cartons = append(s.cartons, carton)
	return carton, nil
}

// UpdateCarton replaces an existing carton in place.
func (s *MemoryStorage) UpdateCarton(carton costing.Carton) (costing.Carton, error) {
	carton = normalizeCarton(carton)
	if err := carton.Validate(); err != nil {
		return costing.Carton{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(carton.ID)
	if i < 0 {
		return costing.Carton{}, fmt.Errorf("%w: %s", ErrCartonNotFound, carton.ID)
	}
	s.cartons[i] = carton
	return carton, nil
}

// DeleteCarton removes a carton and clears the selection if it pointed at it.
func (s *MemoryStorage) DeleteCarton(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrCartonNotFound, id)
	}
	s.cartons = append(s.cartons[:i], s.cartons[i+1:]...)
	if s.selectedID == id {
		s.selectedID = ""
	}
	return nil
}

func (s *MemoryStorage) SelectedCartonID() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.selectedID, nil
}

// SelectCarton marks id as the selected carton. An empty id clears the selection.
func (s *MemoryStorage) SelectCarton(id string) error {
	id = strings.TrimSpace(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.indexOf(id) < 0 {
		return fmt.Errorf("%w: %s", ErrCartonNotFound, id)
	}
	s.selectedID = id
	return nil
}

// RateCards returns a copy of the registered rate cards keyed by provider name.
func (s *MemoryStorage) RateCards() (map[string]costing.RateCard, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return maps.Clone(s.rateCards), nil
}

// SetRateCard inserts or replaces one provider's rate card. When name is the
// active provider and its what-if copy still matches the previous card, the
// copy follows the new card; an edited copy is left untouched.
func (s *MemoryStorage) SetRateCard(name string, card costing.RateCard) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: provider name is empty", costing.ErrInvalidRateCard)
	}
	if err := card.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.rateCards[name]
	s.rateCards[name] = card
	if existed && name == s.config.ActiveProvider && s.config.Rates == previous {
		s.config.Rates = card
	}
	return nil
}

// ReplaceRateCards swaps the whole provider set. When the active provider
// disappears the configuration falls back to the first provider by name;
// otherwise an unedited what-if copy follows the active provider's new card.
func (s *MemoryStorage) ReplaceRateCards(cards map[string]costing.RateCard) error {
	if len(cards) == 0 {
		return fmt.Errorf("%w: at least one provider is required", costing.ErrInvalidRateCard)
	}
	for name, card := range cards {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: provider name is empty", costing.ErrInvalidRateCard)
		}
		if err := card.Validate(); err != nil {
			return fmt.Errorf("provider %s: %w", name, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous := s.rateCards[s.config.ActiveProvider]
	s.rateCards = maps.Clone(cards)
	if card, ok := s.rateCards[s.config.ActiveProvider]; ok {
		if s.config.Rates == previous {
			s.config.Rates = card
		}
	} else {
		first := costing.ProviderNames(s.rateCards)[0]
		s.config.ActiveProvider = first
		s.config.Rates = s.rateCards[first]
	}
	return nil
}

func (s *MemoryStorage) Configuration() (costing.CostConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.config, nil
}

// SetConfiguration validates and stores cfg. The active provider must be registered.
func (s *MemoryStorage) SetConfiguration(cfg costing.CostConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rateCards[cfg.ActiveProvider]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.ActiveProvider)
	}
	s.config = cfg
	return nil
}

func (s *MemoryStorage) indexOf(id string) int {
	for i, c := range s.cartons {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func normalizeCarton(c costing.Carton) costing.Carton {
	c.ID = strings.TrimSpace(c.ID)
	c.SKU = strings.TrimSpace(c.SKU)
	return c
}
