package project

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onnwee/collabmatch/internal/collab"
)

var (
	// ErrNotFound is returned when a project or profile does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidProject is returned when a project fails validation on save.
	ErrInvalidProject = errors.New("invalid project")
)

// DefaultPageSize bounds Query when no limit is given.
const DefaultPageSize = 200

// MaxPageSize is the largest page Query will return.
const MaxPageSize = 1000

// Query selects a page of listed projects, newest first.
type Query struct {
	// Text matches title or description, case-insensitively.
	Text   string
	Limit  int
	Offset int
}

func (q Query) limit() int {
	switch {
	case q.Limit <= 0:
		return DefaultPageSize
	case q.Limit > MaxPageSize:
		return MaxPageSize
	}
	return q.Limit
}

// CityCount is the number of listed projects in one city.
type CityCount struct {
	City  string `json:"city"`
	Count int    `json:"count"`
}

// Stats summarizes listed projects.
type Stats struct {
	TotalProjects     int         `json:"total_projects"`
	LocalOnlyProjects int         `json:"local_only_projects"`
	RemoteProjects    int         `json:"remote_projects"`
	FlexibleProjects  int         `json:"flexible_projects"`
	Cities            int         `json:"cities"`
	TopCities         []CityCount `json:"top_cities"`
	AvgMaxDistanceKm  int         `json:"avg_max_distance_km"`
}

// topCityCount caps Stats.TopCities.
const topCityCount = 5

// Repository is the storage collaborator for matching.
type Repository interface {
	// Save inserts or replaces a project. An empty ID is assigned.
	Save(ctx context.Context, p *Project) error

	// GetByID returns a project regardless of listing status.
	GetByID(ctx context.Context, id string) (*Project, error)

	// Query returns a page of listed projects.
	Query(ctx context.Context, q Query) ([]*Project, error)

	// SaveProfile inserts or replaces a user's collaboration profile.
	SaveProfile(ctx context.Context, p *Profile) error

	// GetProfile returns a user's collaboration profile.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// Stats summarizes listed projects.
	Stats(ctx context.Context) (*Stats, error)
}

// validateProject runs the collaboration settings validation and rejects
// projects with errors. Warnings are logged.
func validateProject(logger *slog.Logger, p *Project) error {
	res := collab.ValidateProjectSettings(collab.ProjectSettings{
		Preference:  &p.Preference,
		Location:    &p.Location,
		ServiceArea: &p.ServiceArea,
		Coordinate:  p.Coordinate,
	})
	if !res.Valid() {
		return errors.Join(append([]error{ErrInvalidProject}, res.Errors...)...)
	}
	if len(res.Warnings) > 0 {
		logger.Warn("project settings have warnings",
			slog.String("project_id", p.ID),
			slog.Any("warnings", res.Warnings))
	}
	return nil
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	projects map[string]*Project
	profiles map[string]*Profile
	logger   *slog.Logger
	now      func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository(logger *slog.Logger) *InMemoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryRepository{
		projects: make(map[string]*Project),
		profiles: make(map[string]*Profile),
		logger:   logger,
		now:      time.Now,
	}
}

// Save stores a deep copy of the project.
func (r *InMemoryRepository) Save(ctx context.Context, p *Project) error {
	if err := validateProject(r.logger, p); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := r.now().UTC()
	if existing, ok := r.projects[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	r.projects[p.ID] = copyProject(p)
	return nil
}

// GetByID returns a copy of the project.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProject(p), nil
}

// Query returns copies of listed projects, newest first.
func (r *InMemoryRepository) Query(ctx context.Context, q Query) ([]*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	text := strings.ToLower(strings.TrimSpace(q.Text))
	var matched []*Project
	for _, p := range r.projects {
		if !p.Listed() {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(p.Title), text) &&
			!strings.Contains(strings.ToLower(p.Description), text) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if q.Offset >= len(matched) {
		return []*Project{}, nil
	}
	if q.Offset > 0 {
		matched = matched[q.Offset:]
	}
	if limit := q.limit(); len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*Project, len(matched))
	for i, p := range matched {
		out[i] = copyProject(p)
	}
	return out, nil
}

// SaveProfile stores a copy of the profile.
func (r *InMemoryRepository) SaveProfile(ctx context.Context, p *Profile) error {
	if err := p.Preference.Validate(); err != nil {
		return err
	}
	if p.Coordinate != nil {
		if err := p.Coordinate.Validate(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p.UpdatedAt = r.now().UTC()
	r.profiles[p.UserID] = copyProfile(p)
	return nil
}

// GetProfile returns a copy of the user's profile.
func (r *InMemoryRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyProfile(p), nil
}

// Stats summarizes listed projects.
func (r *InMemoryRepository) Stats(ctx context.Context) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &Stats{TopCities: []CityCount{}}
	cities := make(map[string]int)
	var distanceSum float64
	var distanceCount int

	for _, p := range r.projects {
		if !p.Listed() {
			continue
		}
		s.TotalProjects++
		switch p.Preference.WithDefaults().Mode {
		case collab.ModeLocalOnly:
			s.LocalOnlyProjects++
		case collab.ModeRemoteFriendly:
			s.RemoteProjects++
		case collab.ModeLocationFlexible:
			s.FlexibleProjects++
		}
		if p.City != "" {
			cities[p.City]++
		}
		if p.Preference.MaxDistanceKm > 0 {
			distanceSum += p.Preference.MaxDistanceKm
			distanceCount++
		}
	}

	s.Cities = len(cities)
	for city, n := range cities {
		s.TopCities = append(s.TopCities, CityCount{City: city, Count: n})
	}
	s.TopCities = topCities(s.TopCities)
	if distanceCount > 0 {
		s.AvgMaxDistanceKm = int(math.Round(distanceSum / float64(distanceCount)))
	}
	return s, nil
}

func topCities(counts []CityCount) []CityCount {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].City < counts[j].City
	})
	if len(counts) > topCityCount {
		counts = counts[:topCityCount]
	}
	return counts
}
