package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/onnwee/collabmatch/internal/collab"
	"github.com/onnwee/collabmatch/internal/geo"
	"github.com/onnwee/collabmatch/internal/tracing"
)

const (
	projectsTable = "collab_projects"
	profilesTable = "collab_profiles"
)

const projectColumns = `
	id, founder_id, title, description, status, is_published,
	location_type, location_visibility, show_exact_address, allow_contact_for_meetup,
	service_area_type, target_regions, service_area_description,
	collaboration_mode, max_collaboration_distance, meeting_preference, time_zone_flexible, collaboration_note,
	latitude, longitude, location_accuracy, address, city, province,
	created_at, updated_at`

const profileColumns = `
	user_id, latitude, longitude, location_accuracy, address, city, province,
	collaboration_mode, max_collaboration_distance, meeting_preference, time_zone_flexible, collaboration_note,
	updated_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

// Save upserts a project by ID.
func (r *PostgresRepository) Save(ctx context.Context, p *Project) (err error) {
	if err := validateProject(r.logger, p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, projectsTable, tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	lat, lon, acc := coordinateColumns(p.Coordinate)
	query := `
		INSERT INTO collab_projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22, $23, $24, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			founder_id = EXCLUDED.founder_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			is_published = EXCLUDED.is_published,
			location_type = EXCLUDED.location_type,
			location_visibility = EXCLUDED.location_visibility,
			show_exact_address = EXCLUDED.show_exact_address,
			allow_contact_for_meetup = EXCLUDED.allow_contact_for_meetup,
			service_area_type = EXCLUDED.service_area_type,
			target_regions = EXCLUDED.target_regions,
			service_area_description = EXCLUDED.service_area_description,
			collaboration_mode = EXCLUDED.collaboration_mode,
			max_collaboration_distance = EXCLUDED.max_collaboration_distance,
			meeting_preference = EXCLUDED.meeting_preference,
			time_zone_flexible = EXCLUDED.time_zone_flexible,
			collaboration_note = EXCLUDED.collaboration_note,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			location_accuracy = EXCLUDED.location_accuracy,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			province = EXCLUDED.province,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	regions := p.ServiceArea.TargetRegions
	if regions == nil {
		regions = []string{}
	}
	err = r.db.QueryRowContext(ctx, query,
		p.ID, p.FounderID, p.Title, p.Description, p.Status, p.Published,
		p.Location.Type, p.Location.Visibility, p.Location.ShowExactAddress, p.Location.AllowContactForMeetup,
		p.ServiceArea.Type, pq.Array(regions), p.ServiceArea.Description,
		p.Preference.Mode, p.Preference.MaxDistanceKm, p.Preference.MeetingPreference, p.Preference.TimeZoneFlexible, p.Preference.Note,
		lat, lon, acc, p.Address, p.City, p.Region,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to save project",
			slog.String("error", err.Error()),
			slog.String("project_id", p.ID))
		return fmt.Errorf("failed to save project: %w", err)
	}
	return nil
}

// GetByID returns a project regardless of listing status.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (p *Project, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, projectsTable, tracing.DBOperationQuery)
	defer func() {
		if errors.Is(err, ErrNotFound) {
			endSpan(nil)
			return
		}
		endSpan(err)
	}()

	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM collab_projects WHERE id = $1`, id)
	p, err = scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// Query returns a page of listed projects, newest first.
func (r *PostgresRepository) Query(ctx context.Context, q Query) (projects []*Project, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, projectsTable, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	query := `
		SELECT ` + projectColumns + `
		FROM collab_projects
		WHERE is_published AND status = 'active'
		  AND ($1 = '' OR title ILIKE '%' || $1 || '%' OR description ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, escapeLike(strings.TrimSpace(q.Text)), q.limit(), offset)
	if err != nil {
		r.logger.Error("failed to query projects",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	projects = []*Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, nil
}

// SaveProfile upserts a user's collaboration profile.
func (r *PostgresRepository) SaveProfile(ctx context.Context, p *Profile) (err error) {
	if err := p.Preference.Validate(); err != nil {
		return err
	}
	if p.Coordinate != nil {
		if err := p.Coordinate.Validate(); err != nil {
			return err
		}
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, profilesTable, tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	lat, lon, acc := coordinateColumns(p.Coordinate)
	query := `
		INSERT INTO collab_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			location_accuracy = EXCLUDED.location_accuracy,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			province = EXCLUDED.province,
			collaboration_mode = EXCLUDED.collaboration_mode,
			max_collaboration_distance = EXCLUDED.max_collaboration_distance,
			meeting_preference = EXCLUDED.meeting_preference,
			time_zone_flexible = EXCLUDED.time_zone_flexible,
			collaboration_note = EXCLUDED.collaboration_note,
			updated_at = NOW()
		RETURNING updated_at
	`
	err = r.db.QueryRowContext(ctx, query,
		p.UserID, lat, lon, acc, p.Address, p.City, p.Region,
		p.Preference.Mode, p.Preference.MaxDistanceKm, p.Preference.MeetingPreference,
		p.Preference.TimeZoneFlexible, p.Preference.Note,
	).Scan(&p.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to save profile",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID))
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile returns a user's collaboration profile.
func (r *PostgresRepository) GetProfile(ctx context.Context, userID string) (p *Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, profilesTable, tracing.DBOperationQuery)
	defer func() {
		if errors.Is(err, ErrNotFound) {
			endSpan(nil)
			return
		}
		endSpan(err)
	}()

	var (
		prof          Profile
		lat, lon, acc sql.NullFloat64
	)
	err = r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM collab_profiles WHERE user_id = $1`, userID).Scan(
		&prof.UserID, &lat, &lon, &acc, &prof.Address, &prof.City, &prof.Region,
		&prof.Preference.Mode, &prof.Preference.MaxDistanceKm, &prof.Preference.MeetingPreference,
		&prof.Preference.TimeZoneFlexible, &prof.Preference.Note,
		&prof.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	prof.Coordinate = coordinateFromColumns(lat, lon, acc)
	return &prof, nil
}

// Stats summarizes listed projects.
func (r *PostgresRepository) Stats(ctx context.Context) (s *Stats, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, projectsTable, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	s = &Stats{TopCities: []CityCount{}}
	var avgDistance float64
	err = r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE collaboration_mode = $1),
			COUNT(*) FILTER (WHERE collaboration_mode = $2),
			COUNT(*) FILTER (WHERE collaboration_mode = $3 OR collaboration_mode = ''),
			COUNT(DISTINCT NULLIF(city, '')),
			COALESCE(AVG(max_collaboration_distance) FILTER (WHERE max_collaboration_distance > 0), 0)
		FROM collab_projects
		WHERE is_published AND status = 'active'
	`, collab.ModeLocalOnly, collab.ModeRemoteFriendly, collab.ModeLocationFlexible).Scan(
		&s.TotalProjects, &s.LocalOnlyProjects, &s.RemoteProjects, &s.FlexibleProjects,
		&s.Cities, &avgDistance,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute project stats: %w", err)
	}
	s.AvgMaxDistanceKm = int(math.Round(avgDistance))

	rows, err := r.db.QueryContext(ctx, `
		SELECT city, COUNT(*) AS n
		FROM collab_projects
		WHERE is_published AND status = 'active' AND city <> ''
		GROUP BY city
		ORDER BY n DESC, city
		LIMIT $1
	`, topCityCount)
	if err != nil {
		return nil, fmt.Errorf("failed to query top cities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c CityCount
		if err := rows.Scan(&c.City, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan city count: %w", err)
		}
		s.TopCities = append(s.TopCities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate city counts: %w", err)
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*Project, error) {
	var (
		p             Project
		regions       pq.StringArray
		lat, lon, acc sql.NullFloat64
	)
	err := row.Scan(
		&p.ID, &p.FounderID, &p.Title, &p.Description, &p.Status, &p.Published,
		&p.Location.Type, &p.Location.Visibility, &p.Location.ShowExactAddress, &p.Location.AllowContactForMeetup,
		&p.ServiceArea.Type, &regions, &p.ServiceArea.Description,
		&p.Preference.Mode, &p.Preference.MaxDistanceKm, &p.Preference.MeetingPreference,
		&p.Preference.TimeZoneFlexible, &p.Preference.Note,
		&lat, &lon, &acc, &p.Address, &p.City, &p.Region,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(regions) > 0 {
		p.ServiceArea.TargetRegions = []string(regions)
	}
	p.Coordinate = coordinateFromColumns(lat, lon, acc)
	return &p, nil
}

func coordinateColumns(c *geo.Coordinate) (lat, lon, acc sql.NullFloat64) {
	if c == nil {
		return
	}
	lat = sql.NullFloat64{Float64: c.Latitude, Valid: true}
	lon = sql.NullFloat64{Float64: c.Longitude, Valid: true}
	if c.Accuracy > 0 {
		acc = sql.NullFloat64{Float64: c.Accuracy, Valid: true}
	}
	return
}

func coordinateFromColumns(lat, lon, acc sql.NullFloat64) *geo.Coordinate {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &geo.Coordinate{Latitude: lat.Float64, Longitude: lon.Float64, Accuracy: acc.Float64}
}

// escapeLike escapes ILIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
