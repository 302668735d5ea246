package services

import (
	"context"
	"log/slog"

	"github.com/pocketbase/dbx"

	"festival-pass/models"
)

// EventService serves the event category cards on the festival page.
// Categories live in the local events collection; until someone
// publishes rows there, the built-in festival lineup is served.
type EventService struct {
	db dbx.Builder
}

func NewEventService(db dbx.Builder) *EventService {
	return &EventService{db: db}
}

func (s *EventService) ListCategories(ctx context.Context) []models.EventCategory {
	var records []dbx.NullStringMap
	err := s.db.NewQuery(
		"SELECT id, title, video_url, link FROM events WHERE status = 'publish' ORDER BY created",
	).WithContext(ctx).All(&records)
	if err != nil {
		slog.Error("events: fetching categories", "error", err)
		return DefaultCategories()
	}
	if len(records) == 0 {
		return DefaultCategories()
	}

	categories := make([]models.EventCategory, 0, len(records))
	for _, record := range records {
		categories = append(categories, models.EventCategory{
			ID:       record["id"].String,
			Title:    record["title"].String,
			VideoURL: record["video_url"].String,
			Link:     record["link"].String,
		})
	}
	return categories
}

// DefaultCategories is the static festival lineup shown when no
// categories have been published yet.
func DefaultCategories() []models.EventCategory {
	return []models.EventCategory{
		{
			Title:    "Kalakshetra",
			VideoURL: "https://res.cloudinary.com/dbjy9s3cz/video/upload/v1726133759/meyg1boduaquqrhgb7o2.mp4",
			Link:     "/events/kalakshetra",
		},
		{
			Title:    "Workshops & Tech",
			VideoURL: "https://res.cloudinary.com/dbjy9s3cz/video/upload/v1726655934/WORKSHOPS_tech_2_fezndb.mp4",
			Link:     "/events/workshops",
		},
		{
			Title:    "SpotEvents",
			VideoURL: "https://res.cloudinary.com/dbjy9s3cz/video/upload/v1726133759/srzs3kfwhzpurixnkbfo.mp4",
			Link:     "/events/spotevents",
		},
	}
}
