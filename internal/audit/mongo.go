package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

const collectionName = "weather_checks"

// NewMongoClient connects and pings MongoDB
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

// checkDocument is the stored shape of a weather check. IDs are kept as
// strings so the collection stays readable from the mongo shell.
type checkDocument struct {
	ID               string                 `bson:"_id"`
	BookingID        string                 `bson:"bookingId"`
	LocationID       string                 `bson:"locationId"`
	CheckTime        time.Time              `bson:"checkTime"`
	ForecastTime     time.Time              `bson:"forecastTime"`
	TrainingLevel    string                 `bson:"trainingLevel"`
	Snapshot         models.WeatherSnapshot `bson:"snapshot"`
	IsSafe           bool                   `bson:"isSafe"`
	ViolatedMinimums []string               `bson:"violatedMinimums"`
	Severity         string                 `bson:"severity"`
}

func toDocument(c *models.WeatherCheck) checkDocument {
	violated := c.ViolatedMinimums
	if violated == nil {
		violated = []string{}
	}
	return checkDocument{
		ID:               c.ID.String(),
		BookingID:        c.BookingID.String(),
		LocationID:       c.LocationID.String(),
		CheckTime:        c.CheckTime.UTC(),
		ForecastTime:     c.ForecastTime.UTC(),
		TrainingLevel:    string(c.TrainingLevel),
		Snapshot:         c.Snapshot,
		IsSafe:           c.IsSafe,
		ViolatedMinimums: violated,
		Severity:         string(c.Severity),
	}
}

func (d checkDocument) toDomain() (models.WeatherCheck, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.WeatherCheck{}, fmt.Errorf("invalid check id %q: %w", d.ID, err)
	}
	bookingID, err := uuid.Parse(d.BookingID)
	if err != nil {
		return models.WeatherCheck{}, fmt.Errorf("invalid booking id %q: %w", d.BookingID, err)
	}
	locationID, _ := uuid.Parse(d.LocationID)
	return models.WeatherCheck{
		ID:               id,
		BookingID:        bookingID,
		LocationID:       locationID,
		CheckTime:        d.CheckTime.UTC(),
		ForecastTime:     d.ForecastTime.UTC(),
		TrainingLevel:    models.TrainingLevel(d.TrainingLevel),
		Snapshot:         d.Snapshot,
		IsSafe:           d.IsSafe,
		ViolatedMinimums: d.ViolatedMinimums,
		Severity:         models.Severity(d.Severity),
	}, nil
}

// WeatherCheckRepository is the MongoDB weather check audit log
type WeatherCheckRepository struct {
	collection *mongo.Collection
}

// NewWeatherCheckRepository creates the repository and its lookup index
func NewWeatherCheckRepository(ctx context.Context, db *mongo.Database) (*WeatherCheckRepository, error) {
	collection := db.Collection(collectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "bookingId", Value: 1}, {Key: "checkTime", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create weather check index: %w", err)
	}

	return &WeatherCheckRepository{collection: collection}, nil
}

// SaveWeatherCheck appends a check. Checks are never updated.
func (r *WeatherCheckRepository) SaveWeatherCheck(ctx context.Context, c *models.WeatherCheck) error {
	if _, err := r.collection.InsertOne(ctx, toDocument(c)); err != nil {
		return fmt.Errorf("failed to insert weather check: %w", err)
	}
	return nil
}

// LatestWeatherCheck returns the newest check for a booking
func (r *WeatherCheckRepository) LatestWeatherCheck(ctx context.Context, bookingID uuid.UUID) (*models.WeatherCheck, error) {
	var doc checkDocument
	err := r.collection.FindOne(ctx,
		bson.M{"bookingId": bookingID.String()},
		options.FindOne().SetSort(newestFirst()),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find weather check: %w", err)
	}
	check, err := doc.toDomain()
	if err != nil {
		return nil, err
	}
	return &check, nil
}

// ListWeatherChecks returns a booking's checks newest first
func (r *WeatherCheckRepository) ListWeatherChecks(ctx context.Context, bookingID uuid.UUID, limit int) ([]models.WeatherCheck, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"bookingId": bookingID.String()}, findOptions(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query weather checks: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []checkDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode weather checks: %w", err)
	}

	checks := make([]models.WeatherCheck, 0, len(docs))
	for _, d := range docs {
		c, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		checks = append(checks, c)
	}
	return checks, nil
}

func newestFirst() bson.D {
	return bson.D{{Key: "checkTime", Value: -1}, {Key: "_id", Value: -1}}
}

func findOptions(limit int) *options.FindOptions {
	opts := options.Find().SetSort(newestFirst())
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return opts
}
