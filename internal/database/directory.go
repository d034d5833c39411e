package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cx-tal-miterani/flight-training-scheduler/internal/store"
	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// Directory reads students, instructors, aircraft and locations through GORM
type Directory struct {
	db *gorm.DB
}

// OpenDirectory connects GORM to the reference data tables
func OpenDirectory(dsn string) (*Directory, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open directory: %w", err)
	}
	return NewDirectory(db), nil
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) GetStudent(ctx context.Context, id uuid.UUID) (*models.Student, error) {
	var m StudentModel
	if err := d.first(ctx, &m, id); err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (d *Directory) GetInstructor(ctx context.Context, id uuid.UUID) (*models.Instructor, error) {
	var m InstructorModel
	if err := d.first(ctx, &m, id); err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (d *Directory) GetAircraft(ctx context.Context, id uuid.UUID) (*models.Aircraft, error) {
	var m AircraftModel
	if err := d.first(ctx, &m, id); err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

func (d *Directory) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	var m LocationModel
	if err := d.first(ctx, &m, id); err != nil {
		return nil, err
	}
	return m.toDomain(), nil
}

// Close releases the underlying connection pool
func (d *Directory) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Directory) first(ctx context.Context, dest any, id uuid.UUID) error {
	err := d.db.WithContext(ctx).Where("id = ?", id).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}
