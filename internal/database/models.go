package database

import (
	"github.com/google/uuid"

	"github.com/cx-tal-miterani/flight-training-scheduler/shared/models"
)

// Reference data GORM models. The tables are created by the embedded schema,
// never by AutoMigrate.

type StudentModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name          string    `gorm:"column:name"`
	Email         string    `gorm:"column:email"`
	Phone         *string   `gorm:"column:phone"`
	TrainingLevel string    `gorm:"column:training_level"`
}

func (StudentModel) TableName() string {
	return "students"
}

func (m StudentModel) toDomain() *models.Student {
	return &models.Student{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		Phone:         deref(m.Phone),
		TrainingLevel: models.TrainingLevel(m.TrainingLevel),
	}
}

type InstructorModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name       string    `gorm:"column:name"`
	Email      string    `gorm:"column:email"`
	Phone      *string   `gorm:"column:phone"`
	CalendarID *string   `gorm:"column:calendar_id"`
}

func (InstructorModel) TableName() string {
	return "instructors"
}

func (m InstructorModel) toDomain() *models.Instructor {
	return &models.Instructor{
		ID:         m.ID,
		Name:       m.Name,
		Email:      m.Email,
		Phone:      deref(m.Phone),
		CalendarID: deref(m.CalendarID),
	}
}

type AircraftModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Registration string    `gorm:"column:registration"`
	Model        string    `gorm:"column:model"`
}

func (AircraftModel) TableName() string {
	return "aircraft"
}

func (m AircraftModel) toDomain() *models.Aircraft {
	return &models.Aircraft{ID: m.ID, Registration: m.Registration, Model: m.Model}
}

type LocationModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"column:name"`
	Code      *string   `gorm:"column:code"`
	Latitude  float64   `gorm:"column:latitude"`
	Longitude float64   `gorm:"column:longitude"`
	Timezone  string    `gorm:"column:timezone"`
}

func (LocationModel) TableName() string {
	return "locations"
}

func (m LocationModel) toDomain() *models.Location {
	tz := m.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return &models.Location{
		ID:        m.ID,
		Name:      m.Name,
		Code:      deref(m.Code),
		Latitude:  m.Latitude,
		Longitude: m.Longitude,
		Timezone:  tz,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
