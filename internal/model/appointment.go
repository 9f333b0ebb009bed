package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

type AppointmentType string

const (
	AppointmentTypeGeneralConsultation AppointmentType = "general_consultation"
	AppointmentTypeFollowUp            AppointmentType = "follow_up"
	AppointmentTypeEmergency           AppointmentType = "emergency"
)

// SlotDuration is the fixed length of every bookable slot.
const SlotDuration = time.Hour

type Appointment struct {
	Base
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	CreatedBy uuid.UUID         `db:"created_by" json:"created_by"`
	Type      AppointmentType   `db:"type" json:"type"`
	StartTime time.Time         `db:"start_time" json:"start_time"`
	EndTime   time.Time         `db:"end_time" json:"end_time"`
	Reason    string            `db:"reason" json:"reason"`
	Documents DocumentList      `db:"documents" json:"documents,omitempty"`
	Status    AppointmentStatus `db:"status" json:"status"`
}

// Document references an already-uploaded file attached to an
// appointment. Upload itself happens elsewhere; only the descriptor is
// stored here.
type Document struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	Key      string `json:"key,omitempty"`
}

type DocumentList []Document

func (d DocumentList) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *DocumentList) Scan(src interface{}) error {
	if src == nil {
		*d = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("unsupported type %T for DocumentList", src)
	}
	return json.Unmarshal(b, d)
}

// Slot is a candidate one-hour booking interval for one doctor.
type Slot struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type CreateAppointmentRequest struct {
	PatientID  uuid.UUID       `json:"patient_id" binding:"required"`
	DoctorID   *uuid.UUID      `json:"doctor_id"`
	Reason     string          `json:"reason" binding:"required,max=1000"`
	Type       AppointmentType `json:"type" binding:"required,oneof=general_consultation follow_up emergency"`
	WeekOffset int             `json:"week_offset" binding:"min=0"`
	Documents  DocumentList    `json:"documents"`
}

type UpdateAppointmentStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,oneof=scheduled completed cancelled"`
}

// BookingResult is what a successful createAppointment returns: the
// persisted record plus the slot descriptor the search settled on.
type BookingResult struct {
	Appointment *Appointment `json:"appointment"`
	Slot        *Slot        `json:"slot"`
}
