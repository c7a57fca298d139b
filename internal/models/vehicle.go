package models

import (
	"time"

	"fleet-manager/internal/inspection"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle dates (first registration, inspections) are calendar dates stored
// as UTC midnight.
type Vehicle struct {
	ID                    primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Plate                 string              `bson:"plate" json:"plate"`
	Brand                 string              `bson:"brand" json:"brand"`
	Model                 string              `bson:"model" json:"model"`
	Company               string              `bson:"company" json:"company"`
	UserID                *primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	FirstRegistrationDate time.Time           `bson:"first_registration_date" json:"firstRegistrationDate"`
	LastInspection        *time.Time          `bson:"last_inspection,omitempty" json:"lastInspection,omitempty"`
	NextInspection        *time.Time          `bson:"next_inspection,omitempty" json:"nextInspection,omitempty"`
	InspectionStatus      inspection.Status   `bson:"inspection_status" json:"inspectionStatus"`
	EmailSent             bool                `bson:"email_sent" json:"emailSent"`
	InitialMileage        *int                `bson:"initial_mileage,omitempty" json:"initialMileage,omitempty"`
	CurrentMileage        *int                `bson:"current_mileage,omitempty" json:"currentMileage,omitempty"`
	LastInspectionMileage *int                `bson:"last_inspection_mileage,omitempty" json:"lastInspectionMileage,omitempty"`
	FrontTires            string              `bson:"front_tires" json:"frontTires"`
	RearTires             string              `bson:"rear_tires" json:"rearTires"`
	Notes                 string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt             time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt             time.Time           `bson:"updated_at" json:"updatedAt"`
}

// Snapshot returns the fields the inspection rules work on.
func (v *Vehicle) Snapshot() inspection.Snapshot {
	return inspection.Snapshot{
		FirstRegistrationDate: v.FirstRegistrationDate,
		LastInspection:        v.LastInspection,
		NextInspection:        v.NextInspection,
		Status:                v.InspectionStatus,
	}
}

// VehiclePatch is a partial update. Nil fields are left untouched.
type VehiclePatch struct {
	Brand                 *string
	Model                 *string
	Company               *string
	UserID                *primitive.ObjectID
	FirstRegistrationDate *time.Time
	LastInspection        *time.Time
	NextInspection        *time.Time
	InspectionStatus      *inspection.Status
	EmailSent             *bool
	InitialMileage        *int
	CurrentMileage        *int
	LastInspectionMileage *int
	FrontTires            *string
	RearTires             *string
	Notes                 *string
}

// IsEmpty reports whether the patch would change nothing.
func (p VehiclePatch) IsEmpty() bool {
	return len(p.SetFields()) == 0
}

// SetFields returns the bson field names and values for a $set.
func (p VehiclePatch) SetFields() map[string]interface{} {
	set := map[string]interface{}{}
	if p.Brand != nil {
		set["brand"] = *p.Brand
	}
	if p.Model != nil {
		set["model"] = *p.Model
	}
	if p.Company != nil {
		set["company"] = *p.Company
	}
	if p.UserID != nil {
		set["user_id"] = *p.UserID
	}
	if p.FirstRegistrationDate != nil {
		set["first_registration_date"] = *p.FirstRegistrationDate
	}
	if p.LastInspection != nil {
		set["last_inspection"] = *p.LastInspection
	}
	if p.NextInspection != nil {
		set["next_inspection"] = *p.NextInspection
	}
	if p.InspectionStatus != nil {
		set["inspection_status"] = *p.InspectionStatus
	}
	if p.EmailSent != nil {
		set["email_sent"] = *p.EmailSent
	}
	if p.InitialMileage != nil {
		set["initial_mileage"] = *p.InitialMileage
	}
	if p.CurrentMileage != nil {
		set["current_mileage"] = *p.CurrentMileage
	}
	if p.LastInspectionMileage != nil {
		set["last_inspection_mileage"] = *p.LastInspectionMileage
	}
	if p.FrontTires != nil {
		set["front_tires"] = *p.FrontTires
	}
	if p.RearTires != nil {
		set["rear_tires"] = *p.RearTires
	}
	if p.Notes != nil {
		set["notes"] = *p.Notes
	}
	return set
}

// Apply copies the non-nil fields of p onto v.
func (p VehiclePatch) Apply(v *Vehicle) {
	if p.Brand != nil {
		v.Brand = *p.Brand
	}
	if p.Model != nil {
		v.Model = *p.Model
	}
	if p.Company != nil {
		v.Company = *p.Company
	}
	if p.UserID != nil {
		id := *p.UserID
		v.UserID = &id
	}
	if p.FirstRegistrationDate != nil {
		v.FirstRegistrationDate = *p.FirstRegistrationDate
	}
	if p.LastInspection != nil {
		t := *p.LastInspection
		v.LastInspection = &t
	}
	if p.NextInspection != nil {
		t := *p.NextInspection
		v.NextInspection = &t
	}
	if p.InspectionStatus != nil {
		v.InspectionStatus = *p.InspectionStatus
	}
	if p.EmailSent != nil {
		v.EmailSent = *p.EmailSent
	}
	if p.InitialMileage != nil {
		n := *p.InitialMileage
		v.InitialMileage = &n
	}
	if p.CurrentMileage != nil {
		n := *p.CurrentMileage
		v.CurrentMileage = &n
	}
	if p.LastInspectionMileage != nil {
		n := *p.LastInspectionMileage
		v.LastInspectionMileage = &n
	}
	if p.FrontTires != nil {
		v.FrontTires = *p.FrontTires
	}
	if p.RearTires != nil {
		v.RearTires = *p.RearTires
	}
	if p.Notes != nil {
		v.Notes = *p.Notes
	}
}
