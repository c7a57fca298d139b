package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MaintenanceRecord struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	VehicleID   primitive.ObjectID `json:"vehicleId" bson:"vehicle_id"`
	Date        time.Time          `json:"date" bson:"date"`
	Type        string             `json:"type" bson:"type"`
	Description string             `json:"description" bson:"description"`
	Cost        float64            `json:"cost" bson:"cost"`
	Mileage     *int               `json:"mileage,omitempty" bson:"mileage,omitempty"`
	Workshop    string             `json:"workshop,omitempty" bson:"workshop,omitempty"`
	Notes       string             `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

// Maintenance record types
const (
	MaintenanceTypeOilChange  = "oil_change"
	MaintenanceTypeTires      = "tires"
	MaintenanceTypeBrakes     = "brakes"
	MaintenanceTypeInspection = "inspection"
	MaintenanceTypeRepair     = "repair"
	MaintenanceTypeOther      = "other"
)
